/*
Package security implements the service's access control: TLS context
construction for the listeners and JWT claim authorization for the API.

# TLS Negotiation

BuildServerTLSConfig turns on-disk PEM material into a server
tls.Config. Absent material is not an error: when TLS is disabled by
configuration, or the certificate or key file does not exist, the
builder returns nil and the caller serves plaintext. This keeps local
development working without generated certificates while production
deployments fail loudly only on corrupt material.

Mutual TLS layers on top: when requested and the CA bundle is readable,
client certificates are required and verified against the bundle. An
unusable bundle logs a warning and degrades to standard one-way TLS
rather than locking every client out.

# JWT Authorization

Two validators cover two trust postures:

RoleValidator decodes a token's claims WITHOUT verifying its signature
and checks Keycloak role claims. This is deliberate: tokens only reach
this service through the gateway, and the gateway is the component that
authenticates them. The validator's job is authorization — confirming
the gateway-vetted caller carries the required realm role and client
role. Do not expose endpoints guarded only by RoleValidator to traffic
that has not passed through the gateway.

KeySetValidator performs full verification for endpoints with elevated
trust requirements: it fetches the Keycloak JWK set, verifies the RS256
signature against the key named by the token's kid header, checks
expiry, matches the issuer against an allow-list, and requires the
counter-app.read scope. The JWK set is fetched on every validation; the
strict path is low-traffic and refetching tracks Keycloak key rotation
without cache invalidation.

Both validators return a Decision carrying a machine-readable reason
code. The middleware maps decisions onto the wire contract: a missing
token responds 401, any other denial responds 403.

# Registry Client Transport

NewRegistryHTTPClient builds the HTTP client used to talk to the
service registry. Certificate verification is disabled on this client
because the registry deployment presents a self-signed certificate and
shares the service's trust boundary. The client must not be reused for
calls that leave that boundary.
*/
package security
