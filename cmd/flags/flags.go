// Package flags holds the shared urfave/cli flag definitions for the
// counterapp binaries. Every service flag is also bound to its
// environment variable so container deployments can configure the
// process without argv.
package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/linqra/counterapp/api"
	"github.com/linqra/counterapp/common"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJSONFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUIDFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *api.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		ServiceName:              cCtx.String(AppNameFlag.Name),
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

var AppNameFlag = &cli.StringFlag{
	Name:    "app-name",
	Value:   "counter-app",
	Usage:   "service name used for registry registration and the X-Service-Name header",
	EnvVars: []string{"APP_NAME"},
}

var PortFlag = &cli.IntFlag{
	Name:    "port",
	Value:   5001,
	Usage:   "primary listener port",
	EnvVars: []string{"PORT"},
}

var EnvironmentFlag = &cli.StringFlag{
	Name:    "environment",
	Value:   "development",
	Usage:   "deployment environment reported on the home endpoint",
	EnvVars: []string{"ENVIRONMENT"},
}

var HTTPEnabledFlag = &cli.BoolFlag{
	Name:    "http-enabled",
	Value:   false,
	Usage:   "allow the plaintext fallback listener on port+1000 (ignored while TLS is active)",
	EnvVars: []string{"HTTP_ENABLED"},
}

var SSLEnabledFlag = &cli.BoolFlag{
	Name:    "ssl-enabled",
	Value:   false,
	Usage:   "serve the primary listener over TLS",
	EnvVars: []string{"SSL_ENABLED"},
}

var MutualTLSFlag = &cli.BoolFlag{
	Name:    "mutual-tls-enabled",
	Value:   false,
	Usage:   "require and verify client certificates (needs the CA bundle)",
	EnvVars: []string{"MUTUAL_TLS_ENABLED"},
}

var ServerCertFlag = &cli.StringFlag{
	Name:    "server-cert",
	Value:   "certs/server.crt",
	Usage:   "path to the server certificate PEM",
	EnvVars: []string{"SERVER_CERT_PATH"},
}

var ServerKeyFlag = &cli.StringFlag{
	Name:    "server-key",
	Value:   "certs/server.key",
	Usage:   "path to the server private key PEM",
	EnvVars: []string{"SERVER_KEY_PATH"},
}

var CABundleFlag = &cli.StringFlag{
	Name:    "ca-bundle",
	Value:   "certs/ca-bundle.crt",
	Usage:   "path to the CA bundle used to verify client certificates",
	EnvVars: []string{"CA_BUNDLE_PATH"},
}

var RegistryHostFlag = &cli.StringFlag{
	Name:    "registry-host",
	Value:   "localhost",
	Usage:   "service registry host",
	EnvVars: []string{"EUREKA_CLIENT_URL"},
}

var RegistryPortFlag = &cli.StringFlag{
	Name:    "registry-port",
	Value:   "8761",
	Usage:   "service registry port",
	EnvVars: []string{"EUREKA_SERVER_PORT"},
}

var RegistryPathFlag = &cli.StringFlag{
	Name:    "registry-path",
	Value:   "/eureka/",
	Usage:   "service registry base path",
	EnvVars: []string{"EUREKA_SERVICE_PATH"},
}

var InstanceHostFlag = &cli.StringFlag{
	Name:    "instance-host",
	Usage:   "hostname advertised to the registry (defaults to the resolved instance IP)",
	EnvVars: []string{"EUREKA_INSTANCE_URL"},
}

var KeycloakHostFlag = &cli.StringFlag{
	Name:    "keycloak-gateway-host",
	Value:   "localhost",
	Usage:   "Keycloak gateway host used to derive the default issuer and key-set URLs",
	EnvVars: []string{"KEYCLOAK_GATEWAY_URL"},
}

var KeycloakPortFlag = &cli.StringFlag{
	Name:    "keycloak-gateway-port",
	Value:   "8080",
	Usage:   "Keycloak gateway port",
	EnvVars: []string{"KEYCLOAK_GATEWAY_PORT"},
}

var KeycloakIssuerFlag = &cli.StringFlag{
	Name:    "keycloak-issuer-uri",
	Usage:   "token issuer URI (overrides the gateway-derived default)",
	EnvVars: []string{"KEYCLOAK_ISSUER_URI"},
}

var KeycloakJWKSFlag = &cli.StringFlag{
	Name:    "keycloak-jwk-set-uri",
	Usage:   "JWK set URI for signature verification (overrides the gateway-derived default)",
	EnvVars: []string{"KEYCLOAK_JWK_SET_URI"},
}

var OpenAPIDocFlag = &cli.StringFlag{
	Name:    "openapi-doc",
	Value:   "file://openapi_3_1_0_spec.json",
	Usage:   "location of the OpenAPI document (file:// or s3://bucket/key)",
	EnvVars: []string{"OPENAPI_DOC_URI"},
}

var LogJSONFlag = &cli.BoolFlag{
	Name:    "log-json",
	Value:   false,
	Usage:   "log in JSON format",
	EnvVars: []string{"LOG_JSON"},
}
var LogDebugFlag = &cli.BoolFlag{
	Name:    "log-debug",
	Value:   false,
	Usage:   "log debug messages",
	EnvVars: []string{"LOG_DEBUG"},
}
var LogUIDFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:    "log-service",
	Value:   common.PackageName,
	Usage:   "add 'service' tag to logs",
	EnvVars: []string{"LOG_SERVICE"},
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:    "metrics-addr",
	Value:   "127.0.0.1:8090",
	Usage:   "address to listen on for Prometheus metrics",
	EnvVars: []string{"METRICS_ADDR"},
}

var CommonFlags = []cli.Flag{
	LogJSONFlag,
	LogDebugFlag,
	LogUIDFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}

// ServiceFlags is the full flag surface of the counterapp service.
var ServiceFlags = append([]cli.Flag{
	AppNameFlag,
	PortFlag,
	EnvironmentFlag,
	HTTPEnabledFlag,
	SSLEnabledFlag,
	MutualTLSFlag,
	ServerCertFlag,
	ServerKeyFlag,
	CABundleFlag,
	RegistryHostFlag,
	RegistryPortFlag,
	RegistryPathFlag,
	InstanceHostFlag,
	KeycloakHostFlag,
	KeycloakPortFlag,
	KeycloakIssuerFlag,
	KeycloakJWKSFlag,
	OpenAPIDocFlag,
}, CommonFlags...)
