// Package docstore retrieves the service's OpenAPI document from a
// configured backing location.
//
// A store is created from a location URI; the scheme selects the
// backend:
//
//   - file:// - local filesystem (the default deployment shape)
//   - s3://   - Amazon S3 or a compatible object store
//
// The document is fetched per request with no caching: the document is
// small, read rarely, and an operator replacing it on disk or in the
// bucket should be visible immediately.
package docstore
