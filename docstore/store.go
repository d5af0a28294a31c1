package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Errors reported by document stores.
var (
	// ErrDocumentNotFound means the backing location exists but holds no
	// document.
	ErrDocumentNotFound = errors.New("docstore: document not found")

	// ErrInvalidLocationURI means the location URI could not be parsed
	// or uses an unsupported scheme.
	ErrInvalidLocationURI = errors.New("docstore: invalid location URI")
)

// Store fetches the stored document.
type Store interface {
	// Fetch returns the document bytes. It returns ErrDocumentNotFound
	// when the location holds no document.
	Fetch(ctx context.Context) ([]byte, error)

	// Name identifies the backend for logs and diagnostics.
	Name() string
}

// NewStore creates a document store from a location URI.
//
// Supported forms:
//
//	file:///etc/counterapp/openapi_3_1_0_spec.json
//	file://openapi_3_1_0_spec.json           (relative path)
//	s3://bucket/key/openapi.json?region=us-east-1[&endpoint=host]
//	s3://ACCESS:SECRET@bucket/key?region=us-east-1
func NewStore(locationURI string, log *slog.Logger) (Store, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return newFileStore(u, log)
	case "s3":
		return newS3Store(u, log)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, u.Scheme)
	}
}
