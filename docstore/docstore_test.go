package docstore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewStoreSelectsBackendByScheme(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		wantType any
		wantErr  bool
	}{
		{name: "file absolute", uri: "file:///tmp/openapi.json", wantType: &FileStore{}},
		{name: "file relative", uri: "file://openapi_3_1_0_spec.json", wantType: &FileStore{}},
		{name: "s3", uri: "s3://specs/counter-app/openapi.json?region=us-east-1", wantType: &S3Store{}},
		{name: "s3 with endpoint", uri: "s3://specs/openapi.json?region=us-east-1&endpoint=localhost:9000", wantType: &S3Store{}},
		{name: "unsupported scheme", uri: "vault://secret/openapi", wantErr: true},
		{name: "s3 missing key", uri: "s3://bucket-only", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(tt.uri, testLogger())
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidLocationURI)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, store)
		})
	}
}

func TestFileStoreFetch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "openapi.json")
	content := []byte(`{"openapi":"3.1.0"}`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	store, err := NewStore("file://"+path, testLogger())
	require.NoError(t, err)

	data, err := store.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestFileStoreFetchMissing(t *testing.T) {
	store, err := NewStore("file://"+filepath.Join(t.TempDir(), "absent.json"), testLogger())
	require.NoError(t, err)

	_, err = store.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestStoreNames(t *testing.T) {
	fileStore, err := NewStore("file:///etc/counterapp/openapi.json", testLogger())
	require.NoError(t, err)
	assert.Equal(t, "file-openapi.json", fileStore.Name())

	s3Store, err := NewStore("s3://specs/openapi.json?region=eu-west-1", testLogger())
	require.NoError(t, err)
	assert.Equal(t, "s3-specs", s3Store.Name())
}
