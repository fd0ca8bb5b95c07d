package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestStore(t *testing.T, handler http.Handler) *BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(server.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := New(client, Config{Bucket: "assets", CacheControl: "public, max-age=86400"})
	require.NoError(t, err)
	return store
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "assets"})
	require.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	_, err = New(client, Config{})
	require.Error(t, err)
}

func TestPutObjectUploadsToBucket(t *testing.T) {
	t.Parallel()

	objectName := "pets/42/pets-42-1-x.jpg"
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/assets/o")
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), "jpeg-bytes")
		assert.Contains(t, string(body), "image/jpeg")
		fmt.Fprintln(w, `{"name":"`+objectName+`","bucket":"assets"}`)
	})
	store := newTestStore(t, handler)

	uri, err := store.PutObject(context.Background(), objectName, "image/jpeg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "gs://assets/"+objectName, uri)
}

func TestPutObjectWithMetadataSendsTitle(t *testing.T) {
	t.Parallel()

	objectName := "pets/42/pets-42-1-x.jpg"
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), `"title":"Rex"`)
		fmt.Fprintln(w, `{"name":"`+objectName+`","bucket":"assets"}`)
	})
	store := newTestStore(t, handler)

	_, err := store.PutObjectWithMetadata(context.Background(), objectName, "image/jpeg",
		map[string]string{"title": "Rex"}, strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
}

func TestPutObjectSurfacesServerError(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"boom"}}`, http.StatusInternalServerError)
	})
	store := newTestStore(t, handler)

	_, err := store.PutObject(context.Background(), "pets/1/pets-1-1-x.jpg", "image/jpeg", strings.NewReader("x"))
	require.Error(t, err)
}

func TestPutObjectRequiresPath(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, http.NotFoundHandler())
	_, err := store.PutObject(context.Background(), " ", "image/jpeg", strings.NewReader("x"))
	require.Error(t, err)
}
