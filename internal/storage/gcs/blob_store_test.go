package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestStore(t *testing.T, handler http.Handler) *BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := Dial(context.Background(), Config{Bucket: "crawl-artifacts"},
		option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutObject(t *testing.T) {
	t.Parallel()

	const object = "runs/run-1/emails_wine.csv"
	payload := "Name,Country,Email\nAcme,France,info@acme.test\n"

	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/crawl-artifacts/o")
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), payload)
		assert.Contains(t, string(body), "text/csv")
		fmt.Fprintln(w, `{"bucket": "crawl-artifacts", "name": "`+object+`"}`)
	}))

	uri, err := store.PutObject(context.Background(), object, "text/csv; charset=utf-8", strings.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, "gs://crawl-artifacts/"+object, uri)
}

func TestPutObject_ServerError(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := store.PutObject(context.Background(), "runs/x.csv", "", strings.NewReader("data"))
	require.Error(t, err)
}

func TestPutObject_EmptyPath(t *testing.T) {
	t.Parallel()

	store := &BlobStore{bucket: "b"}
	_, err := store.PutObject(context.Background(), " ", "", strings.NewReader("data"))
	require.ErrorContains(t, err, "path is required")
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)
}
