package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bocklabs/bockscraper/internal/cache"
	"github.com/bocklabs/bockscraper/internal/storage"
)

func newStorageFixture(t *testing.T) *StorageHandler {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Upload(ctx, "scraped-articles", "session_1/art1/article.json", []byte(`{"title":"T"}`), "application/json"))
	require.NoError(t, store.Upload(ctx, "scraped-articles", "session_1/readme.txt", []byte("hello"), "text/plain; charset=utf-8"))

	return NewStorageHandler(store, cache.NewMemoryCache())
}

func TestStorageListReturnsFoldersAndFiles(t *testing.T) {
	h := newStorageFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/list",
		strings.NewReader(`{"bucket": "scraped-articles", "prefix": "session_1/"}`))
	w := httptest.NewRecorder()

	h.List(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Folders []storage.FolderInfo `json:"folders"`
		Files   []storage.FileInfo   `json:"files"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Folders, 1)
	assert.Equal(t, "session_1/art1/", body.Folders[0].Prefix)
	require.Len(t, body.Files, 1)
	assert.Equal(t, "session_1/readme.txt", body.Files[0].Key)
}

func TestStorageListRequiresBucket(t *testing.T) {
	h := newStorageFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/list",
		strings.NewReader(`{"prefix": "session_1/"}`))
	w := httptest.NewRecorder()

	h.List(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStorageListServesCachedResponse(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	mem := cache.NewMemoryCache()
	h := NewStorageHandler(store, mem)

	canned := []byte(`{"folders":[],"files":[{"key":"cached.json"}]}`)
	require.NoError(t, mem.Set(context.Background(), cache.BrowseKey("b", "p/"), canned, cache.TTLBrowse))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/list",
		strings.NewReader(`{"bucket": "b", "prefix": "p/"}`))
	w := httptest.NewRecorder()

	h.List(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cached.json")
}

func TestStorageDownloadStreamsAttachment(t *testing.T) {
	h := newStorageFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/download",
		strings.NewReader(`{"bucket": "scraped-articles", "key": "session_1/readme.txt"}`))
	w := httptest.NewRecorder()

	h.Download(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `"readme.txt"`)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestStorageDownloadMissingKey(t *testing.T) {
	h := newStorageFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/download",
		strings.NewReader(`{"bucket": "scraped-articles", "key": "nope.json"}`))
	w := httptest.NewRecorder()

	h.Download(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
