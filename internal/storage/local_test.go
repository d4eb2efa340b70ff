package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestLocalStoreListFolders(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upload(ctx, "bucket", "session_1/a/article.json", []byte("{}"), ""))
	require.NoError(t, store.Upload(ctx, "bucket", "session_1/b/article.json", []byte("{}"), ""))
	require.NoError(t, store.Upload(ctx, "bucket", "session_1/top.json", []byte("{}"), ""))

	folders, err := store.ListFolders(ctx, "bucket", "session_1/")
	require.NoError(t, err)

	// Root token first (files exist at the prefix), then subfolders, sorted.
	assert.Equal(t, []string{"session_1/", "session_1/a/", "session_1/b/"}, folders)
}

func TestLocalStoreListFilesFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upload(ctx, "bucket", "f/b.json", []byte("{}"), ""))
	require.NoError(t, store.Upload(ctx, "bucket", "f/a.json", []byte("{}"), ""))
	require.NoError(t, store.Upload(ctx, "bucket", "f/pic.jpg", []byte("x"), ""))
	require.NoError(t, store.Upload(ctx, "bucket", "f/article_text_summary.json", []byte("{}"), ""))
	require.NoError(t, store.Upload(ctx, "bucket", "f/image_summary.json", []byte("{}"), ""))
	require.NoError(t, store.Upload(ctx, "bucket", "f/sub/nested.json", []byte("{}"), ""))

	keys, err := store.ListFiles(ctx, "bucket", "f", []string{".json"})
	require.NoError(t, err)
	assert.Equal(t, []string{"f/a.json", "f/b.json"}, keys)

	images, err := store.ListFiles(ctx, "bucket", "f", []string{".jpg", ".jpeg", ".png"})
	require.NoError(t, err)
	assert.Equal(t, []string{"f/pic.jpg"}, images)
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upload(ctx, "bucket", "k/doc.txt", []byte("hello"), ""))

	data, contentType, err := store.Get(ctx, "bucket", "k/doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "text/plain; charset=utf-8", contentType)

	local := t.TempDir() + "/doc.txt"
	require.NoError(t, store.Download(ctx, "bucket", "k/doc.txt", local))
}

func TestLocalStoreBrowse(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upload(ctx, "bucket", "s/one/a.json", []byte("{}"), ""))
	require.NoError(t, store.Upload(ctx, "bucket", "s/file.txt", []byte("x"), ""))

	folders, files, err := store.Browse(ctx, "bucket", "s")
	require.NoError(t, err)

	require.Len(t, folders, 1)
	assert.Equal(t, "one", folders[0].Name)
	assert.Equal(t, "s/one/", folders[0].Prefix)

	require.Len(t, files, 1)
	assert.Equal(t, "file.txt", files[0].Name)
	assert.Equal(t, "s/file.txt", files[0].Key)
	assert.Equal(t, int64(1), files[0].Size)
}

func TestIsSummaryKey(t *testing.T) {
	assert.True(t, IsSummaryKey("f/image_summary.json"))
	assert.True(t, IsSummaryKey("f/article_TEXT_summary.json"))
	assert.False(t, IsSummaryKey("f/article.json"))
}

func TestSyncDir(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "one"), os.ModePerm))
	require.NoError(t, os.WriteFile(filepath.Join(src, "one", "a.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.txt"), []byte("x"), 0o644))

	require.NoError(t, store.SyncDir(ctx, src, "bucket", "session_9/"))

	keys, err := store.ListFiles(ctx, "bucket", "session_9/one", []string{".json"})
	require.NoError(t, err)
	assert.Equal(t, []string{"session_9/one/a.json"}, keys)
}
