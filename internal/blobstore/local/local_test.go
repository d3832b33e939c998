package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/toolkeepr/internal/blobstore"
)

func TestLocalStoreSaveAndGet(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	imageData := []byte("fake jpeg data")

	key, err := store.Save(ctx, "photos/location_1", "image/jpeg", bytes.NewReader(imageData))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "photos/location_1/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	reader, mimeType, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, "image/jpeg", mimeType)

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, imageData, data)
}

func TestLocalStorePutOverwrites(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := "backups/toolkeepr-backup-1.json"
	require.NoError(t, store.Put(ctx, key, strings.NewReader(`{"v":1}`), blobstore.PutOptions{Encrypt: true}))
	require.NoError(t, store.Put(ctx, key, strings.NewReader(`{"v":2}`), blobstore.PutOptions{}))

	rc, mimeType, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))
	assert.Equal(t, "application/json", mimeType)
}

func TestLocalStoreDelete(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.Save(ctx, "photos", "image/png", bytes.NewReader([]byte("test data")))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, key))

	_, _, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, key), blobstore.ErrNotFound)
}

func TestLocalStoreList(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"backups/b.json", "backups/a.json", "reports/r.csv"} {
		require.NoError(t, store.Put(ctx, key, strings.NewReader("x"), blobstore.PutOptions{}))
	}

	infos, err := store.List(ctx, "backups/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "backups/a.json", infos[0].Key)
	assert.Equal(t, "backups/b.json", infos[1].Key)
	assert.Equal(t, int64(1), infos[0].Size)
	assert.False(t, infos[0].LastModified.IsZero())

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = os.Stat(filepath.Join(dir, "reports", "r.csv"))
	assert.NoError(t, err)
}

func TestLocalStorePathTraversal(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = store.Get(ctx, "../../etc/passwd")
	assert.Error(t, err)
	assert.Error(t, store.Put(ctx, "../escape.json", strings.NewReader("x"), blobstore.PutOptions{}))
}
