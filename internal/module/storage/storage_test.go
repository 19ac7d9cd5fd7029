package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemStore_SaveLoad(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key, err := store.Save(ctx, CategoryFiles, "report.pdf", []byte("pdf bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, "_report.pdf"), "key keeps original name: %s", key)

	got, err := store.Load(ctx, CategoryFiles, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), got)
}

func TestFilesystemStore_LoadMissing(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load(context.Background(), CategoryImages, "nope.png")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestFilesystemStore_RejectsTraversalKeys(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../secret", "a/../../b", "dir/file", `dir\file`, "", ".", ".."} {
		_, err := store.Load(context.Background(), CategoryFiles, key)
		assert.ErrorIs(t, err, ErrInvalidBlobKey, key)
	}
}

func TestFilesystemStore_DottedFilenameRoundTrip(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	for _, name := range []string{"report..v2.pdf", "a..b..c.txt", "notes...txt"} {
		key, err := store.Save(ctx, CategoryFiles, name, []byte("content"))
		require.NoError(t, err, name)

		got, err := store.Load(ctx, CategoryFiles, key)
		require.NoError(t, err, "key %q must load back", key)
		assert.Equal(t, []byte("content"), got)
	}
}

func TestFilesystemStore_SanitizesFilenames(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key, err := store.Save(ctx, CategoryAudio, "../../etc/passwd", []byte("x"))
	require.NoError(t, err)
	assert.NotContains(t, key, "/")
	assert.NotContains(t, key, "..")

	got, err := store.Load(ctx, CategoryAudio, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}

func TestFilesystemStore_UnknownCategory(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save(context.Background(), Category("tmp"), "a.txt", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidBlobKey)
}

func TestBlobKeyUnique(t *testing.T) {
	a := blobKey("same.txt")
	b := blobKey("same.txt")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, "_same.txt"))
}

func TestNewS3Store_IncompleteConfig(t *testing.T) {
	_, err := NewS3Store(&S3Config{Bucket: "uploads"})
	assert.Error(t, err)
}
