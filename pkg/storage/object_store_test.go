package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectPathNamespacesByOwner(t *testing.T) {
	now := time.Unix(1700000000, 0)

	first, err := ObjectPath("user-1", "Lecture Notes.PDF", now)
	require.NoError(t, err)
	second, err := ObjectPath("user-1", "Lecture Notes.PDF", now)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first, "user-1/1700000000_"))
	assert.True(t, strings.HasSuffix(first, ".pdf"))
	assert.NotEqual(t, first, second)

	_, err = ObjectPath("", "x.pdf", now)
	assert.Error(t, err)
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080/storage/")
	require.NoError(t, err)

	stored, err := store.Put(ctx, "listing-files", "user-1/notes.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "user-1/notes.pdf", stored)

	rc, info, err := store.Get(ctx, "listing-files", stored)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF-1.4", string(body))
	assert.Equal(t, int64(8), info.Size)
	assert.Equal(t, "application/pdf", info.ContentType)

	assert.Equal(t, "http://localhost:8080/storage/listing-files/user-1/notes.pdf", store.PublicURL("listing-files", stored))

	require.NoError(t, store.Remove(ctx, "listing-files", stored))
	require.NoError(t, store.Remove(ctx, "listing-files", stored))
	_, _, err = store.Get(ctx, "listing-files", stored)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "")
	require.NoError(t, err)

	stored, err := store.Put(ctx, "previews", "../../etc/passwd", strings.NewReader("x"), 1, "")
	require.NoError(t, err)
	assert.Equal(t, "etc/passwd", stored)

	_, err = store.Put(ctx, "../outside", "a.txt", strings.NewReader("x"), 1, "")
	assert.Error(t, err)
}
