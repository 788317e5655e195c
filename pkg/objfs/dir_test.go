package objfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryMarkers(t *testing.T) {
	fsys := newTestFS(t, newFaultyStore())

	assert.True(t, fsys.IsDirectoryMarker("a/b_$folder$"))
	assert.False(t, fsys.IsDirectoryMarker("a/b"))

	key, err := fsys.MarkerKey("/a/b/")
	require.NoError(t, err)
	assert.Equal(t, "a/b_$folder$", key)

	_, err = fsys.MarkerKey("/")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestDirectoryExists_MarkerFirst(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	fsys := newTestFS(t, store)
	put(t, store, "explicit_$folder$", "implicit/child")

	ok, err := fsys.IsDirectory(ctx, "/explicit")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, store.listCalls(), "marker hit needs no listing")

	ok, err = fsys.IsDirectory(ctx, "/implicit")
	require.NoError(t, err)
	assert.True(t, ok)
	require.Equal(t, 1, store.listCalls())
	assert.Equal(t, 1, store.lists[0].MaxKeys)
	assert.Equal(t, "implicit/", store.lists[0].Prefix)

	ok, err = fsys.IsDirectory(ctx, "/missing")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = fsys.IsDirectory(ctx, "/")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDirectoryExists_Monotonic(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	fsys := newTestFS(t, store)

	require.NoError(t, fsys.Mkdirs(ctx, "/d", MkdirsOptions{}))
	assertDir := func(want bool) {
		t.Helper()
		ok, err := fsys.IsDirectory(ctx, "/d")
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}
	assertDir(true)

	put(t, store, "d/x", "d/y")
	assertDir(true)

	require.NoError(t, store.DeleteObject(ctx, "d_$folder$"))
	assertDir(true)

	require.NoError(t, store.DeleteObject(ctx, "d/x"))
	assertDir(true)

	require.NoError(t, store.DeleteObject(ctx, "d/y"))
	assertDir(false)
}

func TestMkdirs(t *testing.T) {
	ctx := context.Background()

	t.Run("creates marker", func(t *testing.T) {
		store := newFaultyStore()
		fsys := newTestFS(t, store)
		require.NoError(t, fsys.Mkdirs(ctx, "/a", MkdirsOptions{}))
		assert.Equal(t, []string{"a_$folder$"}, store.Keys())

		require.NoError(t, fsys.Mkdirs(ctx, "/a", MkdirsOptions{}), "existing directory is fine")
		assert.Len(t, store.Keys(), 1)
	})

	t.Run("root is a no-op", func(t *testing.T) {
		store := newFaultyStore()
		fsys := newTestFS(t, store)
		require.NoError(t, fsys.Mkdirs(ctx, "/", MkdirsOptions{}))
		assert.Empty(t, store.Keys())
	})

	t.Run("missing parent", func(t *testing.T) {
		fsys := newTestFS(t, newFaultyStore())
		err := fsys.Mkdirs(ctx, "/a/b/c", MkdirsOptions{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("create parents", func(t *testing.T) {
		store := newFaultyStore()
		fsys := newTestFS(t, store)
		put(t, store, "a/other")
		require.NoError(t, fsys.Mkdirs(ctx, "/a/b/c", MkdirsOptions{CreateParent: true}))
		assert.Equal(t, []string{"a/b/c_$folder$", "a/b_$folder$", "a/other"}, store.Keys(),
			"implicit ancestor a gets no marker")
	})

	t.Run("file occupies path", func(t *testing.T) {
		store := newFaultyStore()
		fsys := newTestFS(t, store)
		put(t, store, "f")
		assert.ErrorIs(t, fsys.Mkdirs(ctx, "/f", MkdirsOptions{}), ErrExist)
	})

	t.Run("file as ancestor", func(t *testing.T) {
		store := newFaultyStore()
		fsys := newTestFS(t, store)
		put(t, store, "f")
		assert.ErrorIs(t, fsys.Mkdirs(ctx, "/f/g", MkdirsOptions{}), ErrNotDirectory)
		assert.ErrorIs(t, fsys.Mkdirs(ctx, "/f/g/h", MkdirsOptions{CreateParent: true}), ErrNotDirectory)
	})

	t.Run("marker write failure", func(t *testing.T) {
		store := newFaultyStore()
		store.failPut = func(string) bool { return true }
		fsys := newTestFS(t, store)
		err := fsys.Mkdirs(ctx, "/a", MkdirsOptions{})
		assert.ErrorIs(t, err, ErrWriteFailed)
		assert.ErrorIs(t, err, errInjected)
	})
}
