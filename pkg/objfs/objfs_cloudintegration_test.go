//go:build cloudintegration

package objfs_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbusfs/pkg/objfs"
	"github.com/3leaps/nimbusfs/test/cloudtest"
)

func TestS3_MkdirsWritesMarkers(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()
	fsys, bucket := cloudtest.NewFileSystem(t, ctx)

	require.NoError(t, fsys.Mkdirs(ctx, "/a/b", objfs.MkdirsOptions{CreateParent: true}))

	assert.Equal(t, []string{"a/b_$folder$", "a_$folder$"}, cloudtest.Keys(t, ctx, bucket))
	ok, err := fsys.IsDirectory(ctx, "/a/b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestS3_ImplicitDirectories(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()
	fsys, bucket := cloudtest.NewFileSystem(t, ctx)

	cloudtest.PutObjects(t, ctx, bucket, []string{"logs/2026/01.txt", "logs/2026/02.txt", "top.txt"})

	entries, err := fsys.List(ctx, "/", objfs.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "logs", entries[0].Name)
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, "top.txt", entries[1].Name)

	st, err := fsys.GetStatus(ctx, "/logs/2026")
	require.NoError(t, err)
	assert.True(t, st.IsDir)
}

func TestS3_WriteAndRead(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()
	fsys, _ := cloudtest.NewFileSystem(t, ctx)

	w, err := fsys.Create(ctx, "/docs/readme.txt", objfs.CreateOptions{CreateParent: true})
	require.NoError(t, err)
	_, err = io.Copy(w, strings.NewReader("hello object store"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := fsys.Open(ctx, "/docs/readme.txt", objfs.OpenOptions{Offset: 6})
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "object store", string(data))
}

func TestS3_RenameDirectory(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()
	fsys, bucket := cloudtest.NewFileSystem(t, ctx)

	cloudtest.PutObjects(t, ctx, bucket, []string{"src_$folder$", "src/a.txt", "src/sub/b.txt"})

	res, err := fsys.Rename(ctx, "/src", "/dst")
	require.NoError(t, err)
	assert.Equal(t, objfs.RenameSucceeded, res.Outcome)
	assert.True(t, res.Directory)

	assert.Equal(t, []string{"dst/a.txt", "dst/sub/b.txt", "dst_$folder$"}, cloudtest.Keys(t, ctx, bucket))
}

func TestS3_DeleteRecursive(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()
	fsys, bucket := cloudtest.NewFileSystem(t, ctx)

	cloudtest.PutObjects(t, ctx, bucket, []string{"keep.txt", "tmp_$folder$", "tmp/x", "tmp/y/z"})

	err := fsys.Delete(ctx, "/tmp", objfs.DeleteOptions{})
	require.ErrorIs(t, err, objfs.ErrDirectoryNotEmpty)

	require.NoError(t, fsys.Delete(ctx, "/tmp", objfs.DeleteOptions{Recursive: true}))
	assert.Equal(t, []string{"keep.txt"}, cloudtest.Keys(t, ctx, bucket))
}
