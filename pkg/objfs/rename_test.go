package objfs

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbusfs/pkg/provider"
	"github.com/3leaps/nimbusfs/pkg/provider/memory"
)

func TestRename_File(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	fsys := newTestFS(t, store)
	put(t, store, "src", "sibling")

	res, err := fsys.Rename(ctx, "/src", "/dst")
	require.NoError(t, err)
	assert.Equal(t, RenameSucceeded, res.Outcome)
	assert.Equal(t, 1, res.Objects)
	assert.False(t, res.Directory)
	assert.Equal(t, []string{"dst", "sibling"}, store.Keys())
}

func TestRename_CopyFailureAborts(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	store.failCopy = func(string) bool { return true }
	fsys := newTestFS(t, store)
	put(t, store, "src")

	res, err := fsys.Rename(ctx, "/src", "/dst")
	require.Error(t, err)
	assert.Equal(t, RenameAborted, res.Outcome)
	assert.ErrorIs(t, err, ErrCopyFailed)
	assert.False(t, IsPartial(err))
	assert.Equal(t, []string{"src"}, store.Keys(), "both keys untouched")
}

func TestRename_DeleteFailureIsPartial(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	store.failDelete = func(string) bool { return true }
	fsys := newTestFS(t, store)
	put(t, store, "src")

	res, err := fsys.Rename(ctx, "/src", "/dst")
	require.Error(t, err)
	assert.Equal(t, RenamePartial, res.Outcome)
	assert.ErrorIs(t, err, ErrPartialRename)
	assert.ErrorIs(t, err, ErrDeleteFailed)
	assert.True(t, IsPartial(err))

	var pr *PartialRenameError
	require.True(t, errors.As(err, &pr))
	assert.Equal(t, "src", pr.SourceKey)
	assert.Equal(t, "dst", pr.DestinationKey)
	assert.True(t, pr.Copied)
	assert.Equal(t, []string{"dst", "src"}, store.Keys(), "both copies present")
}

func TestRename_Directory(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	fsys := newTestFS(t, store, func(c *Config) { c.PageSize = 2 })
	put(t, store, "dir_$folder$", "dir/a", "dir/sub/b", "dir/sub_$folder$", "dirx")

	res, err := fsys.Rename(ctx, "/dir", "/moved")
	require.NoError(t, err)
	assert.Equal(t, RenameSucceeded, res.Outcome)
	assert.True(t, res.Directory)
	assert.Equal(t, 4, res.Objects)
	assert.Equal(t, []string{"dirx", "moved/a", "moved/sub/b", "moved/sub_$folder$", "moved_$folder$"}, store.Keys())
}

func TestRename_ImplicitDirectory(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	fsys := newTestFS(t, store)
	put(t, store, "d/x", "d/y")

	res, err := fsys.Rename(ctx, "/d", "/e")
	require.NoError(t, err)
	assert.Equal(t, RenameSucceeded, res.Outcome)
	assert.Equal(t, []string{"e/x", "e/y"}, store.Keys(), "no marker invented")
}

func TestRename_EmptyDirectory(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	fsys := newTestFS(t, store)
	require.NoError(t, fsys.Mkdirs(ctx, "/empty", MkdirsOptions{}))

	res, err := fsys.Rename(ctx, "/empty", "/full")
	require.NoError(t, err)
	assert.Equal(t, RenameSucceeded, res.Outcome)
	assert.Equal(t, []string{"full_$folder$"}, store.Keys())
}

func TestRename_DirectoryPartial(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	store.failCopy = func(src string) bool { return src == "d/2" }
	fsys := newTestFS(t, store)
	put(t, store, "d_$folder$", "d/1", "d/2", "d/3")

	res, err := fsys.Rename(ctx, "/d", "/e")
	require.Error(t, err)
	assert.Equal(t, RenamePartial, res.Outcome)
	assert.Equal(t, 1, res.Objects)

	var pr *PartialRenameError
	require.True(t, errors.As(err, &pr))
	assert.Equal(t, "d/2", pr.SourceKey)
	assert.Equal(t, "e/2", pr.DestinationKey)
	assert.Equal(t, []string{"d/1"}, pr.Renamed)
	assert.Equal(t, 2, pr.Remaining)
	assert.False(t, pr.Copied)
	assert.ErrorIs(t, err, ErrCopyFailed)

	assert.Equal(t, []string{"d/2", "d/3", "d_$folder$", "e/1"}, store.Keys(),
		"source marker survives so the rename can be resumed")
}

func TestRename_MalformedListingIsPartial(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	store.dropToken = func(opts provider.ListWithDelimiterOptions) bool { return opts.ContinuationToken != "" }
	fsys := newTestFS(t, store, func(c *Config) { c.PageSize = 1 })
	put(t, store, "s/1", "s/2", "s/3")

	res, err := fsys.Rename(ctx, "/s", "/t")
	require.Error(t, err)
	assert.Equal(t, RenamePartial, res.Outcome)
	assert.ErrorIs(t, err, ErrListingFailed)

	var pr *PartialRenameError
	require.True(t, errors.As(err, &pr))
	assert.Equal(t, []string{"s/1"}, pr.Renamed)
	assert.Equal(t, []string{"s/2", "s/3", "t/1"}, store.Keys())
}

func TestRename_FirstCopyFailureInDirectoryAborts(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	store.failCopy = func(string) bool { return true }
	fsys := newTestFS(t, store)
	put(t, store, "d/1", "d/2")

	res, err := fsys.Rename(ctx, "/d", "/e")
	require.Error(t, err)
	assert.Equal(t, RenameAborted, res.Outcome)
	assert.False(t, IsPartial(err))
	assert.Equal(t, []string{"d/1", "d/2"}, store.Keys())
}

func TestRename_Cancelled(t *testing.T) {
	store := newFaultyStore()
	fsys := newTestFS(t, store)
	put(t, store, "d/1", "d/2", "d/3")

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	store.failCopy = func(string) bool {
		calls++
		if calls == 2 {
			cancel()
		}
		return false
	}

	res, err := fsys.Rename(ctx, "/d", "/e")
	require.Error(t, err)
	assert.Equal(t, RenamePartial, res.Outcome)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls, "nothing attempted after cancellation")
	assert.Equal(t, []string{"d/2", "d/3", "e/1"}, store.Keys())
}

func TestRename_Validation(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	fsys := newTestFS(t, store)
	put(t, store, "a", "b", "dir/x")

	tests := []struct {
		name     string
		src, dst string
		want     error
	}{
		{"destination exists", "/a", "/b", ErrExist},
		{"destination directory exists", "/a", "/dir", ErrExist},
		{"missing source", "/nope", "/c", ErrNotFound},
		{"missing source onto existing destination", "/nope", "/b", ErrNotFound},
		{"root source", "/", "/c", ErrInvalidPath},
		{"same path", "/a", "//a/", ErrInvalidPath},
		{"into itself", "/dir", "/dir/inner", ErrInvalidPath},
		{"bad path", "/a", "/x/../y", ErrInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := fsys.Rename(ctx, tt.src, tt.dst)
			assert.ErrorIs(t, err, tt.want)
			require.NotNil(t, res)
			assert.Equal(t, RenameAborted, res.Outcome)
		})
	}
	assert.Equal(t, []string{"a", "b", "dir/x"}, store.Keys())
}

func TestRename_StreamsWithoutServerSideCopy(t *testing.T) {
	ctx := context.Background()
	inner := memory.New("bkt")
	fsys := newTestFS(t, &basicStore{inner: inner})
	put(t, inner, "src")

	res, err := fsys.Rename(ctx, "/src", "/dst")
	require.NoError(t, err)
	assert.Equal(t, RenameSucceeded, res.Outcome)

	body, _, err := inner.GetObject(ctx, "dst")
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	assert.Equal(t, "data:src", string(data))
}

func TestRenameOutcome_String(t *testing.T) {
	assert.Equal(t, "succeeded", RenameSucceeded.String())
	assert.Equal(t, "aborted", RenameAborted.String())
	assert.Equal(t, "partial", RenamePartial.String())
}
