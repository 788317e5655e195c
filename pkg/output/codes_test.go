package output

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/3leaps/nimbusfs/pkg/objfs"
	"github.com/3leaps/nimbusfs/pkg/provider"
)

func TestCodeOf(t *testing.T) {
	fsErr := func(kind, cause error) error {
		return &objfs.Error{Op: "Test", Path: "/p", Key: "p", Kind: kind, Err: cause}
	}
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"invalid path", fsErr(objfs.ErrInvalidPath, nil), ErrCodeInvalidPath},
		{"not found", fsErr(objfs.ErrNotFound, nil), ErrCodeNotFound},
		{"exists", fsErr(objfs.ErrExist, nil), ErrCodeExists},
		{"not a directory", fsErr(objfs.ErrNotDirectory, nil), ErrCodeNotDirectory},
		{"is a directory", fsErr(objfs.ErrIsDirectory, nil), ErrCodeIsDirectory},
		{"not empty", fsErr(objfs.ErrDirectoryNotEmpty, nil), ErrCodeNotEmpty},
		{"unsupported", fsErr(objfs.ErrDeleteFailed, objfs.ErrUnsupported), ErrCodeUnsupported},
		{"partial rename", &objfs.PartialRenameError{SourceKey: "a", Err: errors.New("x")}, ErrCodePartialRename},
		{"partial delete", &objfs.PartialDeleteError{Path: "/d", Deleted: 3, Err: errors.New("x")}, ErrCodePartialDelete},
		{"timeout", fsErr(objfs.ErrListingFailed, context.DeadlineExceeded), ErrCodeTimeout},
		{"canceled", fmt.Errorf("wrapped: %w", context.Canceled), ErrCodeCanceled},
		{
			"access denied",
			fsErr(objfs.ErrReadFailed, &provider.ProviderError{Op: "GetRange", Err: provider.ErrAccessDenied}),
			ErrCodeAccessDenied,
		},
		{
			"throttled",
			fsErr(objfs.ErrWriteFailed, &provider.ProviderError{Op: "PutObject", Err: provider.ErrThrottled}),
			ErrCodeThrottled,
		},
		{"status query", fsErr(objfs.ErrStatusQueryFailed, errors.New("boom")), ErrCodeStoreUnavailable},
		{"other", errors.New("boom"), ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestNewErrorRecord(t *testing.T) {
	t.Run("filesystem error", func(t *testing.T) {
		rec := NewErrorRecord(&objfs.Error{Op: "Open", Path: "/a/b", Key: "a/b", Kind: objfs.ErrNotFound})
		assert.Equal(t, ErrCodeNotFound, rec.Code)
		assert.Equal(t, "/a/b", rec.Path)
		assert.Equal(t, "a/b", rec.Key)
		assert.Nil(t, rec.Details)
	})

	t.Run("partial rename", func(t *testing.T) {
		rec := NewErrorRecord(&objfs.PartialRenameError{
			SourceKey:      "src/2",
			DestinationKey: "dst/2",
			Renamed:        []string{"src/1"},
			Remaining:      2,
			Err:            errors.New("copy failed"),
		})
		assert.Equal(t, ErrCodePartialRename, rec.Code)
		assert.Equal(t, "src/2", rec.Key)
		details, ok := rec.Details.(map[string]any)
		if assert.True(t, ok) {
			assert.Equal(t, 1, details["renamed"])
			assert.Equal(t, 2, details["remaining"])
		}
	})

	t.Run("partial delete", func(t *testing.T) {
		rec := NewErrorRecord(&objfs.PartialDeleteError{Path: "/d", FailedKey: "d/x", Deleted: 4, Err: errors.New("x")})
		assert.Equal(t, ErrCodePartialDelete, rec.Code)
		assert.Equal(t, "/d", rec.Path)
		assert.Equal(t, "d/x", rec.Key)
	})
}

func TestEntryFromStatus(t *testing.T) {
	mod := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rec := EntryFromStatus(&objfs.FileStatus{
		Path:    "/a/b.txt",
		Name:    "b.txt",
		Key:     "a/b.txt",
		Size:    7,
		ModTime: mod,
		Mode:    objfs.DefaultMode,
	})
	assert.Equal(t, "/a/b.txt", rec.Path)
	assert.Equal(t, int64(7), rec.Size)
	assert.Equal(t, mod, rec.ModTime)
	assert.Equal(t, "-rwxrwxrwx", rec.Mode)
}
