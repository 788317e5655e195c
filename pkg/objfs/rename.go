package objfs

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// RenameOutcome is the tri-state result of a rename.
type RenameOutcome int

const (
	// RenameSucceeded means every object moved and the source is gone.
	RenameSucceeded RenameOutcome = iota

	// RenameAborted means the rename failed before changing the store.
	RenameAborted

	// RenamePartial means the rename changed the store and then failed;
	// see PartialRenameError for what needs cleanup.
	RenamePartial
)

func (o RenameOutcome) String() string {
	switch o {
	case RenameSucceeded:
		return "succeeded"
	case RenameAborted:
		return "aborted"
	case RenamePartial:
		return "partial"
	default:
		return "unknown"
	}
}

// RenameResult describes a finished or stopped rename.
type RenameResult struct {
	Outcome     RenameOutcome
	Source      string
	Destination string

	// Directory is set when the source was a directory.
	Directory bool

	// Objects is the number of objects fully moved, markers included.
	Objects int
}

// Rename moves the file or directory at src to dst by copying each object
// and then deleting its source. The destination must not exist and must
// not lie inside the source.
//
// A file rename whose copy fails is aborted with both keys untouched. If
// the copy succeeds but the delete fails, both keys remain and the error
// is a *PartialRenameError. A directory is renamed object by object with
// the same protocol, its marker last; a failure after the first move
// leaves a mix of moved and unmoved descendants and is reported as a
// *PartialRenameError listing the keys already moved.
//
// The returned result is never nil.
func (fsys *FileSystem) Rename(ctx context.Context, src, dst string) (result *RenameResult, err error) {
	defer fsys.observe("Rename", time.Now(), &err)

	result = &RenameResult{Outcome: RenameAborted, Source: src, Destination: dst}

	srcKey, err := fsys.resolve("Rename", src)
	if err != nil {
		return result, err
	}
	dstKey, err := fsys.resolve("Rename", dst)
	if err != nil {
		return result, err
	}
	switch {
	case srcKey == RootKey() || dstKey == RootKey():
		return result, newError("Rename", src, srcKey, ErrInvalidPath, errors.New("cannot rename to or from the root"))
	case srcKey == dstKey:
		return result, newError("Rename", src, srcKey, ErrInvalidPath, errors.New("source and destination are the same"))
	case strings.HasPrefix(dstKey, dirPrefix(srcKey)):
		return result, newError("Rename", dst, dstKey, ErrInvalidPath, errors.New("destination is inside the source"))
	}

	deleter, ok := fsys.provider.(provider.ObjectDeleter)
	if !ok {
		return result, newError("Rename", src, srcKey, ErrDeleteFailed, ErrUnsupported)
	}

	st, err := fsys.statusOf(ctx, "Rename", srcKey)
	if err != nil {
		return result, err
	}
	if st == nil {
		isDir, _, err := fsys.directoryExists(ctx, "Rename", srcKey)
		if err != nil {
			return result, err
		}
		if !isDir {
			return result, newError("Rename", src, srcKey, ErrNotFound, nil)
		}
	}

	if err := fsys.requireAbsent(ctx, dst, dstKey); err != nil {
		return result, err
	}

	if st != nil {
		copied, err := fsys.moveObject(ctx, deleter, src, srcKey, dstKey)
		if err != nil {
			if copied {
				result.Outcome = RenamePartial
				return result, &PartialRenameError{SourceKey: srcKey, DestinationKey: dstKey, Copied: true, Err: err}
			}
			return result, err
		}
		result.Outcome = RenameSucceeded
		result.Objects = 1
		return result, nil
	}

	result.Directory = true
	return result, fsys.renameDirectory(ctx, deleter, result, src, srcKey, dstKey)
}

// requireAbsent fails with ErrExist when anything occupies key.
func (fsys *FileSystem) requireAbsent(ctx context.Context, path, key string) error {
	st, err := fsys.statusOf(ctx, "Rename", key)
	if err != nil {
		return err
	}
	exists := st != nil
	if !exists {
		if exists, _, err = fsys.directoryExists(ctx, "Rename", key); err != nil {
			return err
		}
	}
	if exists {
		return newError("Rename", path, key, ErrExist, errors.New("destination exists"))
	}
	return nil
}

func (fsys *FileSystem) renameDirectory(ctx context.Context, deleter provider.ObjectDeleter, result *RenameResult, src, srcKey, dstKey string) error {
	marker, err := fsys.statusOf(ctx, "Rename", fsys.markerKeyFor(srcKey))
	if err != nil {
		return err
	}

	srcPrefix, dstPrefix := dirPrefix(srcKey), dirPrefix(dstKey)
	it := fsys.listChunks("Rename", srcPrefix, true)
	var renamed []string

	fail := func(from, to string, copied bool, remaining int, err error) error {
		if len(renamed) == 0 && !copied {
			return err
		}
		result.Outcome = RenamePartial
		fsys.log.Error("Directory rename stopped partway", zap.String("source", from), zap.String("destination", to),
			zap.Int("renamed", len(renamed)), zap.Error(err))
		return &PartialRenameError{
			SourceKey:      from,
			DestinationKey: to,
			Renamed:        renamed,
			Remaining:      remaining,
			Copied:         copied,
			Err:            err,
		}
	}

	for {
		chunk, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(srcPrefix, dstPrefix, false, -1, err)
		}
		for i, from := range chunk.ObjectKeys {
			to := dstPrefix + strings.TrimPrefix(from, srcPrefix)
			left := -1
			if it.Done() {
				left = len(chunk.ObjectKeys) - i
			}
			if err := fsys.pace(ctx); err != nil {
				return fail(from, to, false, left, newError("Rename", src, from, ErrCopyFailed, err))
			}
			copied, err := fsys.moveObject(ctx, deleter, src, from, to)
			if err != nil {
				if copied && left > 0 {
					left--
				}
				return fail(from, to, copied, left, err)
			}
			renamed = append(renamed, from)
			result.Objects++
		}
	}

	if marker == nil {
		if len(renamed) == 0 {
			return newError("Rename", src, srcKey, ErrNotFound, nil)
		}
		result.Outcome = RenameSucceeded
		return nil
	}

	from, to := fsys.markerKeyFor(srcKey), fsys.markerKeyFor(dstKey)
	if err := fsys.createDirectoryMarker(ctx, "Rename", dstKey); err != nil {
		return fail(from, to, false, 1, err)
	}
	if err := fsys.deleteKey(ctx, deleter, src, from); err != nil {
		return fail(from, to, true, 0, err)
	}
	result.Objects++
	result.Outcome = RenameSucceeded
	return nil
}

// moveObject copies from to to and then deletes from. copied reports
// whether the copy had landed when an error is returned.
func (fsys *FileSystem) moveObject(ctx context.Context, deleter provider.ObjectDeleter, path, from, to string) (copied bool, err error) {
	if err := fsys.copyObject(ctx, from, to); err != nil {
		fsys.log.Error("Failed to copy object", zap.String("source", from), zap.String("destination", to), zap.Error(err))
		return false, newError("Rename", path, from, ErrCopyFailed, err)
	}
	fsys.log.Debug("Copied object", zap.String("source", from), zap.String("destination", to))

	if err := deleter.DeleteObject(ctx, from); err != nil && !provider.IsNotFound(err) {
		fsys.log.Error("Failed to delete renamed object", zap.String("source", from), zap.String("destination", to), zap.Error(err))
		return true, newError("Rename", path, from, ErrDeleteFailed, err)
	}
	return true, nil
}

// copyObject uses the store's server-side copy when it has one, and falls
// back to streaming the object through this process.
func (fsys *FileSystem) copyObject(ctx context.Context, from, to string) error {
	if copier, ok := fsys.provider.(provider.ObjectCopier); ok {
		return copier.CopyObject(ctx, from, to)
	}

	getter, gok := fsys.provider.(provider.ObjectGetter)
	putter, pok := fsys.provider.(provider.ObjectPutter)
	if !gok || !pok {
		return ErrUnsupported
	}
	body, size, err := getter.GetObject(ctx, from)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()
	return putter.PutObject(ctx, to, body, size)
}
