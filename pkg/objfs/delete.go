package objfs

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// DeleteOptions controls Delete.
type DeleteOptions struct {
	// Recursive allows deleting a directory that has children.
	Recursive bool
}

// Delete removes the file or directory at path.
//
// A file is removed with one request. A directory is removed by deleting
// its descendants page by page, deepest keys first within each page, and
// its marker last, so an interrupted delete leaves the directory visible.
// The first failure stops the walk and is reported as a
// *PartialDeleteError naming the key reached.
//
// Deleting an absent path always fails with ErrNotFound, and a directory
// with children fails with ErrDirectoryNotEmpty unless opts.Recursive.
func (fsys *FileSystem) Delete(ctx context.Context, path string, opts DeleteOptions) (err error) {
	defer fsys.observe("Delete", time.Now(), &err)

	key, err := fsys.resolve("Delete", path)
	if err != nil {
		return err
	}
	if key == RootKey() {
		return newError("Delete", path, key, ErrInvalidPath, errors.New("cannot delete the root"))
	}
	deleter, ok := fsys.provider.(provider.ObjectDeleter)
	if !ok {
		return newError("Delete", path, key, ErrDeleteFailed, ErrUnsupported)
	}

	st, err := fsys.statusOf(ctx, "Delete", key)
	if err != nil {
		return err
	}
	if st != nil {
		return fsys.deleteKey(ctx, deleter, path, key)
	}

	marker, err := fsys.statusOf(ctx, "Delete", fsys.markerKeyFor(key))
	if err != nil {
		return err
	}
	children, err := fsys.hasChildren(ctx, "Delete", key)
	if err != nil {
		return err
	}
	if marker == nil && !children {
		return newError("Delete", path, key, ErrNotFound, nil)
	}
	if children {
		if !opts.Recursive {
			return newError("Delete", path, key, ErrDirectoryNotEmpty, nil)
		}
		if err := fsys.deleteTree(ctx, deleter, path, key); err != nil {
			return err
		}
	}
	if marker != nil {
		return fsys.deleteKey(ctx, deleter, path, fsys.markerKeyFor(key))
	}
	return nil
}

// deleteKey removes one key. A key that vanished in the meantime counts as
// deleted.
func (fsys *FileSystem) deleteKey(ctx context.Context, deleter provider.ObjectDeleter, path, key string) error {
	if err := deleter.DeleteObject(ctx, key); err != nil && !provider.IsNotFound(err) {
		fsys.log.Error("Failed to delete object", zap.String("key", key), zap.Error(err))
		return newError("Delete", path, key, ErrDeleteFailed, err)
	}
	fsys.log.Debug("Deleted object", zap.String("key", key))
	return nil
}

// deleteTree removes every key under key's directory prefix. Each page is
// split into depth levels, deepest first; keys of one level are deleted
// with up to DeleteParallelism requests in flight.
func (fsys *FileSystem) deleteTree(ctx context.Context, deleter provider.ObjectDeleter, path, key string) error {
	it := fsys.listChunks("Delete", dirPrefix(key), true)
	var deleted atomic.Int64

	for {
		chunk, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fsys.partialDelete(path, dirPrefix(key), int(deleted.Load()), err)
		}

		keys := append([]string(nil), chunk.ObjectKeys...)
		sort.SliceStable(keys, func(i, j int) bool { return depth(keys[i]) > depth(keys[j]) })

		for start := 0; start < len(keys); {
			end := start + 1
			for end < len(keys) && depth(keys[end]) == depth(keys[start]) {
				end++
			}
			if err := fsys.deleteLevel(ctx, deleter, path, keys[start:end], &deleted); err != nil {
				return err
			}
			start = end
		}
	}
}

func (fsys *FileSystem) deleteLevel(ctx context.Context, deleter provider.ObjectDeleter, path string, keys []string, deleted *atomic.Int64) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fsys.cfg.DeleteParallelism)

	var failedKey atomic.Pointer[string]
	for _, k := range keys {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := fsys.pace(gctx); err != nil {
				failedKey.CompareAndSwap(nil, &k)
				return err
			}
			if err := fsys.deleteKey(gctx, deleter, path, k); err != nil {
				failedKey.CompareAndSwap(nil, &k)
				return err
			}
			deleted.Add(1)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		return nil
	}
	k := ""
	if p := failedKey.Load(); p != nil {
		k = *p
	}
	return fsys.partialDelete(path, k, int(deleted.Load()), err)
}

func (fsys *FileSystem) partialDelete(path, key string, deleted int, err error) error {
	if deleted == 0 {
		var e *Error
		if errors.As(err, &e) && e.Kind == ErrDeleteFailed {
			return err
		}
		return newError("Delete", path, key, ErrDeleteFailed, err)
	}
	fsys.log.Error("Recursive delete stopped", zap.String("path", path), zap.String("key", key),
		zap.Int("deleted", deleted), zap.Error(err))
	return &PartialDeleteError{Path: path, FailedKey: key, Deleted: deleted, Err: err}
}
