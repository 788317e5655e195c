package objfs

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// MkdirsOptions controls Mkdirs.
type MkdirsOptions struct {
	// CreateParent creates markers for missing ancestors. Without it the
	// parent must already exist.
	CreateParent bool
}

// IsDirectoryMarker reports whether key is a directory marker.
func (fsys *FileSystem) IsDirectoryMarker(key string) bool {
	return strings.HasSuffix(key, fsys.suffix)
}

// MarkerKey returns the marker key of the directory at path. The root has
// no marker.
func (fsys *FileSystem) MarkerKey(path string) (string, error) {
	key, err := fsys.resolve("MarkerKey", path)
	if err != nil {
		return "", err
	}
	if key == RootKey() {
		return "", newError("MarkerKey", path, key, ErrInvalidPath, errors.New("the root has no marker"))
	}
	return fsys.markerKeyFor(key), nil
}

func (fsys *FileSystem) markerKeyFor(key string) string {
	return key + fsys.suffix
}

// Mkdirs creates the directory at path by writing its marker. An existing
// directory is left alone. A file at path fails with ErrExist, a file at an
// ancestor with ErrNotDirectory, and a missing parent with ErrNotFound
// unless opts.CreateParent is set.
func (fsys *FileSystem) Mkdirs(ctx context.Context, path string, opts MkdirsOptions) (err error) {
	defer fsys.observe("Mkdirs", time.Now(), &err)

	key, err := fsys.resolve("Mkdirs", path)
	if err != nil {
		return err
	}
	if key == RootKey() {
		return nil
	}

	st, err := fsys.statusOf(ctx, "Mkdirs", key)
	if err != nil {
		return err
	}
	if st != nil {
		return newError("Mkdirs", path, key, ErrExist, errors.New("a file occupies the path"))
	}
	exists, _, err := fsys.directoryExists(ctx, "Mkdirs", key)
	if err != nil || exists {
		return err
	}

	if parent := parentKey(key); parent != RootKey() {
		if opts.CreateParent {
			if err := fsys.createAncestors(ctx, path, parent); err != nil {
				return err
			}
		} else if err := fsys.requireDirectory(ctx, "Mkdirs", path, parent); err != nil {
			return err
		}
	}
	return fsys.createDirectoryMarker(ctx, "Mkdirs", key)
}

// createAncestors writes markers for every missing directory from the top
// of the tree down to key.
func (fsys *FileSystem) createAncestors(ctx context.Context, path, key string) error {
	segments := strings.Split(key, Separator)
	for i := range segments {
		if err := ctx.Err(); err != nil {
			return newError("Mkdirs", path, key, ErrWriteFailed, err)
		}
		ancestor := strings.Join(segments[:i+1], Separator)
		st, err := fsys.statusOf(ctx, "Mkdirs", ancestor)
		if err != nil {
			return err
		}
		if st != nil {
			return newError("Mkdirs", path, ancestor, ErrNotDirectory, errors.New("an ancestor is a file"))
		}
		exists, _, err := fsys.directoryExists(ctx, "Mkdirs", ancestor)
		if err != nil {
			return err
		}
		if !exists {
			if err := fsys.createDirectoryMarker(ctx, "Mkdirs", ancestor); err != nil {
				return err
			}
		}
	}
	return nil
}

// requireDirectory fails unless key is an existing directory.
func (fsys *FileSystem) requireDirectory(ctx context.Context, op, path, key string) error {
	st, err := fsys.statusOf(ctx, op, key)
	if err != nil {
		return err
	}
	if st != nil {
		return newError(op, path, key, ErrNotDirectory, errors.New("parent is a file"))
	}
	exists, _, err := fsys.directoryExists(ctx, op, key)
	if err != nil {
		return err
	}
	if !exists {
		return newError(op, path, key, ErrNotFound, errors.New("parent directory does not exist"))
	}
	return nil
}

// createDirectoryMarker writes the zero-length marker for key. A later
// listing of the parent shows key as a directory.
func (fsys *FileSystem) createDirectoryMarker(ctx context.Context, op, key string) error {
	marker := fsys.markerKeyFor(key)
	putter, ok := fsys.provider.(provider.ObjectPutter)
	if !ok {
		return newError(op, KeyToPath(key), marker, ErrWriteFailed, ErrUnsupported)
	}
	if err := putter.PutObject(ctx, marker, bytes.NewReader(nil), 0); err != nil {
		fsys.log.Error("Failed to create directory marker", zap.String("key", marker), zap.Error(err))
		return newError(op, KeyToPath(key), marker, ErrWriteFailed, err)
	}
	fsys.log.Debug("Created directory marker", zap.String("key", marker))
	return nil
}

// directoryExists reports whether key is a directory. The marker is looked
// up first since that is a single-key fetch; only when it is absent is the
// prefix listed, bounded to one entry. The marker status is returned when
// present.
func (fsys *FileSystem) directoryExists(ctx context.Context, op, key string) (bool, *Status, error) {
	if key == RootKey() {
		return true, nil, nil
	}
	marker, err := fsys.statusOf(ctx, op, fsys.markerKeyFor(key))
	if err != nil {
		return false, nil, err
	}
	if marker != nil {
		return true, marker, nil
	}
	children, err := fsys.hasChildren(ctx, op, key)
	return children, nil, err
}

// hasChildren reports whether any key lies under key's directory prefix.
func (fsys *FileSystem) hasChildren(ctx context.Context, op, key string) (bool, error) {
	prefix := dirPrefix(key)
	res, err := fsys.lister.ListWithDelimiter(ctx, provider.ListWithDelimiterOptions{
		Prefix:    prefix,
		Delimiter: Separator,
		MaxKeys:   1,
	})
	if err != nil {
		return false, newError(op, KeyToPath(key), prefix, ErrListingFailed, err)
	}
	return len(res.Objects) > 0 || len(res.CommonPrefixes) > 0, nil
}
