package objfs

import (
	"context"
	"time"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// Status is a snapshot of one object's metadata. It is fetched fresh on
// every query; nothing is cached.
type Status struct {
	Size         int64
	LastModified time.Time
}

// LastModifiedEpochMillis returns the modification time in Unix
// milliseconds.
func (s *Status) LastModifiedEpochMillis() int64 {
	return s.LastModified.UnixMilli()
}

// ObjectStatus returns the status of the object at path, or nil when no
// object exists there. Directories have no object status of their own.
func (fsys *FileSystem) ObjectStatus(ctx context.Context, path string) (st *Status, err error) {
	defer fsys.observe("ObjectStatus", time.Now(), &err)

	key, err := fsys.resolve("ObjectStatus", path)
	if err != nil {
		return nil, err
	}
	if key == RootKey() {
		return nil, nil
	}
	return fsys.statusOf(ctx, "ObjectStatus", key)
}

// statusOf heads key. Absence is (nil, nil); any other failure, including
// cancellation, is ErrStatusQueryFailed.
func (fsys *FileSystem) statusOf(ctx context.Context, op, key string) (*Status, error) {
	meta, err := fsys.provider.Head(ctx, key)
	if err != nil {
		if provider.IsNotFound(err) {
			return nil, nil
		}
		return nil, newError(op, KeyToPath(key), key, ErrStatusQueryFailed, err)
	}
	return &Status{Size: meta.Size, LastModified: meta.LastModified}, nil
}
