package objfs

import (
	"context"
	"errors"
	"io"
	iofs "io/fs"
	"sort"
	"strings"
	"time"
)

// ListOptions controls List.
type ListOptions struct {
	// Recursive lists every descendant instead of one level.
	Recursive bool
}

// WalkFunc is called for each entry found by Walk. Returning
// io/fs.SkipAll stops the walk without error; any other error stops it and
// is returned by Walk.
type WalkFunc func(entry FileStatus) error

// List returns the entries of the directory at path, sorted by name.
// Directory markers never appear as entries: a marker "<name><suffix>" and
// a common prefix "<name>/" fold into one directory entry. A file and a
// directory sharing a name are both listed.
//
// Listing a file fails with ErrNotDirectory, a missing path with
// ErrNotFound.
func (fsys *FileSystem) List(ctx context.Context, path string, opts ListOptions) (entries []FileStatus, err error) {
	defer fsys.observe("List", time.Now(), &err)

	key, err := fsys.resolve("List", path)
	if err != nil {
		return nil, err
	}

	if opts.Recursive {
		err = fsys.walk(ctx, "List", path, key, func(e FileStatus) error {
			entries = append(entries, e)
			return nil
		})
	} else {
		entries, err = fsys.listLevel(ctx, path, key)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return !entries[i].IsDir && entries[j].IsDir
	})
	return entries, nil
}

func (fsys *FileSystem) listLevel(ctx context.Context, path, key string) ([]FileStatus, error) {
	prefix := dirPrefix(key)
	it := fsys.listChunks("List", prefix, false)

	var entries []FileStatus
	dirs := make(map[string]int)
	addDir := func(name string, marker *Status) {
		if i, ok := dirs[name]; ok {
			if marker != nil {
				entries[i].ModTime = marker.LastModified
			}
			return
		}
		dirs[name] = len(entries)
		entries = append(entries, *fsys.dirStatus(prefix+name, name, marker))
	}

	seen := false
	for {
		chunk, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for _, obj := range chunk.Objects {
			name := strings.TrimPrefix(obj.Key, prefix)
			if name == "" {
				// A "dir/" placeholder written by another tool.
				seen = true
				continue
			}
			seen = true
			if fsys.IsDirectoryMarker(name) {
				if d := strings.TrimSuffix(name, fsys.suffix); d != "" {
					addDir(d, &Status{Size: obj.Size, LastModified: obj.LastModified})
				}
				continue
			}
			entries = append(entries, *fsys.fileStatus(obj.Key, name, &Status{Size: obj.Size, LastModified: obj.LastModified}))
		}
		for _, cp := range chunk.CommonPrefixes {
			seen = true
			if name := strings.TrimSuffix(strings.TrimPrefix(cp, prefix), Separator); name != "" {
				addDir(name, nil)
			}
		}
	}

	if !seen {
		if err := fsys.requireListable(ctx, "List", path, key); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// Walk calls fn for every descendant of the directory at path, streaming
// one listing page at a time. Entries arrive in key order; an implicit
// directory is reported before its first descendant. Names are relative
// to path.
func (fsys *FileSystem) Walk(ctx context.Context, path string, fn WalkFunc) (err error) {
	defer fsys.observe("Walk", time.Now(), &err)

	key, err := fsys.resolve("Walk", path)
	if err != nil {
		return err
	}
	err = fsys.walk(ctx, "Walk", path, key, fn)
	if errors.Is(err, iofs.SkipAll) {
		return nil
	}
	return err
}

func (fsys *FileSystem) walk(ctx context.Context, op, path, key string, fn WalkFunc) error {
	prefix := dirPrefix(key)
	it := fsys.listChunks(op, prefix, true)
	reported := make(map[string]bool)

	// A directory first seen through a descendant is reported before its
	// marker comes up in key order, so the marker is fetched directly
	// when it sorts after the key being processed.
	emitDir := func(name string, marker *Status, at string) error {
		if reported[name] {
			return nil
		}
		reported[name] = true
		if markerKey := fsys.markerKeyFor(prefix + name); marker == nil && markerKey > at {
			var err error
			if marker, err = fsys.statusOf(ctx, op, markerKey); err != nil {
				return err
			}
		}
		return fn(*fsys.dirStatus(prefix+name, name, marker))
	}

	seen := false
	for {
		chunk, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		for _, obj := range chunk.Objects {
			seen = true
			rel := strings.TrimPrefix(obj.Key, prefix)
			isDirKey := strings.HasSuffix(rel, Separator)
			rel = strings.TrimSuffix(rel, Separator)
			if rel == "" {
				continue
			}

			segments := strings.Split(rel, Separator)
			for i := 1; i < len(segments); i++ {
				if err := emitDir(strings.Join(segments[:i], Separator), nil, obj.Key); err != nil {
					return err
				}
			}

			st := &Status{Size: obj.Size, LastModified: obj.LastModified}
			switch {
			case isDirKey:
				err = emitDir(rel, nil, obj.Key)
			case fsys.IsDirectoryMarker(rel):
				d := strings.TrimSuffix(rel, fsys.suffix)
				if d == "" || strings.HasSuffix(d, Separator) {
					continue
				}
				err = emitDir(d, st, obj.Key)
			default:
				err = fn(*fsys.fileStatus(obj.Key, rel, st))
			}
			if err != nil {
				return err
			}
		}
	}

	if !seen {
		return fsys.requireListable(ctx, op, path, key)
	}
	return nil
}

// requireListable explains an empty listing: an empty directory is fine,
// a file is ErrNotDirectory, anything else ErrNotFound.
func (fsys *FileSystem) requireListable(ctx context.Context, op, path, key string) error {
	if key == RootKey() {
		return nil
	}
	marker, err := fsys.statusOf(ctx, op, fsys.markerKeyFor(key))
	if err != nil {
		return err
	}
	if marker != nil {
		return nil
	}
	st, err := fsys.statusOf(ctx, op, key)
	if err != nil {
		return err
	}
	if st != nil {
		return newError(op, path, key, ErrNotDirectory, nil)
	}
	return newError(op, path, key, ErrNotFound, nil)
}
