// Package objfs presents a flat object store as a hierarchical filesystem.
//
// Directories are synthesized: a directory exists when a zero-length
// marker object named "<dir><suffix>" exists, or when any key has the
// directory as a proper prefix. Rename is copy then delete, listings are
// lazy and paged, and no operation spanning several keys is atomic.
// Store failures surface as typed errors (see Error); nothing is retried
// here.
//
// A FileSystem holds only the provider handle and settings fixed at
// construction, so it is safe for concurrent use.
package objfs

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// FileSystem is the hierarchical view over one bucket.
type FileSystem struct {
	provider provider.Provider
	lister   provider.DelimiterLister
	bucket   string
	scheme   string
	rootURI  string
	suffix   string
	cfg      Config
	log      *zap.Logger

	// Rate limiter (nil if unlimited)
	limiter *rate.Limiter
}

// FileStatus describes a file or directory.
type FileStatus struct {
	// Path is the absolute hierarchical path, e.g. "/a/b.txt".
	Path string `json:"path"`

	// Name is relative to the listed directory for List and Walk, and the
	// base name for GetStatus.
	Name string `json:"name"`

	// Key is the object key of a file. For directories it is the
	// directory's key (its marker is Key plus the folder suffix).
	Key string `json:"key"`

	Size    int64       `json:"size"`
	ModTime time.Time   `json:"mod_time,omitzero"`
	IsDir   bool        `json:"is_dir"`
	Mode    os.FileMode `json:"mode"`
	Owner   string      `json:"owner"`
	Group   string      `json:"group"`
}

// New creates a FileSystem over p. bucket names the store target and only
// appears in RootURI and errors. The provider must support delimited
// listings; other capabilities are checked when an operation needs them.
func New(p provider.Provider, bucket string, cfg Config) (*FileSystem, error) {
	if p == nil {
		return nil, errors.New("objfs: provider is required")
	}
	lister, ok := p.(provider.DelimiterLister)
	if !ok {
		return nil, newError("New", "", "", ErrUnsupported, errors.New("provider cannot list with a delimiter"))
	}
	cfg = cfg.withDefaults()
	if strings.Contains(cfg.FolderSuffix, Separator) {
		return nil, newError("New", "", "", ErrInvalidArgument, errors.New("folder suffix must not contain the separator"))
	}

	scheme := "objfs"
	if t, ok := p.(provider.Typed); ok {
		scheme = t.Type().String()
	}

	fsys := &FileSystem{
		provider: p,
		lister:   lister,
		bucket:   bucket,
		scheme:   scheme,
		rootURI:  scheme + "://" + strings.TrimSuffix(bucket, Separator) + Separator,
		suffix:   cfg.FolderSuffix,
		cfg:      cfg,
		log:      cfg.Logger.With(zap.String("scheme", scheme), zap.String("bucket", bucket)),
	}
	if cfg.RateLimit > 0 {
		fsys.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return fsys, nil
}

// RootURI returns the URI of the filesystem root, e.g. "s3://bucket/".
// Paths passed to FileSystem methods may carry this prefix.
func (fsys *FileSystem) RootURI() string { return fsys.rootURI }

// Type returns the backend type, e.g. "s3".
func (fsys *FileSystem) Type() string { return fsys.scheme }

// Bucket returns the bucket identifier given to New.
func (fsys *FileSystem) Bucket() string { return fsys.bucket }

// FolderSuffix returns the directory marker suffix.
func (fsys *FileSystem) FolderSuffix() string { return fsys.suffix }

// Close releases the provider.
func (fsys *FileSystem) Close() error {
	return fsys.provider.Close()
}

// Key resolves a hierarchical path, optionally prefixed with RootURI, to
// its object key.
func (fsys *FileSystem) Key(p string) (string, error) {
	return fsys.resolve("Key", p)
}

// stripRoot removes a leading RootURI from p. The root only matches up to
// a path boundary, so "mem://bkt2/x" is left alone on bucket "bkt".
func (fsys *FileSystem) stripRoot(p string) string {
	root := strings.TrimSuffix(fsys.rootURI, Separator)
	if rest, ok := strings.CutPrefix(p, root); ok && (rest == "" || strings.HasPrefix(rest, Separator)) {
		return rest
	}
	return p
}

func (fsys *FileSystem) resolve(op, p string) (string, error) {
	p = fsys.stripRoot(p)
	key, err := PathToKey(p)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return "", newError(op, p, "", ErrInvalidPath, e.Err)
		}
		return "", err
	}
	if fsys.IsDirectoryMarker(key) {
		return "", newError(op, p, key, ErrInvalidPath, errors.New("name ends with the reserved folder suffix"))
	}
	return key, nil
}

// GetStatus returns the status of the file or directory at path. When a
// file and a directory share the path, the file is reported.
func (fsys *FileSystem) GetStatus(ctx context.Context, path string) (status *FileStatus, err error) {
	defer fsys.observe("GetStatus", time.Now(), &err)

	key, err := fsys.resolve("GetStatus", path)
	if err != nil {
		return nil, err
	}
	if key == RootKey() {
		return fsys.dirStatus(key, baseName(key), nil), nil
	}

	st, err := fsys.statusOf(ctx, "GetStatus", key)
	if err != nil {
		return nil, err
	}
	if st != nil {
		return fsys.fileStatus(key, baseName(key), st), nil
	}

	exists, marker, err := fsys.directoryExists(ctx, "GetStatus", key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, newError("GetStatus", path, key, ErrNotFound, nil)
	}
	return fsys.dirStatus(key, baseName(key), marker), nil
}

// Exists reports whether a file or directory exists at path. Absence is
// (false, nil); a failed lookup is an error, never false.
func (fsys *FileSystem) Exists(ctx context.Context, path string) (bool, error) {
	_, err := fsys.GetStatus(ctx, path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// IsFile reports whether an object exists at path.
func (fsys *FileSystem) IsFile(ctx context.Context, path string) (ok bool, err error) {
	defer fsys.observe("IsFile", time.Now(), &err)

	key, err := fsys.resolve("IsFile", path)
	if err != nil {
		return false, err
	}
	if key == RootKey() {
		return false, nil
	}
	st, err := fsys.statusOf(ctx, "IsFile", key)
	if err != nil {
		return false, err
	}
	return st != nil, nil
}

// IsDirectory reports whether path is a directory, explicitly through its
// marker or implicitly through descendants.
func (fsys *FileSystem) IsDirectory(ctx context.Context, path string) (ok bool, err error) {
	defer fsys.observe("IsDirectory", time.Now(), &err)

	key, err := fsys.resolve("IsDirectory", path)
	if err != nil {
		return false, err
	}
	exists, _, err := fsys.directoryExists(ctx, "IsDirectory", key)
	return exists, err
}

func (fsys *FileSystem) fileStatus(key, name string, st *Status) *FileStatus {
	return &FileStatus{
		Path:    KeyToPath(key),
		Name:    name,
		Key:     key,
		Size:    st.Size,
		ModTime: st.LastModified,
		Mode:    DefaultMode,
	}
}

func (fsys *FileSystem) dirStatus(key, name string, marker *Status) *FileStatus {
	st := &FileStatus{
		Path:  KeyToPath(key),
		Name:  name,
		Key:   key,
		IsDir: true,
		Mode:  os.ModeDir | DefaultMode,
	}
	if marker != nil {
		st.ModTime = marker.LastModified
	}
	return st
}

func (fsys *FileSystem) observe(op string, start time.Time, err *error) {
	if fsys.cfg.Observer == nil {
		return
	}
	fsys.cfg.Observer.ObserveOperation(op, time.Since(start), *err)
}

// pace blocks until the rate limiter admits one more request.
func (fsys *FileSystem) pace(ctx context.Context) error {
	if fsys.limiter == nil {
		return ctx.Err()
	}
	return fsys.limiter.Wait(ctx)
}
