package objfs

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// OpenOptions controls Open.
type OpenOptions struct {
	// Offset is the byte position reading starts at. Bytes before it are
	// never transferred. An offset at or past the end yields an empty
	// stream.
	Offset int64
}

// Reader streams an object's content.
type Reader struct {
	body   io.ReadCloser
	key    string
	offset int64
	size   int64
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) { return r.body.Read(p) }

// Close releases the underlying response.
func (r *Reader) Close() error { return r.body.Close() }

// Key returns the object key being read.
func (r *Reader) Key() string { return r.key }

// Offset returns the position the stream started at.
func (r *Reader) Offset() int64 { return r.offset }

// Size returns the number of bytes the stream will yield.
func (r *Reader) Size() int64 { return r.size }

// Open opens the file at path for reading from opts.Offset. A non-zero
// offset is served by a range request.
func (fsys *FileSystem) Open(ctx context.Context, path string, opts OpenOptions) (r *Reader, err error) {
	defer fsys.observe("Open", time.Now(), &err)

	key, err := fsys.resolve("Open", path)
	if err != nil {
		return nil, err
	}
	if key == RootKey() {
		return nil, newError("Open", path, key, ErrIsDirectory, nil)
	}
	if opts.Offset < 0 {
		return nil, newError("Open", path, key, ErrInvalidArgument, errors.New("offset must be >= 0"))
	}

	var (
		body io.ReadCloser
		size int64
	)
	switch p := fsys.provider.(type) {
	case provider.ObjectRanger:
		body, size, err = p.GetRange(ctx, key, opts.Offset, -1)
	case provider.ObjectGetter:
		if opts.Offset > 0 {
			return nil, newError("Open", path, key, ErrReadFailed, ErrUnsupported)
		}
		body, size, err = p.GetObject(ctx, key)
	default:
		return nil, newError("Open", path, key, ErrReadFailed, ErrUnsupported)
	}

	if err != nil {
		if !provider.IsNotFound(err) {
			return nil, newError("Open", path, key, ErrReadFailed, err)
		}
		isDir, _, dirErr := fsys.directoryExists(ctx, "Open", key)
		if dirErr != nil {
			return nil, dirErr
		}
		if isDir {
			return nil, newError("Open", path, key, ErrIsDirectory, nil)
		}
		return nil, newError("Open", path, key, ErrNotFound, err)
	}
	return &Reader{body: body, key: key, offset: opts.Offset, size: size}, nil
}
