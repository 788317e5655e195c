package objfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// CreateOptions controls Create.
type CreateOptions struct {
	// Overwrite replaces an existing file. Without it an existing file
	// fails with ErrExist.
	Overwrite bool

	// CreateParent writes markers for missing ancestor directories.
	CreateParent bool
}

// Writer is a write sink for one object. Content is buffered in memory up
// to the configured limit, then spooled to a temp file, and uploaded in one
// request by Close; nothing is visible to readers before that. A Writer is
// not safe for concurrent use.
type Writer struct {
	ctx    context.Context
	fsys   *FileSystem
	putter provider.ObjectPutter
	path   string
	key    string
	limit  int64

	buf    bytes.Buffer
	spool  *os.File
	size   int64
	closed bool
}

// Create opens a write sink for the file at path. The context governs the
// upload performed by Close.
func (fsys *FileSystem) Create(ctx context.Context, path string, opts CreateOptions) (w *Writer, err error) {
	defer fsys.observe("Create", time.Now(), &err)

	key, err := fsys.resolve("Create", path)
	if err != nil {
		return nil, err
	}
	if key == RootKey() {
		return nil, newError("Create", path, key, ErrIsDirectory, nil)
	}
	putter, ok := fsys.provider.(provider.ObjectPutter)
	if !ok {
		return nil, newError("Create", path, key, ErrWriteFailed, ErrUnsupported)
	}

	st, err := fsys.statusOf(ctx, "Create", key)
	if err != nil {
		return nil, err
	}
	if st != nil && !opts.Overwrite {
		return nil, newError("Create", path, key, ErrExist, nil)
	}
	if st == nil {
		isDir, _, err := fsys.directoryExists(ctx, "Create", key)
		if err != nil {
			return nil, err
		}
		if isDir {
			return nil, newError("Create", path, key, ErrIsDirectory, nil)
		}
	}

	if parent := parentKey(key); parent != RootKey() {
		if opts.CreateParent {
			if err := fsys.createAncestors(ctx, path, parent); err != nil {
				return nil, err
			}
		} else {
			pst, err := fsys.statusOf(ctx, "Create", parent)
			if err != nil {
				return nil, err
			}
			if pst != nil {
				return nil, newError("Create", path, parent, ErrNotDirectory, errors.New("parent is a file"))
			}
		}
	}

	return &Writer{
		ctx:    ctx,
		fsys:   fsys,
		putter: putter,
		path:   path,
		key:    key,
		limit:  fsys.cfg.WriteBufferBytes,
	}, nil
}

// Key returns the object key the sink uploads to.
func (w *Writer) Key() string { return w.key }

// Size returns the number of bytes written so far.
func (w *Writer) Size() int64 { return w.size }

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, newError("Write", w.path, w.key, ErrWriteFailed, os.ErrClosed)
	}

	if w.spool == nil && int64(w.buf.Len()+len(p)) > w.limit {
		if err := w.spill(); err != nil {
			return 0, newError("Write", w.path, w.key, ErrWriteFailed, err)
		}
	}

	var (
		n   int
		err error
	)
	if w.spool != nil {
		n, err = w.spool.Write(p)
	} else {
		n, err = w.buf.Write(p)
	}
	w.size += int64(n)
	if err != nil {
		return n, newError("Write", w.path, w.key, ErrWriteFailed, err)
	}
	return n, nil
}

// spill moves the buffered bytes to a temp file; later writes go there.
func (w *Writer) spill() error {
	f, err := os.CreateTemp(w.fsys.cfg.TempDir, "nimbusfs-write-*")
	if err != nil {
		return err
	}
	if _, err := f.Write(w.buf.Bytes()); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}
	w.buf = bytes.Buffer{}
	w.spool = f
	return nil
}

// Close uploads the content and releases the buffer. Close on a closed
// sink is a no-op.
func (w *Writer) Close() (err error) {
	if w.closed {
		return nil
	}
	w.closed = true
	defer w.fsys.observe("Close", time.Now(), &err)

	body, cleanup, err := w.body()
	if err != nil {
		return newError("Close", w.path, w.key, ErrWriteFailed, err)
	}
	defer func() {
		if cerr := cleanup(); cerr != nil {
			w.fsys.log.Warn("Failed to remove write spool", zap.String("key", w.key), zap.Error(cerr))
		}
	}()

	if err := w.putter.PutObject(w.ctx, w.key, body, w.size); err != nil {
		w.fsys.log.Error("Failed to upload object", zap.String("key", w.key), zap.Int64("size", w.size), zap.Error(err))
		return newError("Close", w.path, w.key, ErrWriteFailed, err)
	}
	w.fsys.log.Debug("Uploaded object", zap.String("key", w.key), zap.Int64("size", w.size))
	return nil
}

// Abort discards the content without uploading.
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_, cleanup, err := w.body()
	if err != nil {
		return err
	}
	return cleanup()
}

func (w *Writer) body() (io.Reader, func() error, error) {
	if w.spool == nil {
		data := w.buf.Bytes()
		w.buf = bytes.Buffer{}
		return bytes.NewReader(data), func() error { return nil }, nil
	}

	f := w.spool
	w.spool = nil
	cleanup := func() error {
		name := f.Name()
		closeErr := f.Close()
		rmErr := os.Remove(name)
		if closeErr != nil {
			return fmt.Errorf("close temp file: %w", closeErr)
		}
		if rmErr != nil {
			return fmt.Errorf("remove temp file: %w", rmErr)
		}
		return nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = cleanup()
		return nil, nil, err
	}
	return f, cleanup, nil
}
