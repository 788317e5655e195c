package output

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Writer emits command results as records.
type Writer interface {
	WriteEntry(ctx context.Context, entry *EntryRecord) error
	WriteError(ctx context.Context, err *ErrorRecord) error
	WriteRename(ctx context.Context, rename *RenameRecord) error
	WriteDelete(ctx context.Context, del *DeleteRecord) error
	WriteSummary(ctx context.Context, sum *SummaryRecord) error

	// Close flushes pending records. Later writes fail with ErrWriterClosed.
	Close() error
}

// flushBytes is how much output JSONLWriter holds before writing through.
const flushBytes = 32 << 10

// JSONLWriter batches records as newline-delimited JSON. A walk over a
// large tree produces one small record per entry, so lines are collected
// and written in blocks; error and summary records flush
// immediately so a reader following the stream sees them as they happen.
//
// JSONLWriter is safe for concurrent use and never splits a line.
type JSONLWriter struct {
	out      io.Writer
	jobID    string
	provider string
	limit    int

	mu      sync.Mutex
	pending []byte
	closed  bool
}

// NewJSONLWriter creates a writer tagging every record with jobID and the
// provider scheme.
func NewJSONLWriter(w io.Writer, jobID, provider string) *JSONLWriter {
	return &JSONLWriter{
		out:      w,
		jobID:    jobID,
		provider: provider,
		limit:    flushBytes,
	}
}

func (jw *JSONLWriter) WriteEntry(ctx context.Context, entry *EntryRecord) error {
	return jw.emit(ctx, TypeEntry, entry, false)
}

func (jw *JSONLWriter) WriteError(ctx context.Context, err *ErrorRecord) error {
	return jw.emit(ctx, TypeError, err, true)
}

func (jw *JSONLWriter) WriteRename(ctx context.Context, rename *RenameRecord) error {
	return jw.emit(ctx, TypeRename, rename, false)
}

func (jw *JSONLWriter) WriteDelete(ctx context.Context, del *DeleteRecord) error {
	return jw.emit(ctx, TypeDelete, del, false)
}

func (jw *JSONLWriter) WriteSummary(ctx context.Context, sum *SummaryRecord) error {
	return jw.emit(ctx, TypeSummary, sum, true)
}

// Close flushes pending records and closes the writer. The underlying
// io.Writer is left open.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.closed {
		return nil
	}
	jw.closed = true
	return jw.flushLocked()
}

func (jw *JSONLWriter) emit(ctx context.Context, recordType string, data any, flush bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return &WriteError{Op: "marshal_data", Err: err}
	}
	line, err := json.Marshal(Record{
		Type:     recordType,
		TS:       time.Now().UTC(),
		JobID:    jw.jobID,
		Provider: jw.provider,
		Data:     payload,
	})
	if err != nil {
		return &WriteError{Op: "marshal_record", Err: err}
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.closed {
		return ErrWriterClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	jw.pending = append(append(jw.pending, line...), '\n')
	if flush || len(jw.pending) >= jw.limit {
		return jw.flushLocked()
	}
	return nil
}

func (jw *JSONLWriter) flushLocked() error {
	if len(jw.pending) == 0 {
		return nil
	}
	err := writeAll(jw.out, jw.pending)
	jw.pending = jw.pending[:0]
	if err != nil {
		return &WriteError{Op: "write", Err: err}
	}
	return nil
}

// writeAll loops over short writes; a write that makes no progress is
// io.ErrShortWrite.
func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

var _ Writer = (*JSONLWriter)(nil)
