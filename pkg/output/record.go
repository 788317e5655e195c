// Package output provides JSONL output for filesystem commands.
//
// Output is structured as typed record envelopes containing entries,
// operation results, and errors. Each line is a self-contained JSON
// object that can be parsed independently.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: nimbusfs.<type>.v<version>
const (
	// TypeEntry identifies file or directory status records.
	TypeEntry = "nimbusfs.entry.v1"

	// TypeError identifies error records.
	TypeError = "nimbusfs.error.v1"

	// TypeRename identifies rename outcome records.
	TypeRename = "nimbusfs.rename.v1"

	// TypeDelete identifies delete outcome records.
	TypeDelete = "nimbusfs.delete.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "nimbusfs.summary.v1"
)

// Record is the envelope for all JSONL output.
//
// Each line of JSONL output contains a Record with a type-specific
// payload in the Data field. The type field determines how to
// interpret the Data payload.
type Record struct {
	// Type identifies the record type (e.g., "nimbusfs.entry.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// JobID is the correlation ID for this command invocation.
	JobID string `json:"job_id"`

	// Provider identifies the storage provider (e.g., "s3", "minio").
	Provider string `json:"provider"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// EntryRecord is the data payload for one file or directory.
type EntryRecord struct {
	// Path is the absolute filesystem path.
	Path string `json:"path"`

	// Name is the entry name relative to the listed directory.
	Name string `json:"name"`

	// Key is the object key backing the entry.
	Key string `json:"key"`

	// IsDir reports whether the entry is a directory.
	IsDir bool `json:"is_dir"`

	// Size is the object size in bytes. Always 0 for directories.
	Size int64 `json:"size"`

	// ModTime is the last modification time. Omitted for directories
	// that have no marker object.
	ModTime time.Time `json:"mod_time,omitzero"`

	// Mode is the reported permission string (e.g., "-rwxrwxrwx").
	Mode string `json:"mode,omitempty"`
}

// RenameRecord is the data payload for a rename.
type RenameRecord struct {
	Source      string   `json:"source"`
	Destination string   `json:"destination"`
	Outcome     string   `json:"outcome"`
	Directory   bool     `json:"directory"`
	Objects     int      `json:"objects"`
	Renamed     []string `json:"renamed,omitempty"`
	Remaining   int      `json:"remaining,omitempty"`
}

// DeleteRecord is the data payload for a delete.
type DeleteRecord struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
	Deleted   bool   `json:"deleted"`
	FailedKey string `json:"failed_key,omitempty"`
}

// ErrorRecord is the data payload for errors.
//
// Errors are emitted as records rather than failing silently, so a
// consumer of the stream sees which path failed and why.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Path is the filesystem path related to this error, if applicable.
	Path string `json:"path,omitempty"`

	// Key is the object key related to this error, if applicable.
	Key string `json:"key,omitempty"`

	// Details contains additional error context.
	Details any `json:"details,omitempty"`
}

// SummaryRecord is the data payload for final summaries.
type SummaryRecord struct {
	// Path is the path the command operated on.
	Path string `json:"path"`

	// Files is the number of file entries emitted.
	Files int64 `json:"files"`

	// Directories is the number of directory entries emitted.
	Directories int64 `json:"directories"`

	// BytesTotal is the cumulative size of emitted files in bytes.
	BytesTotal int64 `json:"bytes_total"`

	// Duration is the total command duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`

	// Errors is the count of errors encountered.
	Errors int64 `json:"errors"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
