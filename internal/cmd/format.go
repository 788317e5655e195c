package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/3leaps/nimbusfs/pkg/objfs"
	"github.com/3leaps/nimbusfs/pkg/output"
)

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatTime renders a modification time, or "-" when the store has none
// (implicit directories).
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// displayName appends a separator to directory names.
func displayName(st objfs.FileStatus) string {
	if st.IsDir {
		return st.Name + "/"
	}
	return st.Name
}

// writeEntryTable writes entries as an aligned table followed by a count.
func writeEntryTable(out io.Writer, entries []objfs.FileStatus) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "No entries found.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "MODE\tSIZE\tMODIFIED\tNAME"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	var totalSize int64
	var files, dirs int
	for _, e := range entries {
		size := "-"
		if e.IsDir {
			dirs++
		} else {
			files++
			totalSize += e.Size
			size = formatSize(e.Size)
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Mode, size, formatTime(e.ModTime), displayName(e)); err != nil {
			return fmt.Errorf("failed to write entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	_, err := fmt.Fprintf(out, "\n%d file(s), %d directory(ies), %s total\n", files, dirs, formatSize(totalSize))
	return err
}

// newRecordWriter returns a JSONL writer tagged with a fresh job ID.
func newRecordWriter(out io.Writer, u *ObjectURI) *output.JSONLWriter {
	return output.NewJSONLWriter(out, uuid.New().String(), u.Provider)
}

// writeJSON writes v as indented JSON.
func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
