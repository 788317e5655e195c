package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
	"github.com/3leaps/nimbusfs/pkg/objfs"
	"github.com/3leaps/nimbusfs/pkg/output"
)

var lsCmd = &cobra.Command{
	Use:   "ls <uri>",
	Short: "List a directory",
	Long: `List the files and directories under a path.

Marker objects are hidden; a directory appears once whether it has a
marker, descendants, or both. With --json every entry is written as a
JSONL record followed by a summary record.

Examples:
  nimbusfs ls s3://bucket/
  nimbusfs ls -R s3://bucket/data/
  nimbusfs ls mem://scratch/logs --json`,
	Args: cobra.ExactArgs(1),
	RunE: runLs,
}

var (
	lsRecursive bool
	lsJSON      bool
)

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().BoolVarP(&lsRecursive, "recursive", "R", false, "List every descendant")
	lsCmd.Flags().BoolVar(&lsJSON, "json", false, "Output as JSONL records")
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fsys, uri, release, err := openFileSystem(ctx, args[0])
	if err != nil {
		return err
	}
	defer release()

	path := uri.Path()
	if lsJSON {
		return streamEntries(cmd, fsys, uri, path)
	}

	entries, err := fsys.List(ctx, path, objfs.ListOptions{Recursive: lsRecursive})
	if err != nil {
		observability.CLILogger.Error("Failed to list", zap.String("path", path), zap.Error(err))
		return fsError("Failed to list "+uri.String(), err)
	}
	return writeEntryTable(cmd.OutOrStdout(), entries)
}

// streamEntries writes entries as they are produced, so recursive
// listings of large trees are not held in memory.
func streamEntries(cmd *cobra.Command, fsys *objfs.FileSystem, uri *ObjectURI, path string) error {
	ctx := cmd.Context()
	w := newRecordWriter(cmd.OutOrStdout(), uri)

	start := time.Now()
	sum := &output.SummaryRecord{Path: path}
	emit := func(e objfs.FileStatus) error {
		if e.IsDir {
			sum.Directories++
		} else {
			sum.Files++
			sum.BytesTotal += e.Size
		}
		return w.WriteEntry(ctx, output.EntryFromStatus(&e))
	}

	var err error
	if lsRecursive {
		err = fsys.Walk(ctx, path, emit)
	} else {
		var entries []objfs.FileStatus
		entries, err = fsys.List(ctx, path, objfs.ListOptions{})
		for i := 0; err == nil && i < len(entries); i++ {
			err = emit(entries[i])
		}
	}
	if err != nil {
		sum.Errors++
		_ = w.WriteError(ctx, output.NewErrorRecord(err))
	}

	sum.Duration = time.Since(start)
	sum.DurationHuman = sum.Duration.Round(time.Millisecond).String()
	if werr := w.WriteSummary(ctx, sum); werr != nil && err == nil {
		err = werr
	}
	if cerr := w.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		observability.CLILogger.Error("Failed to list", zap.String("path", path), zap.Error(err))
		return fsError("Failed to list "+uri.String(), err)
	}
	return nil
}
