package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
	"github.com/3leaps/nimbusfs/pkg/objfs"
	"github.com/3leaps/nimbusfs/pkg/output"
)

var rmCmd = &cobra.Command{
	Use:   "rm <uri>",
	Short: "Delete a file or directory",
	Long: `Delete a file or directory.

A non-empty directory is only deleted with --recursive, children first and
the directory marker last. A recursive delete stops at the first failure
and reports the key it could not remove; keys already removed stay gone.

Examples:
  nimbusfs rm s3://bucket/data/report.csv
  nimbusfs rm -r s3://bucket/data/2024`,
	Args: cobra.ExactArgs(1),
	RunE: runRm,
}

var (
	rmRecursive bool
	rmJSON      bool
)

func init() {
	rootCmd.AddCommand(rmCmd)

	rmCmd.Flags().BoolVarP(&rmRecursive, "recursive", "r", false, "Delete directories and their contents")
	rmCmd.Flags().BoolVar(&rmJSON, "json", false, "Output the outcome as a JSONL record")
}

func runRm(cmd *cobra.Command, args []string) error {
	if err := requireWritable("delete"); err != nil {
		return err
	}
	ctx := cmd.Context()

	fsys, uri, release, err := openFileSystem(ctx, args[0])
	if err != nil {
		return err
	}
	defer release()

	path := uri.Path()
	err = fsys.Delete(ctx, path, objfs.DeleteOptions{Recursive: rmRecursive})

	rec := &output.DeleteRecord{Path: path, Recursive: rmRecursive, Deleted: err == nil}
	var partial *objfs.PartialDeleteError
	if errors.As(err, &partial) {
		rec.FailedKey = partial.FailedKey
		observability.CLILogger.Error("Recursive delete stopped",
			zap.String("path", path),
			zap.String("failed_key", partial.FailedKey),
			zap.Int("deleted", partial.Deleted),
			zap.Error(partial.Err))
	}

	if rmJSON {
		w := newRecordWriter(cmd.OutOrStdout(), uri)
		werr := w.WriteDelete(ctx, rec)
		if err != nil {
			_ = w.WriteError(ctx, output.NewErrorRecord(err))
		}
		if cerr := w.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil && err == nil {
			return fmt.Errorf("failed to write record: %w", werr)
		}
	} else if err == nil {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", uri.String())
	}

	if err != nil {
		return fsError("Failed to delete "+uri.String(), err)
	}
	return nil
}
