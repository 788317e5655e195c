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

var mvCmd = &cobra.Command{
	Use:   "mv <source-uri> <destination-uri>",
	Short: "Rename a file or directory",
	Long: `Rename a file or directory within one bucket.

Object stores cannot rename, so every object is copied and then deleted.
A failure after the first object moved leaves a partial rename; the
outcome (succeeded, aborted or partial) and the keys already moved are
reported so the tree can be repaired.

Examples:
  nimbusfs mv s3://bucket/tmp/report.csv s3://bucket/reports/report.csv
  nimbusfs mv s3://bucket/staging/2026 s3://bucket/archive/2026 --json`,
	Args: cobra.ExactArgs(2),
	RunE: runMv,
}

var mvJSON bool

func init() {
	rootCmd.AddCommand(mvCmd)

	mvCmd.Flags().BoolVar(&mvJSON, "json", false, "Output the outcome as a JSONL record")
}

func runMv(cmd *cobra.Command, args []string) error {
	if err := requireWritable("rename"); err != nil {
		return err
	}
	ctx := cmd.Context()

	dst, err := ParseURI(args[1])
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid destination URI", err)
	}

	fsys, src, release, err := openFileSystem(ctx, args[0])
	if err != nil {
		return err
	}
	defer release()

	if appConfig != nil {
		dst = dst.Rebase(appConfig.Store.BaseDir)
	}
	if dst.Provider != src.Provider || dst.Bucket != src.Bucket {
		return exitError(ExitInvalidArgument, "Cannot rename across stores",
			fmt.Errorf("%s and %s are in different buckets", src.String(), dst.String()))
	}

	res, err := fsys.Rename(ctx, src.Path(), dst.Path())

	rec := &output.RenameRecord{
		Source:      res.Source,
		Destination: res.Destination,
		Outcome:     res.Outcome.String(),
		Directory:   res.Directory,
		Objects:     res.Objects,
	}
	var partial *objfs.PartialRenameError
	if errors.As(err, &partial) {
		rec.Renamed = partial.Renamed
		rec.Remaining = partial.Remaining
		observability.CLILogger.Error("Failed to rename file",
			zap.String("source", src.Path()),
			zap.String("destination", dst.Path()),
			zap.String("source_key", partial.SourceKey),
			zap.String("destination_key", partial.DestinationKey),
			zap.Strings("renamed", partial.Renamed),
			zap.Error(partial.Err))
	}

	if mvJSON {
		w := newRecordWriter(cmd.OutOrStdout(), src)
		werr := w.WriteRename(ctx, rec)
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
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s -> %s (%d object(s))\n", src.String(), dst.String(), res.Objects)
	}

	if err != nil {
		return fsError(fmt.Sprintf("Rename %s", res.Outcome), err)
	}
	return nil
}
