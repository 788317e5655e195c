package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
	"github.com/3leaps/nimbusfs/pkg/output"
)

var statCmd = &cobra.Command{
	Use:   "stat <uri>",
	Short: "Show the status of a file or directory",
	Long: `Show the status of a file or directory.

When a file and a directory marker share a path, the file is reported.

Examples:
  nimbusfs stat s3://bucket/data/report.csv
  nimbusfs stat s3://bucket/data --json`,
	Args: cobra.ExactArgs(1),
	RunE: runStat,
}

var existsCmd = &cobra.Command{
	Use:   "exists <uri>",
	Short: "Report whether a path exists",
	Long: `Print true or false and exit 0 when the path exists, 1 otherwise.

Examples:
  nimbusfs exists s3://bucket/data/ && echo present`,
	Args: cobra.ExactArgs(1),
	RunE: runExists,
}

var statJSON bool

func init() {
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(existsCmd)

	statCmd.Flags().BoolVar(&statJSON, "json", false, "Output as JSON")
}

func runStat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fsys, uri, release, err := openFileSystem(ctx, args[0])
	if err != nil {
		return err
	}
	defer release()

	st, err := fsys.GetStatus(ctx, uri.Path())
	if err != nil {
		observability.CLILogger.Debug("Status lookup failed", zap.String("path", uri.Path()), zap.Error(err))
		return fsError("Failed to stat "+uri.String(), err)
	}

	rec := output.EntryFromStatus(st)
	if statJSON {
		return writeJSON(cmd.OutOrStdout(), rec)
	}

	kind := "file"
	if rec.IsDir {
		kind = "directory"
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Path:\t%s\n", rec.Path)
	_, _ = fmt.Fprintf(w, "Key:\t%s\n", rec.Key)
	_, _ = fmt.Fprintf(w, "Type:\t%s\n", kind)
	_, _ = fmt.Fprintf(w, "Size:\t%s (%d bytes)\n", formatSize(rec.Size), rec.Size)
	_, _ = fmt.Fprintf(w, "Modified:\t%s\n", formatTime(rec.ModTime))
	_, _ = fmt.Fprintf(w, "Mode:\t%s\n", rec.Mode)
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}

func runExists(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fsys, uri, release, err := openFileSystem(ctx, args[0])
	if err != nil {
		return err
	}
	defer release()

	ok, err := fsys.Exists(ctx, uri.Path())
	if err != nil {
		return fsError("Failed to check "+uri.String(), err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), ok)
	if !ok {
		return exitError(ExitFailure, "Path does not exist", fmt.Errorf("%s", uri.String()))
	}
	return nil
}
