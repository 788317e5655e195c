package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
	"github.com/3leaps/nimbusfs/pkg/objfs"
)

var catCmd = &cobra.Command{
	Use:   "cat <uri>",
	Short: "Write a file's contents to stdout",
	Long: `Write a file's contents to stdout.

With --offset the read starts at that byte; earlier bytes are never
fetched from the store. An offset at or past the end yields no output.

Examples:
  nimbusfs cat s3://bucket/logs/app.log
  nimbusfs cat s3://bucket/logs/app.log --offset 1048576`,
	Args: cobra.ExactArgs(1),
	RunE: runCat,
}

var putCmd = &cobra.Command{
	Use:   "put <uri>",
	Short: "Write stdin or a local file to a path",
	Long: `Write stdin or a local file to a path.

The object becomes visible only once the whole input has been received;
a failed or interrupted upload leaves nothing behind. Large inputs spill
from memory to a temporary file before upload.

Examples:
  nimbusfs put s3://bucket/data/report.csv --file report.csv
  echo hello | nimbusfs put --parents mem://scratch/a/b/hello.txt
  nimbusfs put s3://bucket/data/report.csv --file report.csv --overwrite`,
	Args: cobra.ExactArgs(1),
	RunE: runPut,
}

var (
	catOffset    int64
	putFile      string
	putOverwrite bool
	putParents   bool
)

func init() {
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(putCmd)

	catCmd.Flags().Int64Var(&catOffset, "offset", 0, "Byte offset to start reading at")

	putCmd.Flags().StringVarP(&putFile, "file", "f", "-", "Local file to upload (- for stdin)")
	putCmd.Flags().BoolVar(&putOverwrite, "overwrite", false, "Replace an existing file")
	putCmd.Flags().BoolVarP(&putParents, "parents", "p", false, "Create missing parent directories")
}

func runCat(cmd *cobra.Command, args []string) error {
	if catOffset < 0 {
		return exitError(ExitInvalidArgument, "Invalid --offset value", fmt.Errorf("offset must be >= 0"))
	}
	ctx := cmd.Context()

	fsys, uri, release, err := openFileSystem(ctx, args[0])
	if err != nil {
		return err
	}
	defer release()

	r, err := fsys.Open(ctx, uri.Path(), objfs.OpenOptions{Offset: catOffset})
	if err != nil {
		return fsError("Failed to open "+uri.String(), err)
	}
	defer func() { _ = r.Close() }()

	if _, err := io.Copy(cmd.OutOrStdout(), r); err != nil {
		observability.CLILogger.Error("Failed to read object", zap.String("key", r.Key()), zap.Error(err))
		return exitError(ExitIOError, "Failed to read "+uri.String(), err)
	}
	return nil
}

func runPut(cmd *cobra.Command, args []string) error {
	if err := requireWritable("write"); err != nil {
		return err
	}
	ctx := cmd.Context()

	in := cmd.InOrStdin()
	if putFile != "-" {
		f, err := os.Open(putFile)
		if err != nil {
			return exitError(ExitNotFound, "Failed to open input file", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	fsys, uri, release, err := openFileSystem(ctx, args[0])
	if err != nil {
		return err
	}
	defer release()

	w, err := fsys.Create(ctx, uri.Path(), objfs.CreateOptions{Overwrite: putOverwrite, CreateParent: putParents})
	if err != nil {
		return fsError("Failed to create "+uri.String(), err)
	}
	if _, err := io.Copy(w, in); err != nil {
		if aerr := w.Abort(); aerr != nil {
			observability.CLILogger.Warn("Failed to discard write", zap.String("key", w.Key()), zap.Error(aerr))
		}
		return exitError(ExitIOError, "Failed to read input", err)
	}
	if err := w.Close(); err != nil {
		observability.CLILogger.Error("Failed to upload", zap.String("key", w.Key()), zap.Error(err))
		return fsError("Failed to write "+uri.String(), err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", uri.String(), formatSize(w.Size()))
	return nil
}
