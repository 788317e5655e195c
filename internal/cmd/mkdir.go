package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
	"github.com/3leaps/nimbusfs/pkg/objfs"
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <uri>...",
	Short: "Create directories",
	Long: `Create directories by writing "<dir>_$folder$" marker objects.

Without --parents the parent directory must already exist. Creating a
directory that already exists succeeds.

Examples:
  nimbusfs mkdir s3://bucket/data
  nimbusfs mkdir -p s3://bucket/data/2026/10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMkdir,
}

var mkdirParents bool

func init() {
	rootCmd.AddCommand(mkdirCmd)

	mkdirCmd.Flags().BoolVarP(&mkdirParents, "parents", "p", false, "Create missing parent directories")
}

func runMkdir(cmd *cobra.Command, args []string) error {
	if err := requireWritable("create directories"); err != nil {
		return err
	}
	ctx := cmd.Context()

	for _, raw := range args {
		fsys, uri, release, err := openFileSystem(ctx, raw)
		if err != nil {
			return err
		}
		err = fsys.Mkdirs(ctx, uri.Path(), objfs.MkdirsOptions{CreateParent: mkdirParents})
		release()
		if err != nil {
			observability.CLILogger.Error("Failed to create directory", zap.String("uri", raw), zap.Error(err))
			return fsError("Failed to create directory "+uri.String(), err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", uri.String())
	}
	return nil
}
