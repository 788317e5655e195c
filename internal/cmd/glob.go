package cmd

import (
	"github.com/spf13/cobra"

	"github.com/3leaps/nimbusfs/pkg/output"
)

var globCmd = &cobra.Command{
	Use:   "glob <pattern-uri>",
	Short: "List files matching a glob pattern",
	Long: `List files whose paths match a doublestar glob pattern.

Only the static prefix before the first glob character is listed, so
anchor patterns as deep as possible. Escape a metacharacter with a
backslash to match it literally.

Examples:
  nimbusfs glob 's3://bucket/logs/**/*.log'
  nimbusfs glob 's3://bucket/data/2026-{01,02}/*.csv' --json`,
	Args: cobra.ExactArgs(1),
	RunE: runGlob,
}

var globJSON bool

func init() {
	rootCmd.AddCommand(globCmd)

	globCmd.Flags().BoolVar(&globJSON, "json", false, "Output as JSONL records")
}

func runGlob(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fsys, uri, release, err := openFileSystem(ctx, args[0])
	if err != nil {
		return err
	}
	defer release()

	matches, err := fsys.Glob(ctx, uri.PatternPath())
	if err != nil {
		return fsError("Failed to match "+uri.String(), err)
	}

	if !globJSON {
		for i := range matches {
			matches[i].Name = matches[i].Path
		}
		return writeEntryTable(cmd.OutOrStdout(), matches)
	}

	w := newRecordWriter(cmd.OutOrStdout(), uri)
	for i := range matches {
		if err := w.WriteEntry(ctx, output.EntryFromStatus(&matches[i])); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}
