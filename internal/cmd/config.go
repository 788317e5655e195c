package cmd

import (
	"github.com/spf13/cobra"

	"github.com/3leaps/nimbusfs/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the effective configuration after defaults, the config file,
NIMBUSFS_* environment variables and flags are merged. Secrets are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := currentConfig(cmd.Context())
	if err != nil {
		return exitError(ExitConfigError, "Failed to load configuration", err)
	}
	out, err := config.Render(cfg)
	if err != nil {
		return exitError(ExitInternal, "Failed to render configuration", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
