// Package cmd implements the nimbusfs command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/config"
	"github.com/3leaps/nimbusfs/internal/observability"
)

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "none",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata injected by the linker.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	cfgFile       string
	logLevel      string
	verbose       bool
	readOnly      bool
	storeRegion   string
	storeProfile  string
	storeEndpoint string

	// appConfig is the configuration loaded before every command runs.
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "nimbusfs",
	Short: "Browse and modify object stores as a filesystem",
	Long: `nimbusfs presents a flat object store (S3, MinIO, a local directory or
an in-memory bucket) as a hierarchical filesystem.

Directories are emulated with "<dir>_$folder$" marker objects and with the
key prefixes of their descendants, so trees written by other tools show up
as directories too.

Examples:
  nimbusfs ls s3://bucket/data/
  nimbusfs mkdir -p s3://bucket/data/2026/10
  nimbusfs put --parents s3://bucket/data/2026/10/report.csv --file report.csv
  nimbusfs mv s3://bucket/data/2026 s3://bucket/archive/2026
  nimbusfs serve s3://bucket --readonly`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initRuntime,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default: ./nimbusfs.yaml or the user config dir)")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	flags.BoolVar(&readOnly, "readonly", false, "Refuse every operation that modifies the store (NIMBUSFS_READONLY=1)")
	flags.StringVar(&storeRegion, "region", "", "Store region")
	flags.StringVar(&storeProfile, "profile", "", "AWS profile")
	flags.StringVar(&storeEndpoint, "endpoint", "", "Custom S3-compatible endpoint")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initRuntime loads configuration with flag overrides, then configures
// logging and metrics.
func initRuntime(cmd *cobra.Command, _ []string) error {
	config.ConfigFile = cfgFile
	// Console logging until the configured logger replaces it.
	observability.InitCLILogger("nimbusfs", verbose)

	overrides := map[string]any{}
	store := map[string]any{}
	flags := cmd.Flags()
	if flags.Changed("readonly") {
		overrides["readonly"] = readOnly
	}
	if flags.Changed("log-level") {
		overrides["logging"] = map[string]any{"level": logLevel}
	}
	if flags.Changed("region") {
		store["region"] = storeRegion
	}
	if flags.Changed("profile") {
		store["profile"] = storeProfile
	}
	if flags.Changed("endpoint") {
		store["endpoint"] = storeEndpoint
	}
	if len(store) > 0 {
		overrides["store"] = store
	}

	cfg, err := config.Load(cmd.Context(), overrides)
	if err != nil {
		observability.CLILogger.Error("Failed to load configuration", zap.String("file", cfgFile), zap.Error(err))
		return exitError(ExitConfigError, "Failed to load configuration", err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	if err := observability.ConfigureLogger(observability.LoggerConfig{
		Name:    "nimbusfs",
		Level:   level,
		Profile: cfg.Logging.Profile,
		File:    cfg.Logging.File,
	}); err != nil {
		return exitError(ExitConfigError, "Invalid logging configuration", err)
	}

	if cfg.Metrics.Enabled && observability.PrometheusExporter == nil {
		observability.InitMetrics()
	}

	readOnly = cfg.ReadOnly
	appConfig = cfg

	observability.CLILogger.Debug("Configuration loaded",
		zap.String("provider", cfg.Store.Provider),
		zap.Bool("readonly", cfg.ReadOnly),
		zap.Bool("metrics", cfg.Metrics.Enabled))
	return nil
}

// requireWritable refuses a mutating command in readonly mode.
func requireWritable(action string) error {
	if !readOnly {
		return nil
	}
	return exitError(ExitPermissionDenied,
		fmt.Sprintf("readonly mode enabled: refusing to %s", action),
		fmt.Errorf("disable --readonly or unset NIMBUSFS_READONLY"))
}
