package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
	"github.com/3leaps/nimbusfs/internal/server"
	"github.com/3leaps/nimbusfs/internal/server/handlers"
	"github.com/3leaps/nimbusfs/pkg/objfs"
)

var serveCmd = &cobra.Command{
	Use:   "serve [uri]",
	Short: "Serve a bucket over HTTP",
	Long: `Serve a bucket as a filesystem over a small HTTP/JSON API.

Routes:
  GET    /v1/stat?path=          GET    /v1/list?path=&recursive=
  GET    /v1/glob?pattern=       GET    /v1/content?path=&offset=
  PUT    /v1/content?path=       DELETE /v1/content?path=&recursive=
  POST   /v1/rename              POST   /v1/mkdirs
  GET    /health[/live|/ready|/startup], /version, /metrics

With --readonly every mutating route answers 403. Without a URI the
store section of the configuration is served.

Examples:
  nimbusfs serve s3://bucket --port 8080
  nimbusfs serve file:///srv/data --readonly`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (default from server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default from server.port)")
}

const healthCheckPath = "/.nimbusfs-health"

// storeHealthChecker reports the store reachable when a sentinel lookup
// round-trips. The root itself is synthesized and never touches the store.
type storeHealthChecker struct {
	fs *objfs.FileSystem
}

func (c storeHealthChecker) CheckHealth(ctx context.Context) error {
	if c.fs == nil {
		return fmt.Errorf("filesystem not initialized")
	}
	_, err := c.fs.Exists(ctx, healthCheckPath)
	return err
}

// metricsHealthChecker fails when metrics are enabled but not initialized.
type metricsHealthChecker struct {
	enabled bool
}

func (c metricsHealthChecker) CheckHealth(context.Context) error {
	if c.enabled && observability.PrometheusExporter == nil {
		return fmt.Errorf("metrics exporter not initialized")
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := currentConfig(cmd.Context())
	if err != nil {
		return exitError(ExitConfigError, "Failed to load configuration", err)
	}

	raw := ""
	if len(args) == 1 {
		raw = args[0]
	} else if raw, err = configuredURI(cfg); err != nil {
		return exitError(ExitInvalidArgument, "No store to serve", err)
	}

	fsys, uri, release, err := openFileSystem(cmd.Context(), raw)
	if err != nil {
		return err
	}
	defer release()

	host, port := cfg.Server.Host, cfg.Server.Port
	if cmd.Flags().Changed("host") {
		host = serveHost
	}
	if cmd.Flags().Changed("port") {
		port = servePort
	}

	health := handlers.InitHealthManager(versionInfo.Version)
	health.RegisterChecker("store", storeHealthChecker{fs: fsys})
	health.RegisterChecker("metrics", metricsHealthChecker{enabled: cfg.Metrics.Enabled})

	srv := server.New(host, port,
		server.WithFileSystem(fsys, readOnly),
		server.WithMetrics(observability.PrometheusExporter),
		server.WithLogger(observability.CLILogger),
		server.WithVersion(handlers.VersionInfo{
			Version:   versionInfo.Version,
			Commit:    versionInfo.Commit,
			BuildDate: versionInfo.BuildDate,
		}),
		server.WithTimeouts(server.Timeouts{
			Read:     cfg.Server.ReadTimeout,
			Write:    cfg.Server.WriteTimeout,
			Idle:     cfg.Server.IdleTimeout,
			Shutdown: cfg.Server.ShutdownTimeout,
		}),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observability.CLILogger.Info("Serving store",
		zap.String("uri", uri.String()),
		zap.String("addr", srv.Addr()),
		zap.Bool("readonly", readOnly))

	if err := srv.Start(ctx); err != nil {
		observability.CLILogger.Error("Gateway failed", zap.Error(err))
		return exitError(ExitServiceUnavailable, "Gateway failed", err)
	}
	return nil
}
