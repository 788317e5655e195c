package cmd

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/config"
	"github.com/3leaps/nimbusfs/internal/observability"
	"github.com/3leaps/nimbusfs/pkg/objfs"
	"github.com/3leaps/nimbusfs/pkg/provider"
	"github.com/3leaps/nimbusfs/pkg/provider/file"
	"github.com/3leaps/nimbusfs/pkg/provider/memory"
	"github.com/3leaps/nimbusfs/pkg/provider/minio"
	"github.com/3leaps/nimbusfs/pkg/provider/s3"
)

// mem:// buckets live for the whole process so that successive commands
// in one process (tests, the gateway) share their contents.
var (
	memMu     sync.Mutex
	memStores = map[string]*memory.Provider{}
)

func memoryStore(bucket string) *memory.Provider {
	memMu.Lock()
	defer memMu.Unlock()
	p, ok := memStores[bucket]
	if !ok {
		p = memory.New(bucket)
		memStores[bucket] = p
	}
	return p
}

// currentConfig returns the loaded configuration, or the defaults when a
// command runs without the root pre-run.
func currentConfig(ctx context.Context) (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	return config.Load(ctx)
}

// openProvider connects to the store named by u. The URI decides provider
// and bucket; everything else comes from the store and client sections.
func openProvider(ctx context.Context, cfg *config.Config, u *ObjectURI) (provider.Provider, error) {
	sc := cfg.Store
	switch provider.ProviderType(u.Provider) {
	case provider.ProviderS3:
		return s3.New(ctx, s3.Config{
			Bucket:          u.Bucket,
			Region:          sc.Region,
			Endpoint:        sc.Endpoint,
			Profile:         sc.Profile,
			AccessKeyID:     sc.AccessKeyID,
			SecretAccessKey: sc.SecretAccessKey,
			// S3-compatible services (moto, MinIO, etc.) require path-style URLs.
			ForcePathStyle: sc.ForcePathStyle || sc.Endpoint != "",
			MaxKeys:        cfg.FS.PageSize,
			Client:         cfg.Client,
		})
	case provider.ProviderMinIO:
		return minio.New(ctx, minio.Config{
			Endpoint:  sc.Endpoint,
			Bucket:    u.Bucket,
			AccessKey: sc.AccessKeyID,
			SecretKey: sc.SecretAccessKey,
			UseSSL:    sc.UseSSL,
			Region:    sc.Region,
			MaxKeys:   cfg.FS.PageSize,
			Client:    cfg.Client,
		})
	case provider.ProviderFile:
		return file.New(file.Config{BaseDir: u.Bucket})
	case provider.ProviderMemory:
		return memoryStore(u.Bucket), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, u.Provider)
	}
}

// openFileSystem parses raw and opens a filesystem over its store. The
// returned release func closes the provider; mem:// stores stay open.
func openFileSystem(ctx context.Context, raw string) (*objfs.FileSystem, *ObjectURI, func(), error) {
	u, err := ParseURI(raw)
	if err != nil {
		return nil, nil, nil, exitError(ExitInvalidArgument, "Invalid URI", err)
	}
	cfg, err := currentConfig(ctx)
	if err != nil {
		return nil, nil, nil, exitError(ExitConfigError, "Failed to load configuration", err)
	}
	u = u.Rebase(cfg.Store.BaseDir)

	fsys, err := newFileSystem(ctx, cfg, u)
	if err != nil {
		return nil, nil, nil, err
	}
	release := func() {
		if u.Provider == string(provider.ProviderMemory) {
			return
		}
		if err := fsys.Close(); err != nil {
			observability.CLILogger.Debug("Failed to close provider", zap.String("uri", u.String()), zap.Error(err))
		}
	}
	return fsys, u, release, nil
}

func newFileSystem(ctx context.Context, cfg *config.Config, u *ObjectURI) (*objfs.FileSystem, error) {
	prov, err := openProvider(ctx, cfg, u)
	if err != nil {
		observability.CLILogger.Error("Failed to create provider",
			zap.String("provider", u.Provider), zap.String("bucket", u.Bucket), zap.Error(err))
		return nil, exitError(ExitServiceUnavailable, "Failed to connect to storage provider", err)
	}

	var observer objfs.Observer
	if m := observability.PrometheusExporter; m != nil {
		observer = m
	}
	fsys, err := objfs.New(prov, u.Bucket, cfg.FileSystemConfig(observability.CLILogger, observer))
	if err != nil {
		_ = prov.Close()
		return nil, exitError(ExitConfigError, "Invalid filesystem configuration", err)
	}
	return fsys, nil
}

// configuredURI builds a URI from the store section for commands that
// take the URI as optional.
func configuredURI(cfg *config.Config) (string, error) {
	sc := cfg.Store
	switch {
	case sc.Provider == "":
		return "", fmt.Errorf("%w: no URI given and store.provider is not set", ErrInvalidURI)
	case sc.Provider == string(provider.ProviderFile):
		if sc.BaseDir == "" {
			return "", fmt.Errorf("%w: store.base_dir is required for the file provider", ErrInvalidURI)
		}
		return "file://" + sc.BaseDir, nil
	case sc.Bucket == "":
		return "", fmt.Errorf("%w: store.bucket is not set", ErrMissingBucket)
	default:
		return sc.Provider + "://" + sc.Bucket + "/", nil
	}
}
