package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/3leaps/nimbusfs/pkg/objfs"
)

// isolate keeps the developer's own config files and environment out of
// the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NIMBUSFS_CONFIG", "")
	orig := ConfigFile
	ConfigFile = ""
	t.Cleanup(func() { ConfigFile = orig })
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		isolate(t)
		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "structured", cfg.Logging.Profile)
		assert.False(t, cfg.Metrics.Enabled)
		assert.False(t, cfg.ReadOnly)

		assert.Equal(t, objfs.DefaultFolderSuffix, cfg.FS.FolderSuffix)
		assert.Equal(t, 1000, cfg.FS.PageSize)
		assert.Equal(t, objfs.DefaultWriteBufferBytes, cfg.FS.WriteBufferBytes)
		assert.Equal(t, 1, cfg.FS.DeleteParallelism)

		assert.Equal(t, 50*time.Second, cfg.Client.ConnectTimeout)
		assert.Equal(t, 1024, cfg.Client.MaxConnections)
		assert.True(t, cfg.Store.UseSSL)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		isolate(t)
		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"logging": map[string]any{
				"level": "debug",
			},
			"fs": map[string]any{
				"page_size": 50,
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, 50, cfg.FS.PageSize)
		assert.Equal(t, "structured", cfg.Logging.Profile)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		isolate(t)
		t.Setenv("NIMBUSFS_PORT", "3000")
		t.Setenv("NIMBUSFS_LOG_LEVEL", "warn")
		t.Setenv("NIMBUSFS_METRICS_ENABLED", "true")
		t.Setenv("NIMBUSFS_FS_PAGE_SIZE", "250")
		t.Setenv("NIMBUSFS_CLIENT_SOCKET_TIMEOUT", "5s")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 250, cfg.FS.PageSize)
		assert.Equal(t, 5*time.Second, cfg.Client.SocketTimeout)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		isolate(t)
		dir := t.TempDir()
		path := filepath.Join(dir, "nimbusfs.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
store:
  provider: minio
  bucket: from-file
server:
  port: 7000
logging:
  profile: CONSOLE
`), 0o600))
		ConfigFile = path

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7000, cfg.Server.Port)
		assert.Equal(t, "minio", cfg.Store.Provider)
		assert.Equal(t, "console", cfg.Logging.Profile)

		t.Setenv("NIMBUSFS_PORT", "4000")
		cfg, err = Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4000, cfg.Server.Port, "env beats file")

		cfg, err = Load(ctx, map[string]any{"server": map[string]any{"port": 5000}})
		require.NoError(t, err)
		assert.Equal(t, 5000, cfg.Server.Port, "override beats env")
		assert.Equal(t, "from-file", cfg.Store.Bucket)
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		isolate(t)
		ConfigFile = filepath.Join(t.TempDir(), "absent.yaml")
		_, err := Load(ctx)
		assert.Error(t, err)
	})

	t.Run("Cancelled", func(t *testing.T) {
		isolate(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Load(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoad_Validation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		overrides map[string]any
		field     string
	}{
		{"provider", map[string]any{"store": map[string]any{"provider": "gcs"}}, "store.provider"},
		{"page size", map[string]any{"fs": map[string]any{"page_size": 5000}}, "fs.page_size"},
		{"parallelism", map[string]any{"fs": map[string]any{"delete_parallelism": 0}}, "fs.delete_parallelism"},
		{"rate", map[string]any{"fs": map[string]any{"rate_limit": -1.0}}, "fs.rate_limit"},
		{"port", map[string]any{"server": map[string]any{"port": 70000}}, "server.port"},
		{"profile", map[string]any{"logging": map[string]any{"profile": "fancy"}}, "logging.profile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, err := Load(ctx, tt.overrides)
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestGetConfig(t *testing.T) {
	isolate(t)
	ctx := context.Background()

	cfg, err := Load(ctx)
	require.NoError(t, err)
	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)

	cfg2, err := Load(ctx, map[string]any{"server": map[string]any{"port": cfg.Server.Port + 1000}})
	require.NoError(t, err)
	assert.Equal(t, cfg2.Server.Port, GetConfig().Server.Port)
}

// resetAppIdentity resets package state for isolated tests.
func resetAppIdentity() {
	configMu.Lock()
	defer configMu.Unlock()
	appIdentity = nil
	appConfig = nil
}

func TestEnvSpecs(t *testing.T) {
	isolate(t)
	_, err := Load(context.Background())
	require.NoError(t, err)

	specs := getEnvSpecs()
	require.NotEmpty(t, specs)

	names := make(map[string]bool)
	for _, spec := range specs {
		names[spec.Name] = true
		assert.Contains(t, spec.Name, "NIMBUSFS_")
		assert.NotEmpty(t, spec.Path, "env var %s should have a path", spec.Name)
	}
	assert.True(t, names["NIMBUSFS_LOG_LEVEL"])
	assert.True(t, names["NIMBUSFS_PORT"])
	assert.True(t, names["NIMBUSFS_BUCKET"])
}

func TestNilIdentity(t *testing.T) {
	resetAppIdentity()
	defer func() {
		isolate(t)
		_, _ = Load(context.Background())
	}()

	assert.Empty(t, getUserConfigPaths())
	assert.Empty(t, getEnvSpecs())
	assert.Nil(t, GetConfig())
}

func TestFileSystemConfig(t *testing.T) {
	isolate(t)
	cfg, err := Load(context.Background(), map[string]any{
		"fs": map[string]any{"folder_suffix": ".dir", "rate_limit": 25.0, "delete_parallelism": 4},
	})
	require.NoError(t, err)

	logger := zap.NewNop()
	fc := cfg.FileSystemConfig(logger, nil)
	assert.Equal(t, ".dir", fc.FolderSuffix)
	assert.Equal(t, 25.0, fc.RateLimit)
	assert.Equal(t, 4, fc.DeleteParallelism)
	assert.Same(t, logger, fc.Logger)
}

func TestRender(t *testing.T) {
	isolate(t)
	cfg, err := Load(context.Background(), map[string]any{
		"store": map[string]any{"provider": "s3", "bucket": "b", "access_key_id": "AKIA", "secret_access_key": "hunter2"},
	})
	require.NoError(t, err)

	out, err := Render(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hunter2")
	assert.Equal(t, "hunter2", cfg.Store.SecretAccessKey, "render does not mutate")

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(out, &parsed))
	store := parsed["store"].(map[string]any)
	assert.Equal(t, "s3", store["provider"])
	assert.Equal(t, redacted, store["secret_access_key"])

	server := parsed["server"].(map[string]any)
	assert.Equal(t, "30s", server["read_timeout"])
}
