package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/3leaps/nimbusfs/pkg/objfs"
	"github.com/3leaps/nimbusfs/pkg/provider"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "NIMBUSFS"

// identity names the application for config paths and env vars.
type identity struct {
	BinaryName string
	EnvPrefix  string
	ConfigName string
}

var (
	configMu    sync.RWMutex
	appIdentity *identity
	appConfig   *Config

	// ConfigFile, when set, is read instead of searching the default
	// locations. The --config flag sets it.
	ConfigFile string
)

// EnvSpec maps an environment variable onto a config path.
type EnvSpec struct {
	Name string
	Path string
}

// Load builds the effective configuration and makes it available through
// GetConfig. Each override map is nested like the YAML file and wins over
// every other source.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	configMu.Lock()
	if appIdentity == nil {
		appIdentity = &identity{BinaryName: "nimbusfs", EnvPrefix: EnvPrefix, ConfigName: "nimbusfs"}
	}
	configMu.Unlock()

	v := viper.New()
	SetDefaults(v)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, spec := range getEnvSpecs() {
		if err := v.BindEnv(spec.Path, spec.Name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}

	for _, o := range overrides {
		for key, val := range flatten("", o) {
			v.Set(key, val)
		}
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Logging.Profile = strings.ToLower(cfg.Logging.Profile)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()
	return &cfg, nil
}

// GetConfig returns the configuration from the last successful Load, or
// nil.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// SetDefaults registers every key with its default so that environment
// variables are seen for keys absent from the file.
func SetDefaults(v *viper.Viper) {
	cc := provider.DefaultClientConfig()

	v.SetDefault("store.provider", "")
	v.SetDefault("store.bucket", "")
	v.SetDefault("store.region", "")
	v.SetDefault("store.endpoint", "")
	v.SetDefault("store.profile", "")
	v.SetDefault("store.access_key_id", "")
	v.SetDefault("store.secret_access_key", "")
	v.SetDefault("store.force_path_style", false)
	v.SetDefault("store.use_ssl", true)
	v.SetDefault("store.base_dir", "")

	v.SetDefault("client.connect_timeout", cc.ConnectTimeout.String())
	v.SetDefault("client.socket_timeout", cc.SocketTimeout.String())
	v.SetDefault("client.connection_ttl", cc.ConnectionTTL.String())
	v.SetDefault("client.max_connections", cc.MaxConnections)

	v.SetDefault("fs.folder_suffix", objfs.DefaultFolderSuffix)
	v.SetDefault("fs.page_size", objfs.DefaultPageSize)
	v.SetDefault("fs.write_buffer_bytes", objfs.DefaultWriteBufferBytes)
	v.SetDefault("fs.temp_dir", "")
	v.SetDefault("fs.rate_limit", 0)
	v.SetDefault("fs.delete_parallelism", objfs.DefaultDeleteParallelism)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")
	v.SetDefault("logging.file", "")

	v.SetDefault("metrics.enabled", false)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("readonly", false)
}

// readConfigFile reads ConfigFile, $NIMBUSFS_CONFIG, or the first file
// found in the user config paths. A missing default file is not an error.
func readConfigFile(v *viper.Viper) error {
	path := ConfigFile
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	for _, p := range getUserConfigPaths() {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				continue
			}
			return fmt.Errorf("read config %s: %w", p, err)
		}
		return nil
	}
	return nil
}

// getUserConfigPaths lists candidate config files, most specific first.
func getUserConfigPaths() []string {
	configMu.RLock()
	id := appIdentity
	configMu.RUnlock()
	if id == nil {
		return []string{}
	}

	paths := []string{id.ConfigName + ".yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, id.ConfigName, "config.yaml"))
	}
	return paths
}

// getEnvSpecs lists the short environment variable names. Every config
// key is also reachable as NIMBUSFS_<SECTION>_<KEY>.
func getEnvSpecs() []EnvSpec {
	configMu.RLock()
	id := appIdentity
	configMu.RUnlock()
	if id == nil {
		return []EnvSpec{}
	}

	p := id.EnvPrefix + "_"
	return []EnvSpec{
		{Name: p + "HOST", Path: "server.host"},
		{Name: p + "PORT", Path: "server.port"},
		{Name: p + "READ_TIMEOUT", Path: "server.read_timeout"},
		{Name: p + "WRITE_TIMEOUT", Path: "server.write_timeout"},
		{Name: p + "SHUTDOWN_TIMEOUT", Path: "server.shutdown_timeout"},
		{Name: p + "LOG_LEVEL", Path: "logging.level"},
		{Name: p + "LOG_PROFILE", Path: "logging.profile"},
		{Name: p + "LOG_FILE", Path: "logging.file"},
		{Name: p + "METRICS_ENABLED", Path: "metrics.enabled"},
		{Name: p + "PROVIDER", Path: "store.provider"},
		{Name: p + "BUCKET", Path: "store.bucket"},
		{Name: p + "REGION", Path: "store.region"},
		{Name: p + "ENDPOINT", Path: "store.endpoint"},
		{Name: p + "ACCESS_KEY_ID", Path: "store.access_key_id"},
		{Name: p + "SECRET_ACCESS_KEY", Path: "store.secret_access_key"},
		{Name: p + "READONLY", Path: "readonly"},
	}
}

// flatten turns a nested map into dotted viper keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = val
	}
	return out
}
