// Package config loads nimbusfs configuration from defaults, a YAML file,
// NIMBUSFS_* environment variables and runtime overrides, in increasing
// order of precedence.
package config

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/pkg/objfs"
	"github.com/3leaps/nimbusfs/pkg/provider"
)

// Config is the effective configuration.
type Config struct {
	Store    StoreConfig           `mapstructure:"store" yaml:"store"`
	Client   provider.ClientConfig `mapstructure:"client" yaml:"client"`
	FS       FSConfig              `mapstructure:"fs" yaml:"fs"`
	Logging  LoggingConfig         `mapstructure:"logging" yaml:"logging"`
	Metrics  MetricsConfig         `mapstructure:"metrics" yaml:"metrics"`
	Server   ServerConfig          `mapstructure:"server" yaml:"server"`
	ReadOnly bool                  `mapstructure:"readonly" yaml:"readonly"`
}

// StoreConfig selects and configures the backing object store. Commands
// that take a URI override Provider and Bucket from it.
type StoreConfig struct {
	Provider        string `mapstructure:"provider" yaml:"provider"`
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	Region          string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Profile         string `mapstructure:"profile" yaml:"profile,omitempty"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
	ForcePathStyle  bool   `mapstructure:"force_path_style" yaml:"force_path_style"`
	UseSSL          bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
	BaseDir         string `mapstructure:"base_dir" yaml:"base_dir,omitempty"`
}

// FSConfig tunes the filesystem layer.
type FSConfig struct {
	FolderSuffix      string  `mapstructure:"folder_suffix" yaml:"folder_suffix"`
	PageSize          int     `mapstructure:"page_size" yaml:"page_size"`
	WriteBufferBytes  int64   `mapstructure:"write_buffer_bytes" yaml:"write_buffer_bytes"`
	TempDir           string  `mapstructure:"temp_dir" yaml:"temp_dir,omitempty"`
	RateLimit         float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	DeleteParallelism int     `mapstructure:"delete_parallelism" yaml:"delete_parallelism"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Profile string `mapstructure:"profile" yaml:"profile"`
	File    string `mapstructure:"file" yaml:"file,omitempty"`
}

// MetricsConfig toggles Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Supported store providers.
var supportedProviders = map[string]bool{
	string(provider.ProviderS3):     true,
	string(provider.ProviderMinIO):  true,
	string(provider.ProviderFile):   true,
	string(provider.ProviderMemory): true,
}

// Validate checks values that decoding cannot.
func (c *Config) Validate() error {
	if c.Store.Provider != "" && !supportedProviders[c.Store.Provider] {
		return &ValidationError{Field: "store.provider", Message: fmt.Sprintf("unsupported provider %q", c.Store.Provider)}
	}
	if c.FS.PageSize < 1 || c.FS.PageSize > 1000 {
		return &ValidationError{Field: "fs.page_size", Message: "must be between 1 and 1000"}
	}
	if c.FS.WriteBufferBytes < 0 {
		return &ValidationError{Field: "fs.write_buffer_bytes", Message: "must be >= 0"}
	}
	if c.FS.RateLimit < 0 {
		return &ValidationError{Field: "fs.rate_limit", Message: "must be >= 0"}
	}
	if c.FS.DeleteParallelism < 1 {
		return &ValidationError{Field: "fs.delete_parallelism", Message: "must be >= 1"}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: "must be between 0 and 65535"}
	}
	switch c.Logging.Profile {
	case "structured", "console":
	default:
		return &ValidationError{Field: "logging.profile", Message: "must be structured or console"}
	}
	return nil
}

// FileSystemConfig converts the fs section into an objfs.Config.
func (c *Config) FileSystemConfig(logger *zap.Logger, observer objfs.Observer) objfs.Config {
	cfg := objfs.DefaultConfig()
	cfg.FolderSuffix = c.FS.FolderSuffix
	cfg.PageSize = c.FS.PageSize
	cfg.WriteBufferBytes = c.FS.WriteBufferBytes
	cfg.TempDir = c.FS.TempDir
	cfg.RateLimit = c.FS.RateLimit
	cfg.DeleteParallelism = c.FS.DeleteParallelism
	cfg.Logger = logger
	cfg.Observer = observer
	return cfg
}

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "config: " + e.Field + ": " + e.Message
}
