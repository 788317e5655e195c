package objfs

import (
	"time"

	"go.uber.org/zap"
)

// DefaultFolderSuffix is the reserved key suffix of directory markers.
// Tools that read the store directly must recognise it to infer empty
// directories.
const DefaultFolderSuffix = "_$folder$"

const (
	// DefaultPageSize is the maximum number of entries per listing request.
	DefaultPageSize = 1000

	// DefaultWriteBufferBytes is how much a write sink holds in memory
	// before spilling to a temp file.
	DefaultWriteBufferBytes int64 = 16 << 20 // 16 MiB

	// DefaultDeleteParallelism bounds concurrent deletes in a recursive
	// delete.
	DefaultDeleteParallelism = 1
)

// Config configures a FileSystem.
type Config struct {
	// FolderSuffix is appended to a directory's key to form its marker.
	// Default: DefaultFolderSuffix
	FolderSuffix string

	// PageSize caps the entries returned by one listing request.
	// Default: 1000
	PageSize int

	// WriteBufferBytes is the in-memory limit of a write sink.
	// Default: 16 MiB
	WriteBufferBytes int64

	// TempDir is where write sinks spill. Empty means os.TempDir().
	TempDir string

	// RateLimit paces the per-object steps of recursive operations and
	// listing page requests, in requests per second. Zero is unlimited.
	RateLimit float64

	// DeleteParallelism is the number of concurrent deletes issued for
	// keys at the same depth during a recursive delete.
	// Default: 1
	DeleteParallelism int

	// Logger receives operation logs. Default: zap.NewNop().
	Logger *zap.Logger

	// Observer, when set, is told about every facade operation.
	Observer Observer
}

// Observer receives the outcome of each facade operation. Implementations
// must be safe for concurrent use.
type Observer interface {
	ObserveOperation(op string, elapsed time.Duration, err error)
}

// DefaultConfig returns the default filesystem configuration.
func DefaultConfig() Config {
	return Config{
		FolderSuffix:      DefaultFolderSuffix,
		PageSize:          DefaultPageSize,
		WriteBufferBytes:  DefaultWriteBufferBytes,
		DeleteParallelism: DefaultDeleteParallelism,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.FolderSuffix == "" {
		c.FolderSuffix = def.FolderSuffix
	}
	if c.PageSize <= 0 {
		c.PageSize = def.PageSize
	}
	if c.WriteBufferBytes <= 0 {
		c.WriteBufferBytes = def.WriteBufferBytes
	}
	if c.DeleteParallelism <= 0 {
		c.DeleteParallelism = def.DeleteParallelism
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
