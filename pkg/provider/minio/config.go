// Package minio implements the provider interfaces on top of minio-go for
// MinIO and other S3-compatible stores.
package minio

import (
	"strings"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// DefaultMaxKeys is the default page size for listings.
const DefaultMaxKeys = 1000

// Config holds the settings needed to reach a MinIO-compatible endpoint.
type Config struct {
	// Endpoint is host:port of the server, without scheme.
	Endpoint string

	// Bucket is the bucket the filesystem is rooted at.
	Bucket string

	// AccessKey is the access key ID.
	AccessKey string

	// SecretKey is the secret access key.
	SecretKey string

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool

	// Region is used by region-aware servers. Leave empty for MinIO.
	Region string

	// MaxKeys is the default listing page size.
	MaxKeys int

	// Client holds connection settings applied to the HTTP transport.
	Client provider.ClientConfig
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return &ConfigError{Field: "Endpoint", Message: "endpoint is required"}
	}
	if strings.Contains(c.Endpoint, "://") {
		return &ConfigError{Field: "Endpoint", Message: "endpoint must be host:port without a scheme"}
	}
	if c.Bucket == "" {
		return &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}
	if (c.AccessKey != "") != (c.SecretKey != "") {
		return &ConfigError{Field: "AccessKey/SecretKey", Message: "both access key and secret key must be provided together"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "minio config: " + e.Field + ": " + e.Message
}
