package provider

import (
	"net"
	"net/http"
	"time"
)

// ClientConfig carries the transport settings handed to network providers.
//
// The filesystem layer treats it as opaque; providers translate it onto
// their HTTP client. Zero values keep the SDK defaults.
type ClientConfig struct {
	// ConnectTimeout bounds establishing a TCP connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`

	// SocketTimeout bounds a single request/response exchange.
	SocketTimeout time.Duration `mapstructure:"socket_timeout" yaml:"socket_timeout"`

	// ConnectionTTL is how long an idle pooled connection is kept.
	ConnectionTTL time.Duration `mapstructure:"connection_ttl" yaml:"connection_ttl"`

	// MaxConnections caps concurrent connections per host.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections"`
}

// DefaultClientConfig mirrors the connector defaults used by most object
// store SDKs.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ConnectTimeout: 50 * time.Second,
		SocketTimeout:  50 * time.Second,
		ConnectionTTL:  0,
		MaxConnections: 1024,
	}
}

// ApplyTransport copies the connection settings onto an http.Transport.
func (c ClientConfig) ApplyTransport(tr *http.Transport) {
	if c.ConnectTimeout > 0 {
		tr.DialContext = (&net.Dialer{
			Timeout:   c.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
		tr.TLSHandshakeTimeout = c.ConnectTimeout
	}
	if c.SocketTimeout > 0 {
		tr.ResponseHeaderTimeout = c.SocketTimeout
	}
	if c.ConnectionTTL > 0 {
		tr.IdleConnTimeout = c.ConnectionTTL
	}
	if c.MaxConnections > 0 {
		tr.MaxConnsPerHost = c.MaxConnections
		tr.MaxIdleConnsPerHost = c.MaxConnections
		if tr.MaxIdleConns < c.MaxConnections {
			tr.MaxIdleConns = c.MaxConnections
		}
	}
}
