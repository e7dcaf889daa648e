package api

import (
	"fmt"
	"time"
)

type Config struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// BaseURL is prepended to all self links, e.g. https://lag.example.com. Links are relative if empty.
	BaseURL string `koanf:"baseUrl"`

	// CRNAuthority is the authority of all resource names, e.g. "confluent.cloud" gives crn://confluent.cloud/...
	CRNAuthority string `koanf:"crnAuthority"`

	// RequestTimeout bounds the time a single request spends fetching offsets from Kafka.
	RequestTimeout time.Duration `koanf:"requestTimeout"`

	// ShutdownTimeout is the grace period for in flight requests when the server is stopped.
	ShutdownTimeout time.Duration `koanf:"shutdownTimeout"`

	HeaderCopy HeaderCopyConfig `koanf:"headerCopy"`
	CORS       CORSConfig       `koanf:"cors"`
}

// HeaderCopyConfig configures a request header that is echoed on every response. This allows gateways to
// correlate responses without parsing bodies.
type HeaderCopyConfig struct {
	RequestHeaderName string `koanf:"requestHeaderName"`
}

type CORSConfig struct {
	Enabled        bool     `koanf:"enabled"`
	AllowedOrigins []string `koanf:"allowedOrigins"`
}

func (c *Config) SetDefaults() {
	c.Port = 8090
	c.RequestTimeout = 10 * time.Second
	c.ShutdownTimeout = 15 * time.Second
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("given port %d is not a valid port", c.Port)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, given: '%v'", c.RequestTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, given: '%v'", c.ShutdownTimeout)
	}
	if c.CORS.Enabled && len(c.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("cors is enabled but no allowed origins are configured")
	}

	return nil
}
