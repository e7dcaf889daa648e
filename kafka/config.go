package kafka

import (
	"fmt"
	"time"
)

type Config struct {
	// General
	Brokers  []string `koanf:"brokers"`
	ClientID string   `koanf:"clientId"`
	RackID   string   `koanf:"rackId"`

	// ClusterID is the id under which this cluster is served. If empty the cluster id reported by the brokers
	// is used.
	ClusterID string `koanf:"clusterId"`

	// MetadataCacheTTL is how long the broker reported cluster id is remembered.
	MetadataCacheTTL time.Duration `koanf:"metadataCacheTtl"`

	TLS  TLSConfig  `koanf:"tls"`
	SASL SASLConfig `koanf:"sasl"`
}

func (c *Config) SetDefaults() {
	c.ClientID = "klag"
	c.MetadataCacheTTL = time.Minute

	c.TLS.SetDefaults()
	c.SASL.SetDefaults()
}

func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("no seed brokers specified, at least one must be configured")
	}

	if c.MetadataCacheTTL <= 0 {
		return fmt.Errorf("metadataCacheTtl must be positive, got '%v'", c.MetadataCacheTTL)
	}

	err := c.TLS.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate TLS config: %w", err)
	}

	err = c.SASL.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate SASL config: %w", err)
	}

	return nil
}
