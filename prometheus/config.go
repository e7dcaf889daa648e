package prometheus

import (
	"fmt"
	"time"
)

const (
	ConsumerGroupGranularityGroup     string = "group"
	ConsumerGroupGranularityPartition string = "partition"
)

type Config struct {
	// Enabled specifies whether consumer group lags shall be exported on /metrics.
	Enabled bool `koanf:"enabled"`

	Namespace string `koanf:"namespace"`

	ConsumerGroups ConsumerGroupConfig `koanf:"consumerGroups"`

	// ScrapeTimeout bounds the time a single scrape spends fetching offsets from Kafka.
	ScrapeTimeout time.Duration `koanf:"scrapeTimeout"`

	// Concurrency is the number of consumer groups whose offsets are fetched in parallel.
	Concurrency int `koanf:"concurrency"`
}

type ConsumerGroupConfig struct {
	// Granularity can be per group or per partition. With "group" only the summarized group lag is exported,
	// which keeps the number of series low on clusters with many partitions.
	Granularity string `koanf:"granularity"`

	// AllowedGroups are regex strings of group ids that shall be exported
	AllowedGroupIDs []string `koanf:"allowedGroups"`

	// IgnoredGroups are regex strings of group ids that shall be ignored/skipped when exporting metrics. Ignored groups
	// take precedence over allowed groups.
	IgnoredGroupIDs []string `koanf:"ignoredGroups"`
}

func (c *Config) SetDefaults() {
	c.Enabled = true
	c.Namespace = "klag"
	c.ScrapeTimeout = 5 * time.Second
	c.Concurrency = 10
	c.ConsumerGroups.SetDefaults()
}

func (c *Config) Validate() error {
	if c.Namespace == "" {
		return fmt.Errorf("metrics namespace must not be empty")
	}
	if c.ScrapeTimeout <= 0 {
		return fmt.Errorf("scrape timeout must be positive, given: '%v'", c.ScrapeTimeout)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, given: %d", c.Concurrency)
	}

	err := c.ConsumerGroups.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate consumer group config: %w", err)
	}

	return nil
}

func (c *ConsumerGroupConfig) SetDefaults() {
	c.Granularity = ConsumerGroupGranularityPartition
	c.AllowedGroupIDs = []string{"/.*/"}
}

func (c *ConsumerGroupConfig) Validate() error {
	switch c.Granularity {
	case ConsumerGroupGranularityGroup, ConsumerGroupGranularityPartition:
	default:
		return fmt.Errorf("invalid consumer group granularity '%v' specified. Valid modes are '%v' or '%v'",
			c.Granularity,
			ConsumerGroupGranularityGroup,
			ConsumerGroupGranularityPartition)
	}

	// Check if all group strings are valid regex or literals
	for _, groupID := range c.AllowedGroupIDs {
		_, err := compileRegex(groupID)
		if err != nil {
			return fmt.Errorf("allowed group string '%v' is not valid regex", groupID)
		}
	}

	for _, groupID := range c.IgnoredGroupIDs {
		_, err := compileRegex(groupID)
		if err != nil {
			return fmt.Errorf("ignored group string '%v' is not valid regex", groupID)
		}
	}

	return nil
}
