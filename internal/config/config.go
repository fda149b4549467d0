package config

import (
	"fmt"
	"time"
)

const (
	// Ingest defaults
	DefaultIngestAddress       = ":8125"
	DefaultIngestMaxPacketSize = 8192

	// Monitor defaults
	DefaultMonitorInterval = 5 * time.Second

	// DefaultProcessType labels metrics when no process type is configured.
	DefaultProcessType = "statbox"
)

// Config holds the complete application configuration.
type Config struct {
	Stats   StatsConfig
	Ingest  IngestConfig
	Monitor MonitorConfig
}

// Validate applies defaults and validates all sections.
func (c *Config) Validate() error {
	if err := c.Stats.Validate(); err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if err := c.Monitor.Validate(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}

// IngestConfig defines the statsd UDP listener.
type IngestConfig struct {
	Enabled       bool
	Address       string
	MaxPacketSize int
}

// Validate applies defaults and validates ingest configuration.
func (c *IngestConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Address == "" {
		c.Address = DefaultIngestAddress
	}
	if c.MaxPacketSize == 0 {
		c.MaxPacketSize = DefaultIngestMaxPacketSize
	}

	if c.MaxPacketSize < 0 || c.MaxPacketSize > 65535 {
		return fmt.Errorf("invalid max packet size: %d", c.MaxPacketSize)
	}

	return nil
}

// MonitorConfig defines process self-monitoring.
type MonitorConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Validate applies defaults and validates monitor configuration.
func (c *MonitorConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Interval == 0 {
		c.Interval = DefaultMonitorInterval
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must be positive")
	}

	return nil
}
