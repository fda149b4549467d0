package config

import "time"

// RawConfig represents unparsed YAML structure
type RawConfig struct {
	Stats   RawStatsConfig   `yaml:"stats"`
	Ingest  RawIngestConfig  `yaml:"ingest"`
	Monitor RawMonitorConfig `yaml:"monitor"`
}

// RawIngestConfig defines the statsd UDP listener
type RawIngestConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Address       string `yaml:"address"`
	MaxPacketSize int    `yaml:"max_packet_size"`
}

// RawMonitorConfig defines process self-monitoring
type RawMonitorConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}
