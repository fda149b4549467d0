package config

import (
	"fmt"
	"strings"
)

// Resolve converts the raw YAML structure into a validated Config with
// defaults applied.
func Resolve(raw *RawConfig) (*Config, error) {
	cfg := &Config{
		Stats:   resolveStats(raw.Stats),
		Ingest:  IngestConfig(raw.Ingest),
		Monitor: MonitorConfig(raw.Monitor),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// resolveStats picks the backend. statsd_on wins over backend for
// compatibility with older configurations.
func resolveStats(raw RawStatsConfig) StatsConfig {
	backend := Backend(strings.ToLower(strings.TrimSpace(raw.Backend)))
	if raw.StatsdOn {
		backend = BackendStatsd
	}
	if backend == "" {
		backend = BackendNoop
	}

	s := StatsConfig{
		Backend:     backend,
		ProcessType: raw.ProcessType,
	}

	if raw.Statsd != nil {
		s.Statsd = &StatsdConfig{
			Host:   raw.Statsd.Host,
			Port:   raw.Statsd.Port,
			Prefix: raw.Statsd.Prefix,
		}
	}
	if raw.Stackdriver != nil {
		s.Stackdriver = &StackdriverConfig{
			Project:         raw.Stackdriver.Project,
			PathPrefix:      raw.Stackdriver.PathPrefix,
			Interval:        raw.Stackdriver.Interval,
			CredentialsFile: raw.Stackdriver.CredentialsFile,
		}
	}
	if raw.Prometheus != nil {
		s.Prometheus = &PrometheusExportConfig{
			Port: raw.Prometheus.Port,
			Path: raw.Prometheus.Path,
		}
	}
	if raw.OTEL != nil {
		s.OTEL = &OTELExportConfig{
			Transport: raw.OTEL.Transport,
			Host:      raw.OTEL.Host,
			Port:      raw.OTEL.Port,
			Interval: IntervalConfig{
				Read: raw.OTEL.Interval.Read,
				Push: raw.OTEL.Interval.Push,
			},
			Resource: raw.OTEL.Resource,
			Headers:  raw.OTEL.Headers,
		}
	}

	return s
}
