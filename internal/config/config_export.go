package config

import (
	"fmt"
	"log/slog"
	"time"
)

// Backend names a stats backend.
type Backend string

const (
	BackendNoop        Backend = "noop"
	BackendStatsd      Backend = "statsd"
	BackendStackdriver Backend = "stackdriver"
	BackendPrometheus  Backend = "prometheus"
	BackendOTEL        Backend = "otel"
)

const (
	// Statsd defaults
	DefaultStatsdHost   = "localhost"
	DefaultStatsdPort   = 8125
	DefaultStatsdPrefix = "statbox"

	// Stackdriver defaults
	DefaultStackdriverPathPrefix = "statbox"
	DefaultStackdriverInterval   = 1 * time.Minute

	// Prometheus defaults
	DefaultPrometheusPort = 9090
	DefaultPrometheusPath = "/metrics"

	// OTEL defaults
	DefaultOTELReadInterval = 10 * time.Second
	DefaultOTELPushInterval = 10 * time.Second
	DefaultOTELTransport    = "grpc"
	DefaultOTELHost         = "localhost"
	DefaultOTELPortGRPC     = 4317
	DefaultOTELPortHTTP     = 4318
	DefaultServiceName      = "statbox"
	DefaultServiceVersion   = "dev"
)

// StatsConfig selects the stats backend and holds its settings.
type StatsConfig struct {
	Backend     Backend
	ProcessType string
	Statsd      *StatsdConfig
	Stackdriver *StackdriverConfig
	Prometheus  *PrometheusExportConfig
	OTEL        *OTELExportConfig
}

// Validate applies defaults and validates the selected backend only.
func (s *StatsConfig) Validate() error {
	if s.ProcessType == "" {
		s.ProcessType = DefaultProcessType
	}

	switch s.Backend {
	case BackendStatsd:
		if s.Statsd == nil {
			s.Statsd = &StatsdConfig{}
		}
		return s.Statsd.Validate()
	case BackendStackdriver:
		if s.Stackdriver == nil {
			return fmt.Errorf("stackdriver backend requires a stackdriver section")
		}
		return s.Stackdriver.Validate()
	case BackendPrometheus:
		if s.Prometheus == nil {
			s.Prometheus = &PrometheusExportConfig{}
		}
		return s.Prometheus.Validate()
	case BackendOTEL:
		if s.OTEL == nil {
			s.OTEL = &OTELExportConfig{}
		}
		return s.OTEL.Validate()
	case BackendNoop, "":
		s.Backend = BackendNoop
		return nil
	default:
		slog.Warn("unknown stats backend, metrics disabled", "backend", s.Backend)
		s.Backend = BackendNoop
		return nil
	}
}

// StatsdConfig defines the statsd client.
type StatsdConfig struct {
	Host   string
	Port   int
	Prefix string
}

// Validate applies defaults and validates statsd configuration.
func (c *StatsdConfig) Validate() error {
	if c.Host == "" {
		c.Host = DefaultStatsdHost
	}
	if c.Port == 0 {
		c.Port = DefaultStatsdPort
	}
	if c.Prefix == "" {
		c.Prefix = DefaultStatsdPrefix
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid statsd port: %d", c.Port)
	}

	return nil
}

// GetAddress returns the statsd server address.
func (c *StatsdConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StackdriverConfig defines the Cloud Monitoring publisher.
type StackdriverConfig struct {
	Project         string
	PathPrefix      string
	Interval        time.Duration
	CredentialsFile string
}

// Validate applies defaults and validates stackdriver configuration.
func (c *StackdriverConfig) Validate() error {
	if c.Project == "" {
		return fmt.Errorf("stackdriver project cannot be empty")
	}
	if c.PathPrefix == "" {
		c.PathPrefix = DefaultStackdriverPathPrefix
	}
	if c.Interval == 0 {
		c.Interval = DefaultStackdriverInterval
	}
	if c.Interval < 0 {
		return fmt.Errorf("stackdriver interval must be positive")
	}

	return nil
}

// PrometheusExportConfig defines Prometheus pull endpoint settings.
type PrometheusExportConfig struct {
	Port int
	Path string
}

// Validate applies defaults and validates Prometheus configuration.
func (c *PrometheusExportConfig) Validate() error {
	// Apply defaults
	if c.Port == 0 {
		c.Port = DefaultPrometheusPort
	}
	if c.Path == "" {
		c.Path = DefaultPrometheusPath
	}

	// Validate port range
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid prometheus port: %d", c.Port)
	}

	return nil
}

// OTELExportConfig defines OTEL push settings.
type OTELExportConfig struct {
	Transport string
	Host      string
	Port      int
	Interval  IntervalConfig
	Resource  map[string]string
	Headers   map[string]string
}

// IntervalConfig defines read and push intervals for OTEL.
type IntervalConfig struct {
	Read time.Duration
	Push time.Duration
}

// Validate applies defaults and validates OTEL configuration.
func (c *OTELExportConfig) Validate() error {
	// Apply transport default
	if c.Transport == "" {
		c.Transport = DefaultOTELTransport
	}

	// Validate transport
	if c.Transport != "grpc" && c.Transport != "http" {
		return fmt.Errorf("invalid transport: %s (must be grpc or http)", c.Transport)
	}

	// Apply host default
	if c.Host == "" {
		c.Host = DefaultOTELHost
	}

	// Apply port default based on transport
	if c.Port == 0 {
		if c.Transport == "grpc" {
			c.Port = DefaultOTELPortGRPC
		} else {
			c.Port = DefaultOTELPortHTTP
		}
	}

	// Apply interval defaults
	if c.Interval.Read == 0 {
		c.Interval.Read = DefaultOTELReadInterval
	}
	if c.Interval.Push == 0 {
		c.Interval.Push = DefaultOTELPushInterval
	}

	// Apply resource defaults
	if c.Resource == nil {
		c.Resource = make(map[string]string)
	}
	if _, exists := c.Resource["service.name"]; !exists {
		c.Resource["service.name"] = DefaultServiceName
	}
	if _, exists := c.Resource["service.version"]; !exists {
		c.Resource["service.version"] = DefaultServiceVersion
	}

	return nil
}

// GetEndpoint returns the full endpoint address.
func (c *OTELExportConfig) GetEndpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
