package exporter

import (
	"context"
	"log/slog"
	"time"

	"github.com/neox5/statbox/internal/config"
	"github.com/neox5/statbox/internal/server"
	"github.com/neox5/statbox/internal/stackdriver"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusExporter buffers stats locally and serves them for scraping.
type PrometheusExporter struct {
	buf          *stackdriver.Buffer
	promRegistry *prometheus.Registry
	server       *server.Server
}

// NewPrometheusExporter creates a Prometheus pull exporter.
func NewPrometheusExporter(cfg *config.PrometheusExportConfig, processType string) *PrometheusExporter {
	buf := stackdriver.NewBuffer()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(newCollector(buf, processType))

	slog.Info("registered prometheus collector", "process_type", processType)

	return &PrometheusExporter{
		buf:          buf,
		promRegistry: promRegistry,
		server:       server.New(cfg.Port, cfg.Path, promRegistry),
	}
}

// Registry returns the underlying Prometheus registry.
func (e *PrometheusExporter) Registry() *prometheus.Registry {
	return e.promRegistry
}

// Incr adds count to a counter. rate is ignored.
func (e *PrometheusExporter) Incr(stat string, count int64, rate float32) {
	e.buf.Incr(stat, count)
}

// Decr subtracts count from a counter. rate is ignored.
func (e *PrometheusExporter) Decr(stat string, count int64, rate float32) {
	e.buf.Decr(stat, count)
}

// Gauge sets a gauge. rate and delta are ignored.
func (e *PrometheusExporter) Gauge(stat string, value float64, rate float32, delta bool) {
	e.buf.SetGauge(stat, value)
}

// GaugeInt sets an integral gauge. rate and delta are ignored.
func (e *PrometheusExporter) GaugeInt(stat string, value int64, rate float32, delta bool) {
	e.buf.SetGauge(stat, value)
}

// Timing is not supported and dropped.
func (e *PrometheusExporter) Timing(stat string, d time.Duration) {}

// Start serves scrapes until ctx is cancelled.
func (e *PrometheusExporter) Start(ctx context.Context) error {
	return e.server.Start(ctx)
}

// Close is a no-op; the server stops with the context passed to Start.
func (e *PrometheusExporter) Close() error {
	return nil
}
