package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/neox5/statbox/internal/config"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "statbox"

// OTELExporter records stats on synchronous OTEL instruments that a
// periodic reader pushes to an OTLP collector.
type OTELExporter struct {
	config        *config.OTELExportConfig
	meterProvider *sdkmetric.MeterProvider
	meter         otelmetric.Meter
	attrs         otelmetric.MeasurementOption

	mu         sync.Mutex
	counters   map[string]otelmetric.Int64UpDownCounter
	gauges     map[string]otelmetric.Float64Gauge
	histograms map[string]otelmetric.Float64Histogram
}

// NewOTELExporter creates a new OTEL exporter.
func NewOTELExporter(ctx context.Context, cfg *config.OTELExportConfig, processType string) (*OTELExporter, error) {
	res, err := createOTELResource(ctx, cfg.Resource)
	if err != nil {
		return nil, err
	}

	meterProvider, err := createMeterProvider(ctx, cfg, res)
	if err != nil {
		return nil, err
	}

	e := newOTELExporter(meterProvider, processType)
	e.config = cfg
	return e, nil
}

// newOTELExporter wraps an existing meter provider.
func newOTELExporter(meterProvider *sdkmetric.MeterProvider, processType string) *OTELExporter {
	return &OTELExporter{
		meterProvider: meterProvider,
		meter:         meterProvider.Meter(meterName),
		attrs:         otelmetric.WithAttributes(attribute.String("process_type", processType)),
		counters:      make(map[string]otelmetric.Int64UpDownCounter),
		gauges:        make(map[string]otelmetric.Float64Gauge),
		histograms:    make(map[string]otelmetric.Float64Histogram),
	}
}

// Incr adds count to a counter. rate is ignored.
func (e *OTELExporter) Incr(stat string, count int64, rate float32) {
	if c, ok := e.counter(stat); ok {
		c.Add(context.Background(), count, e.attrs)
	}
}

// Decr subtracts count from a counter. rate is ignored.
func (e *OTELExporter) Decr(stat string, count int64, rate float32) {
	if c, ok := e.counter(stat); ok {
		c.Add(context.Background(), -count, e.attrs)
	}
}

// Gauge records the current value of a gauge. rate and delta are ignored.
func (e *OTELExporter) Gauge(stat string, value float64, rate float32, delta bool) {
	if g, ok := e.gauge(stat); ok {
		g.Record(context.Background(), value, e.attrs)
	}
}

// GaugeInt records an integral gauge value on the same float gauge.
func (e *OTELExporter) GaugeInt(stat string, value int64, rate float32, delta bool) {
	e.Gauge(stat, float64(value), rate, delta)
}

// Timing records d in milliseconds on a histogram.
func (e *OTELExporter) Timing(stat string, d time.Duration) {
	if h, ok := e.histogram(stat); ok {
		h.Record(context.Background(), float64(d)/float64(time.Millisecond), e.attrs)
	}
}

func (e *OTELExporter) counter(stat string) (otelmetric.Int64UpDownCounter, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.counters[stat]; ok {
		return c, true
	}

	c, err := e.meter.Int64UpDownCounter(stat)
	if err != nil {
		slog.Debug("failed to create otel counter", "name", stat, "error", err)
		return nil, false
	}
	e.counters[stat] = c
	return c, true
}

func (e *OTELExporter) gauge(stat string) (otelmetric.Float64Gauge, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if g, ok := e.gauges[stat]; ok {
		return g, true
	}

	g, err := e.meter.Float64Gauge(stat)
	if err != nil {
		slog.Debug("failed to create otel gauge", "name", stat, "error", err)
		return nil, false
	}
	e.gauges[stat] = g
	return g, true
}

func (e *OTELExporter) histogram(stat string) (otelmetric.Float64Histogram, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if h, ok := e.histograms[stat]; ok {
		return h, true
	}

	h, err := e.meter.Float64Histogram(stat, otelmetric.WithUnit("ms"))
	if err != nil {
		slog.Debug("failed to create otel histogram", "name", stat, "error", err)
		return nil, false
	}
	e.histograms[stat] = h
	return h, true
}

// Start blocks until ctx is cancelled; the periodic reader pushes on its own.
func (e *OTELExporter) Start(ctx context.Context) error {
	if e.config != nil {
		slog.Info("starting otel exporter",
			"endpoint", e.config.GetEndpoint(),
			"transport", e.config.Transport,
			"push_interval", e.config.Interval.Push,
		)
	}

	<-ctx.Done()
	return nil
}

// Close flushes pending measurements and shuts down the meter provider.
func (e *OTELExporter) Close() error {
	slog.Info("shutting down otel exporter")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down meter provider: %w", err)
	}
	return nil
}
