// Package stats is the process-wide stats facade. Instrumentation code calls
// Incr, Decr, Gauge and Timing on a Stats handle that is selected once at
// startup from configuration. Calls never block on the network and never
// return errors; a failing backend only loses metrics.
package stats

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/neox5/statbox/internal/config"
	"github.com/neox5/statbox/internal/exporter"
)

// Stats is implemented by every backend.
type Stats interface {
	// Incr adds count to a counter. rate is a sampling hint.
	Incr(stat string, count int64, rate float32)

	// Decr subtracts count from a counter.
	Decr(stat string, count int64, rate float32)

	// Gauge sets a gauge, or adjusts it by value when delta is true and the
	// backend supports deltas.
	Gauge(stat string, value float64, rate float32, delta bool)

	// GaugeInt is Gauge for integral values. Backends that type their
	// metrics register such gauges as integers.
	GaugeInt(stat string, value int64, rate float32, delta bool)

	// Timing records a duration where the backend supports it.
	Timing(stat string, d time.Duration)

	// Close releases backend resources.
	Close() error
}

// Runner is implemented by backends that own a background loop or server.
// Start blocks until ctx is cancelled.
type Runner interface {
	Start(ctx context.Context) error
}

// New creates the backend selected by cfg. cfg must have been validated.
func New(ctx context.Context, cfg *config.StatsConfig) (Stats, error) {
	switch cfg.Backend {
	case config.BackendStatsd:
		s, err := NewStatsd(cfg.Statsd)
		if err != nil {
			return nil, fmt.Errorf("failed to create statsd backend: %w", err)
		}
		return s, nil

	case config.BackendStackdriver:
		s, err := NewStackdriver(ctx, cfg.Stackdriver, cfg.ProcessType)
		if err != nil {
			return nil, fmt.Errorf("failed to create stackdriver backend: %w", err)
		}
		return s, nil

	case config.BackendPrometheus:
		return exporter.NewPrometheusExporter(cfg.Prometheus, cfg.ProcessType), nil

	case config.BackendOTEL:
		e, err := exporter.NewOTELExporter(ctx, cfg.OTEL, cfg.ProcessType)
		if err != nil {
			return nil, fmt.Errorf("failed to create otel backend: %w", err)
		}
		return e, nil

	default:
		return Noop{}, nil
	}
}

type handle struct {
	s Stats
}

var defaultStats atomic.Pointer[handle]

func init() {
	defaultStats.Store(&handle{s: Noop{}})
}

// Default returns the process-wide Stats handle. It is a no-op until
// SetDefault is called.
func Default() Stats {
	return defaultStats.Load().s
}

// SetDefault makes s the process-wide Stats handle.
func SetDefault(s Stats) {
	defaultStats.Store(&handle{s: s})
}

// Incr calls Incr on the default handle with a rate of 1.
func Incr(stat string, count int64) {
	Default().Incr(stat, count, 1)
}

// Decr calls Decr on the default handle with a rate of 1.
func Decr(stat string, count int64) {
	Default().Decr(stat, count, 1)
}

// Gauge calls Gauge on the default handle.
func Gauge(stat string, value float64) {
	Default().Gauge(stat, value, 1, false)
}

// GaugeInt calls GaugeInt on the default handle.
func GaugeInt(stat string, value int64) {
	Default().GaugeInt(stat, value, 1, false)
}

// Timing calls Timing on the default handle.
func Timing(stat string, d time.Duration) {
	Default().Timing(stat, d)
}
