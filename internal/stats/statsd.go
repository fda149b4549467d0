package stats

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cactus/go-statsd-client/v5/statsd"
	"github.com/neox5/statbox/internal/config"
)

// statter is a statsd client that also supports float gauges.
type statter interface {
	statsd.Statter
	statsd.ExtendedStatSender
}

// Statsd forwards every call to a UDP statsd server.
type Statsd struct {
	client statter
}

// NewStatsd creates a statsd client for cfg.
func NewStatsd(cfg *config.StatsdConfig) (*Statsd, error) {
	client, err := statsd.NewClientWithConfig(&statsd.ClientConfig{
		Address: cfg.GetAddress(),
		Prefix:  cfg.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create statsd client: %w", err)
	}
	ext, ok := client.(statter)
	if !ok {
		return nil, fmt.Errorf("statsd client %T does not support float gauges", client)
	}

	slog.Info("configured statsd backend", "addr", cfg.GetAddress(), "prefix", cfg.Prefix)
	return newStatsd(ext), nil
}

func newStatsd(client statter) *Statsd {
	return &Statsd{client: client}
}

// Incr statsd implementation.
func (s *Statsd) Incr(stat string, count int64, rate float32) {
	logSendError(stat, s.client.Inc(stat, count, rate))
}

// Decr statsd implementation.
func (s *Statsd) Decr(stat string, count int64, rate float32) {
	logSendError(stat, s.client.Dec(stat, count, rate))
}

// Gauge statsd implementation.
func (s *Statsd) Gauge(stat string, value float64, rate float32, delta bool) {
	if delta {
		logSendError(stat, s.client.GaugeFloatDelta(stat, value, rate))
		return
	}
	logSendError(stat, s.client.GaugeFloat(stat, value, rate))
}

// GaugeInt statsd implementation.
func (s *Statsd) GaugeInt(stat string, value int64, rate float32, delta bool) {
	if delta {
		logSendError(stat, s.client.GaugeDelta(stat, value, rate))
		return
	}
	logSendError(stat, s.client.Gauge(stat, value, rate))
}

// Timing statsd implementation.
func (s *Statsd) Timing(stat string, d time.Duration) {
	logSendError(stat, s.client.TimingDuration(stat, d, 1))
}

// Close closes the underlying client.
func (s *Statsd) Close() error {
	return s.client.Close()
}

func logSendError(stat string, err error) {
	if err != nil {
		slog.Debug("failed to send statsd metric", "stat", stat, "error", err)
	}
}
