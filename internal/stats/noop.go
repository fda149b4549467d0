package stats

import "time"

// Noop discards everything.
type Noop struct{}

// Incr noops.
func (Noop) Incr(stat string, count int64, rate float32) {}

// Decr noops.
func (Noop) Decr(stat string, count int64, rate float32) {}

// Gauge noops.
func (Noop) Gauge(stat string, value float64, rate float32, delta bool) {}

// GaugeInt noops.
func (Noop) GaugeInt(stat string, value int64, rate float32, delta bool) {}

// Timing noops.
func (Noop) Timing(stat string, d time.Duration) {}

// Close noops.
func (Noop) Close() error { return nil }
