package monitor

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type gaugeSink struct {
	mu     sync.Mutex
	gauges map[string]float64
}

func (s *gaugeSink) Incr(string, int64, float32) {}
func (s *gaugeSink) Decr(string, int64, float32) {}
func (s *gaugeSink) Timing(string, time.Duration) {}
func (s *gaugeSink) Close() error                 { return nil }

func (s *gaugeSink) GaugeInt(stat string, value int64, rate float32, delta bool) {
	s.Gauge(stat, float64(value), rate, delta)
}

func (s *gaugeSink) Gauge(stat string, value float64, rate float32, delta bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gauges[stat] = value
}

func TestMonitorEmitsGauges(t *testing.T) {
	sink := &gaugeSink{gauges: map[string]float64{}}
	m, err := New(time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)), sink)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	m.Run(ctx)
	cancel()
	m.Wait()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for _, stat := range []string{StatCPUPercent, StatGoroutines, StatHeapAlloc, StatHeapSys, StatNumGC} {
		require.Contains(t, sink.gauges, stat)
	}
	require.Positive(t, sink.gauges[StatGoroutines])
	require.Positive(t, sink.gauges[StatHeapSys])
}
