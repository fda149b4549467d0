package stats

import (
	"context"
	"time"

	"github.com/neox5/statbox/internal/config"
	"github.com/neox5/statbox/internal/stackdriver"
)

// Stackdriver buffers stats in memory and publishes them to Cloud Monitoring
// from a background publisher.
type Stackdriver struct {
	buf       *stackdriver.Buffer
	publisher *stackdriver.Publisher
	client    stackdriver.MetricClient
}

// NewStackdriver connects to Cloud Monitoring for cfg.Project.
func NewStackdriver(ctx context.Context, cfg *config.StackdriverConfig, processType string) (*Stackdriver, error) {
	client, err := stackdriver.NewMetricClient(ctx, cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	return newStackdriver(client, stackdriver.PublisherOpts{
		ProjectID:   cfg.Project,
		PathPrefix:  cfg.PathPrefix,
		ProcessType: processType,
		Interval:    cfg.Interval,
	}), nil
}

func newStackdriver(client stackdriver.MetricClient, opts stackdriver.PublisherOpts) *Stackdriver {
	buf := stackdriver.NewBuffer()
	return &Stackdriver{
		buf:       buf,
		publisher: stackdriver.NewPublisher(client, buf, opts),
		client:    client,
	}
}

// Incr buffers an increment. rate is ignored.
func (s *Stackdriver) Incr(stat string, count int64, rate float32) {
	s.buf.Incr(stat, count)
}

// Decr buffers a decrement. rate is ignored.
func (s *Stackdriver) Decr(stat string, count int64, rate float32) {
	s.buf.Decr(stat, count)
}

// Gauge buffers a gauge value. rate and delta are ignored.
func (s *Stackdriver) Gauge(stat string, value float64, rate float32, delta bool) {
	s.buf.SetGauge(stat, value)
}

// GaugeInt buffers an integral gauge value, registered as INT64 on first
// sight. rate and delta are ignored.
func (s *Stackdriver) GaugeInt(stat string, value int64, rate float32, delta bool) {
	s.buf.SetGauge(stat, value)
}

// Timing is not supported by this backend.
func (s *Stackdriver) Timing(stat string, d time.Duration) {
	s.buf.Timing(stat, d)
}

// Buffer exposes the in-memory state.
func (s *Stackdriver) Buffer() *stackdriver.Buffer {
	return s.buf
}

// Start runs the publisher until ctx is cancelled. Publisher death is
// logged and reported as a clean exit so the host keeps running.
func (s *Stackdriver) Start(ctx context.Context) error {
	s.publisher.Start(ctx)
	s.publisher.Wait()
	return nil
}

// Close closes the Cloud Monitoring client.
func (s *Stackdriver) Close() error {
	return s.client.Close()
}
