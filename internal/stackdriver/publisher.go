package stackdriver

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"github.com/googleapis/gax-go/v2"
	labelpb "google.golang.org/genproto/googleapis/api/label"
	metricpb "google.golang.org/genproto/googleapis/api/metric"
	monitoredrespb "google.golang.org/genproto/googleapis/api/monitoredres"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	// DefaultInterval is the time between publish cycles.
	DefaultInterval = time.Minute

	// DefaultPathPrefix is used when no path prefix is configured.
	DefaultPathPrefix = "statbox"

	metricTypeDomain    = "custom.googleapis.com"
	processTypeLabel    = "process_type"
	globalResourceType  = "global"
	maxSeriesPerRequest = 200
)

// MetricClient is the subset of the Cloud Monitoring metric service used by
// the publisher. *monitoring.MetricClient satisfies it.
type MetricClient interface {
	CreateMetricDescriptor(ctx context.Context, req *monitoringpb.CreateMetricDescriptorRequest, opts ...gax.CallOption) (*metricpb.MetricDescriptor, error)
	CreateTimeSeries(ctx context.Context, req *monitoringpb.CreateTimeSeriesRequest, opts ...gax.CallOption) error
	Close() error
}

// PublisherOpts configures a Publisher.
type PublisherOpts struct {
	// ProjectID is the Google Cloud project metrics are written to.
	ProjectID string
	// PathPrefix is inserted between the custom metric domain and the metric name.
	PathPrefix string
	// ProcessType labels every descriptor and point, e.g. "scheduler" or "webserver".
	ProcessType string
	// Interval is the target time between the starts of two publish cycles.
	Interval time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
	Logger *slog.Logger
}

// Publisher periodically registers pending descriptors and writes buffered
// values to Cloud Monitoring.
type Publisher struct {
	client MetricClient
	buf    *Buffer
	opts   PublisherOpts
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewPublisher creates a publisher draining buf into client.
func NewPublisher(client MetricClient, buf *Buffer, opts PublisherOpts) *Publisher {
	if opts.PathPrefix == "" {
		opts.PathPrefix = DefaultPathPrefix
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Publisher{
		client: client,
		buf:    buf,
		opts:   opts,
		logger: opts.Logger.With("component", "stackdriver"),
	}
}

// MetricType returns the fully qualified Cloud Monitoring type for name.
func (p *Publisher) MetricType(name string) string {
	return fmt.Sprintf("%s/%s/%s", metricTypeDomain, p.opts.PathPrefix, name)
}

// Start runs the publish loop in a background goroutine. A publisher that
// dies on an unexpected error only logs; instrumentation keeps working.
func (p *Publisher) Start(ctx context.Context) {
	p.wg.Go(func() {
		if err := p.Run(ctx); err != nil {
			p.logger.Error("publisher stopped, metrics are no longer published", "error", err)
		}
	})
}

// Wait blocks until the goroutine started by Start exits.
func (p *Publisher) Wait() {
	p.wg.Wait()
}

// Run publishes immediately and then once per interval until ctx is
// cancelled. It returns nil on cancellation and the error of the first
// unexpected failure otherwise.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info("starting publisher",
		"project", p.opts.ProjectID,
		"prefix", p.opts.PathPrefix,
		"interval", p.opts.Interval,
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("publisher shutdown complete")
			return nil
		case <-timer.C:
		}

		start := p.opts.Now()
		if err := p.Publish(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("publisher shutdown complete")
				return nil
			}
			return err
		}

		timer.Reset(nextDelay(start, p.opts.Now(), p.opts.Interval))
	}
}

// nextDelay keeps cycle starts on a fixed cadence, never going negative.
func nextDelay(start, now time.Time, interval time.Duration) time.Duration {
	return max(0, start.Add(interval).Sub(now))
}

// Publish runs a single cycle: register pending descriptors, then write one
// point per registered metric. Remote rejections are logged and swallowed.
func (p *Publisher) Publish(ctx context.Context) error {
	p.logger.Debug("publishing metrics")

	if err := p.registerDescriptors(ctx); err != nil {
		return err
	}
	return p.writeTimeSeries(ctx)
}

func (p *Publisher) registerDescriptors(ctx context.Context) error {
	pending := p.buf.Pending()

	for _, name := range slices.Sorted(maps.Keys(pending)) {
		// Registered since the snapshot was taken.
		if _, ok := p.buf.Registered(name); ok {
			continue
		}

		desc := p.descriptor(name, pending[name])
		p.logger.Info("registering metric descriptor", "type", desc.GetType(), "value_type", desc.GetValueType())

		created, err := p.client.CreateMetricDescriptor(ctx, &monitoringpb.CreateMetricDescriptorRequest{
			Name:             p.projectName(),
			MetricDescriptor: desc,
		})
		switch {
		case err == nil:
			if created != nil {
				desc = created
			}
		case status.Code(err) == codes.AlreadyExists:
			p.logger.Debug("metric descriptor already exists", "type", desc.GetType())
		case isRejection(err):
			p.logger.Error("failed to register metric descriptor", "type", desc.GetType(), "error", err)
			continue
		default:
			return fmt.Errorf("failed to register metric descriptor %q: %w", desc.GetType(), err)
		}

		p.buf.markRegistered(name, desc)
	}

	return nil
}

func (p *Publisher) writeTimeSeries(ctx context.Context) error {
	now := p.opts.Now()

	var series []*monitoringpb.TimeSeries
	for _, rv := range p.buf.registeredValues() {
		ts := p.timeSeries(rv.desc, rv.value, now)
		if ts == nil {
			p.logger.Debug("skipping metric without a typed value", "type", rv.desc.GetType())
			continue
		}
		series = append(series, ts)
	}

	if len(series) == 0 {
		return nil
	}

	for chunk := range slices.Chunk(series, maxSeriesPerRequest) {
		p.logger.Debug("writing time series", "count", len(chunk))

		err := p.client.CreateTimeSeries(ctx, &monitoringpb.CreateTimeSeriesRequest{
			Name:       p.projectName(),
			TimeSeries: chunk,
		})
		if err == nil {
			continue
		}
		if isRejection(err) {
			p.logger.Error("failed to write time series", "count", len(chunk), "error", err)
			continue
		}
		return fmt.Errorf("failed to write time series: %w", err)
	}

	return nil
}

// descriptor describes name as a GAUGE carrying the process_type label.
func (p *Publisher) descriptor(name string, vt ValueType) *metricpb.MetricDescriptor {
	return &metricpb.MetricDescriptor{
		Type:       p.MetricType(name),
		MetricKind: metricpb.MetricDescriptor_GAUGE,
		ValueType:  vt.proto(),
		Labels: []*labelpb.LabelDescriptor{{
			Key:         processTypeLabel,
			ValueType:   labelpb.LabelDescriptor_STRING,
			Description: "Kind of process that emitted the metric",
		}},
	}
}

// timeSeries builds a single-point series for a registered metric.
func (p *Publisher) timeSeries(desc *metricpb.MetricDescriptor, v Value, now time.Time) *monitoringpb.TimeSeries {
	tv := typedValue(desc.GetValueType(), v)
	if tv == nil {
		return nil
	}
	if desc.GetValueType() == metricpb.MetricDescriptor_INT64 && v.Type == ValueTypeDouble && v.Double != math.Trunc(v.Double) {
		p.logger.Debug("truncating double value of INT64 metric",
			"type", desc.GetType(),
			"value", v.Double,
			"sent", tv.GetInt64Value(),
		)
	}

	return &monitoringpb.TimeSeries{
		Metric: &metricpb.Metric{
			Type:   desc.GetType(),
			Labels: map[string]string{processTypeLabel: p.opts.ProcessType},
		},
		Resource: &monitoredrespb.MonitoredResource{
			Type:   globalResourceType,
			Labels: map[string]string{"project_id": p.opts.ProjectID},
		},
		MetricKind: metricpb.MetricDescriptor_GAUGE,
		ValueType:  desc.GetValueType(),
		Points: []*monitoringpb.Point{{
			Interval: &monitoringpb.TimeInterval{EndTime: timestamppb.New(now)},
			Value:    tv,
		}},
	}
}

func (p *Publisher) projectName() string {
	return "projects/" + p.opts.ProjectID
}
