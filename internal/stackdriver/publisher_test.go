package stackdriver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/require"
	metricpb "google.golang.org/genproto/googleapis/api/metric"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// fakeClient records calls and fails descriptor creation for selected types.
type fakeClient struct {
	mu          sync.Mutex
	created     []*metricpb.MetricDescriptor
	writes      []*monitoringpb.CreateTimeSeriesRequest
	createErrs  map[string]error
	writeErr    error
	writeCalled chan struct{}
	onCreate    func(desc *metricpb.MetricDescriptor)
}

func (c *fakeClient) CreateMetricDescriptor(_ context.Context, req *monitoringpb.CreateMetricDescriptorRequest, _ ...gax.CallOption) (*metricpb.MetricDescriptor, error) {
	if c.onCreate != nil {
		c.onCreate(req.GetMetricDescriptor())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.createErrs[req.GetMetricDescriptor().GetType()]; err != nil {
		return nil, err
	}
	c.created = append(c.created, req.GetMetricDescriptor())
	return req.GetMetricDescriptor(), nil
}

func (c *fakeClient) CreateTimeSeries(_ context.Context, req *monitoringpb.CreateTimeSeriesRequest, _ ...gax.CallOption) error {
	c.mu.Lock()
	c.writes = append(c.writes, req)
	err := c.writeErr
	c.mu.Unlock()

	if c.writeCalled != nil {
		select {
		case c.writeCalled <- struct{}{}:
		default:
		}
	}
	return err
}

func (c *fakeClient) Close() error { return nil }

func (c *fakeClient) createdTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var types []string
	for _, d := range c.created {
		types = append(types, d.GetType())
	}
	return types
}

func (c *fakeClient) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestPublisher(client MetricClient, buf *Buffer) *Publisher {
	return NewPublisher(client, buf, PublisherOpts{
		ProjectID:   "proj",
		PathPrefix:  "pre",
		ProcessType: "scheduler",
		Now:         func() time.Time { return testNow },
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestPublishScenario(t *testing.T) {
	buf := NewBuffer()
	buf.Incr("ctr", 5)
	buf.Decr("ctr", 2)
	buf.SetGauge("gauge", 4.2)
	buf.SetGauge("gauge", 10.10)

	client := &fakeClient{}
	p := newTestPublisher(client, buf)

	require.NoError(t, p.Publish(context.Background()))

	require.Equal(t, []string{
		"custom.googleapis.com/pre/ctr",
		"custom.googleapis.com/pre/gauge",
	}, client.createdTypes())
	for _, d := range client.created {
		require.Equal(t, metricpb.MetricDescriptor_GAUGE, d.GetMetricKind())
		require.Len(t, d.GetLabels(), 1)
		require.Equal(t, "process_type", d.GetLabels()[0].GetKey())
	}
	require.Equal(t, metricpb.MetricDescriptor_INT64, client.created[0].GetValueType())
	require.Equal(t, metricpb.MetricDescriptor_DOUBLE, client.created[1].GetValueType())
	require.Empty(t, buf.Pending())

	require.Len(t, client.writes, 1)
	req := client.writes[0]
	require.Equal(t, "projects/proj", req.GetName())
	require.Len(t, req.GetTimeSeries(), 2)

	ctr := req.GetTimeSeries()[0]
	require.Equal(t, "custom.googleapis.com/pre/ctr", ctr.GetMetric().GetType())
	require.Equal(t, "scheduler", ctr.GetMetric().GetLabels()["process_type"])
	require.Equal(t, "global", ctr.GetResource().GetType())
	require.Len(t, ctr.GetPoints(), 1)
	require.Equal(t, int64(3), ctr.GetPoints()[0].GetValue().GetInt64Value())
	require.True(t, ctr.GetPoints()[0].GetInterval().GetEndTime().AsTime().Equal(testNow))

	gauge := req.GetTimeSeries()[1]
	require.Equal(t, 10.10, gauge.GetPoints()[0].GetValue().GetDoubleValue())
}

func TestPublishDoesNotReregister(t *testing.T) {
	buf := NewBuffer()
	buf.Incr("ctr", 1)

	client := &fakeClient{}
	p := newTestPublisher(client, buf)

	require.NoError(t, p.Publish(context.Background()))
	buf.Incr("ctr", 1)
	require.NoError(t, p.Publish(context.Background()))

	require.Len(t, client.createdTypes(), 1)
	require.Equal(t, 2, client.writeCount())
	require.Equal(t, int64(2), client.writes[1].GetTimeSeries()[0].GetPoints()[0].GetValue().GetInt64Value())
}

func TestPublishSkipsNamesRegisteredDuringCycle(t *testing.T) {
	buf := NewBuffer()
	buf.Incr("a", 1)
	buf.Incr("b", 1)

	// Registering "a" races with another path that registers "b" after
	// the pending snapshot was taken.
	other := &metricpb.MetricDescriptor{Type: "custom.googleapis.com/pre/b"}
	client := &fakeClient{}
	client.onCreate = func(*metricpb.MetricDescriptor) {
		buf.markRegistered("b", other)
	}
	p := newTestPublisher(client, buf)

	require.NoError(t, p.Publish(context.Background()))
	require.Equal(t, []string{"custom.googleapis.com/pre/a"}, client.createdTypes())

	desc, ok := buf.Registered("b")
	require.True(t, ok)
	require.Same(t, other, desc)
	require.Empty(t, buf.Pending())
}

func TestPublishTruncatesDoubleForInt64Metric(t *testing.T) {
	buf := NewBuffer()
	buf.SetGauge("int_gauge", 7)

	var logs bytes.Buffer
	client := &fakeClient{}
	p := NewPublisher(client, buf, PublisherOpts{
		ProjectID: "proj",
		Now:       func() time.Time { return testNow },
		Logger:    slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})

	require.NoError(t, p.Publish(context.Background()))
	buf.SetGauge("int_gauge", 3.3)
	require.NoError(t, p.Publish(context.Background()))

	require.Len(t, client.writes, 2)
	point := client.writes[1].GetTimeSeries()[0].GetPoints()[0]
	require.Equal(t, int64(3), point.GetValue().GetInt64Value())
	require.Contains(t, logs.String(), "truncating double value of INT64 metric")
}

func TestPublishWithoutValuesSkipsWrite(t *testing.T) {
	client := &fakeClient{}
	p := newTestPublisher(client, NewBuffer())

	require.NoError(t, p.Publish(context.Background()))
	require.Empty(t, client.createdTypes())
	require.Zero(t, client.writeCount())
}

func TestPublishRejectedDescriptorDoesNotBlockOthers(t *testing.T) {
	buf := NewBuffer()
	buf.Incr("bad", 1)
	buf.Incr("good", 1)
	buf.SetGauge("other", 2.5)

	client := &fakeClient{
		createErrs: map[string]error{
			"custom.googleapis.com/pre/bad": status.Error(codes.InvalidArgument, "bad metric"),
		},
	}
	p := newTestPublisher(client, buf)

	require.NoError(t, p.Publish(context.Background()))
	require.ElementsMatch(t, []string{
		"custom.googleapis.com/pre/good",
		"custom.googleapis.com/pre/other",
	}, client.createdTypes())

	// The rejected metric stays pending and is retried next cycle.
	require.Equal(t, map[string]ValueType{"bad": ValueTypeInt64}, buf.Pending())
	require.Len(t, client.writes, 1)
	require.Len(t, client.writes[0].GetTimeSeries(), 2)

	delete(client.createErrs, "custom.googleapis.com/pre/bad")
	require.NoError(t, p.Publish(context.Background()))
	require.Empty(t, buf.Pending())
	require.Len(t, client.writes[1].GetTimeSeries(), 3)
}

func TestPublishAlreadyExistsCountsAsRegistered(t *testing.T) {
	buf := NewBuffer()
	buf.Incr("ctr", 1)

	client := &fakeClient{
		createErrs: map[string]error{
			"custom.googleapis.com/pre/ctr": status.Error(codes.AlreadyExists, "exists"),
		},
	}
	p := newTestPublisher(client, buf)

	require.NoError(t, p.Publish(context.Background()))
	_, ok := buf.Registered("ctr")
	require.True(t, ok)
	require.Len(t, client.writes, 1)
}

func TestPublishWriteRejectionIsSwallowed(t *testing.T) {
	buf := NewBuffer()
	buf.Incr("ctr", 1)

	client := &fakeClient{writeErr: status.Error(codes.InvalidArgument, "bad request")}
	p := newTestPublisher(client, buf)

	require.NoError(t, p.Publish(context.Background()))
	require.Equal(t, 1, client.writeCount())
}

func TestPublishUnexpectedErrorPropagates(t *testing.T) {
	buf := NewBuffer()
	buf.Incr("ctr", 1)

	boom := errors.New("boom")
	client := &fakeClient{
		createErrs: map[string]error{"custom.googleapis.com/pre/ctr": boom},
	}
	p := newTestPublisher(client, buf)

	err := p.Publish(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestPublishChunksLargeBatches(t *testing.T) {
	buf := NewBuffer()
	for i := range maxSeriesPerRequest + 1 {
		buf.Incr(fmt.Sprintf("ctr_%03d", i), 1)
	}

	client := &fakeClient{}
	p := newTestPublisher(client, buf)

	require.NoError(t, p.Publish(context.Background()))
	require.Len(t, client.writes, 2)
	require.Len(t, client.writes[0].GetTimeSeries(), maxSeriesPerRequest)
	require.Len(t, client.writes[1].GetTimeSeries(), 1)
}

func TestPublishSkipsUnspecifiedValues(t *testing.T) {
	buf := NewBuffer()
	buf.SetGauge("odd", struct{}{})
	buf.Incr("ctr", 1)

	client := &fakeClient{}
	p := newTestPublisher(client, buf)

	require.NoError(t, p.Publish(context.Background()))
	require.Len(t, client.createdTypes(), 2)
	require.Len(t, client.writes, 1)
	require.Len(t, client.writes[0].GetTimeSeries(), 1)
}

func TestNextDelay(t *testing.T) {
	start := testNow
	require.Equal(t, 45*time.Second, nextDelay(start, start.Add(15*time.Second), time.Minute))
	require.Equal(t, time.Duration(0), nextDelay(start, start.Add(90*time.Second), time.Minute))
	require.Equal(t, time.Minute, nextDelay(start, start, time.Minute))
}

func TestRunStopsOnCancel(t *testing.T) {
	buf := NewBuffer()
	buf.Incr("ctr", 1)

	client := &fakeClient{writeCalled: make(chan struct{}, 1)}
	p := newTestPublisher(client, buf)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	select {
	case <-client.writeCalled:
	case <-time.After(5 * time.Second):
		t.Fatal("publisher did not run its first cycle")
	}

	cancel()
	p.Wait()
	require.Equal(t, 1, client.writeCount())
}

func TestRunReturnsUnexpectedError(t *testing.T) {
	buf := NewBuffer()
	buf.Incr("ctr", 1)

	boom := errors.New("boom")
	client := &fakeClient{writeErr: boom}
	p := newTestPublisher(client, buf)

	err := p.Run(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestRunSurvivesRejections(t *testing.T) {
	buf := NewBuffer()
	buf.Incr("ctr", 1)

	client := &fakeClient{
		writeErr:    status.Error(codes.Unavailable, "try later"),
		writeCalled: make(chan struct{}, 1),
	}
	p := NewPublisher(client, buf, PublisherOpts{
		ProjectID: "proj",
		Interval:  time.Millisecond,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	for range 3 {
		select {
		case <-client.writeCalled:
		case <-time.After(5 * time.Second):
			t.Fatal("publisher stopped after a rejected write")
		}
	}

	cancel()
	p.Wait()
}

func TestMetricType(t *testing.T) {
	p := NewPublisher(&fakeClient{}, NewBuffer(), PublisherOpts{})
	require.Equal(t, "custom.googleapis.com/statbox/dag_runs", p.MetricType("dag_runs"))
}
