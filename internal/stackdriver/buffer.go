package stackdriver

import (
	"slices"
	"strings"
	"sync"
	"time"

	metricpb "google.golang.org/genproto/googleapis/api/metric"
)

// Buffer holds metric values and descriptor state between publish cycles.
// It is safe for concurrent use by any number of producers and one publisher.
type Buffer struct {
	mu         sync.Mutex
	pending    map[string]ValueType
	registered map[string]*metricpb.MetricDescriptor
	values     map[string]Value
}

// Sample is a point-in-time copy of one buffered metric.
type Sample struct {
	Name  string
	Value Value
}

// registeredValue pairs a registered descriptor with its current value.
type registeredValue struct {
	desc  *metricpb.MetricDescriptor
	value Value
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		pending:    make(map[string]ValueType),
		registered: make(map[string]*metricpb.MetricDescriptor),
		values:     make(map[string]Value),
	}
}

// Incr adds delta to the named counter.
func (b *Buffer) Incr(name string, delta int64) {
	b.add(name, delta)
}

// Decr subtracts delta from the named counter.
func (b *Buffer) Decr(name string, delta int64) {
	b.add(name, -delta)
}

func (b *Buffer) add(name string, delta int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.observe(name, ValueTypeInt64)
	b.values[name] = b.values[name].add(delta)
}

// SetGauge overwrites the named metric with value. Integer values are
// registered as INT64, floating point values as DOUBLE. The type is fixed on
// first sight: a later double written to an INT64 metric is published
// truncated toward zero.
func (b *Buffer) SetGauge(name string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.observe(name, valueTypeOf(value))
	b.values[name] = valueOf(value)
}

// Timing is not supported by Cloud Monitoring gauges and is dropped.
func (b *Buffer) Timing(name string, d time.Duration) {}

// observe records a first sighting of name. Must be called with mu held.
func (b *Buffer) observe(name string, vt ValueType) {
	if _, ok := b.pending[name]; ok {
		return
	}
	if _, ok := b.registered[name]; ok {
		return
	}
	b.pending[name] = vt
}

// Pending returns a copy of the metrics awaiting descriptor registration.
func (b *Buffer) Pending() map[string]ValueType {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]ValueType, len(b.pending))
	for name, vt := range b.pending {
		out[name] = vt
	}
	return out
}

// Registered returns the descriptor registered for name.
func (b *Buffer) Registered(name string) (*metricpb.MetricDescriptor, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	desc, ok := b.registered[name]
	return desc, ok
}

// Value returns the current value of name.
func (b *Buffer) Value(name string) (Value, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.values[name]
	return v, ok
}

// Snapshot returns all buffered values sorted by name.
func (b *Buffer) Snapshot() []Sample {
	b.mu.Lock()
	samples := make([]Sample, 0, len(b.values))
	for name, v := range b.values {
		samples = append(samples, Sample{Name: name, Value: v})
	}
	b.mu.Unlock()

	slices.SortFunc(samples, func(x, y Sample) int {
		return strings.Compare(x.Name, y.Name)
	})
	return samples
}

// markRegistered moves name from pending to registered.
func (b *Buffer) markRegistered(name string, desc *metricpb.MetricDescriptor) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.registered[name] = desc
	delete(b.pending, name)
}

// registeredValues returns every registered metric that has a value, sorted by name.
func (b *Buffer) registeredValues() []registeredValue {
	b.mu.Lock()
	names := make([]string, 0, len(b.registered))
	for name := range b.registered {
		if _, ok := b.values[name]; ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	out := make([]registeredValue, 0, len(names))
	for _, name := range names {
		out = append(out, registeredValue{desc: b.registered[name], value: b.values[name]})
	}
	b.mu.Unlock()

	return out
}
