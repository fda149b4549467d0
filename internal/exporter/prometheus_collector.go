package exporter

import (
	"log/slog"
	"strings"

	"github.com/neox5/statbox/internal/stackdriver"
	"github.com/prometheus/client_golang/prometheus"
)

// collector implements prometheus.Collector to read buffered values on scrape.
// Metric names are only known at runtime, so it is an unchecked collector.
type collector struct {
	buf         *stackdriver.Buffer
	constLabels prometheus.Labels
}

// newCollector creates a collector over buf labelling every metric with processType.
func newCollector(buf *stackdriver.Buffer, processType string) *collector {
	return &collector{
		buf:         buf,
		constLabels: prometheus.Labels{"process_type": processType},
	}
}

// Describe sends no descriptors, which marks the collector as unchecked.
func (c *collector) Describe(ch chan<- *prometheus.Desc) {}

// Collect reads buffered values and sends metrics to the channel.
// This is called on each Prometheus scrape. Stat names that sanitize to the
// same metric name are exported once, for the first name in sort order.
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	seen := make(map[string]string)

	for _, s := range c.buf.Snapshot() {
		if s.Value.Type == stackdriver.ValueTypeUnspecified {
			continue
		}

		name := prometheusName(s.Name)
		if first, ok := seen[name]; ok {
			slog.Debug("skipping stat with clashing prometheus name",
				"stat", s.Name,
				"exported_as", first,
				"metric", name,
			)
			continue
		}
		seen[name] = s.Name

		desc := prometheus.NewDesc(
			name,
			"Buffered statbox metric",
			nil,
			c.constLabels,
		)

		metric, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, s.Value.Float64())
		if err != nil {
			continue
		}

		ch <- metric
	}
}

// prometheusName maps a stat name onto the Prometheus metric name charset.
func prometheusName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	return b.String()
}
