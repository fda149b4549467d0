package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the statsd metric type of a line.
type Kind string

const (
	KindCounter Kind = "c"
	KindGauge   Kind = "g"
	KindTiming  Kind = "ms"
)

// Line is one parsed statsd line.
type Line struct {
	Name string
	Kind Kind

	// Count is set for counters and integral gauges.
	Count int64
	// Value is set for gauges and holds milliseconds for timings.
	Value float64
	// Integral marks a gauge written as an integer literal.
	Integral bool
	// Delta marks a gauge value written with an explicit sign.
	Delta bool
	Rate  float32
}

// Duration returns the timing value as a duration.
func (l Line) Duration() time.Duration {
	return time.Duration(l.Value * float64(time.Millisecond))
}

// ParseLine parses "name:value|type[|@rate]". Trailing sections other than
// the sample rate are ignored.
func ParseLine(s string) (Line, error) {
	name, rest, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return Line{}, fmt.Errorf("missing metric name in %q", s)
	}

	sections := strings.Split(rest, "|")
	if len(sections) < 2 {
		return Line{}, fmt.Errorf("missing metric type in %q", s)
	}

	line := Line{
		Name: name,
		Kind: Kind(sections[1]),
		Rate: 1,
	}

	for _, sec := range sections[2:] {
		raw, ok := strings.CutPrefix(sec, "@")
		if !ok {
			continue
		}
		rate, err := strconv.ParseFloat(raw, 32)
		if err != nil || rate <= 0 || rate > 1 {
			return Line{}, fmt.Errorf("invalid sample rate %q", raw)
		}
		line.Rate = float32(rate)
	}

	value := sections[0]
	switch line.Kind {
	case KindCounter:
		n, err := parseCount(value)
		if err != nil {
			return Line{}, err
		}
		line.Count = n

	case KindGauge:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			line.Count = n
			line.Integral = true
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Line{}, fmt.Errorf("invalid gauge value %q", value)
		}
		line.Value = v
		line.Delta = strings.HasPrefix(value, "+") || strings.HasPrefix(value, "-")

	case KindTiming:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0 {
			return Line{}, fmt.Errorf("invalid timing value %q", value)
		}
		line.Value = v

	default:
		return Line{}, fmt.Errorf("unsupported metric type %q", line.Kind)
	}

	return line, nil
}

func parseCount(value string) (int64, error) {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid counter value %q", value)
	}
	return int64(math.Round(f)), nil
}
