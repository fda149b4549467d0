package stackdriver

import (
	"fmt"

	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	metricpb "google.golang.org/genproto/googleapis/api/metric"
)

// ValueType is the remote value type a metric is registered with.
type ValueType int

const (
	ValueTypeUnspecified ValueType = iota
	ValueTypeInt64
	ValueTypeDouble
)

// String returns the Cloud Monitoring name of the value type.
func (t ValueType) String() string {
	return t.proto().String()
}

func (t ValueType) proto() metricpb.MetricDescriptor_ValueType {
	switch t {
	case ValueTypeInt64:
		return metricpb.MetricDescriptor_INT64
	case ValueTypeDouble:
		return metricpb.MetricDescriptor_DOUBLE
	default:
		return metricpb.MetricDescriptor_VALUE_TYPE_UNSPECIFIED
	}
}

// valueTypeOf classifies an observed value by its Go type.
func valueTypeOf(v any) ValueType {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return ValueTypeInt64
	case float32, float64:
		return ValueTypeDouble
	default:
		return ValueTypeUnspecified
	}
}

// Value is a buffered metric value.
type Value struct {
	Type   ValueType
	Int64  int64
	Double float64
}

// valueOf converts an observed value. Unsupported types yield an unspecified value.
func valueOf(v any) Value {
	switch n := v.(type) {
	case int:
		return Value{Type: ValueTypeInt64, Int64: int64(n)}
	case int8:
		return Value{Type: ValueTypeInt64, Int64: int64(n)}
	case int16:
		return Value{Type: ValueTypeInt64, Int64: int64(n)}
	case int32:
		return Value{Type: ValueTypeInt64, Int64: int64(n)}
	case int64:
		return Value{Type: ValueTypeInt64, Int64: n}
	case uint:
		return Value{Type: ValueTypeInt64, Int64: int64(n)}
	case uint8:
		return Value{Type: ValueTypeInt64, Int64: int64(n)}
	case uint16:
		return Value{Type: ValueTypeInt64, Int64: int64(n)}
	case uint32:
		return Value{Type: ValueTypeInt64, Int64: int64(n)}
	case uint64:
		return Value{Type: ValueTypeInt64, Int64: int64(n)}
	case float32:
		return Value{Type: ValueTypeDouble, Double: float64(n)}
	case float64:
		return Value{Type: ValueTypeDouble, Double: n}
	default:
		return Value{}
	}
}

// add applies a signed delta. Double values stay doubles.
func (v Value) add(delta int64) Value {
	switch v.Type {
	case ValueTypeDouble:
		v.Double += float64(delta)
	case ValueTypeInt64:
		v.Int64 += delta
	default:
		v = Value{Type: ValueTypeInt64, Int64: delta}
	}
	return v
}

// Float64 returns the value as a float64.
func (v Value) Float64() float64 {
	if v.Type == ValueTypeDouble {
		return v.Double
	}
	return float64(v.Int64)
}

// String implements fmt.Stringer.
func (v Value) String() string {
	switch v.Type {
	case ValueTypeInt64:
		return fmt.Sprintf("%d", v.Int64)
	case ValueTypeDouble:
		return fmt.Sprintf("%g", v.Double)
	default:
		return "<unspecified>"
	}
}

// typedValue converts v to the value type the metric was registered with.
// It returns nil when the registered type cannot carry a point.
func typedValue(vt metricpb.MetricDescriptor_ValueType, v Value) *monitoringpb.TypedValue {
	if v.Type == ValueTypeUnspecified {
		return nil
	}

	switch vt {
	case metricpb.MetricDescriptor_INT64:
		n := v.Int64
		if v.Type == ValueTypeDouble {
			n = int64(v.Double)
		}
		return &monitoringpb.TypedValue{
			Value: &monitoringpb.TypedValue_Int64Value{Int64Value: n},
		}
	case metricpb.MetricDescriptor_DOUBLE:
		return &monitoringpb.TypedValue{
			Value: &monitoringpb.TypedValue_DoubleValue{DoubleValue: v.Float64()},
		}
	default:
		return nil
	}
}
