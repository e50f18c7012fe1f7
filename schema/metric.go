package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Metric is a derived quantity that may be undefined.
// The zero value is undefined; it serializes to JSON null and renders as "n/a".
type Metric struct {
	Value float64
	Valid bool
}

// Undefined is the sentinel for a metric that cannot be computed, such as an
// efficiency with a zero denominator.
var Undefined = Metric{}

// Defined wraps a finite value. Non-finite values collapse to Undefined.
func Defined(v float64) Metric {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined
	}
	return Metric{Value: v, Valid: true}
}

// Ratio divides two metrics, returning Undefined when either side is undefined
// or the denominator is zero.
func Ratio(num, den Metric) Metric {
	if !num.Valid || !den.Valid || den.Value == 0 {
		return Undefined
	}
	return Defined(num.Value / den.Value)
}

// Scale multiplies a defined metric by f.
func (m Metric) Scale(f float64) Metric {
	if !m.Valid {
		return Undefined
	}
	return Defined(m.Value * f)
}

// Get returns the value and whether it is defined.
func (m Metric) Get() (float64, bool) {
	return m.Value, m.Valid
}

// Ptr returns a pointer to the value, or nil when undefined. Used for nullable columns.
func (m Metric) Ptr() *float64 {
	if !m.Valid {
		return nil
	}
	v := m.Value
	return &v
}

// MetricFromPtr is the inverse of Ptr.
func MetricFromPtr(p *float64) Metric {
	if p == nil {
		return Undefined
	}
	return Defined(*p)
}

// Format renders the metric with the given precision, or "n/a" when undefined.
func (m Metric) Format(precision int) string {
	if !m.Valid {
		return "n/a"
	}
	return strconv.FormatFloat(m.Value, 'f', precision, 64)
}

// String implements fmt.Stringer.
func (m Metric) String() string {
	return m.Format(4)
}

// MarshalJSON implements json.Marshaler.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metric) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = Undefined
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid metric value: %w", err)
	}
	*m = Defined(v)
	return nil
}
