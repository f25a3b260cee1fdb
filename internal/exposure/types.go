package exposure

import (
	"fmt"
	"strings"
)

// Vector is the four signed exposure totals for one scope.
// Vectors are produced fresh on every aggregation pass and never mutated.
type Vector struct {
	GEX float64
	DEX float64
	VEX float64
	CEX float64
}

// Add returns the component-wise sum.
func (v Vector) Add(o Vector) Vector {
	return Vector{
		GEX: v.GEX + o.GEX,
		DEX: v.DEX + o.DEX,
		VEX: v.VEX + o.VEX,
		CEX: v.CEX + o.CEX,
	}
}

// Values returns the components in fixed (G, D, V, C) order.
func (v Vector) Values() [4]float64 {
	return [4]float64{v.GEX, v.DEX, v.VEX, v.CEX}
}

// Metric selects one exposure component.
type Metric string

const (
	MetricGEX Metric = "GEX"
	MetricDEX Metric = "DEX"
	MetricVEX Metric = "VEX"
	MetricCEX Metric = "CEX"
)

// ParseMetric validates a metric selection parameter.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToUpper(s)); m {
	case MetricGEX, MetricDEX, MetricVEX, MetricCEX:
		return m, nil
	default:
		return "", fmt.Errorf("metric must be GEX, DEX, VEX or CEX, got %q", s)
	}
}

// Of returns the component selected by the metric.
func (v Vector) Of(m Metric) float64 {
	switch m {
	case MetricGEX:
		return v.GEX
	case MetricDEX:
		return v.DEX
	case MetricVEX:
		return v.VEX
	case MetricCEX:
		return v.CEX
	}
	return 0
}

// StrikeTotal is the call+put exposure total at one strike, with the
// per-strike metadata the dashboard displays.
type StrikeTotal struct {
	Strike float64
	Vector

	CallOI int64
	PutOI  int64

	// Optional metadata; nil means the chain had no usable value.
	IVCall    *float64
	IVPut     *float64
	TimeYears float64
}

// ChainAggregate is the aggregation of one expiration's chain snapshot.
type ChainAggregate struct {
	Expiration string
	Strikes    []StrikeTotal // ascending strike
	Total      Vector
	Processed  int
	Skipped    int
}
