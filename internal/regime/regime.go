package regime

import (
	"fmt"
	"math"
	"sort"

	"github.com/dgnsrekt/spx-greeks-api/internal/exposure"
)

// Epsilon is the floor for the neutral threshold so sign detection never
// compares against exactly zero.
const Epsilon = 0.05

// Signs holds one sign per Greek, fixed (G, D, V, C) order.
// Each sign is "+", "-" or "o" (neutral).
type Signs struct {
	G string `json:"g"`
	D string `json:"d"`
	V string `json:"v"`
	C string `json:"c"`
}

// Code renders the fixed-order regime code string.
func (s Signs) Code() string {
	return fmt.Sprintf("G%s D%s V%s C%s", s.G, s.D, s.V, s.C)
}

// NeutralThreshold derives the neutral band from a comparison set:
// max(Epsilon, 0.05 * median(|v|)). An empty set yields Epsilon.
func NeutralThreshold(values []float64) float64 {
	if len(values) == 0 {
		return Epsilon
	}

	abs := make([]float64, len(values))
	for i, v := range values {
		abs[i] = math.Abs(v)
	}
	sort.Float64s(abs)

	var median float64
	mid := len(abs) / 2
	if len(abs)%2 == 1 {
		median = abs[mid]
	} else {
		median = (abs[mid-1] + abs[mid]) / 2
	}

	return math.Max(Epsilon, 0.05*median)
}

// SignOf classifies one value against the neutral threshold.
func SignOf(value, threshold float64) string {
	if math.Abs(value) < threshold {
		return "o"
	}
	if value > 0 {
		return "+"
	}
	return "-"
}

// Thresholds holds one neutral threshold per Greek. Each Greek is compared
// against the distribution of its own values across the scope, so a metric
// with small magnitudes (VEX) is not drowned out by a large one (GEX).
type Thresholds struct {
	G float64
	D float64
	V float64
	C float64
}

// ThresholdsFor computes per-Greek neutral thresholds from the per-strike
// exposure totals of the current scope.
func ThresholdsFor(strikes []exposure.StrikeTotal) Thresholds {
	n := len(strikes)
	gs := make([]float64, n)
	ds := make([]float64, n)
	vs := make([]float64, n)
	cs := make([]float64, n)
	for i := range strikes {
		gs[i] = strikes[i].GEX
		ds[i] = strikes[i].DEX
		vs[i] = strikes[i].VEX
		cs[i] = strikes[i].CEX
	}
	return Thresholds{
		G: NeutralThreshold(gs),
		D: NeutralThreshold(ds),
		V: NeutralThreshold(vs),
		C: NeutralThreshold(cs),
	}
}

// ClassifyVector derives the four regime signs for an exposure vector.
// Pure and deterministic: identical inputs always yield identical Signs.
func ClassifyVector(v exposure.Vector, th Thresholds) Signs {
	return Signs{
		G: SignOf(v.GEX, th.G),
		D: SignOf(v.DEX, th.D),
		V: SignOf(v.VEX, th.V),
		C: SignOf(v.CEX, th.C),
	}
}
