package exposure

import (
	"sort"
	"strconv"
)

// Matrix is a dense grid of one metric's per-(strike, expiration) totals.
// Rows are strikes ascending, columns are expirations in chronological
// order; cells with no contracts hold 0, never an absent value.
type Matrix struct {
	Metric      Metric
	Expirations []string
	Strikes     []float64
	Z           [][]float64 // Z[strikeIdx][expirationIdx]
}

// BuildMatrix assembles the grid from per-expiration aggregates. Aggregates
// must be in chronological order. When maxStrikes > 0 the strike axis is
// capped to the lowest maxStrikes strikes so the heatmap stays readable.
func BuildMatrix(metric Metric, aggs []*ChainAggregate, maxStrikes int) *Matrix {
	strikeSet := make(map[float64]bool)
	expirations := make([]string, 0, len(aggs))
	for _, agg := range aggs {
		expirations = append(expirations, agg.Expiration)
		for i := range agg.Strikes {
			strikeSet[agg.Strikes[i].Strike] = true
		}
	}

	strikes := make([]float64, 0, len(strikeSet))
	for s := range strikeSet {
		strikes = append(strikes, s)
	}
	sort.Float64s(strikes)
	if maxStrikes > 0 && len(strikes) > maxStrikes {
		strikes = strikes[:maxStrikes]
	}

	strikeIdx := make(map[float64]int, len(strikes))
	for i, s := range strikes {
		strikeIdx[s] = i
	}

	z := make([][]float64, len(strikes))
	for i := range z {
		z[i] = make([]float64, len(expirations))
	}

	for j, agg := range aggs {
		for i := range agg.Strikes {
			st := &agg.Strikes[i]
			row, ok := strikeIdx[st.Strike]
			if !ok {
				continue
			}
			z[row][j] = st.Vector.Of(metric)
		}
	}

	return &Matrix{
		Metric:      metric,
		Expirations: expirations,
		Strikes:     strikes,
		Z:           z,
	}
}

// StrikeKey formats a strike for use as a JSON map key.
func StrikeKey(strike float64) string {
	return strconv.FormatFloat(strike, 'f', -1, 64)
}

// StrikeDetails maps each strike on the matrix axis to its totals from the
// first expiration that carries it, mirroring what the heatmap tooltip shows.
func StrikeDetails(aggs []*ChainAggregate, strikes []float64) map[string]StrikeTotal {
	wanted := make(map[float64]bool, len(strikes))
	for _, s := range strikes {
		wanted[s] = true
	}

	details := make(map[string]StrikeTotal, len(strikes))
	for _, agg := range aggs {
		for i := range agg.Strikes {
			st := agg.Strikes[i]
			if !wanted[st.Strike] {
				continue
			}
			key := StrikeKey(st.Strike)
			if _, ok := details[key]; !ok {
				details[key] = st
			}
		}
	}
	return details
}
