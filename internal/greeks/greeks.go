package greeks

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateInput marks pricing inputs the closed forms cannot handle
// (non-positive time, volatility, spot or strike). Callers skip the contract.
var ErrDegenerateInput = errors.New("degenerate pricing input")

// Greeks holds the four sensitivities the exposure pipeline consumes.
// Charm is expressed per year, not per day; exposure scaling depends on it.
type Greeks struct {
	Delta float64
	Gamma float64
	Vanna float64 // dDelta/dSigma
	Charm float64 // dDelta/dt, per year
}

// Inputs are the Black-Scholes parameters for one contract.
type Inputs struct {
	Spot       float64
	Strike     float64
	TimeYears  float64
	Rate       float64
	Dividend   float64
	Volatility float64
}

// Compute evaluates delta, gamma, vanna and charm for a call or put.
// The engine never substitutes a volatility; absence is the caller's policy.
func Compute(optionType string, in Inputs) (Greeks, error) {
	if in.TimeYears <= 0 || in.Volatility <= 0 || in.Spot <= 0 || in.Strike <= 0 {
		return Greeks{}, fmt.Errorf("%w: S=%g K=%g T=%g sigma=%g",
			ErrDegenerateInput, in.Spot, in.Strike, in.TimeYears, in.Volatility)
	}

	var (
		s     = in.Spot
		k     = in.Strike
		t     = in.TimeYears
		r     = in.Rate
		q     = in.Dividend
		sigma = in.Volatility
	)

	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (r-q+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT

	discount := math.Exp(-q * t)
	nd1 := normPDF(d1)

	g := Greeks{
		Gamma: discount * nd1 / (s * sigma * sqrtT),
		Charm: -discount * nd1 * (q + (r-q)*d1/(sigma*sqrtT) - d2*sigma/(2*sqrtT)),
	}

	switch optionType {
	case "call":
		g.Delta = discount * normCDF(d1)
		g.Vanna = discount * nd1 * sqrtT
	case "put":
		g.Delta = -discount * normCDF(-d1)
		g.Vanna = -discount * nd1 * sqrtT
	default:
		return Greeks{}, fmt.Errorf("option type must be call or put, got %q", optionType)
	}

	if !g.finite() {
		return Greeks{}, fmt.Errorf("%w: non-finite result for S=%g K=%g", ErrDegenerateInput, s, k)
	}

	return g, nil
}

func (g Greeks) finite() bool {
	for _, v := range [4]float64{g.Delta, g.Gamma, g.Vanna, g.Charm} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
