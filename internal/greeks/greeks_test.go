package greeks

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestCompute_CallPutParity(t *testing.T) {
	in := Inputs{
		Spot:       5000,
		Strike:     5000,
		TimeYears:  30.0 / 365.25,
		Rate:       0.045,
		Dividend:   0.0,
		Volatility: 0.20,
	}

	call, err := Compute("call", in)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	put, err := Compute("put", in)
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	// delta_call - delta_put = exp(-qT)
	parity := call.Delta - put.Delta
	if math.Abs(parity-1.0) > 1e-9 {
		t.Errorf("delta parity: expected 1.0, got %v", parity)
	}

	// gamma is identical for calls and puts
	if call.Gamma != put.Gamma {
		t.Errorf("gamma mismatch: call %v put %v", call.Gamma, put.Gamma)
	}

	// ATM call delta sits slightly above 0.5
	if call.Delta < 0.5 || call.Delta > 0.6 {
		t.Errorf("ATM call delta out of range: %v", call.Delta)
	}
	if call.Gamma <= 0 {
		t.Errorf("expected positive gamma, got %v", call.Gamma)
	}
	// Call vanna positive, put vanna its mirror
	if call.Vanna <= 0 {
		t.Errorf("expected positive call vanna, got %v", call.Vanna)
	}
	if math.Abs(call.Vanna+put.Vanna) > 1e-12 {
		t.Errorf("vanna mirror: call %v put %v", call.Vanna, put.Vanna)
	}
}

func TestCompute_FiniteOutputs(t *testing.T) {
	cases := []Inputs{
		{Spot: 5000, Strike: 3500, TimeYears: 0.001, Rate: 0.045, Volatility: 0.10},
		{Spot: 5000, Strike: 6500, TimeYears: 2.0, Rate: 0.045, Volatility: 0.80},
		{Spot: 5000, Strike: 5005, TimeYears: 1.0 / 365.25, Rate: 0.0, Volatility: 0.05},
	}

	for _, in := range cases {
		for _, typ := range []string{"call", "put"} {
			g, err := Compute(typ, in)
			if err != nil {
				t.Fatalf("%s %+v: %v", typ, in, err)
			}
			for _, v := range []float64{g.Delta, g.Gamma, g.Vanna, g.Charm} {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Errorf("%s %+v: non-finite greek %v", typ, in, g)
				}
			}
		}
	}
}

func TestCompute_DegenerateInputs(t *testing.T) {
	base := Inputs{Spot: 5000, Strike: 5000, TimeYears: 0.1, Rate: 0.045, Volatility: 0.2}

	cases := []struct {
		name   string
		mutate func(*Inputs)
	}{
		{"zero time", func(in *Inputs) { in.TimeYears = 0 }},
		{"negative time", func(in *Inputs) { in.TimeYears = -0.5 }},
		{"zero vol", func(in *Inputs) { in.Volatility = 0 }},
		{"zero spot", func(in *Inputs) { in.Spot = 0 }},
		{"zero strike", func(in *Inputs) { in.Strike = 0 }},
	}

	for _, tc := range cases {
		in := base
		tc.mutate(&in)
		_, err := Compute("call", in)
		if !errors.Is(err, ErrDegenerateInput) {
			t.Errorf("%s: expected ErrDegenerateInput, got %v", tc.name, err)
		}
	}
}

func TestCompute_UnknownOptionType(t *testing.T) {
	in := Inputs{Spot: 5000, Strike: 5000, TimeYears: 0.1, Rate: 0.045, Volatility: 0.2}
	if _, err := Compute("straddle", in); err == nil {
		t.Error("expected error for unknown option type")
	}
}

func TestTimeToExpiry(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	tYears, err := TimeToExpiry("2026-09-18", now)
	if err != nil {
		t.Fatal(err)
	}
	if tYears <= 0 || tYears > 0.1 {
		t.Errorf("expected small positive year fraction, got %v", tYears)
	}

	// Past expirations clamp to zero
	past, err := TimeToExpiry("2026-08-01", now)
	if err != nil {
		t.Fatal(err)
	}
	if past != 0 {
		t.Errorf("expected 0 for expired date, got %v", past)
	}

	if _, err := TimeToExpiry("09/18/2026", now); err == nil {
		t.Error("expected error for bad date format")
	}
}

func TestIsMarketDay(t *testing.T) {
	if !IsMarketDay("2026-09-18") { // a Friday
		t.Error("expected 2026-09-18 to be a market day")
	}
	if IsMarketDay("2026-09-19") { // a Saturday
		t.Error("expected 2026-09-19 to be a non-market day")
	}
}
