package exposure

import (
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/spx-greeks-api/internal/greeks"
	"github.com/dgnsrekt/spx-greeks-api/internal/tradier"
)

func TestFromGreeks_ExactFormulas(t *testing.T) {
	g := greeks.Greeks{Delta: 0.5, Gamma: 0.002, Vanna: 0.8, Charm: -0.3}
	v := FromGreeks(g, 100, 5000)

	// GEX = -OI * gamma * spot^2 * 100
	if want := -100.0 * 0.002 * 5000 * 5000 * 100; v.GEX != want {
		t.Errorf("GEX: expected %v, got %v", want, v.GEX)
	}
	if want := -100.0 * 0.5 * 5000 * 100; v.DEX != want {
		t.Errorf("DEX: expected %v, got %v", want, v.DEX)
	}
	if want := -100.0 * 0.8 * 5000 * 100; v.VEX != want {
		t.Errorf("VEX: expected %v, got %v", want, v.VEX)
	}
	if want := -100.0 * -0.3 * 5000 * 100; v.CEX != want {
		t.Errorf("CEX: expected %v, got %v", want, v.CEX)
	}
}

func TestFromGreeks_NegativeOIContributesZero(t *testing.T) {
	g := greeks.Greeks{Delta: 0.5, Gamma: 0.002, Vanna: 0.8, Charm: -0.3}
	v := FromGreeks(g, -10, 5000)
	if v != (Vector{}) {
		t.Errorf("expected zero vector for negative OI, got %+v", v)
	}
}

func TestParseMetric(t *testing.T) {
	if m, err := ParseMetric("gex"); err != nil || m != MetricGEX {
		t.Errorf("expected GEX, got %v %v", m, err)
	}
	if _, err := ParseMetric("THETA"); err == nil {
		t.Error("expected error for unknown metric")
	}
}

func ptr(v float64) *float64 { return &v }

func testAggregator() *Aggregator {
	logger, _ := zap.NewDevelopment()
	agg := NewAggregator(0.045, 0.0, logger)
	agg.now = func() time.Time {
		return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	}
	return agg
}

func testChain() []tradier.Contract {
	return []tradier.Contract{
		{Symbol: "C5100", OptionType: "call", Strike: 5100, OpenInterest: 300, ImpliedVolatility: ptr(0.19)},
		{Symbol: "P5000", OptionType: "put", Strike: 5000, OpenInterest: 400, ImpliedVolatility: ptr(0.22)},
		{Symbol: "C5000", OptionType: "call", Strike: 5000, OpenInterest: 500, ImpliedVolatility: ptr(0.20)},
		{Symbol: "P4900", OptionType: "put", Strike: 4900, OpenInterest: 250, ImpliedVolatility: ptr(0.24)},
		{Symbol: "C4900NOIV", OptionType: "call", Strike: 4900, OpenInterest: 50}, // skipped: no IV
	}
}

func TestAggregateChain(t *testing.T) {
	agg := testAggregator()
	out := agg.AggregateChain("2026-09-18", testChain(), 5000)

	if out.Processed != 4 {
		t.Errorf("expected 4 processed, got %d", out.Processed)
	}
	if out.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", out.Skipped)
	}

	if len(out.Strikes) != 3 {
		t.Fatalf("expected 3 strikes, got %d", len(out.Strikes))
	}
	for i, want := range []float64{4900, 5000, 5100} {
		if out.Strikes[i].Strike != want {
			t.Errorf("strike %d: expected %v, got %v", i, want, out.Strikes[i].Strike)
		}
	}

	// Skipped contract's OI still accrues to the strike
	if out.Strikes[0].CallOI != 50 || out.Strikes[0].PutOI != 250 {
		t.Errorf("4900 OI: expected call 50 put 250, got %d/%d", out.Strikes[0].CallOI, out.Strikes[0].PutOI)
	}

	// Per-expiration total equals the sum over strikes
	if got := TotalOf(out.Strikes); got != out.Total {
		t.Errorf("total mismatch: strikes sum %+v, total %+v", got, out.Total)
	}

	// Puts carry positive dealer delta exposure (short negative-delta OI),
	// and long gamma OI always yields negative GEX
	if out.Total.GEX >= 0 {
		t.Errorf("expected negative GEX, got %v", out.Total.GEX)
	}

	if out.Strikes[1].IVCall == nil || *out.Strikes[1].IVCall != 0.20 {
		t.Errorf("expected iv_call 0.20 at 5000, got %v", out.Strikes[1].IVCall)
	}
	if out.Strikes[1].IVPut == nil || *out.Strikes[1].IVPut != 0.22 {
		t.Errorf("expected iv_put 0.22 at 5000, got %v", out.Strikes[1].IVPut)
	}
}

func TestAggregateChain_Deterministic(t *testing.T) {
	agg := testAggregator()

	a := agg.AggregateChain("2026-09-18", testChain(), 5000)

	// Reverse the input ordering; totals must be bit-identical
	chain := testChain()
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	b := agg.AggregateChain("2026-09-18", chain, 5000)

	if a.Total != b.Total {
		t.Errorf("aggregation not order-independent: %+v vs %+v", a.Total, b.Total)
	}
	for i := range a.Strikes {
		if a.Strikes[i].Vector != b.Strikes[i].Vector {
			t.Errorf("strike %v differs between orderings", a.Strikes[i].Strike)
		}
	}
}

func TestAggregateChain_ExpiredChainSkipsAll(t *testing.T) {
	agg := testAggregator()
	out := agg.AggregateChain("2026-08-01", testChain(), 5000)

	if out.Processed != 0 {
		t.Errorf("expected 0 processed for expired chain, got %d", out.Processed)
	}
	if out.Skipped != 5 {
		t.Errorf("expected 5 skipped, got %d", out.Skipped)
	}
	if out.Total != (Vector{}) {
		t.Errorf("expected zero total, got %+v", out.Total)
	}
}

func TestMergeByStrike(t *testing.T) {
	agg := testAggregator()
	near := agg.AggregateChain("2026-09-18", testChain(), 5000)
	far := agg.AggregateChain("2026-10-16", []tradier.Contract{
		{Symbol: "C5000F", OptionType: "call", Strike: 5000, OpenInterest: 100, ImpliedVolatility: ptr(0.21)},
		{Symbol: "P5200F", OptionType: "put", Strike: 5200, OpenInterest: 80, ImpliedVolatility: ptr(0.23)},
	}, 5000)

	merged := MergeByStrike([]*ChainAggregate{near, far})

	if len(merged) != 4 {
		t.Fatalf("expected 4 merged strikes, got %d", len(merged))
	}
	for i, want := range []float64{4900, 5000, 5100, 5200} {
		if merged[i].Strike != want {
			t.Errorf("merged strike %d: expected %v, got %v", i, want, merged[i].Strike)
		}
	}

	// 5000 strike sums both expirations
	wantGEX := near.Strikes[1].GEX + far.Strikes[0].GEX
	if math.Abs(merged[1].GEX-wantGEX) > 1e-6 {
		t.Errorf("merged 5000 GEX: expected %v, got %v", wantGEX, merged[1].GEX)
	}
	if merged[1].CallOI != 600 {
		t.Errorf("merged 5000 call OI: expected 600, got %d", merged[1].CallOI)
	}
}

func TestBuildMatrix_RoundTrip(t *testing.T) {
	agg := testAggregator()
	near := agg.AggregateChain("2026-09-18", testChain(), 5000)
	far := agg.AggregateChain("2026-10-16", []tradier.Contract{
		{Symbol: "C5000F", OptionType: "call", Strike: 5000, OpenInterest: 100, ImpliedVolatility: ptr(0.21)},
	}, 5000)

	aggs := []*ChainAggregate{near, far}
	m := BuildMatrix(MetricGEX, aggs, 0)

	if len(m.Expirations) != 2 || len(m.Strikes) != 3 {
		t.Fatalf("unexpected shape: %d expirations, %d strikes", len(m.Expirations), len(m.Strikes))
	}

	// Summing a column reproduces that expiration's aggregate total
	for j, want := range []float64{near.Total.GEX, far.Total.GEX} {
		var sum float64
		for i := range m.Strikes {
			sum += m.Z[i][j]
		}
		if math.Abs(sum-want) > math.Abs(want)*1e-12 {
			t.Errorf("column %d: expected %v, got %v", j, want, sum)
		}
	}

	// Absent cells are zero, not missing: the far expiration has no 4900 row
	row4900 := 0
	if m.Z[row4900][1] != 0 {
		t.Errorf("expected 0 for absent cell, got %v", m.Z[row4900][1])
	}
}

func TestBuildMatrix_StrikeCap(t *testing.T) {
	agg := testAggregator()
	near := agg.AggregateChain("2026-09-18", testChain(), 5000)

	m := BuildMatrix(MetricDEX, []*ChainAggregate{near}, 2)
	if len(m.Strikes) != 2 {
		t.Fatalf("expected capped strike axis of 2, got %d", len(m.Strikes))
	}
	if m.Strikes[0] != 4900 || m.Strikes[1] != 5000 {
		t.Errorf("unexpected capped strikes: %v", m.Strikes)
	}
}

func TestStrikeDetails(t *testing.T) {
	agg := testAggregator()
	near := agg.AggregateChain("2026-09-18", testChain(), 5000)
	far := agg.AggregateChain("2026-10-16", []tradier.Contract{
		{Symbol: "C5000F", OptionType: "call", Strike: 5000, OpenInterest: 100, ImpliedVolatility: ptr(0.21)},
	}, 5000)

	details := StrikeDetails([]*ChainAggregate{near, far}, []float64{4900, 5000})

	if len(details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(details))
	}

	// First expiration that carries the strike wins
	d, ok := details[StrikeKey(5000)]
	if !ok {
		t.Fatal("missing detail for 5000")
	}
	if d.CallOI != 500 {
		t.Errorf("expected near-expiration detail (call OI 500), got %d", d.CallOI)
	}
}
