package exposure

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/spx-greeks-api/internal/greeks"
	"github.com/dgnsrekt/spx-greeks-api/internal/tradier"
)

// Aggregator folds per-contract exposures into per-strike, per-expiration
// and all-expiration totals. It is stateless apart from configuration and
// safe for concurrent use.
type Aggregator struct {
	rate     float64
	dividend float64
	now      func() time.Time
	logger   *zap.Logger
}

func NewAggregator(riskFreeRate, dividendYield float64, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		rate:     riskFreeRate,
		dividend: dividendYield,
		now:      time.Now,
		logger:   logger,
	}
}

// Rate returns the configured risk-free rate.
func (a *Aggregator) Rate() float64 { return a.rate }

// Dividend returns the configured dividend yield.
func (a *Aggregator) Dividend() float64 { return a.dividend }

// AggregateChain sums one expiration's contracts into per-strike totals.
// Contracts without implied volatility and contracts with degenerate pricing
// inputs are skipped and counted; open interest still accrues to the strike
// either way so OI columns reflect the full chain.
//
// Accumulation order is ascending strike, calls before puts, so float64
// sums are reproducible for identical inputs.
func (a *Aggregator) AggregateChain(expiration string, contracts []tradier.Contract, spot float64) *ChainAggregate {
	ordered := make([]tradier.Contract, len(contracts))
	copy(ordered, contracts)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Strike != ordered[j].Strike {
			return ordered[i].Strike < ordered[j].Strike
		}
		if ordered[i].OptionType != ordered[j].OptionType {
			return ordered[i].OptionType < ordered[j].OptionType
		}
		return ordered[i].Symbol < ordered[j].Symbol
	})

	tYears, err := greeks.TimeToExpiry(expiration, a.now())
	if err != nil {
		a.logger.Warn("unparseable expiration date", zap.String("expiration", expiration), zap.Error(err))
	}
	if !greeks.IsMarketDay(expiration) {
		a.logger.Warn("expiration is not an NYSE business day", zap.String("expiration", expiration))
	}

	agg := &ChainAggregate{Expiration: expiration}
	var current *StrikeTotal

	for i := range ordered {
		c := &ordered[i]

		if current == nil || current.Strike != c.Strike {
			agg.Strikes = append(agg.Strikes, StrikeTotal{Strike: c.Strike, TimeYears: tYears})
			current = &agg.Strikes[len(agg.Strikes)-1]
		}

		oi := c.OpenInterest
		if oi < 0 {
			oi = 0
		}
		if c.IsCall() {
			current.CallOI += oi
			if current.IVCall == nil && c.ImpliedVolatility != nil {
				current.IVCall = c.ImpliedVolatility
			}
		} else {
			current.PutOI += oi
			if current.IVPut == nil && c.ImpliedVolatility != nil {
				current.IVPut = c.ImpliedVolatility
			}
		}

		if c.ImpliedVolatility == nil {
			agg.Skipped++
			continue
		}

		g, err := greeks.Compute(c.OptionType, greeks.Inputs{
			Spot:       spot,
			Strike:     c.Strike,
			TimeYears:  tYears,
			Rate:       a.rate,
			Dividend:   a.dividend,
			Volatility: *c.ImpliedVolatility,
		})
		if err != nil {
			agg.Skipped++
			continue
		}

		v := FromGreeks(g, oi, spot)
		current.Vector = current.Vector.Add(v)
		agg.Total = agg.Total.Add(v)
		agg.Processed++
	}

	if agg.Skipped > 0 {
		a.logger.Debug("contracts skipped during aggregation",
			zap.String("expiration", expiration),
			zap.Int("processed", agg.Processed),
			zap.Int("skipped", agg.Skipped),
		)
	}

	return agg
}

// MergeByStrike folds several expirations' per-strike totals into one
// per-strike view. Aggregates must be passed in chronological order; strikes
// come out ascending.
func MergeByStrike(aggs []*ChainAggregate) []StrikeTotal {
	merged := make(map[float64]*StrikeTotal)
	var order []float64

	for _, agg := range aggs {
		for i := range agg.Strikes {
			st := &agg.Strikes[i]
			m, ok := merged[st.Strike]
			if !ok {
				cp := *st
				merged[st.Strike] = &cp
				order = append(order, st.Strike)
				continue
			}
			m.Vector = m.Vector.Add(st.Vector)
			m.CallOI += st.CallOI
			m.PutOI += st.PutOI
			if m.IVCall == nil {
				m.IVCall = st.IVCall
			}
			if m.IVPut == nil {
				m.IVPut = st.IVPut
			}
		}
	}

	sort.Float64s(order)
	out := make([]StrikeTotal, 0, len(order))
	for _, strike := range order {
		out = append(out, *merged[strike])
	}
	return out
}

// TotalOf sums per-strike totals into one all-combined vector, ascending
// strike order for reproducible accumulation.
func TotalOf(strikes []StrikeTotal) Vector {
	var total Vector
	for i := range strikes {
		total = total.Add(strikes[i].Vector)
	}
	return total
}
