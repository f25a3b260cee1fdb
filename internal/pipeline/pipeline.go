package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/spx-greeks-api/internal/exposure"
	"github.com/dgnsrekt/spx-greeks-api/internal/marketdata"
	"github.com/dgnsrekt/spx-greeks-api/internal/regime"
	"github.com/dgnsrekt/spx-greeks-api/internal/tradier"
)

// ExpirationAll selects every available expiration.
const ExpirationAll = "ALL"

// ErrNoData signals an empty chain or a chain where every contract was
// excluded; the consumer distinguishes "no market data" from a system error.
var ErrNoData = errors.New("no options market data available")

// Options bound the pipeline's work per request.
type Options struct {
	StrikeWindowPct      float64 // keep strikes within spot*(1 +/- pct)
	MaxExpirations       int     // ALL-mode expiration cap for exposures
	MaxMatrixExpirations int     // expiration cap for the matrix
	MaxMatrixStrikes     int     // strike-axis cap for the matrix
	DefaultVIXRegime     regime.VIXRegime
}

// Pipeline runs the derivation chain for one request: cache snapshot ->
// Greeks -> exposures -> aggregation -> classification -> response.
// Everything downstream of the cache is stateless and safe to run
// concurrently per request.
type Pipeline struct {
	market  *marketdata.Service
	agg     *exposure.Aggregator
	terrain *regime.TerrainClassifier
	opts    Options
	now     func() time.Time
	logger  *zap.Logger
}

func New(market *marketdata.Service, agg *exposure.Aggregator, terrain *regime.TerrainClassifier, opts Options, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		market:  market,
		agg:     agg,
		terrain: terrain,
		opts:    opts,
		now:     time.Now,
		logger:  logger,
	}
}

// Exposures produces the classified per-strike response for one expiration
// or, with ExpirationAll, the merged view across the nearest expirations.
func (p *Pipeline) Exposures(ctx context.Context, expiration string, vix regime.VIXRegime) (*ExposuresResponse, error) {
	vixUsed, vixWarning := vix.Resolve(p.opts.DefaultVIXRegime)

	quote, err := p.market.Quote(ctx)
	if err != nil {
		return nil, err
	}

	var strikes []exposure.StrikeTotal
	if expiration == ExpirationAll {
		aggs, err := p.aggregateAll(ctx, quote.Last, p.opts.MaxExpirations)
		if err != nil {
			return nil, err
		}
		strikes = exposure.MergeByStrike(aggs)
	} else {
		agg, err := p.aggregateOne(ctx, expiration, quote.Last)
		if err != nil {
			return nil, err
		}
		strikes = agg.Strikes
	}

	if len(strikes) == 0 {
		return nil, ErrNoData
	}

	thresholds := regime.ThresholdsFor(strikes)

	rows := make([]StrikeData, 0, len(strikes))
	for i := range strikes {
		rows = append(rows, p.classifyStrike(&strikes[i], thresholds, quote.Last))
	}

	total := exposure.TotalOf(strikes)
	aggSigns := regime.ClassifyVector(total, thresholds)
	conductivity, notes := regime.Conductivity(aggSigns, vixUsed)

	return &ExposuresResponse{
		Timestamp:  p.now().Format(time.RFC3339),
		Spot:       quote.Last,
		Expiration: expiration,
		Aggregate: AggregateData{
			GEX:          total.GEX,
			DEX:          total.DEX,
			VEX:          total.VEX,
			CEX:          total.CEX,
			Regime:       aggSigns,
			RegimeCode:   aggSigns.Code(),
			Conductivity: conductivity,
			Notes:        notes,
		},
		VIXRegimeUsed: string(vixUsed),
		Strikes:       rows,
		VIXWarning:    vixWarning,
	}, nil
}

// Matrix produces the heatmap response for one metric across the nearest
// expirations.
func (p *Pipeline) Matrix(ctx context.Context, metric exposure.Metric, vix regime.VIXRegime) (*MatrixResponse, error) {
	vixUsed, vixWarning := vix.Resolve(p.opts.DefaultVIXRegime)

	quote, err := p.market.Quote(ctx)
	if err != nil {
		return nil, err
	}

	aggs, err := p.aggregateAll(ctx, quote.Last, p.opts.MaxMatrixExpirations)
	if err != nil {
		return nil, err
	}

	matrix := exposure.BuildMatrix(metric, aggs, p.opts.MaxMatrixStrikes)
	if len(matrix.Strikes) == 0 {
		return nil, ErrNoData
	}

	details := make(map[string]StrikeMatrixDetail, len(matrix.Strikes))
	for _, agg := range aggs {
		thresholds := regime.ThresholdsFor(agg.Strikes)
		for i := range agg.Strikes {
			st := &agg.Strikes[i]
			key := exposure.StrikeKey(st.Strike)
			if _, seen := details[key]; seen {
				continue
			}
			row := p.classifyStrike(st, thresholds, quote.Last)
			details[key] = StrikeMatrixDetail{
				RegimeCode:     row.RegimeCode,
				Classification: row.Classification,
				PatternFlags:   row.PatternFlags,
				GEX:            row.GEX,
				DEX:            row.DEX,
				VEX:            row.VEX,
				CEX:            row.CEX,
				CallOI:         row.CallOI,
				PutOI:          row.PutOI,
			}
		}
	}
	// Trim details to the capped strike axis
	keep := make(map[string]bool, len(matrix.Strikes))
	for _, s := range matrix.Strikes {
		keep[exposure.StrikeKey(s)] = true
	}
	for key := range details {
		if !keep[key] {
			delete(details, key)
		}
	}

	return &MatrixResponse{
		Timestamp:     p.now().Format(time.RFC3339),
		Spot:          quote.Last,
		Metric:        string(metric),
		XExpirations:  matrix.Expirations,
		YStrikes:      matrix.Strikes,
		Z:             matrix.Z,
		StrikeDetails: details,
		VIXRegimeUsed: string(vixUsed),
		VIXWarning:    vixWarning,
	}, nil
}

// Spot returns the cached quote.
func (p *Pipeline) Spot(ctx context.Context) (*SpotResponse, error) {
	quote, err := p.market.Quote(ctx)
	if err != nil {
		return nil, err
	}
	return &SpotResponse{
		Symbol:    quote.Symbol,
		Last:      quote.Last,
		Bid:       quote.Bid,
		Ask:       quote.Ask,
		Volume:    quote.Volume,
		Timestamp: quote.Timestamp,
	}, nil
}

// Expirations returns the cached expiration list.
func (p *Pipeline) Expirations(ctx context.Context) (*ExpirationsResponse, error) {
	dates, err := p.market.Expirations(ctx)
	if err != nil {
		return nil, err
	}
	return &ExpirationsResponse{Expirations: dates}, nil
}

// classifyStrike builds one response row from a strike total.
func (p *Pipeline) classifyStrike(st *exposure.StrikeTotal, th regime.Thresholds, spot float64) StrikeData {
	signs := regime.ClassifyVector(st.Vector, th)
	code := signs.Code()
	classification, flags := p.terrain.ClassifyStrike(code, spot, st.Strike)

	return StrikeData{
		Strike:         st.Strike,
		GEX:            st.GEX,
		DEX:            st.DEX,
		VEX:            st.VEX,
		CEX:            st.CEX,
		Regime:         signs,
		RegimeCode:     code,
		Classification: classification,
		PatternFlags:   flags,
		CallOI:         st.CallOI,
		PutOI:          st.PutOI,
		Meta: StrikeMeta{
			IVCall: st.IVCall,
			IVPut:  st.IVPut,
			TYears: st.TimeYears,
			R:      p.agg.Rate(),
			Q:      p.agg.Dividend(),
		},
	}
}

// aggregateOne fetches, filters and aggregates a single expiration's chain.
func (p *Pipeline) aggregateOne(ctx context.Context, expiration string, spot float64) (*exposure.ChainAggregate, error) {
	contracts, err := p.market.Chain(ctx, expiration)
	if err != nil {
		return nil, err
	}

	filtered := p.filterStrikes(contracts, spot)
	agg := p.agg.AggregateChain(expiration, filtered, spot)
	if agg.Processed == 0 {
		return nil, fmt.Errorf("%w: expiration %s", ErrNoData, expiration)
	}
	return agg, nil
}

// aggregateAll aggregates the nearest expirations, skipping ones that fail
// so a single bad chain does not take down the combined view.
func (p *Pipeline) aggregateAll(ctx context.Context, spot float64, limit int) ([]*exposure.ChainAggregate, error) {
	dates, err := p.market.Expirations(ctx)
	if err != nil {
		return nil, err
	}
	if len(dates) > limit {
		dates = dates[:limit]
	}

	aggs := make([]*exposure.ChainAggregate, 0, len(dates))
	for _, date := range dates {
		agg, err := p.aggregateOne(ctx, date, spot)
		if err != nil {
			p.logger.Warn("skipping expiration",
				zap.String("expiration", date),
				zap.Error(err),
			)
			continue
		}
		aggs = append(aggs, agg)
	}

	if len(aggs) == 0 {
		return nil, ErrNoData
	}
	return aggs, nil
}

// filterStrikes drops contracts outside the configured window around spot.
func (p *Pipeline) filterStrikes(contracts []tradier.Contract, spot float64) []tradier.Contract {
	lo := spot * (1 - p.opts.StrikeWindowPct)
	hi := spot * (1 + p.opts.StrikeWindowPct)

	kept := make([]tradier.Contract, 0, len(contracts))
	for _, c := range contracts {
		if c.Strike >= lo && c.Strike <= hi {
			kept = append(kept, c)
		}
	}

	if dropped := len(contracts) - len(kept); dropped > 0 {
		p.logger.Debug("filtered strikes outside window",
			zap.Int("dropped", dropped),
			zap.Int("kept", len(kept)),
			zap.Float64("lo", lo),
			zap.Float64("hi", hi),
		)
	}
	return kept
}
