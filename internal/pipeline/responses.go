package pipeline

import (
	"github.com/dgnsrekt/spx-greeks-api/internal/regime"
)

// StrikeMeta carries the pricing context for one strike row. Optional
// fields are pointers so absence is explicit in the JSON.
type StrikeMeta struct {
	IVCall *float64 `json:"iv_call,omitempty"`
	IVPut  *float64 `json:"iv_put,omitempty"`
	TYears float64  `json:"t_years"`
	R      float64  `json:"r"`
	Q      float64  `json:"q"`
}

// StrikeData is one classified strike row of the exposures response.
type StrikeData struct {
	Strike         float64      `json:"strike"`
	GEX            float64      `json:"gex"`
	DEX            float64      `json:"dex"`
	VEX            float64      `json:"vex"`
	CEX            float64      `json:"cex"`
	Regime         regime.Signs `json:"regime"`
	RegimeCode     string       `json:"regime_code"`
	Classification string       `json:"classification"`
	PatternFlags   []string     `json:"pattern_flags"`
	CallOI         int64        `json:"call_oi"`
	PutOI          int64        `json:"put_oi"`
	Meta           StrikeMeta   `json:"meta"`
}

// AggregateData is the all-strikes rollup with its conductivity read.
type AggregateData struct {
	GEX          float64      `json:"gex"`
	DEX          float64      `json:"dex"`
	VEX          float64      `json:"vex"`
	CEX          float64      `json:"cex"`
	Regime       regime.Signs `json:"regime"`
	RegimeCode   string       `json:"regime_code"`
	Conductivity string       `json:"conductivity"`
	Notes        string       `json:"notes"`
}

// ExposuresResponse is the per-strike exposures payload.
type ExposuresResponse struct {
	Timestamp     string        `json:"timestamp"`
	Spot          float64       `json:"spot"`
	Expiration    string        `json:"expiration"`
	Aggregate     AggregateData `json:"aggregate"`
	VIXRegimeUsed string        `json:"vix_regime_used"`
	Strikes       []StrikeData  `json:"strikes"`
	VIXWarning    string        `json:"vix_warning,omitempty"`
}

// StrikeMatrixDetail decorates one strike on the matrix axis.
type StrikeMatrixDetail struct {
	RegimeCode     string   `json:"regime_code"`
	Classification string   `json:"classification"`
	PatternFlags   []string `json:"pattern_flags"`
	GEX            float64  `json:"gex"`
	DEX            float64  `json:"dex"`
	VEX            float64  `json:"vex"`
	CEX            float64  `json:"cex"`
	CallOI         int64    `json:"call_oi"`
	PutOI          int64    `json:"put_oi"`
}

// MatrixResponse is the heatmap payload: one metric across
// expiration x strike.
type MatrixResponse struct {
	Timestamp     string                        `json:"timestamp"`
	Spot          float64                       `json:"spot"`
	Metric        string                        `json:"metric"`
	XExpirations  []string                      `json:"x_expirations"`
	YStrikes      []float64                     `json:"y_strikes"`
	Z             [][]float64                   `json:"z"`
	StrikeDetails map[string]StrikeMatrixDetail `json:"strike_details"`
	VIXRegimeUsed string                        `json:"vix_regime_used"`
	VIXWarning    string                        `json:"vix_warning,omitempty"`
}

// SpotResponse is the quote payload.
type SpotResponse struct {
	Symbol    string  `json:"symbol"`
	Last      float64 `json:"last"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Volume    int64   `json:"volume"`
	Timestamp string  `json:"timestamp"`
}

// ExpirationsResponse lists the available chain expirations.
type ExpirationsResponse struct {
	Expirations []string `json:"expirations"`
}

// ConfigResponse exposes the derivation settings for introspection.
type ConfigResponse struct {
	NeutralThresholdMethod string `json:"neutral_threshold_method"`
	CacheTTLSeconds        int    `json:"cache_ttl_seconds"`
	DefaultVIXRegime       string `json:"default_vix_regime"`
}
