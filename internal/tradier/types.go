package tradier

// Quote is a point-in-time underlying snapshot.
type Quote struct {
	Symbol    string  `json:"symbol"`
	Last      float64 `json:"last"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Volume    int64   `json:"volume"`
	Timestamp string  `json:"timestamp"`
}

// Contract is a single option from a chain snapshot. Optional fields use
// pointers so absence stays distinguishable from zero.
type Contract struct {
	Symbol            string   `json:"symbol"`
	OptionType        string   `json:"option_type"` // "call" or "put"
	Strike            float64  `json:"strike"`
	ExpirationDate    string   `json:"expiration_date"`
	Bid               float64  `json:"bid"`
	Ask               float64  `json:"ask"`
	Last              float64  `json:"last"`
	Volume            int64    `json:"volume"`
	OpenInterest      int64    `json:"open_interest"`
	ImpliedVolatility *float64 `json:"implied_volatility,omitempty"`
}

// IsCall reports whether the contract is a call.
func (c *Contract) IsCall() bool {
	return c.OptionType == "call"
}
