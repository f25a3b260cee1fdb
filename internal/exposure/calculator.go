package exposure

import "github.com/dgnsrekt/spx-greeks-api/internal/greeks"

// contractMultiplier is the standard equity-option contract size.
const contractMultiplier = 100

// FromGreeks converts one contract's Greeks and open interest into its four
// signed exposure contributions under the dealer-short convention
// (dealers are short the customer open interest, so exposure = -OI * greek).
// Malformed open interest contributes zero without dropping the contract.
func FromGreeks(g greeks.Greeks, openInterest int64, spot float64) Vector {
	if openInterest < 0 {
		openInterest = 0
	}
	oi := float64(openInterest)

	return Vector{
		GEX: -oi * g.Gamma * spot * spot * contractMultiplier,
		DEX: -oi * g.Delta * spot * contractMultiplier,
		VEX: -oi * g.Vanna * spot * contractMultiplier,
		CEX: -oi * g.Charm * spot * contractMultiplier,
	}
}
