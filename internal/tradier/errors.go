package tradier

import "errors"

var (
	ErrUpstream    = errors.New("tradier request failed")
	ErrMalformed   = errors.New("malformed tradier response")
	ErrRateLimited = errors.New("rate limited by tradier")
)
