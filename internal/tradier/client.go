package tradier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Provider is the upstream market-data contract consumed by the cache layer.
type Provider interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
	GetExpirations(ctx context.Context, symbol string) ([]string, error)
	GetChain(ctx context.Context, symbol, expiration string) ([]Contract, error)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
	retryCount int
	retryDelay time.Duration
	logger     *zap.Logger
}

var _ Provider = (*Client)(nil)

func NewClient(baseURL, token string, ratePerSec int, timeout, retryDelay time.Duration, retryCount int, logger *zap.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:       100,
		MaxConnsPerHost:    10,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: false,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL:    baseURL,
		token:      token,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec*2),
		retryCount: retryCount,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	params := url.Values{"symbols": {symbol}}

	body, err := c.get(ctx, "/markets/quotes", params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Quotes struct {
			Quote json.RawMessage `json:"quote"`
		} `json:"quotes"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding quote: %v", ErrMalformed, err)
	}
	if payload.Quotes.Quote == nil {
		return nil, fmt.Errorf("%w: no quote for %s", ErrMalformed, symbol)
	}

	var raw struct {
		Symbol    string      `json:"symbol"`
		Last      float64     `json:"last"`
		Bid       float64     `json:"bid"`
		Ask       float64     `json:"ask"`
		Volume    int64       `json:"volume"`
		TradeDate json.Number `json:"trade_date"`
	}
	if err := json.Unmarshal(payload.Quotes.Quote, &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding quote fields: %v", ErrMalformed, err)
	}
	if raw.Last <= 0 {
		return nil, fmt.Errorf("%w: non-positive last price for %s", ErrMalformed, symbol)
	}

	return &Quote{
		Symbol:    raw.Symbol,
		Last:      raw.Last,
		Bid:       raw.Bid,
		Ask:       raw.Ask,
		Volume:    raw.Volume,
		Timestamp: raw.TradeDate.String(),
	}, nil
}

func (c *Client) GetExpirations(ctx context.Context, symbol string) ([]string, error) {
	params := url.Values{
		"symbol":          {symbol},
		"includeAllRoots": {"true"},
		"strikes":         {"false"},
	}

	body, err := c.get(ctx, "/markets/options/expirations", params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Expirations struct {
			Date json.RawMessage `json:"date"`
		} `json:"expirations"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding expirations: %v", ErrMalformed, err)
	}
	if payload.Expirations.Date == nil {
		return nil, fmt.Errorf("%w: no expirations for %s", ErrMalformed, symbol)
	}

	// Tradier collapses single-element arrays to a scalar.
	var dates []string
	if err := json.Unmarshal(payload.Expirations.Date, &dates); err != nil {
		var single string
		if err := json.Unmarshal(payload.Expirations.Date, &single); err != nil {
			return nil, fmt.Errorf("%w: decoding expiration dates: %v", ErrMalformed, err)
		}
		dates = []string{single}
	}

	return dates, nil
}

func (c *Client) GetChain(ctx context.Context, symbol, expiration string) ([]Contract, error) {
	params := url.Values{
		"symbol":     {symbol},
		"expiration": {expiration},
		"greeks":     {"true"},
	}

	body, err := c.get(ctx, "/markets/options/chains", params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Options struct {
			Option json.RawMessage `json:"option"`
		} `json:"options"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding chain: %v", ErrMalformed, err)
	}
	if payload.Options.Option == nil {
		return nil, nil // empty chain, not an error
	}

	var raws []rawOption
	if err := json.Unmarshal(payload.Options.Option, &raws); err != nil {
		var single rawOption
		if err := json.Unmarshal(payload.Options.Option, &single); err != nil {
			return nil, fmt.Errorf("%w: decoding chain options: %v", ErrMalformed, err)
		}
		raws = []rawOption{single}
	}

	contracts := make([]Contract, 0, len(raws))
	for _, r := range raws {
		contracts = append(contracts, r.toContract(expiration))
	}

	c.logger.Debug("chain fetched",
		zap.String("symbol", symbol),
		zap.String("expiration", expiration),
		zap.Int("contracts", len(contracts)),
	)

	return contracts, nil
}

type rawOption struct {
	Symbol       string  `json:"symbol"`
	OptionType   string  `json:"option_type"`
	Strike       float64 `json:"strike"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	Last         float64 `json:"last"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"open_interest"`
	Greeks       *struct {
		MidIV  *float64 `json:"mid_iv"`
		SmvVol *float64 `json:"smv_vol"`
	} `json:"greeks"`
}

func (r *rawOption) toContract(expiration string) Contract {
	c := Contract{
		Symbol:         r.Symbol,
		OptionType:     r.OptionType,
		Strike:         r.Strike,
		ExpirationDate: expiration,
		Bid:            r.Bid,
		Ask:            r.Ask,
		Last:           r.Last,
		Volume:         r.Volume,
		OpenInterest:   r.OpenInterest,
	}
	if r.Greeks != nil {
		if r.Greeks.MidIV != nil && *r.Greeks.MidIV > 0 {
			c.ImpliedVolatility = r.Greeks.MidIV
		} else if r.Greeks.SmvVol != nil && *r.Greeks.SmvVol > 0 {
			c.ImpliedVolatility = r.Greeks.SmvVol
		}
	}
	return c
}

// get performs an authenticated GET with rate limiting and retries.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + path + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // Exponential backoff
			c.logger.Debug("retrying request", zap.Int("attempt", attempt), zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = ErrRateLimited
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: unexpected status %d: %s", ErrUpstream, resp.StatusCode, string(body))
		}

		return body, nil
	}

	return nil, fmt.Errorf("%w: max retries exceeded: %v", ErrUpstream, lastErr)
}
