package marketdata

import (
	"context"
	"fmt"

	"github.com/dgnsrekt/spx-greeks-api/internal/tradier"
)

// Service serves quote, expiration-list and chain snapshots for one
// underlying through the TTL cache.
type Service struct {
	provider tradier.Provider
	cache    *Cache
	symbol   string
}

func NewService(provider tradier.Provider, cache *Cache, symbol string) *Service {
	return &Service{
		provider: provider,
		cache:    cache,
		symbol:   symbol,
	}
}

// Symbol returns the underlying this service is bound to.
func (s *Service) Symbol() string {
	return s.symbol
}

func (s *Service) Quote(ctx context.Context) (*tradier.Quote, error) {
	v, err := s.cache.Get(ctx, "quote", func(ctx context.Context) (any, error) {
		return s.provider.GetQuote(ctx, s.symbol)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching quote: %w", err)
	}
	return v.(*tradier.Quote), nil
}

func (s *Service) Expirations(ctx context.Context) ([]string, error) {
	v, err := s.cache.Get(ctx, "expirations", func(ctx context.Context) (any, error) {
		return s.provider.GetExpirations(ctx, s.symbol)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching expirations: %w", err)
	}
	return v.([]string), nil
}

func (s *Service) Chain(ctx context.Context, expiration string) ([]tradier.Contract, error) {
	v, err := s.cache.Get(ctx, "chain/"+expiration, func(ctx context.Context) (any, error) {
		return s.provider.GetChain(ctx, s.symbol, expiration)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching chain for %s: %w", expiration, err)
	}
	return v.([]tradier.Contract), nil
}
