package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/expenseasy/expenseasy_backend/internal/apperrors"
	portssvc "github.com/expenseasy/expenseasy_backend/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// exchangeRateService serves conversion quotes through a per-pair TTL cache so
// expense displays in the company currency do not hit the external provider
// on every request.
type exchangeRateService struct {
	BaseService
	fetcher portssvc.RateFetcher
	ttl     time.Duration

	mu    sync.RWMutex
	cache map[string]portssvc.RateQuote
}

// NewExchangeRateService creates a new exchange rate service.
func NewExchangeRateService(fetcher portssvc.RateFetcher, ttl time.Duration) portssvc.ExchangeRateSvcFacade {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &exchangeRateService{
		fetcher: fetcher,
		ttl:     ttl,
		cache:   make(map[string]portssvc.RateQuote),
	}
}

var _ portssvc.ExchangeRateSvcFacade = (*exchangeRateService)(nil)

// GetRate returns the rate for a currency pair, fetching it from the provider
// when the cached quote is missing or older than the TTL.
func (s *exchangeRateService) GetRate(ctx context.Context, from, to string) (*portssvc.RateQuote, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if len(from) != 3 || len(to) != 3 {
		return nil, apperrors.NewValidationFailedError("currency codes must be 3 letters")
	}
	if from == to {
		return &portssvc.RateQuote{From: from, To: to, Rate: decimal.NewFromInt(1), FetchedAt: time.Now()}, nil
	}

	key := from + "/" + to

	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok && time.Since(cached.FetchedAt) < s.ttl {
		return &cached, nil
	}

	rate, err := s.fetcher.FetchRate(ctx, from, to)
	if err != nil {
		// A stale quote beats no quote when the provider is down.
		if ok {
			s.LogError(ctx, err, "Rate fetch failed, serving stale quote", "pair", key)
			return &cached, nil
		}
		return nil, fmt.Errorf("failed to fetch exchange rate for %s: %w", key, err)
	}

	quote := portssvc.RateQuote{From: from, To: to, Rate: rate, FetchedAt: time.Now()}
	s.mu.Lock()
	s.cache[key] = quote
	s.mu.Unlock()
	return &quote, nil
}

// ConvertAmount converts an amount between currencies using the cached rate.
func (s *exchangeRateService) ConvertAmount(ctx context.Context, from, to string, amount decimal.Decimal) (*portssvc.RateQuote, decimal.Decimal, error) {
	if amount.IsNegative() {
		return nil, decimal.Zero, apperrors.NewValidationFailedError("amount cannot be negative")
	}
	quote, err := s.GetRate(ctx, from, to)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return quote, amount.Mul(quote.Rate).Round(4), nil
}
