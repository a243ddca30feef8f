package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RateQuote is an exchange rate with the time it was fetched.
type RateQuote struct {
	From      string
	To        string
	Rate      decimal.Decimal
	FetchedAt time.Time
}

// RateFetcher retrieves a fresh exchange rate from an external provider.
// Network-bound work lives behind this port and never participates in any
// expense transaction.
type RateFetcher interface {
	FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// ExchangeRateSvcFacade serves conversion quotes through a TTL cache.
type ExchangeRateSvcFacade interface {
	GetRate(ctx context.Context, from, to string) (*RateQuote, error)
	ConvertAmount(ctx context.Context, from, to string, amount decimal.Decimal) (*RateQuote, decimal.Decimal, error)
}
