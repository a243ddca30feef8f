package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/expenseasy/expenseasy_backend/internal/apperrors"
	"github.com/expenseasy/expenseasy_backend/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRateFetcher is a mock for the external rate provider port.
type MockRateFetcher struct {
	mock.Mock
}

func (m *MockRateFetcher) FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	args := m.Called(ctx, from, to)
	rate, _ := args.Get(0).(decimal.Decimal)
	return rate, args.Error(1)
}

func TestGetRate_CachesWithinTTL(t *testing.T) {
	ctx := context.Background()
	fetcher := new(MockRateFetcher)
	svc := services.NewExchangeRateService(fetcher, time.Hour)

	fetcher.On("FetchRate", ctx, "USD", "EUR").Return(decimal.NewFromFloat(0.92), nil).Once()

	first, err := svc.GetRate(ctx, "usd", "eur")
	require.NoError(t, err)
	assert.Equal(t, "USD", first.From)
	assert.Equal(t, "EUR", first.To)
	assert.True(t, first.Rate.Equal(decimal.NewFromFloat(0.92)))

	// Second lookup within the TTL must not touch the provider.
	second, err := svc.GetRate(ctx, "USD", "EUR")
	require.NoError(t, err)
	assert.True(t, second.Rate.Equal(first.Rate))
	fetcher.AssertNumberOfCalls(t, "FetchRate", 1)
}

func TestGetRate_SameCurrencyIsIdentity(t *testing.T) {
	ctx := context.Background()
	fetcher := new(MockRateFetcher)
	svc := services.NewExchangeRateService(fetcher, time.Hour)

	quote, err := svc.GetRate(ctx, "USD", "usd")
	require.NoError(t, err)
	assert.True(t, quote.Rate.Equal(decimal.NewFromInt(1)))
	fetcher.AssertNotCalled(t, "FetchRate", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetRate_InvalidCodeFailsValidation(t *testing.T) {
	ctx := context.Background()
	svc := services.NewExchangeRateService(new(MockRateFetcher), time.Hour)

	_, err := svc.GetRate(ctx, "US", "EUR")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGetRate_ServesStaleQuoteWhenProviderFails(t *testing.T) {
	ctx := context.Background()
	fetcher := new(MockRateFetcher)
	// Zero TTL falls back to the default inside the constructor, so use a
	// tiny one to force expiry between the two calls.
	svc := services.NewExchangeRateService(fetcher, time.Nanosecond)

	fetcher.On("FetchRate", ctx, "USD", "EUR").Return(decimal.NewFromFloat(0.92), nil).Once()
	fetcher.On("FetchRate", ctx, "USD", "EUR").Return(decimal.Decimal{}, errors.New("provider down")).Once()

	first, err := svc.GetRate(ctx, "USD", "EUR")
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	stale, err := svc.GetRate(ctx, "USD", "EUR")
	require.NoError(t, err)
	assert.True(t, stale.Rate.Equal(first.Rate))
	fetcher.AssertExpectations(t)
}

func TestGetRate_ProviderFailureWithoutCacheErrors(t *testing.T) {
	ctx := context.Background()
	fetcher := new(MockRateFetcher)
	svc := services.NewExchangeRateService(fetcher, time.Hour)

	fetcher.On("FetchRate", ctx, "USD", "EUR").Return(decimal.Decimal{}, errors.New("provider down")).Once()

	_, err := svc.GetRate(ctx, "USD", "EUR")
	require.Error(t, err)
}

func TestConvertAmount(t *testing.T) {
	ctx := context.Background()
	fetcher := new(MockRateFetcher)
	svc := services.NewExchangeRateService(fetcher, time.Hour)

	fetcher.On("FetchRate", ctx, "USD", "EUR").Return(decimal.NewFromFloat(0.92), nil).Once()

	quote, converted, err := svc.ConvertAmount(ctx, "USD", "EUR", decimal.NewFromFloat(100))
	require.NoError(t, err)
	assert.Equal(t, "EUR", quote.To)
	assert.True(t, converted.Equal(decimal.NewFromInt(92)))
}

func TestConvertAmount_NegativeAmountFailsValidation(t *testing.T) {
	ctx := context.Background()
	svc := services.NewExchangeRateService(new(MockRateFetcher), time.Hour)

	_, _, err := svc.ConvertAmount(ctx, "USD", "EUR", decimal.NewFromInt(-5))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
