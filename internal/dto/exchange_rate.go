package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConvertAmountParams defines query parameters for a conversion quote.
type ConvertAmountParams struct {
	From   string          `form:"from" binding:"required,uppercase,len=3"`
	To     string          `form:"to" binding:"required,uppercase,len=3"`
	Amount decimal.Decimal `form:"amount" binding:"required"`
}

// ExchangeRateResponse is a cached rate between two currencies.
type ExchangeRateResponse struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// ConvertAmountResponse is a conversion quote.
type ConvertAmountResponse struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	Amount    decimal.Decimal `json:"amount"`
	Converted decimal.Decimal `json:"converted"`
	FetchedAt time.Time       `json:"fetchedAt"`
}
