package handlers

import (
	"net/http"

	portssvc "github.com/expenseasy/expenseasy_backend/internal/core/ports/services"
	"github.com/expenseasy/expenseasy_backend/internal/dto"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// exchangeRateHandler serves cached conversion quotes.
type exchangeRateHandler struct {
	rateService portssvc.ExchangeRateSvcFacade
}

func newExchangeRateHandler(rs portssvc.ExchangeRateSvcFacade) *exchangeRateHandler {
	return &exchangeRateHandler{rateService: rs}
}

// registerExchangeRateRoutes registers the exchange-rate routes.
func registerExchangeRateRoutes(rg *gin.RouterGroup, rateService portssvc.ExchangeRateSvcFacade) {
	h := newExchangeRateHandler(rateService)

	rates := rg.Group("/exchange-rates")
	{
		rates.GET("", h.getRate)
		rates.GET("/convert", h.convert)
	}
}

// getRate godoc
// @Summary Get an exchange rate
// @Description Returns the cached (or freshly fetched) rate between two currencies
// @Tags exchange-rates
// @Produce  json
// @Param   from query string true "From currency code"
// @Param   to query string true "To currency code"
// @Success 200 {object} dto.ExchangeRateResponse
// @Failure 400 {object} ErrorResponse "Invalid currency codes"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /exchange-rates [get]
func (h *exchangeRateHandler) getRate(c *gin.Context) {
	if _, ok := mustUserID(c); !ok {
		return
	}

	quote, err := h.rateService.GetRate(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err, "Failed to fetch exchange rate")
		return
	}

	c.JSON(http.StatusOK, dto.ExchangeRateResponse{
		From:      quote.From,
		To:        quote.To,
		Rate:      quote.Rate,
		FetchedAt: quote.FetchedAt,
	})
}

// convert godoc
// @Summary Convert an amount between currencies
// @Description Converts an amount using the cached exchange rate
// @Tags exchange-rates
// @Produce  json
// @Param   from query string true "From currency code"
// @Param   to query string true "To currency code"
// @Param   amount query string true "Amount to convert"
// @Success 200 {object} dto.ConvertAmountResponse
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /exchange-rates/convert [get]
func (h *exchangeRateHandler) convert(c *gin.Context) {
	if _, ok := mustUserID(c); !ok {
		return
	}

	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid amount: " + err.Error()})
		return
	}

	quote, converted, err := h.rateService.ConvertAmount(c.Request.Context(), c.Query("from"), c.Query("to"), amount)
	if err != nil {
		respondError(c, err, "Failed to convert amount")
		return
	}

	c.JSON(http.StatusOK, dto.ConvertAmountResponse{
		From:      quote.From,
		To:        quote.To,
		Rate:      quote.Rate,
		Amount:    amount,
		Converted: converted,
		FetchedAt: quote.FetchedAt,
	})
}
