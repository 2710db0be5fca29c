package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/pagination"
	"pennywise/internal/services"
	"pennywise/internal/validator"
)

// CurrencyHandler handles the owner's currencies and exchange rates.
type CurrencyHandler struct {
	currencyService services.CurrencyServicer
	auditService    services.AuditServicer
}

// NewCurrencyHandler creates a new CurrencyHandler.
func NewCurrencyHandler(currencyService services.CurrencyServicer, auditService services.AuditServicer) *CurrencyHandler {
	return &CurrencyHandler{currencyService: currencyService, auditService: auditService}
}

// CreateCurrencyRequest represents the request payload for adding a currency.
// rate is units of this currency per one unit of the default currency.
type CreateCurrencyRequest struct {
	Code   string           `json:"code" binding:"required,iso4217"`
	Name   string           `json:"name" binding:"max=100"`
	Symbol string           `json:"symbol" binding:"max=10"`
	Rate   *decimal.Decimal `json:"rate"`
}

// UpdateCurrencyRequest represents the request payload for updating a currency.
type UpdateCurrencyRequest struct {
	Name   *string          `json:"name" binding:"omitempty,min=1,max=100"`
	Symbol *string          `json:"symbol" binding:"omitempty,max=10"`
	Rate   *decimal.Decimal `json:"rate"`
}

// pathCode reads the currency code path parameter.
func pathCode(c *gin.Context) (string, error) {
	code := strings.ToUpper(c.Param("code"))
	if !validator.IsCurrencyCode(code) {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid currency code")
	}
	return code, nil
}

// CreateCurrency handles adding a currency.
// @Summary     Add a currency
// @Description Add a currency with its rate against the default currency
// @Tags        currencies
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateCurrencyRequest true "Currency details"
// @Success     201 {object} models.Currency "Currency added"
// @Failure     400 {object} ErrorResponse "Invalid input or duplicate currency"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /currencies [post]
func (h *CurrencyHandler) CreateCurrency(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	rate := decimal.Zero
	if req.Rate != nil {
		rate = *req.Rate
	}

	cur, err := h.currencyService.CreateCurrency(userID, req.Code, req.Name, req.Symbol, rate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_CURRENCY", "currency", cur.ID, c.ClientIP(),
		map[string]interface{}{"code": cur.Code, "rate": cur.Rate.String()})

	c.JSON(http.StatusCreated, gin.H{"currency": cur})
}

// GetCurrencies handles listing currencies.
// @Summary     Get currencies
// @Description Get the owner's currencies ordered by code. The default currency is always present.
// @Tags        currencies
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page     query int false "Page number (default 1)"
// @Param       pageSize query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Currency] "Paginated currencies"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /currencies [get]
func (h *CurrencyHandler) GetCurrencies(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.currencyService.GetUserCurrencies(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetCurrency handles retrieving one currency.
// @Summary     Get currency by code
// @Tags        currencies
// @Produce     json
// @Security    BearerAuth
// @Param       code path string true "ISO 4217 code"
// @Success     200 {object} models.Currency "Currency"
// @Failure     400 {object} ErrorResponse "Invalid code"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Currency not found"
// @Router      /currencies/{code} [get]
func (h *CurrencyHandler) GetCurrency(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	code, err := pathCode(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	cur, err := h.currencyService.GetCurrency(userID, code)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"currency": cur})
}

// UpdateCurrency handles changing a currency.
// @Summary     Update currency
// @Description Change the name, symbol or rate. The default currency's rate is fixed at 1.
// @Tags        currencies
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       code    path string                true "ISO 4217 code"
// @Param       request body UpdateCurrencyRequest true "Fields to change"
// @Success     200 {object} models.Currency "Updated currency"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Currency not found"
// @Router      /currencies/{code} [put]
func (h *CurrencyHandler) UpdateCurrency(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	code, err := pathCode(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	cur, err := h.currencyService.UpdateCurrency(userID, code, req.Name, req.Symbol, req.Rate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_CURRENCY", "currency", cur.ID, c.ClientIP(),
		map[string]interface{}{"code": cur.Code, "rate": cur.Rate.String()})

	c.JSON(http.StatusOK, gin.H{"currency": cur})
}

// DeleteCurrency handles removing a currency.
// @Summary     Delete currency
// @Description Remove a currency. The default currency cannot be removed.
// @Tags        currencies
// @Produce     json
// @Security    BearerAuth
// @Param       code path string true "ISO 4217 code"
// @Success     200 {object} MessageResponse "Currency deleted"
// @Failure     400 {object} ErrorResponse "Default currency"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Currency not found"
// @Router      /currencies/{code} [delete]
func (h *CurrencyHandler) DeleteCurrency(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	code, err := pathCode(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.currencyService.DeleteCurrency(userID, code); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_CURRENCY", "currency", code, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Currency deleted successfully"})
}

// RefreshRates pulls current exchange rates from the configured provider.
// @Summary     Refresh exchange rates
// @Description Fetch live rates against the default currency. Currencies the provider cannot price keep their rate.
// @Tags        currencies
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  models.Currency "Currencies after refresh"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     502 {object} ErrorResponse "Rate provider unavailable"
// @Router      /currencies/refresh [post]
func (h *CurrencyHandler) RefreshRates(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	currencies, err := h.currencyService.RefreshRates(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "REFRESH_RATES", "currency", "", c.ClientIP(),
		map[string]interface{}{"count": len(currencies)})

	c.JSON(http.StatusOK, gin.H{"currencies": currencies})
}
