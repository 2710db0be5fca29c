package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pennywise/internal/models"
	"pennywise/internal/services"
)

// ReportHandler serves aggregated income and expense figures.
type ReportHandler struct {
	reportService services.ReportServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// rangeQuery reads from/to; missing bounds are zero and defaulted by the service.
func rangeQuery(c *gin.Context) (from, to time.Time, err error) {
	f, err := dateQuery(c, "from")
	if err != nil {
		return from, to, err
	}
	t, err := dateQuery(c, "to")
	if err != nil {
		return from, to, err
	}
	if f != nil {
		from = *f
	}
	if t != nil {
		to = *t
	}
	return from, to, nil
}

// GetSummary reports totals over a date range.
// @Summary     Income and expense summary
// @Description Totals in the default currency. The range defaults to the current month.
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       from query string false "Earliest date (YYYY-MM-DD)"
// @Param       to   query string false "Latest date (YYYY-MM-DD)"
// @Success     200 {object} services.ReportSummary "Summary"
// @Failure     400 {object} ErrorResponse "Invalid range"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Currency without a rate"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/summary [get]
func (h *ReportHandler) GetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	from, to, err := rangeQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.reportService.GetSummary(userID, from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GetCategoryBreakdown reports totals per category.
// @Summary     Category breakdown
// @Description Totals per category for one transaction type, largest first
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       from query string false "Earliest date (YYYY-MM-DD)"
// @Param       to   query string false "Latest date (YYYY-MM-DD)"
// @Param       type query string false "income or expense (default expense)"
// @Success     200 {object} services.CategoryReport "Breakdown"
// @Failure     400 {object} ErrorResponse "Invalid range or type"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/categories [get]
func (h *ReportHandler) GetCategoryBreakdown(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	from, to, err := rangeQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	txType := models.TransactionType(c.DefaultQuery("type", string(models.TransactionTypeExpense)))

	report, err := h.reportService.GetCategoryBreakdown(userID, from, to, txType)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}
