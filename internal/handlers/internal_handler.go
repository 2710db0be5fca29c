package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pennywise/internal/logger"
	"pennywise/internal/services"
)

// InternalHandler serves the machine-to-machine endpoints used by schedulers.
// Routes are guarded by middleware.InternalAuthMiddleware, not by a JWT.
type InternalHandler struct {
	recurringService services.RecurringServicer
	reminderService  services.ReminderServicer
}

// NewInternalHandler creates a new InternalHandler.
func NewInternalHandler(recurringService services.RecurringServicer, reminderService services.ReminderServicer) *InternalHandler {
	return &InternalHandler{recurringService: recurringService, reminderService: reminderService}
}

// ProcessRecurring catches up every active template of every owner.
// @Summary     Process all due recurring transactions
// @Description Scheduler endpoint. Creates every missed occurrence up to asOf (default today).
// @Tags        internal
// @Produce     json
// @Security    ApiKeyAuth
// @Param       asOf query string false "Run date (YYYY-MM-DD)"
// @Success     200 {object} services.ProcessResult "Processing summary"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /internal/v1/recurring/process [post]
func (h *InternalHandler) ProcessRecurring(c *gin.Context) {
	asOf, err := asOfQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.recurringService.ProcessAllDue(c.Request.Context(), asOf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	logger.Get().Infow("recurring run finished",
		"templates", result.TemplatesProcessed,
		"created", result.TransactionsCreated,
		"ended", result.TemplatesEnded,
	)

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// NotifyReminders publishes notifications for reminders inside their window.
// @Summary     Send due reminder notifications
// @Description Scheduler endpoint. Each reminder is notified at most once per day.
// @Tags        internal
// @Produce     json
// @Security    ApiKeyAuth
// @Param       asOf query string false "Run date (YYYY-MM-DD)"
// @Success     200 {object} map[string]int "Number of notifications sent"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /internal/v1/reminders/notify [post]
func (h *InternalHandler) NotifyReminders(c *gin.Context) {
	asOf, err := asOfQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	sent, err := h.reminderService.NotifyDue(c.Request.Context(), asOf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sent": sent})
}
