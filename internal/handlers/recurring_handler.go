package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/services"
)

// RecurringHandler handles recurring transaction templates.
type RecurringHandler struct {
	recurringService services.RecurringServicer
	reminderService  services.ReminderServicer
	auditService     services.AuditServicer
}

// NewRecurringHandler creates a new RecurringHandler.
func NewRecurringHandler(recurringService services.RecurringServicer, reminderService services.ReminderServicer, auditService services.AuditServicer) *RecurringHandler {
	return &RecurringHandler{
		recurringService: recurringService,
		reminderService:  reminderService,
		auditService:     auditService,
	}
}

// CreateRecurringRequest represents the request payload for creating a
// recurring template. startDate is the first occurrence.
type CreateRecurringRequest struct {
	CategoryID  string                 `json:"categoryId" binding:"required,uuid"`
	Type        models.TransactionType `json:"type" binding:"required,transaction_type"`
	Amount      *decimal.Decimal       `json:"amount" binding:"required"`
	Currency    string                 `json:"currency" binding:"omitempty,iso4217"`
	Description string                 `json:"description" binding:"max=500"`
	Frequency   models.Frequency       `json:"frequency" binding:"required,frequency"`
	StartDate   string                 `json:"startDate" binding:"required"`
	EndDate     *string                `json:"endDate"`
}

// UpdateRecurringRequest represents the request payload for updating a
// recurring template. isActive pauses or resumes the series.
type UpdateRecurringRequest struct {
	CategoryID  *string           `json:"categoryId" binding:"omitempty,uuid"`
	Amount      *decimal.Decimal  `json:"amount"`
	Currency    *string           `json:"currency" binding:"omitempty,iso4217"`
	Description *string           `json:"description" binding:"omitempty,max=500"`
	Frequency   *models.Frequency `json:"frequency" binding:"omitempty,frequency"`
	EndDate     *string           `json:"endDate"`
	IsActive    *bool             `json:"isActive"`
}

// RecurringReminderRequest configures the reminder created from a template.
type RecurringReminderRequest struct {
	NotifyBefore *int `json:"notifyBefore" binding:"omitempty,min=0"`
}

// CreateRecurring handles the creation of a recurring template.
// @Summary     Create a recurring transaction
// @Description Create a template that materializes a transaction on every occurrence
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateRecurringRequest true "Template details"
// @Success     201 {object} models.RecurringTransaction "Template created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring [post]
func (h *RecurringHandler) CreateRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	startDate, err := parseOptionalDate("startDate", &req.StartDate)
	if err != nil {
		respondWithError(c, err)
		return
	}
	endDate, err := parseOptionalDate("endDate", req.EndDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rt, err := h.recurringService.CreateRecurring(userID, services.RecurringInput{
		CategoryID:  req.CategoryID,
		Type:        req.Type,
		Amount:      *req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		Frequency:   req.Frequency,
		StartDate:   *startDate,
		EndDate:     endDate,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_RECURRING", "recurring_transaction", rt.ID, c.ClientIP(),
		map[string]interface{}{"frequency": rt.Frequency, "amount": rt.Amount.String()})

	c.JSON(http.StatusCreated, gin.H{"recurring": rt})
}

// GetRecurring handles listing recurring templates.
// @Summary     Get recurring transactions
// @Description Get a paginated list of templates ordered by next due date
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       isActive query bool false "Filter by active status"
// @Param       page     query int  false "Page number (default 1)"
// @Param       pageSize query int  false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.RecurringTransaction] "Paginated templates"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring [get]
func (h *RecurringHandler) GetRecurring(c *gin.Context) {
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

	isActive, err := boolQuery(c, "isActive")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.recurringService.GetUserRecurring(userID, page, isActive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRecurringByID handles retrieving one template.
// @Summary     Get recurring transaction by ID
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Template ID"
// @Success     200 {object} models.RecurringTransaction "Template details"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id} [get]
func (h *RecurringHandler) GetRecurringByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurringID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	rt, err := h.recurringService.GetRecurringByID(userID, recurringID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recurring": rt})
}

// UpdateRecurring handles updating a template.
// @Summary     Update recurring transaction
// @Description Change a template. Setting isActive=false pauses it; resuming skips the paused occurrences.
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "Template ID"
// @Param       request body UpdateRecurringRequest true "Fields to change"
// @Success     200 {object} models.RecurringTransaction "Updated template"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id} [put]
func (h *RecurringHandler) UpdateRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurringID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	endDate, err := parseOptionalDate("endDate", req.EndDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rt, err := h.recurringService.UpdateRecurring(userID, recurringID, services.RecurringUpdate{
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		Frequency:   req.Frequency,
		EndDate:     endDate,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_RECURRING", "recurring_transaction", recurringID, c.ClientIP(),
		map[string]interface{}{"isActive": rt.IsActive})

	c.JSON(http.StatusOK, gin.H{"recurring": rt})
}

// DeleteRecurring handles deleting a template.
// @Summary     Delete recurring transaction
// @Description Delete a template. Transactions it already created are kept.
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Template ID"
// @Success     200 {object} MessageResponse "Template deleted"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id} [delete]
func (h *RecurringHandler) DeleteRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurringID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.recurringService.DeleteRecurring(userID, recurringID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_RECURRING", "recurring_transaction", recurringID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Recurring transaction deleted successfully"})
}

// AdvanceRecurring materializes the next occurrence of a template now.
// @Summary     Advance recurring transaction
// @Description Create the transaction for the next due date and move the template forward
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Template ID"
// @Success     200 {object} services.AdvanceResult "Created transaction and moved template"
// @Failure     400 {object} ErrorResponse "Template inactive"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id}/advance [post]
func (h *RecurringHandler) AdvanceRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurringID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.recurringService.AdvanceRecurring(c.Request.Context(), userID, recurringID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "ADVANCE_RECURRING", "recurring_transaction", recurringID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, result)
}

// ProcessRecurring catches up every due template of the owner.
// @Summary     Process due recurring transactions
// @Description Create every missed occurrence up to today for the authenticated user
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.ProcessResult "Processing summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/process [post]
func (h *RecurringHandler) ProcessRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.recurringService.ProcessDue(c.Request.Context(), userID, time.Time{})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// CreateReminder creates a recurring bill reminder from an expense template.
// @Summary     Create reminder from recurring transaction
// @Description Create a recurring bill reminder due on the template's next due date
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true  "Template ID"
// @Param       request body RecurringReminderRequest false "Reminder options"
// @Success     201 {object} services.ReminderView "Reminder created"
// @Failure     400 {object} ErrorResponse "Template inactive or not an expense"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id}/reminder [post]
func (h *RecurringHandler) CreateReminder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurringID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RecurringReminderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, bindError(err))
			return
		}
	}

	reminder, err := h.reminderService.CreateReminderFromRecurring(userID, recurringID, req.NotifyBefore)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_REMINDER", "reminder", reminder.ID, c.ClientIP(),
		map[string]interface{}{"recurringId": recurringID})

	c.JSON(http.StatusCreated, gin.H{"reminder": reminder})
}
