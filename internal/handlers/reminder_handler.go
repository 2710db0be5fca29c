package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/finance"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/services"
)

// calendarContentType is the media type of the iCalendar feed.
const calendarContentType = "text/calendar; charset=utf-8"

// ReminderHandler handles bill reminders.
type ReminderHandler struct {
	reminderService services.ReminderServicer
	auditService    services.AuditServicer
}

// NewReminderHandler creates a new ReminderHandler.
func NewReminderHandler(reminderService services.ReminderServicer, auditService services.AuditServicer) *ReminderHandler {
	return &ReminderHandler{reminderService: reminderService, auditService: auditService}
}

// CreateReminderRequest represents the request payload for creating a
// reminder. notifyBefore defaults to the owner's setting.
type CreateReminderRequest struct {
	Title        string            `json:"title" binding:"required,max=200"`
	Amount       *decimal.Decimal  `json:"amount" binding:"required"`
	Currency     string            `json:"currency" binding:"omitempty,iso4217"`
	DueDate      string            `json:"dueDate" binding:"required"`
	CategoryID   *string           `json:"categoryId" binding:"omitempty,uuid"`
	IsRecurring  bool              `json:"isRecurring"`
	Frequency    *models.Frequency `json:"frequency" binding:"omitempty,frequency"`
	NotifyBefore *int              `json:"notifyBefore"`
}

// UpdateReminderRequest represents the request payload for updating a reminder.
type UpdateReminderRequest struct {
	Title        *string           `json:"title" binding:"omitempty,min=1,max=200"`
	Amount       *decimal.Decimal  `json:"amount"`
	Currency     *string           `json:"currency" binding:"omitempty,iso4217"`
	DueDate      *string           `json:"dueDate"`
	CategoryID   *string           `json:"categoryId" binding:"omitempty,uuid"`
	IsRecurring  *bool             `json:"isRecurring"`
	Frequency    *models.Frequency `json:"frequency" binding:"omitempty,frequency"`
	NotifyBefore *int              `json:"notifyBefore"`
}

// CreateReminder handles the creation of a bill reminder.
// @Summary     Create a reminder
// @Description Create a one-off or recurring bill reminder
// @Tags        reminders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateReminderRequest true "Reminder details"
// @Success     201 {object} services.ReminderView "Reminder created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reminders [post]
func (h *ReminderHandler) CreateReminder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	dueDate, err := parseOptionalDate("dueDate", &req.DueDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	reminder, err := h.reminderService.CreateReminder(userID, services.ReminderInput{
		Title:        req.Title,
		Amount:       *req.Amount,
		Currency:     req.Currency,
		DueDate:      *dueDate,
		CategoryID:   req.CategoryID,
		IsRecurring:  req.IsRecurring,
		Frequency:    req.Frequency,
		NotifyBefore: req.NotifyBefore,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_REMINDER", "reminder", reminder.ID, c.ClientIP(),
		map[string]interface{}{"title": reminder.Title, "dueDate": reminder.DueDate})

	c.JSON(http.StatusCreated, gin.H{"reminder": reminder})
}

// GetReminders handles listing reminders.
// @Summary     Get reminders
// @Description Get a paginated list of reminders ordered by due date, each evaluated against today
// @Tags        reminders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       isPaid   query bool   false "Filter by paid state"
// @Param       status   query string false "Filter by status (paid/overdue/dueSoon/scheduled)"
// @Param       page     query int    false "Page number (default 1)"
// @Param       pageSize query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[services.ReminderView] "Paginated reminders"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reminders [get]
func (h *ReminderHandler) GetReminders(c *gin.Context) {
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

	var filter services.ReminderFilter
	if filter.IsPaid, err = boolQuery(c, "isPaid"); err != nil {
		respondWithError(c, err)
		return
	}
	if v := c.Query("status"); v != "" {
		status := finance.ReminderStatus(v)
		switch status {
		case finance.StatusPaid, finance.StatusOverdue, finance.StatusDueSoon, finance.StatusScheduled:
			filter.Status = &status
		default:
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "status must be paid, overdue, dueSoon or scheduled"))
			return
		}
	}

	result, err := h.reminderService.GetUserReminders(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetReminder handles retrieving one reminder.
// @Summary     Get reminder by ID
// @Tags        reminders
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Reminder ID"
// @Success     200 {object} services.ReminderView "Reminder details"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Reminder not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reminders/{id} [get]
func (h *ReminderHandler) GetReminder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	reminderID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	reminder, err := h.reminderService.GetReminderByID(userID, reminderID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reminder": reminder})
}

// UpdateReminder handles updating a reminder.
// @Summary     Update reminder
// @Tags        reminders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Reminder ID"
// @Param       request body UpdateReminderRequest true "Fields to change"
// @Success     200 {object} services.ReminderView "Updated reminder"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Reminder not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reminders/{id} [put]
func (h *ReminderHandler) UpdateReminder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	reminderID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	dueDate, err := parseOptionalDate("dueDate", req.DueDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	reminder, err := h.reminderService.UpdateReminder(userID, reminderID, services.ReminderUpdate{
		Title:        req.Title,
		Amount:       req.Amount,
		Currency:     req.Currency,
		DueDate:      dueDate,
		CategoryID:   req.CategoryID,
		IsRecurring:  req.IsRecurring,
		Frequency:    req.Frequency,
		NotifyBefore: req.NotifyBefore,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_REMINDER", "reminder", reminderID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"reminder": reminder})
}

// DeleteReminder handles deleting a reminder.
// @Summary     Delete reminder
// @Tags        reminders
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Reminder ID"
// @Success     200 {object} MessageResponse "Reminder deleted"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Reminder not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reminders/{id} [delete]
func (h *ReminderHandler) DeleteReminder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	reminderID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.reminderService.DeleteReminder(userID, reminderID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_REMINDER", "reminder", reminderID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Reminder deleted successfully"})
}

// PayReminder marks a reminder paid.
// @Summary     Pay reminder
// @Description Mark a reminder paid. Recurring reminders get their next instance created.
// @Tags        reminders
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Reminder ID"
// @Success     200 {object} services.PaymentResult "Paid reminder and next instance"
// @Failure     400 {object} ErrorResponse "Already paid"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Reminder not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reminders/{id}/pay [post]
func (h *ReminderHandler) PayReminder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	reminderID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.reminderService.PayReminder(userID, reminderID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	changes := map[string]interface{}{}
	if result.Next != nil {
		changes["nextId"] = result.Next.ID
	}
	h.auditService.Log(userID, "PAY_REMINDER", "reminder", reminderID, c.ClientIP(), changes)

	c.JSON(http.StatusOK, result)
}

// UnpayReminder reverts a payment.
// @Summary     Unpay reminder
// @Description Mark a paid reminder unpaid again. An already created next instance is kept.
// @Tags        reminders
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Reminder ID"
// @Success     200 {object} services.ReminderView "Reminder"
// @Failure     400 {object} ErrorResponse "Not paid"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Reminder not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reminders/{id}/unpay [post]
func (h *ReminderHandler) UnpayReminder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	reminderID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	reminder, err := h.reminderService.UnpayReminder(userID, reminderID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UNPAY_REMINDER", "reminder", reminderID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"reminder": reminder})
}

// ExportCalendar serves unpaid reminders as an iCalendar feed.
// @Summary     Export reminders as iCalendar
// @Description Download unpaid reminders as an RFC 5545 calendar with alarms
// @Tags        reminders
// @Produce     text/calendar
// @Security    BearerAuth
// @Success     200 {string} string "iCalendar document"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reminders/calendar.ics [get]
func (h *ReminderHandler) ExportCalendar(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	cal, err := h.reminderService.ExportCalendar(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="pennywise.ics"`)
	c.Data(http.StatusOK, calendarContentType, []byte(cal.String()))
}
