package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pennywise/internal/services"
)

// SettingsHandler handles per-owner preferences.
type SettingsHandler struct {
	settingsService services.SettingsServicer
	auditService    services.AuditServicer
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settingsService services.SettingsServicer, auditService services.AuditServicer) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService, auditService: auditService}
}

// UpdateSettingsRequest represents the request payload for changing settings.
// Changing defaultCurrency rebases every stored rate.
type UpdateSettingsRequest struct {
	DefaultCurrency     *string `json:"defaultCurrency" binding:"omitempty,iso4217"`
	DefaultNotifyBefore *int    `json:"defaultNotifyBefore"`
}

// GetSettings returns the owner's settings, creating defaults on first use.
// @Summary     Get settings
// @Tags        settings
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.UserSettings "Settings"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	settings, err := h.settingsService.GetSettings(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// UpdateSettings changes the owner's settings.
// @Summary     Update settings
// @Description Change the default currency or the default reminder lead time
// @Tags        settings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpdateSettingsRequest true "Fields to change"
// @Success     200 {object} models.UserSettings "Updated settings"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Currency not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /settings [put]
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	settings, err := h.settingsService.UpdateSettings(userID, services.SettingsUpdate{
		DefaultCurrency:     req.DefaultCurrency,
		DefaultNotifyBefore: req.DefaultNotifyBefore,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_SETTINGS", "user_settings", settings.ID, c.ClientIP(),
		map[string]interface{}{
			"defaultCurrency":     settings.DefaultCurrency,
			"defaultNotifyBefore": settings.DefaultNotifyBefore,
		})

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}
