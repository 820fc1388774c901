package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "bolso/internal/errors"
	"bolso/internal/pagination"
	"bolso/internal/services"
)

// NotificationHandler handles notification requests.
type NotificationHandler struct {
	notificationService services.NotificationServicer
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationService services.NotificationServicer) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// UpdateSettingsRequest represents notification settings edits.
type UpdateSettingsRequest struct {
	PushEnabled        *bool `json:"push_enabled"`
	EmailEnabled       *bool `json:"email_enabled"`
	InAppEnabled       *bool `json:"in_app_enabled"`
	BudgetAlerts       *bool `json:"budget_alerts"`
	GoalUpdates        *bool `json:"goal_updates"`
	RecurringReminders *bool `json:"recurring_reminders"`
}

// RegisterDeviceTokenRequest registers a push target.
type RegisterDeviceTokenRequest struct {
	Token    string `json:"token" binding:"required,min=1,max=512"`
	Platform string `json:"platform" binding:"omitempty,oneof=ios android web"`
}

// List returns the user's notifications.
// @Summary     List notifications
// @Description Get in-app notifications, newest first; pass unread_only=true to filter
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Param       unread_only query bool false "Only unread notifications"
// @Param       page        query int  false "Page number (default 1)"
// @Param       page_size   query int  false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Notification] "Paginated notifications"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	unreadOnly := c.Query("unread_only") == "true"

	result, err := h.notificationService.List(userID, page, unreadOnly)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// MarkRead marks one notification as read.
// @Summary     Mark notification read
// @Description Mark a notification as read
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Notification ID"
// @Success     200 {object} models.Notification "Updated notification"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Notification not found"
// @Router      /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	notificationID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	notification, err := h.notificationService.MarkRead(userID, notificationID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notification": notification})
}

// MarkAllRead marks every unread notification read.
// @Summary     Mark all notifications read
// @Description Mark all of the user's unread notifications as read
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]int64 "Count of notifications updated"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	updated, err := h.notificationService.MarkAllRead(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// GetSettings returns the user's notification settings.
// @Summary     Get notification settings
// @Description Get channel and per-type notification toggles
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.NotificationSettings "Settings"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /notifications/settings [get]
func (h *NotificationHandler) GetSettings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	settings, err := h.notificationService.GetSettings(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// UpdateSettings edits the user's notification settings.
// @Summary     Update notification settings
// @Description Update channel and per-type notification toggles
// @Tags        notifications
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpdateSettingsRequest true "Settings edits"
// @Success     200 {object} models.NotificationSettings "Updated settings"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /notifications/settings [put]
func (h *NotificationHandler) UpdateSettings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	settings, err := h.notificationService.UpdateSettings(userID, services.UpdateSettingsInput{
		PushEnabled:        req.PushEnabled,
		EmailEnabled:       req.EmailEnabled,
		InAppEnabled:       req.InAppEnabled,
		BudgetAlerts:       req.BudgetAlerts,
		GoalUpdates:        req.GoalUpdates,
		RecurringReminders: req.RecurringReminders,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// RegisterDeviceToken registers a push target for the user.
// @Summary     Register device token
// @Description Register a device token for push notifications
// @Tags        notifications
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body RegisterDeviceTokenRequest true "Device token"
// @Success     201 {object} MessageResponse "Token registered"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /notifications/device-tokens [post]
func (h *NotificationHandler) RegisterDeviceToken(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RegisterDeviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.notificationService.RegisterDeviceToken(userID, req.Token, req.Platform); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Device token registered successfully"})
}
