package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "bolso/internal/errors"
	"bolso/internal/models"
	"bolso/internal/pagination"
	"bolso/internal/services"
)

// RecurringHandler handles recurring transaction requests.
type RecurringHandler struct {
	recurringService services.RecurringServicer
	auditService     services.AuditServicer
}

// NewRecurringHandler creates a new RecurringHandler.
func NewRecurringHandler(recurringService services.RecurringServicer, auditService services.AuditServicer) *RecurringHandler {
	return &RecurringHandler{recurringService: recurringService, auditService: auditService}
}

// CreateRecurringRequest represents the payload for a new recurring rule.
type CreateRecurringRequest struct {
	CategoryID   string     `json:"category_id" binding:"required,uuid"`
	Description  string     `json:"description" binding:"required,min=1,max=200"`
	Amount       int64      `json:"amount" binding:"required,gt=0"`
	Frequency    string     `json:"frequency" binding:"required,frequency"`
	StartDate    time.Time  `json:"start_date" binding:"required"`
	EndDate      *time.Time `json:"end_date"`
	ExecutionDay *int       `json:"execution_day" binding:"omitempty,min=1,max=31"`
}

// UpdateRecurringRequest represents the payload for editing a rule.
type UpdateRecurringRequest struct {
	Description  *string    `json:"description" binding:"omitempty,min=1,max=200"`
	Amount       *int64     `json:"amount" binding:"omitempty,gt=0"`
	Frequency    *string    `json:"frequency" binding:"omitempty,frequency"`
	EndDate      *time.Time `json:"end_date"`
	ExecutionDay *int       `json:"execution_day" binding:"omitempty,min=1,max=31"`
	IsActive     *bool      `json:"is_active"`
}

// Create registers a recurring rule.
// @Summary     Create recurring transaction
// @Description Create a recurring expense rule against a category
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateRecurringRequest true "Recurring rule details"
// @Success     201 {object} models.RecurringTransaction "Rule created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /recurring [post]
func (h *RecurringHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	rule, err := h.recurringService.Create(userID, services.CreateRecurringInput{
		CategoryID:   req.CategoryID,
		Description:  req.Description,
		Amount:       req.Amount,
		Frequency:    models.Frequency(req.Frequency),
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		ExecutionDay: req.ExecutionDay,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_RECURRING", "recurring_transaction", rule.ID, c.ClientIP(),
		map[string]interface{}{"description": req.Description, "amount": req.Amount, "frequency": req.Frequency})

	c.JSON(http.StatusCreated, gin.H{"recurring_transaction": rule})
}

// List returns the caller's recurring rules.
// @Summary     List recurring transactions
// @Description List all recurring rules for the authenticated user
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.RecurringTransaction "Rules"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /recurring [get]
func (h *RecurringHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rules, err := h.recurringService.List(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recurring_transactions": rules})
}

// Get returns one recurring rule.
// @Summary     Get recurring transaction
// @Description Get a recurring rule by ID
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Rule ID"
// @Success     200 {object} models.RecurringTransaction "Rule"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Router      /recurring/{id} [get]
func (h *RecurringHandler) Get(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	rule, err := h.recurringService.Get(userID, ruleID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recurring_transaction": rule})
}

// Update edits a recurring rule.
// @Summary     Update recurring transaction
// @Description Update a recurring rule; frequency or execution day changes reschedule the next run
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "Rule ID"
// @Param       request body UpdateRecurringRequest true "Updated rule details"
// @Success     200 {object} models.RecurringTransaction "Updated rule"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Router      /recurring/{id} [put]
func (h *RecurringHandler) Update(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	in := services.UpdateRecurringInput{
		Description:  req.Description,
		Amount:       req.Amount,
		EndDate:      req.EndDate,
		ExecutionDay: req.ExecutionDay,
		IsActive:     req.IsActive,
	}
	if req.Frequency != nil {
		freq := models.Frequency(*req.Frequency)
		in.Frequency = &freq
	}

	rule, err := h.recurringService.Update(userID, ruleID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_RECURRING", "recurring_transaction", ruleID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"recurring_transaction": rule})
}

// Delete removes a recurring rule.
// @Summary     Delete recurring transaction
// @Description Delete a recurring rule; its execution history is kept
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Rule ID"
// @Success     200 {object} MessageResponse "Rule deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Router      /recurring/{id} [delete]
func (h *RecurringHandler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.recurringService.Delete(userID, ruleID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_RECURRING", "recurring_transaction", ruleID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Recurring transaction deleted successfully"})
}

// GetLogs returns a rule's execution history.
// @Summary     Get execution logs
// @Description Get a recurring rule's execution history, newest first
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Rule ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.RecurringExecutionLog] "Paginated logs"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Router      /recurring/{id}/logs [get]
func (h *RecurringHandler) GetLogs(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.recurringService.GetLogs(userID, ruleID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Execute runs a recurring rule immediately.
// @Summary     Execute recurring transaction
// @Description Run a recurring rule now, regardless of its schedule
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Rule ID"
// @Success     200 {object} services.ExecutionResult "Execution outcome"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Router      /recurring/{id}/execute [post]
func (h *RecurringHandler) Execute(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.recurringService.ExecuteByID(userID, ruleID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "EXECUTE_RECURRING", "recurring_transaction", ruleID, c.ClientIP(),
		map[string]interface{}{"success": result.Success})

	c.JSON(http.StatusOK, result)
}
