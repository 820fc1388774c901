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

// GoalHandler handles savings goal requests.
type GoalHandler struct {
	goalService  services.GoalServicer
	auditService services.AuditServicer
}

// NewGoalHandler creates a new GoalHandler.
func NewGoalHandler(goalService services.GoalServicer, auditService services.AuditServicer) *GoalHandler {
	return &GoalHandler{goalService: goalService, auditService: auditService}
}

// CreateGoalRequest represents the payload for a new goal.
type CreateGoalRequest struct {
	Name          string     `json:"name" binding:"required,min=1,max=100"`
	Description   string     `json:"description" binding:"max=500"`
	TargetAmount  int64      `json:"target_amount" binding:"required,gt=0"`
	MonthlyTarget *int64     `json:"monthly_target" binding:"omitempty,gt=0"`
	TargetDate    *time.Time `json:"target_date"`
	Color         string     `json:"color" binding:"omitempty,hex_color"`
}

// UpdateGoalRequest represents the payload for editing a goal.
type UpdateGoalRequest struct {
	Name          *string    `json:"name" binding:"omitempty,min=1,max=100"`
	Description   *string    `json:"description" binding:"omitempty,max=500"`
	TargetAmount  *int64     `json:"target_amount" binding:"omitempty,gt=0"`
	MonthlyTarget *int64     `json:"monthly_target" binding:"omitempty,gt=0"`
	TargetDate    *time.Time `json:"target_date"`
	Color         *string    `json:"color" binding:"omitempty,hex_color"`
	IsActive      *bool      `json:"is_active"`
}

// GoalTransactionRequest represents a deposit or withdrawal.
type GoalTransactionRequest struct {
	Type        string `json:"type" binding:"required,goal_transaction_type"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description" binding:"max=200"`
}

// Create registers a savings goal.
// @Summary     Create goal
// @Description Create a savings goal
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateGoalRequest true "Goal details"
// @Success     201 {object} services.GoalWithProgress "Goal created"
// @Failure     400 {object} ErrorResponse "Invalid input or goal limit reached"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /goals [post]
func (h *GoalHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	goal, err := h.goalService.Create(userID, services.GoalInput{
		Name:          req.Name,
		Description:   req.Description,
		TargetAmount:  req.TargetAmount,
		MonthlyTarget: req.MonthlyTarget,
		TargetDate:    req.TargetDate,
		Color:         req.Color,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_GOAL", "goal", goal.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "target_amount": req.TargetAmount})

	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}

// List returns the caller's goals.
// @Summary     List goals
// @Description List goals with progress; pass include_inactive=true for archived goals
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       include_inactive query bool false "Include inactive goals"
// @Success     200 {array} services.GoalWithProgress "Goals"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /goals [get]
func (h *GoalHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	includeInactive := c.Query("include_inactive") == "true"

	goals, err := h.goalService.List(userID, includeInactive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goals": goals})
}

// Get returns one goal with progress.
// @Summary     Get goal
// @Description Get a goal by ID with derived progress
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} services.GoalWithProgress "Goal"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id} [get]
func (h *GoalHandler) Get(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.Get(userID, goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// Update edits a goal.
// @Summary     Update goal
// @Description Update a goal; completed goals are frozen
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Goal ID"
// @Param       request body UpdateGoalRequest true "Updated goal details"
// @Success     200 {object} services.GoalWithProgress "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid input or target below saved amount"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id} [put]
func (h *GoalHandler) Update(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	goal, err := h.goalService.Update(userID, goalID, services.UpdateGoalInput{
		Name:          req.Name,
		Description:   req.Description,
		TargetAmount:  req.TargetAmount,
		MonthlyTarget: req.MonthlyTarget,
		TargetDate:    req.TargetDate,
		Color:         req.Color,
		IsActive:      req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_GOAL", "goal", goalID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// Delete removes a goal.
// @Summary     Delete goal
// @Description Delete a goal; goals still holding funds must be emptied first
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} MessageResponse "Goal deleted"
// @Failure     400 {object} ErrorResponse "Goal still has a balance"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id} [delete]
func (h *GoalHandler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.goalService.Delete(userID, goalID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_GOAL", "goal", goalID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Goal deleted successfully"})
}

// Transaction applies a deposit or withdrawal to a goal.
// @Summary     Goal transaction
// @Description Deposit into or withdraw from a goal
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "Goal ID"
// @Param       request body GoalTransactionRequest true "Transaction details"
// @Success     200 {object} services.GoalTransactionResult "Transaction applied"
// @Failure     400 {object} ErrorResponse "Invalid input, bounds violated or goal inactive"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id}/transactions [post]
func (h *GoalHandler) Transaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req GoalTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.goalService.ProcessTransaction(userID, goalID,
		models.GoalTransactionType(req.Type), req.Amount, req.Description)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "GOAL_TRANSACTION", "goal", goalID, c.ClientIP(),
		map[string]interface{}{"type": req.Type, "amount": req.Amount})

	c.JSON(http.StatusOK, result)
}

// Complete marks a goal completed.
// @Summary     Complete goal
// @Description Mark a goal completed once its target has been reached
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} services.GoalWithProgress "Completed goal"
// @Failure     400 {object} ErrorResponse "Target not reached or already completed"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id}/complete [post]
func (h *GoalHandler) Complete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.Complete(userID, goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "COMPLETE_GOAL", "goal", goalID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// GetTransactions returns a goal's transaction history.
// @Summary     Get goal transactions
// @Description Get a goal's deposit/withdrawal history, newest first
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Goal ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.GoalTransaction] "Paginated transactions"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id}/transactions [get]
func (h *GoalHandler) GetTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.goalService.GetTransactions(userID, goalID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Statistics summarizes the caller's goals.
// @Summary     Goal statistics
// @Description Aggregate totals over all of the user's goals
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.GoalStatistics "Statistics"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /goals/statistics [get]
func (h *GoalHandler) Statistics(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	stats, err := h.goalService.Statistics(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"statistics": stats})
}
