package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "bolso/internal/errors"
	"bolso/internal/pagination"
	"bolso/internal/services"
)

// BudgetHandler handles budget ledger requests.
type BudgetHandler struct {
	budgetService services.BudgetServicer
	auditService  services.AuditServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetServicer, auditService services.AuditServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService, auditService: auditService}
}

// IncomeRequest is one income source in a budget setup request.
type IncomeRequest struct {
	Description string `json:"description" binding:"required,min=1,max=100"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	ReceiveDay  int    `json:"receive_day" binding:"required,min=1,max=31"`
}

// CategoryRequest is one envelope in a budget setup request.
type CategoryRequest struct {
	Name            string `json:"name" binding:"required,min=1,max=100"`
	AllocatedAmount int64  `json:"allocated_amount" binding:"required,gt=0"`
	Color           string `json:"color" binding:"omitempty,hex_color"`
}

// SetupBudgetRequest represents the complete budget setup payload.
type SetupBudgetRequest struct {
	Name       string            `json:"name" binding:"max=100"`
	Incomes    []IncomeRequest   `json:"incomes" binding:"required,min=1,dive"`
	Categories []CategoryRequest `json:"categories" binding:"required,min=1,dive"`
}

// ExpenseRequest represents an expense against a category.
type ExpenseRequest struct {
	CategoryID  string `json:"category_id" binding:"required,uuid"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description" binding:"required,min=1,max=200"`
}

// TransferRequest represents a transfer between two categories.
type TransferRequest struct {
	FromCategoryID string `json:"from_category_id" binding:"required,uuid"`
	ToCategoryID   string `json:"to_category_id" binding:"required,uuid"`
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	Description    string `json:"description" binding:"max=200"`
}

// GetSetupStatus reports whether the user finished budget setup.
// @Summary     Get setup status
// @Description Report whether the authenticated user has completed budget setup
// @Tags        budget
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]bool "Setup status"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /budget/setup/status [get]
func (h *BudgetHandler) GetSetupStatus(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	_, err = h.budgetService.GetActiveBudget(userID)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.ErrBudgetNotFound.Code {
			c.JSON(http.StatusOK, gin.H{"setup_completed": false})
			return
		}
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"setup_completed": true})
}

// Setup creates a complete budget with incomes and categories.
// @Summary     Set up budget
// @Description Create a budget with incomes and envelope categories, replacing any previous active budget
// @Tags        budget
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body SetupBudgetRequest true "Budget setup data"
// @Success     201 {object} models.Budget "Budget created"
// @Failure     400 {object} ErrorResponse "Invalid input or allocation exceeds income"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budget/setup [post]
func (h *BudgetHandler) Setup(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SetupBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	incomes := make([]services.IncomeInput, 0, len(req.Incomes))
	for _, in := range req.Incomes {
		incomes = append(incomes, services.IncomeInput{
			Description: in.Description,
			Amount:      in.Amount,
			ReceiveDay:  in.ReceiveDay,
		})
	}
	categories := make([]services.CategoryInput, 0, len(req.Categories))
	for _, in := range req.Categories {
		categories = append(categories, services.CategoryInput{
			Name:            in.Name,
			AllocatedAmount: in.AllocatedAmount,
			Color:           in.Color,
		})
	}

	budget, err := h.budgetService.CreateCompleteBudget(userID, req.Name, incomes, categories)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "SETUP_BUDGET", "budget", budget.ID, c.ClientIP(),
		map[string]interface{}{"name": budget.Name, "total_income": budget.TotalIncome, "allocated": budget.AllocatedAmount})

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// GetBudget returns the active budget with categories and incomes.
// @Summary     Get active budget
// @Description Get the authenticated user's active budget
// @Tags        budget
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.Budget "Active budget"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No active budget"
// @Router      /budget [get]
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.GetActiveBudget(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// GetCategories lists the active budget's categories.
// @Summary     Get categories
// @Description List the active budget's envelope categories
// @Tags        budget
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.Category "Categories"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No active budget"
// @Router      /budget/categories [get]
func (h *BudgetHandler) GetCategories(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categories, err := h.budgetService.GetCategories(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GetIncomes lists the active budget's incomes.
// @Summary     Get incomes
// @Description List the active budget's income sources
// @Tags        budget
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.Income "Incomes"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No active budget"
// @Router      /budget/incomes [get]
func (h *BudgetHandler) GetIncomes(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	incomes, err := h.budgetService.GetIncomes(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"incomes": incomes})
}

// RecordExpense debits a category.
// @Summary     Record expense
// @Description Record an expense against an envelope category
// @Tags        budget
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ExpenseRequest true "Expense details"
// @Success     201 {object} services.ExpenseResult "Expense recorded"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient balance"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Category belongs to another budget"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /budget/expense [post]
func (h *BudgetHandler) RecordExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.budgetService.RecordExpense(userID, req.CategoryID, req.Amount, req.Description)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "RECORD_EXPENSE", "category", req.CategoryID, c.ClientIP(),
		map[string]interface{}{"amount": req.Amount, "description": req.Description})

	c.JSON(http.StatusCreated, result)
}

// Transfer moves funds between categories.
// @Summary     Transfer between categories
// @Description Move funds from one envelope category to another
// @Tags        budget
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body TransferRequest true "Transfer details"
// @Success     200 {object} services.TransferResult "Transfer applied"
// @Failure     400 {object} ErrorResponse "Invalid input, insufficient balance or destination over allocation"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Category belongs to another budget"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /budget/transfer [post]
func (h *BudgetHandler) Transfer(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.budgetService.ProcessTransfer(userID, req.FromCategoryID, req.ToCategoryID, req.Amount, req.Description)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "TRANSFER", "category", req.FromCategoryID, c.ClientIP(),
		map[string]interface{}{"to": req.ToCategoryID, "amount": req.Amount})

	c.JSON(http.StatusOK, result)
}

// GetTransactions lists the budget's ledger history.
// @Summary     Get transactions
// @Description Get the active budget's transaction history, newest first
// @Tags        budget
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.BudgetTransaction] "Paginated transactions"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No active budget"
// @Router      /budget/transactions [get]
func (h *BudgetHandler) GetTransactions(c *gin.Context) {
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

	result, err := h.budgetService.GetTransactions(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
