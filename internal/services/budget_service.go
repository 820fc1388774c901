package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "bolso/internal/errors"
	"bolso/internal/models"
	"bolso/internal/pagination"
)

// Category usage thresholds (percent of allocation spent) at which the
// ledger emits alerts.
const (
	budgetAlertThreshold = 80
	budgetLimitThreshold = 100
)

// budgetService owns the category balance state machine.
type budgetService struct {
	db       *gorm.DB
	notifier Notifier
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, notifier Notifier) BudgetServicer {
	return &budgetService{db: db, notifier: notifier}
}

// CreateCompleteBudget creates a budget with its incomes and categories
// in one transaction. Any previously active budget is deactivated in
// the same transaction, so "one active budget per user" can never be
// observed violated. Categories start with their full allocation as
// spendable balance.
func (s *budgetService) CreateCompleteBudget(userID, name string, incomes []IncomeInput, categories []CategoryInput) (*models.Budget, error) {
	if len(incomes) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "at least one income is required")
	}
	if name == "" {
		name = "Meu Orçamento"
	}

	var totalIncome, allocatedAmount int64
	for _, income := range incomes {
		totalIncome += income.Amount
	}
	for _, category := range categories {
		allocatedAmount += category.AllocatedAmount
	}
	if allocatedAmount > totalIncome {
		return nil, apperrors.ErrBudgetInconsistent
	}

	budget := &models.Budget{
		UserID:           userID,
		Name:             name,
		TotalIncome:      totalIncome,
		AllocatedAmount:  allocatedAmount,
		AvailableBalance: totalIncome - allocatedAmount,
		IsActive:         true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Budget{}).
			Where("user_id = ? AND is_active = ?", userID, true).
			Update("is_active", false).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Create(budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		for _, in := range incomes {
			income := &models.Income{
				BudgetID:    budget.ID,
				Description: in.Description,
				Amount:      in.Amount,
				ReceiveDay:  in.ReceiveDay,
				IsActive:    true,
			}
			if err := tx.Create(income).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			budget.Incomes = append(budget.Incomes, *income)
		}

		for _, in := range categories {
			category := &models.Category{
				BudgetID:        budget.ID,
				Name:            in.Name,
				AllocatedAmount: in.AllocatedAmount,
				CurrentBalance:  in.AllocatedAmount,
				Color:           in.Color,
				IsActive:        true,
			}
			if err := tx.Create(category).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			budget.Categories = append(budget.Categories, *category)
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("setup_completed", true).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return budget, nil
}

// GetActiveBudget returns the caller's active budget with its incomes
// and categories preloaded.
func (s *budgetService) GetActiveBudget(userID string) (*models.Budget, error) {
	var budget models.Budget
	err := s.db.Preload("Incomes").Preload("Categories").
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&budget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// GetCategories lists the active budget's categories.
func (s *budgetService) GetCategories(userID string) ([]models.Category, error) {
	budget, err := s.GetActiveBudget(userID)
	if err != nil {
		return nil, err
	}

	var categories []models.Category
	if err := s.db.Where("budget_id = ?", budget.ID).Order("name").Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// GetIncomes lists the active budget's incomes.
func (s *budgetService) GetIncomes(userID string) ([]models.Income, error) {
	budget, err := s.GetActiveBudget(userID)
	if err != nil {
		return nil, err
	}

	var incomes []models.Income
	if err := s.db.Where("budget_id = ?", budget.ID).Order("receive_day").Find(&incomes).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return incomes, nil
}

// RecordExpense debits a category and appends the ledger row in one
// transaction. The caller's active budget is re-derived and compared to
// the category's owner; a mismatch is Forbidden, never a silent write.
func (s *budgetService) RecordExpense(userID, categoryID string, amount int64, description string) (*ExpenseResult, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	category, err := s.getCategoryByID(categoryID)
	if err != nil {
		return nil, err
	}

	budget, err := s.GetActiveBudget(userID)
	if err != nil {
		return nil, err
	}
	if budget.ID != category.BudgetID {
		return nil, apperrors.ErrForbidden
	}

	if amount > category.CurrentBalance {
		return nil, apperrors.ErrInsufficientBalance
	}

	previousBalance := category.CurrentBalance
	newBalance := previousBalance - amount

	transaction := &models.BudgetTransaction{
		BudgetID:    budget.ID,
		CategoryID:  &category.ID,
		Type:        models.TransactionTypeExpense,
		Amount:      amount,
		Description: description,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(category).Update("current_balance", newBalance).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitUsageAlert(userID, category, previousBalance, newBalance)

	return &ExpenseResult{NewBalance: newBalance, Transaction: transaction}, nil
}

// ProcessTransfer moves funds between two categories of the caller's
// active budget. Both balance updates and both ledger legs happen in
// one transaction: either both categories change or neither does.
func (s *budgetService) ProcessTransfer(userID, fromCategoryID, toCategoryID string, amount int64, description string) (*TransferResult, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if fromCategoryID == toCategoryID {
		return nil, apperrors.ErrSameCategory
	}

	from, err := s.getCategoryByID(fromCategoryID)
	if err != nil {
		return nil, err
	}
	to, err := s.getCategoryByID(toCategoryID)
	if err != nil {
		return nil, err
	}

	budget, err := s.GetActiveBudget(userID)
	if err != nil {
		return nil, err
	}
	if budget.ID != from.BudgetID || budget.ID != to.BudgetID {
		return nil, apperrors.ErrForbidden
	}

	if amount > from.CurrentBalance {
		return nil, apperrors.ErrInsufficientBalance
	}

	newToBalance := to.CurrentBalance + amount
	if newToBalance > to.AllocatedAmount {
		return nil, apperrors.ErrLimitExceeded
	}
	newFromBalance := from.CurrentBalance - amount

	groupID, err := uuid.NewV7()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	group := groupID.String()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(from).Update("current_balance", newFromBalance).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(to).Update("current_balance", newToBalance).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		legs := []models.BudgetTransaction{
			{
				BudgetID:        budget.ID,
				CategoryID:      &from.ID,
				Type:            models.TransactionTypeTransferOut,
				Amount:          amount,
				Description:     description,
				FromCategoryID:  &from.ID,
				ToCategoryID:    &to.ID,
				TransferGroupID: &group,
			},
			{
				BudgetID:        budget.ID,
				CategoryID:      &to.ID,
				Type:            models.TransactionTypeTransferIn,
				Amount:          amount,
				Description:     description,
				FromCategoryID:  &from.ID,
				ToCategoryID:    &to.ID,
				TransferGroupID: &group,
			},
		}
		for i := range legs {
			if err := tx.Create(&legs[i]).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &TransferResult{FromNewBalance: newFromBalance, ToNewBalance: newToBalance}, nil
}

// GetTransactions returns the ledger history for the active budget,
// newest first.
func (s *budgetService) GetTransactions(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.BudgetTransaction], error) {
	budget, err := s.GetActiveBudget(userID)
	if err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.BudgetTransaction{}).Where("budget_id = ?", budget.ID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.BudgetTransaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func (s *budgetService) getCategoryByID(categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ?", categoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// emitUsageAlert fires budget_limit when an expense exhausts the
// category and budget_alert when it crosses the warning threshold.
// Only crossings fire, so a category sitting at 85% does not alert on
// every small expense.
func (s *budgetService) emitUsageAlert(userID string, category *models.Category, previousBalance, newBalance int64) {
	if s.notifier == nil || category.AllocatedAmount <= 0 {
		return
	}

	oldPct := usagePercent(category.AllocatedAmount, previousBalance)
	newPct := usagePercent(category.AllocatedAmount, newBalance)

	vars := map[string]string{
		"category_name": category.Name,
		"percentage":    formatPercent(newPct),
		"remaining":     FormatCents(newBalance),
		"limit":         FormatCents(category.AllocatedAmount),
	}

	switch {
	case oldPct < budgetLimitThreshold && newPct >= budgetLimitThreshold:
		s.notifier.Send(userID, models.NotificationBudgetLimit, vars, models.PriorityUrgent)
	case oldPct < budgetAlertThreshold && newPct >= budgetAlertThreshold:
		s.notifier.Send(userID, models.NotificationBudgetAlert, vars, models.PriorityHigh)
	}
}

func usagePercent(allocated, balance int64) float64 {
	return float64(allocated-balance) / float64(allocated) * 100
}
