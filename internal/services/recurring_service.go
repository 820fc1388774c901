package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "bolso/internal/errors"
	"bolso/internal/logger"
	"bolso/internal/models"
	"bolso/internal/pagination"
	"bolso/internal/schedule"
)

// recurringService owns recurring rules, their executor and the daily
// batch driver.
type recurringService struct {
	db        *gorm.DB
	scheduler *schedule.Scheduler
	notifier  Notifier
}

// NewRecurringService creates a new RecurringServicer.
func NewRecurringService(db *gorm.DB, scheduler *schedule.Scheduler, notifier Notifier) RecurringServicer {
	return &recurringService{db: db, scheduler: scheduler, notifier: notifier}
}

// Create registers a recurring rule against a category of the caller's
// active budget and computes its first execution date.
func (s *recurringService) Create(userID string, in CreateRecurringInput) (*models.RecurringTransaction, error) {
	if in.Amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if in.EndDate != nil && !in.EndDate.After(in.StartDate) {
		return nil, apperrors.ErrEndBeforeStart
	}
	if in.ExecutionDay != nil && (*in.ExecutionDay < 1 || *in.ExecutionDay > 31) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "execution_day must be between 1 and 31")
	}

	budget, category, err := s.ownedCategory(userID, in.CategoryID)
	if err != nil {
		return nil, err
	}

	next, err := s.scheduler.NextExecution(in.Frequency, in.StartDate, in.ExecutionDay, time.Now())
	if err != nil {
		return nil, err
	}
	// A rule that has never run fires on its start date itself, not on
	// the following occurrence.
	start := s.scheduler.Today(in.StartDate)
	if !start.Before(s.scheduler.Today(time.Now())) {
		next = start
	}

	rule := &models.RecurringTransaction{
		BudgetID:          budget.ID,
		CategoryID:        category.ID,
		Description:       in.Description,
		Amount:            in.Amount,
		Frequency:         in.Frequency,
		StartDate:         start,
		EndDate:           in.EndDate,
		ExecutionDay:      in.ExecutionDay,
		NextExecutionDate: next,
		IsActive:          true,
	}
	if err := s.db.Create(rule).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	rule.Category = *category
	return rule, nil
}

// List returns the caller's recurring rules, active first.
func (s *recurringService) List(userID string) ([]models.RecurringTransaction, error) {
	budgetIDs, err := s.budgetIDs(userID)
	if err != nil {
		return nil, err
	}

	var rules []models.RecurringTransaction
	err = s.db.Preload("Category").
		Where("budget_id IN ?", budgetIDs).
		Order("is_active DESC, next_execution_date").
		Find(&rules).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rules, nil
}

// Get returns one rule, enforcing ownership.
func (s *recurringService) Get(userID, ruleID string) (*models.RecurringTransaction, error) {
	return s.ownedRule(userID, ruleID)
}

// Update edits a rule. Changing the frequency or execution day
// recomputes the next execution from the last run (or the start date if
// the rule never ran).
func (s *recurringService) Update(userID, ruleID string, in UpdateRecurringInput) (*models.RecurringTransaction, error) {
	rule, err := s.ownedRule(userID, ruleID)
	if err != nil {
		return nil, err
	}

	if in.Amount != nil && *in.Amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if in.ExecutionDay != nil && (*in.ExecutionDay < 1 || *in.ExecutionDay > 31) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "execution_day must be between 1 and 31")
	}
	if in.EndDate != nil && !in.EndDate.After(rule.StartDate) {
		return nil, apperrors.ErrEndBeforeStart
	}

	if in.Description != nil {
		rule.Description = *in.Description
	}
	if in.Amount != nil {
		rule.Amount = *in.Amount
	}
	if in.EndDate != nil {
		rule.EndDate = in.EndDate
	}
	if in.IsActive != nil {
		rule.IsActive = *in.IsActive
	}

	recompute := false
	if in.Frequency != nil && *in.Frequency != rule.Frequency {
		rule.Frequency = *in.Frequency
		recompute = true
	}
	if in.ExecutionDay != nil {
		rule.ExecutionDay = in.ExecutionDay
		recompute = true
	}

	if recompute {
		anchor := rule.StartDate
		if rule.LastExecutedAt != nil {
			anchor = *rule.LastExecutedAt
		}
		next, err := s.scheduler.NextExecution(rule.Frequency, anchor, rule.ExecutionDay, time.Now())
		if err != nil {
			return nil, err
		}
		rule.NextExecutionDate = next
	}

	if err := s.db.Save(rule).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rule, nil
}

// Delete removes a rule. Its execution logs and the ledger rows it
// produced are kept.
func (s *recurringService) Delete(userID, ruleID string) error {
	rule, err := s.ownedRule(userID, ruleID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(rule).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetLogs returns a rule's execution history, newest first.
func (s *recurringService) GetLogs(userID, ruleID string, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringExecutionLog], error) {
	if _, err := s.ownedRule(userID, ruleID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.RecurringExecutionLog{}).Where("recurring_transaction_id = ?", ruleID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var logs []models.RecurringExecutionLog
	if err := base.Scopes(pagination.Paginate(page)).
		Order("executed_at DESC").
		Find(&logs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(logs, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// ExecuteByID runs one rule on demand, regardless of its schedule.
func (s *recurringService) ExecuteByID(userID, ruleID string) (*ExecutionResult, error) {
	rule, err := s.ownedRule(userID, ruleID)
	if err != nil {
		return nil, err
	}
	return s.execute(rule, time.Now())
}

// ProcessAll is the daily batch driver: it loads every active,
// unexpired rule, executes the ones due today, and reports counts. One
// misbehaving rule never aborts the batch.
func (s *recurringService) ProcessAll(now time.Time) (*BatchResult, error) {
	log := logger.Get()

	var rules []models.RecurringTransaction
	err := s.db.Where("is_active = ?", true).
		Where("end_date IS NULL OR end_date >= ?", s.scheduler.Today(now)).
		Order("created_at").
		Find(&rules).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &BatchResult{Total: len(rules)}
	for i := range rules {
		rule := &rules[i]

		due, err := s.scheduler.ShouldExecuteToday(rule, now)
		if err != nil {
			result.Failed++
			result.Details = append(result.Details, BatchDetail{
				RuleID:      rule.ID,
				Description: rule.Description,
				Error:       err.Error(),
			})
			log.Errorw("recurring rule skipped with bad schedule", "rule_id", rule.ID, "error", err)
			continue
		}
		if !due {
			result.Skipped++
			continue
		}

		exec, err := s.execute(rule, now)
		if err != nil {
			result.Failed++
			result.Details = append(result.Details, BatchDetail{
				RuleID:      rule.ID,
				Description: rule.Description,
				Error:       err.Error(),
			})
			log.Errorw("recurring execution failed", "rule_id", rule.ID, "error", err)
			continue
		}

		detail := BatchDetail{RuleID: rule.ID, Description: rule.Description, Success: exec.Success}
		if exec.Success {
			result.Executed++
		} else {
			result.Failed++
			detail.Error = exec.Error
		}
		result.Details = append(result.Details, detail)
	}

	log.Infow("recurring batch finished",
		"total", result.Total,
		"executed", result.Executed,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
	return result, nil
}

// execute applies one rule: debit the category, append the ledger row,
// advance the rule's schedule and log the attempt, all in one
// transaction. Insufficient balance is a structured failure result: the
// attempt is logged but the rule and the category are left untouched,
// so the rule retries on its next due date.
func (s *recurringService) execute(rule *models.RecurringTransaction, now time.Time) (*ExecutionResult, error) {
	var category models.Category
	if err := s.db.Where("id = ?", rule.CategoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logAttempt(rule, now, 0, nil, "category not found")
			return &ExecutionResult{Success: false, Error: apperrors.ErrCategoryNotFound.Message}, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if rule.Amount > category.CurrentBalance {
		msg := fmt.Sprintf("insufficient balance: have %d, need %d", category.CurrentBalance, rule.Amount)
		s.logAttempt(rule, now, category.CurrentBalance, nil, msg)
		return &ExecutionResult{Success: false, Error: msg}, nil
	}

	balanceBefore := category.CurrentBalance
	newBalance := balanceBefore - rule.Amount

	next, err := s.scheduler.NextExecution(rule.Frequency, now, rule.ExecutionDay, now)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&category).Update("current_balance", newBalance).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		transaction := &models.BudgetTransaction{
			BudgetID:               rule.BudgetID,
			CategoryID:             &rule.CategoryID,
			Type:                   models.TransactionTypeExpense,
			Amount:                 rule.Amount,
			Description:            rule.Description,
			IsRecurring:            true,
			RecurringTransactionID: &rule.ID,
		}
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Model(rule).Updates(map[string]interface{}{
			"last_executed_at":    now,
			"next_execution_date": next,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		logRow := &models.RecurringExecutionLog{
			RecurringTransactionID: rule.ID,
			ExecutedAt:             now,
			Success:                true,
			Amount:                 rule.Amount,
			BalanceBefore:          balanceBefore,
			BalanceAfter:           &newBalance,
		}
		if err := tx.Create(logRow).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		s.logAttempt(rule, now, balanceBefore, nil, err.Error())
		return nil, err
	}

	rule.LastExecutedAt = &now
	rule.NextExecutionDate = next

	s.notifyExecuted(rule, &category, newBalance)

	return &ExecutionResult{Success: true, NewBalance: &newBalance, NextExecution: &next}, nil
}

// logAttempt records a failed attempt outside the main transaction.
// Best effort: losing a failure log must not mask the failure itself.
func (s *recurringService) logAttempt(rule *models.RecurringTransaction, now time.Time, balanceBefore int64, balanceAfter *int64, errMsg string) {
	logRow := &models.RecurringExecutionLog{
		RecurringTransactionID: rule.ID,
		ExecutedAt:             now,
		Success:                false,
		Amount:                 rule.Amount,
		BalanceBefore:          balanceBefore,
		BalanceAfter:           balanceAfter,
		ErrorMessage:           errMsg,
	}
	if err := s.db.Create(logRow).Error; err != nil {
		logger.Get().Errorw("failed to write execution log", "rule_id", rule.ID, "error", err)
	}
}

func (s *recurringService) notifyExecuted(rule *models.RecurringTransaction, category *models.Category, newBalance int64) {
	if s.notifier == nil {
		return
	}

	var budget models.Budget
	if err := s.db.Select("user_id").Where("id = ?", rule.BudgetID).First(&budget).Error; err != nil {
		logger.Get().Errorw("failed to resolve budget owner for notification", "budget_id", rule.BudgetID, "error", err)
		return
	}

	s.notifier.Send(budget.UserID, models.NotificationRecurring, map[string]string{
		"description":   rule.Description,
		"amount":        FormatCents(rule.Amount),
		"category_name": category.Name,
		"remaining":     FormatCents(newBalance),
	}, models.PriorityNormal)
}

// ownedRule loads a rule and verifies it belongs to one of the caller's
// budgets.
func (s *recurringService) ownedRule(userID, ruleID string) (*models.RecurringTransaction, error) {
	var rule models.RecurringTransaction
	if err := s.db.Preload("Category").Where("id = ?", ruleID).First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecurringNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budget models.Budget
	if err := s.db.Select("user_id").Where("id = ?", rule.BudgetID).First(&budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if budget.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	return &rule, nil
}

// ownedCategory resolves a category against the caller's active budget.
func (s *recurringService) ownedCategory(userID, categoryID string) (*models.Budget, *models.Category, error) {
	var budget models.Budget
	err := s.db.Where("user_id = ? AND is_active = ?", userID, true).First(&budget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.ErrBudgetNotFound
		}
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var category models.Category
	if err := s.db.Where("id = ?", categoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.ErrCategoryNotFound
		}
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if category.BudgetID != budget.ID {
		return nil, nil, apperrors.ErrForbidden
	}
	return &budget, &category, nil
}

func (s *recurringService) budgetIDs(userID string) ([]string, error) {
	var ids []string
	err := s.db.Model(&models.Budget{}).Where("user_id = ?", userID).Pluck("id", &ids).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return ids, nil
}
