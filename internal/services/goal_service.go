package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "bolso/internal/errors"
	"bolso/internal/models"
	"bolso/internal/pagination"
)

// maxActiveGoals caps active goals per user.
const maxActiveGoals = 20

// Progress milestones checked from highest to lowest; only the highest
// threshold crossed by a deposit fires.
var goalMilestones = []int{75, 50, 25}

type goalService struct {
	db       *gorm.DB
	notifier Notifier
}

// NewGoalService creates a new GoalServicer.
func NewGoalService(db *gorm.DB, notifier Notifier) GoalServicer {
	return &goalService{db: db, notifier: notifier}
}

// Create registers a savings goal. The target date, when given, must be
// in the future.
func (s *goalService) Create(userID string, in GoalInput) (*GoalWithProgress, error) {
	if in.TargetAmount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target_amount must be greater than zero")
	}
	if in.MonthlyTarget != nil && *in.MonthlyTarget <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "monthly_target must be greater than zero")
	}
	if in.TargetDate != nil && !in.TargetDate.After(time.Now()) {
		return nil, apperrors.ErrTargetDatePast
	}

	var activeCount int64
	err := s.db.Model(&models.Goal{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&activeCount).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if activeCount >= maxActiveGoals {
		return nil, apperrors.ErrGoalLimitReached
	}

	goal := &models.Goal{
		UserID:        userID,
		Name:          in.Name,
		Description:   in.Description,
		TargetAmount:  in.TargetAmount,
		MonthlyTarget: in.MonthlyTarget,
		TargetDate:    in.TargetDate,
		Color:         in.Color,
		IsActive:      true,
	}
	if err := s.db.Create(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.withProgress(goal), nil
}

// List returns the caller's goals with progress, active first.
func (s *goalService) List(userID string, includeInactive bool) ([]GoalWithProgress, error) {
	query := s.db.Where("user_id = ?", userID)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var goals []models.Goal
	if err := query.Order("is_completed, created_at").Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := make([]GoalWithProgress, 0, len(goals))
	for i := range goals {
		result = append(result, *s.withProgress(&goals[i]))
	}
	return result, nil
}

// Get returns one goal with progress, enforcing ownership.
func (s *goalService) Get(userID, goalID string) (*GoalWithProgress, error) {
	goal, err := s.ownedGoal(userID, goalID)
	if err != nil {
		return nil, err
	}
	return s.withProgress(goal), nil
}

// Update edits a goal. Completed goals are frozen, and the target can
// never be lowered below what is already saved.
func (s *goalService) Update(userID, goalID string, in UpdateGoalInput) (*GoalWithProgress, error) {
	goal, err := s.ownedGoal(userID, goalID)
	if err != nil {
		return nil, err
	}
	if goal.IsCompleted {
		return nil, apperrors.ErrGoalCompleted
	}

	if in.TargetAmount != nil {
		if *in.TargetAmount <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target_amount must be greater than zero")
		}
		if *in.TargetAmount < goal.CurrentAmount {
			return nil, apperrors.ErrTargetBelowSaved
		}
		goal.TargetAmount = *in.TargetAmount
	}
	if in.TargetDate != nil {
		if !in.TargetDate.After(time.Now()) {
			return nil, apperrors.ErrTargetDatePast
		}
		goal.TargetDate = in.TargetDate
	}
	if in.Name != nil {
		goal.Name = *in.Name
	}
	if in.Description != nil {
		goal.Description = *in.Description
	}
	if in.MonthlyTarget != nil {
		goal.MonthlyTarget = in.MonthlyTarget
	}
	if in.Color != nil {
		goal.Color = *in.Color
	}
	if in.IsActive != nil {
		goal.IsActive = *in.IsActive
	}

	if err := s.db.Save(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.withProgress(goal), nil
}

// Delete removes a goal. Goals still holding funds must be emptied
// first so money never silently disappears.
func (s *goalService) Delete(userID, goalID string) error {
	goal, err := s.ownedGoal(userID, goalID)
	if err != nil {
		return err
	}
	if goal.CurrentAmount > 0 {
		return apperrors.ErrGoalHasBalance
	}
	if err := s.db.Delete(goal).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ProcessTransaction applies a deposit or withdrawal. The balance
// update and the snapshot row happen in one transaction. A deposit that
// reaches the target completes the goal exactly once; crossing a
// progress milestone fires one notification for the highest threshold
// crossed.
func (s *goalService) ProcessTransaction(userID, goalID string, txType models.GoalTransactionType, amount int64, description string) (*GoalTransactionResult, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	goal, err := s.ownedGoal(userID, goalID)
	if err != nil {
		return nil, err
	}
	if !goal.IsActive {
		return nil, apperrors.ErrGoalInactive
	}

	balanceBefore := goal.CurrentAmount
	var balanceAfter int64

	switch txType {
	case models.GoalTransactionDeposit:
		if goal.IsCompleted {
			return nil, apperrors.ErrGoalCompleted
		}
		balanceAfter = balanceBefore + amount
		if balanceAfter > goal.TargetAmount {
			return nil, apperrors.ErrGoalTargetExceeded
		}
	case models.GoalTransactionWithdrawal:
		if amount > balanceBefore {
			return nil, apperrors.WithMessage(apperrors.ErrInsufficientBalance, "Insufficient goal balance")
		}
		balanceAfter = balanceBefore - amount
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction type must be deposit or withdrawal")
	}

	completed := txType == models.GoalTransactionDeposit && balanceAfter == goal.TargetAmount

	transaction := &models.GoalTransaction{
		GoalID:        goal.ID,
		Type:          txType,
		Amount:        amount,
		Description:   description,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"current_amount": balanceAfter}
		if completed {
			now := time.Now()
			updates["is_completed"] = true
			updates["completed_at"] = now
			goal.CompletedAt = &now
		}
		if err := tx.Model(goal).Updates(updates).Error; err != nil {
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

	goal.CurrentAmount = balanceAfter
	if completed {
		goal.IsCompleted = true
	}

	if txType == models.GoalTransactionDeposit {
		s.notifyDeposit(goal, balanceBefore, balanceAfter, completed)
	}

	return &GoalTransactionResult{
		NewAmount:   balanceAfter,
		Completed:   completed,
		Goal:        s.withProgress(goal),
		Transaction: transaction,
	}, nil
}

// Complete marks a goal completed manually. Only allowed once the
// target has been reached.
func (s *goalService) Complete(userID, goalID string) (*GoalWithProgress, error) {
	goal, err := s.ownedGoal(userID, goalID)
	if err != nil {
		return nil, err
	}
	if goal.IsCompleted {
		return nil, apperrors.ErrGoalCompleted
	}
	if goal.CurrentAmount < goal.TargetAmount {
		return nil, apperrors.ErrGoalNotReached
	}

	now := time.Now()
	err = s.db.Model(goal).Updates(map[string]interface{}{
		"is_completed": true,
		"completed_at": now,
	}).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	goal.IsCompleted = true
	goal.CompletedAt = &now

	s.notifyCompleted(goal)

	return s.withProgress(goal), nil
}

// GetTransactions returns a goal's transaction history, newest first.
func (s *goalService) GetTransactions(userID, goalID string, page pagination.PageRequest) (*pagination.PageResponse[models.GoalTransaction], error) {
	if _, err := s.ownedGoal(userID, goalID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.GoalTransaction{}).Where("goal_id = ?", goalID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.GoalTransaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// Statistics aggregates a user's goals.
func (s *goalService) Statistics(userID string) (*GoalStatistics, error) {
	var goals []models.Goal
	if err := s.db.Where("user_id = ?", userID).Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	stats := &GoalStatistics{TotalGoals: len(goals)}
	now := time.Now()
	for i := range goals {
		g := &goals[i]
		stats.TotalSaved += g.CurrentAmount
		stats.TotalTarget += g.TargetAmount
		if g.IsCompleted {
			stats.CompletedGoals++
			continue
		}
		if g.IsActive {
			stats.ActiveGoals++
		}
		if g.TargetDate != nil && g.TargetDate.Before(now) {
			stats.OverdueGoals++
		}
	}
	return stats, nil
}

func (s *goalService) ownedGoal(userID, goalID string) (*models.Goal, error) {
	var goal models.Goal
	if err := s.db.Where("id = ?", goalID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGoalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if goal.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	return &goal, nil
}

// withProgress derives the presentation figures for a goal.
func (s *goalService) withProgress(goal *models.Goal) *GoalWithProgress {
	out := &GoalWithProgress{Goal: *goal}

	if goal.TargetAmount > 0 {
		out.Progress = float64(goal.CurrentAmount) / float64(goal.TargetAmount) * 100
	}
	out.RemainingAmount = goal.TargetAmount - goal.CurrentAmount
	if out.RemainingAmount < 0 {
		out.RemainingAmount = 0
	}

	if goal.MonthlyTarget != nil && *goal.MonthlyTarget > 0 && out.RemainingAmount > 0 {
		months := int((out.RemainingAmount + *goal.MonthlyTarget - 1) / *goal.MonthlyTarget)
		out.MonthsToComplete = &months
		estimated := time.Now().AddDate(0, months, 0)
		out.EstimatedCompletion = &estimated
	}

	if !goal.IsCompleted && goal.TargetDate != nil {
		now := time.Now()
		if goal.TargetDate.Before(now) {
			out.IsOverdue = true
			out.DaysOverdue = int(now.Sub(*goal.TargetDate).Hours() / 24)
		}
	}
	return out
}

func (s *goalService) notifyDeposit(goal *models.Goal, before, after int64, completed bool) {
	if s.notifier == nil {
		return
	}

	if completed {
		s.notifyCompleted(goal)
		return
	}

	oldPct := int(before * 100 / goal.TargetAmount)
	newPct := int(after * 100 / goal.TargetAmount)
	for _, milestone := range goalMilestones {
		if oldPct < milestone && newPct >= milestone {
			s.notifier.Send(goal.UserID, models.NotificationGoalMilestone, map[string]string{
				"goal_name":  goal.Name,
				"percentage": formatPercent(float64(milestone)),
				"saved":      FormatCents(after),
				"target":     FormatCents(goal.TargetAmount),
			}, models.PriorityNormal)
			return
		}
	}
}

func (s *goalService) notifyCompleted(goal *models.Goal) {
	if s.notifier == nil {
		return
	}
	s.notifier.Send(goal.UserID, models.NotificationGoalCompleted, map[string]string{
		"goal_name": goal.Name,
		"target":    FormatCents(goal.TargetAmount),
	}, models.PriorityHigh)
}
