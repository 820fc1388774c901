package models

import "time"

// Goal is a savings target tracked independently of the budget ledger.
// CurrentAmount stays within [0, TargetAmount]; IsCompleted is a
// one-way transition stamped with CompletedAt.
type Goal struct {
	Base
	UserID        string     `gorm:"type:uuid;not null;index" json:"user_id"`
	Name          string     `gorm:"not null" json:"name"`
	Description   string     `json:"description"`
	TargetAmount  int64      `gorm:"not null" json:"target_amount"`
	CurrentAmount int64      `gorm:"not null;default:0" json:"current_amount"`
	MonthlyTarget *int64     `json:"monthly_target,omitempty"`
	TargetDate    *time.Time `json:"target_date,omitempty"`
	Color         string     `gorm:"default:'#10B981'" json:"color"`
	IsCompleted   bool       `gorm:"default:false" json:"is_completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	IsActive      bool       `gorm:"default:true" json:"is_active"`
}

// GoalTransactionType is the direction of a goal transaction.
type GoalTransactionType string

const (
	GoalTransactionDeposit    GoalTransactionType = "deposit"
	GoalTransactionWithdrawal GoalTransactionType = "withdrawal"
)

// GoalTransaction is an immutable record of one deposit or withdrawal
// with a balance snapshot, the goal-side audit trail.
type GoalTransaction struct {
	Base
	GoalID        string              `gorm:"type:uuid;not null;index" json:"goal_id"`
	Type          GoalTransactionType `gorm:"not null" json:"transaction_type"`
	Amount        int64               `gorm:"not null" json:"amount"`
	Description   string              `json:"description"`
	BalanceBefore int64               `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64               `gorm:"not null" json:"balance_after"`
}
