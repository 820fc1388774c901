package models

import "time"

// RecurringExecutionLog records one attempt to apply a recurring rule,
// success or failure. One row per attempt, never mutated.
type RecurringExecutionLog struct {
	Base
	RecurringTransactionID string    `gorm:"type:uuid;not null;index" json:"recurring_transaction_id"`
	ExecutedAt             time.Time `gorm:"not null" json:"executed_at"`
	Success                bool      `gorm:"not null" json:"success"`

	// Amount attempted, and the category balance observed before the
	// attempt. BalanceAfter is set only on success.
	Amount        int64  `gorm:"not null" json:"amount"`
	BalanceBefore int64  `gorm:"not null" json:"balance_before"`
	BalanceAfter  *int64 `json:"balance_after,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}
