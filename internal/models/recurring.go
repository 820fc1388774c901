package models

import "time"

// Frequency is the cadence of a recurring transaction.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// RecurringTransaction is a user-defined schedule that periodically
// re-applies an expense to a category. NextExecutionDate is recomputed
// after every execution and after any edit to frequency/execution day.
type RecurringTransaction struct {
	Base
	BudgetID    string    `gorm:"type:uuid;not null;index" json:"budget_id"`
	CategoryID  string    `gorm:"type:uuid;not null;index" json:"category_id"`
	Description string    `gorm:"not null" json:"description"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Frequency   Frequency `gorm:"not null" json:"frequency"`

	StartDate time.Time  `gorm:"not null" json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	// ExecutionDay is the 1-31 target day; its meaning depends on the
	// frequency (day of month for monthly, day of the anchor month for
	// yearly). Nil means "use the start date's day".
	ExecutionDay *int `json:"execution_day,omitempty"`

	LastExecutedAt    *time.Time `json:"last_executed_at,omitempty"`
	NextExecutionDate time.Time  `gorm:"not null" json:"next_execution_date"`
	IsActive          bool       `gorm:"default:true" json:"is_active"`

	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
