package models

// Budget is a user's envelope budget. A user has at most one active
// budget at a time; creating a new one deactivates the previous one
// inside the same transaction.
//
// All money amounts in this package are integer cents.
type Budget struct {
	Base
	UserID           string `gorm:"type:uuid;not null;index" json:"user_id"`
	Name             string `gorm:"not null" json:"name"`
	TotalIncome      int64  `gorm:"not null" json:"total_income"`
	AllocatedAmount  int64  `gorm:"not null" json:"allocated_amount"`
	AvailableBalance int64  `gorm:"not null" json:"available_balance"`
	IsActive         bool   `gorm:"default:true" json:"is_active"`

	Incomes    []Income   `gorm:"foreignKey:BudgetID" json:"incomes,omitempty"`
	Categories []Category `gorm:"foreignKey:BudgetID" json:"categories,omitempty"`
}

// Income is a recurring income source attached to a budget.
type Income struct {
	Base
	BudgetID    string `gorm:"type:uuid;not null;index" json:"budget_id"`
	Description string `gorm:"not null" json:"description"`
	Amount      int64  `gorm:"not null" json:"amount"`
	ReceiveDay  int    `gorm:"not null" json:"receive_day"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`
}
