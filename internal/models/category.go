package models

// Category is a spending envelope inside a budget. AllocatedAmount is
// the ceiling, CurrentBalance the spendable remainder. The invariant
// 0 <= CurrentBalance <= AllocatedAmount holds after every ledger
// operation; CurrentBalance is mutated only by the budget service and
// the recurring executor.
type Category struct {
	Base
	BudgetID        string `gorm:"type:uuid;not null;index" json:"budget_id"`
	Name            string `gorm:"not null" json:"name"`
	AllocatedAmount int64  `gorm:"not null" json:"allocated_amount"`
	CurrentBalance  int64  `gorm:"not null" json:"current_balance"`
	Color           string `gorm:"default:'#3B82F6'" json:"color"`
	IsActive        bool   `gorm:"default:true" json:"is_active"`
}
