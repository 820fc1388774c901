package models

// TransactionType represents the kind of ledger entry.
type TransactionType string

const (
	TransactionTypeExpense     TransactionType = "expense"
	TransactionTypeTransferOut TransactionType = "transfer_out"
	TransactionTypeTransferIn  TransactionType = "transfer_in"
)

// BudgetTransaction is an immutable ledger row recording one
// balance-affecting event. Category balances are denormalized; these
// rows are the source of truth for history.
//
// Transfers produce two rows (transfer_out and transfer_in) that both
// carry both category ids and share a TransferGroupID, so either leg
// can resolve its sibling without guessing.
type BudgetTransaction struct {
	Base
	BudgetID    string          `gorm:"type:uuid;not null;index" json:"budget_id"`
	CategoryID  *string         `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Type        TransactionType `gorm:"not null" json:"transaction_type"`
	Amount      int64           `gorm:"not null" json:"amount"`
	Description string          `json:"description"`

	// Transfer legs.
	FromCategoryID  *string `gorm:"type:uuid" json:"from_category_id,omitempty"`
	ToCategoryID    *string `gorm:"type:uuid" json:"to_category_id,omitempty"`
	TransferGroupID *string `gorm:"type:uuid;index" json:"transfer_group_id,omitempty"`

	// Recurring execution provenance.
	IsRecurring            bool    `gorm:"default:false" json:"is_recurring"`
	RecurringTransactionID *string `gorm:"type:uuid;index" json:"recurring_transaction_id,omitempty"`
}
