package services

import (
	"time"

	"bolso/internal/models"
	"bolso/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, name string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// IncomeInput is one income source in a budget setup request.
type IncomeInput struct {
	Description string
	Amount      int64
	ReceiveDay  int
}

// CategoryInput is one envelope in a budget setup request.
type CategoryInput struct {
	Name            string
	AllocatedAmount int64
	Color           string
}

// ExpenseResult reports the category balance after an expense.
type ExpenseResult struct {
	NewBalance  int64                     `json:"new_balance"`
	Transaction *models.BudgetTransaction `json:"transaction"`
}

// TransferResult reports both category balances after a transfer.
type TransferResult struct {
	FromNewBalance int64 `json:"from_new_balance"`
	ToNewBalance   int64 `json:"to_new_balance"`
}

// BudgetServicer defines the contract for the budget ledger.
type BudgetServicer interface {
	CreateCompleteBudget(userID, name string, incomes []IncomeInput, categories []CategoryInput) (*models.Budget, error)
	GetActiveBudget(userID string) (*models.Budget, error)
	GetCategories(userID string) ([]models.Category, error)
	GetIncomes(userID string) ([]models.Income, error)
	RecordExpense(userID, categoryID string, amount int64, description string) (*ExpenseResult, error)
	ProcessTransfer(userID, fromCategoryID, toCategoryID string, amount int64, description string) (*TransferResult, error)
	GetTransactions(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.BudgetTransaction], error)
}

// CreateRecurringInput carries the fields for a new recurring rule.
type CreateRecurringInput struct {
	CategoryID   string
	Description  string
	Amount       int64
	Frequency    models.Frequency
	StartDate    time.Time
	EndDate      *time.Time
	ExecutionDay *int
}

// UpdateRecurringInput carries optional edits to a recurring rule.
// Frequency or execution-day changes trigger a next-execution recompute.
type UpdateRecurringInput struct {
	Description  *string
	Amount       *int64
	Frequency    *models.Frequency
	EndDate      *time.Time
	ExecutionDay *int
	IsActive     *bool
}

// ExecutionResult is the structured outcome of one execution attempt.
// Insufficient balance is a failure result, not an error.
type ExecutionResult struct {
	Success       bool       `json:"success"`
	NewBalance    *int64     `json:"new_balance,omitempty"`
	NextExecution *time.Time `json:"next_execution,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// BatchDetail pairs one processed rule with its outcome.
type BatchDetail struct {
	RuleID      string `json:"rule_id"`
	Description string `json:"description"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

// BatchResult aggregates one batch run over all active rules.
type BatchResult struct {
	Total    int           `json:"total"`
	Executed int           `json:"executed"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Details  []BatchDetail `json:"details"`
}

// RecurringServicer defines the contract for recurring transactions,
// including the executor and the batch driver.
type RecurringServicer interface {
	Create(userID string, in CreateRecurringInput) (*models.RecurringTransaction, error)
	List(userID string) ([]models.RecurringTransaction, error)
	Get(userID, ruleID string) (*models.RecurringTransaction, error)
	Update(userID, ruleID string, in UpdateRecurringInput) (*models.RecurringTransaction, error)
	Delete(userID, ruleID string) error
	GetLogs(userID, ruleID string, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringExecutionLog], error)
	ExecuteByID(userID, ruleID string) (*ExecutionResult, error)
	ProcessAll(now time.Time) (*BatchResult, error)
}

// GoalInput carries the fields for creating a goal.
type GoalInput struct {
	Name          string
	Description   string
	TargetAmount  int64
	MonthlyTarget *int64
	TargetDate    *time.Time
	Color         string
}

// UpdateGoalInput carries optional edits to a goal.
type UpdateGoalInput struct {
	Name          *string
	Description   *string
	TargetAmount  *int64
	MonthlyTarget *int64
	TargetDate    *time.Time
	Color         *string
	IsActive      *bool
}

// GoalWithProgress decorates a goal with derived progress figures.
type GoalWithProgress struct {
	models.Goal
	Progress            float64    `json:"progress"`
	RemainingAmount     int64      `json:"remaining_amount"`
	MonthsToComplete    *int       `json:"months_to_complete,omitempty"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
	IsOverdue           bool       `json:"is_overdue"`
	DaysOverdue         int        `json:"days_overdue"`
}

// GoalTransactionResult reports a goal transaction outcome.
type GoalTransactionResult struct {
	NewAmount   int64             `json:"new_amount"`
	Completed   bool              `json:"completed"`
	Goal        *GoalWithProgress `json:"goal"`
	Transaction *models.GoalTransaction
}

// GoalStatistics summarizes a user's goals.
type GoalStatistics struct {
	TotalGoals     int   `json:"total_goals"`
	ActiveGoals    int   `json:"active_goals"`
	CompletedGoals int   `json:"completed_goals"`
	OverdueGoals   int   `json:"overdue_goals"`
	TotalSaved     int64 `json:"total_saved"`
	TotalTarget    int64 `json:"total_target"`
}

// GoalServicer defines the contract for savings goals.
type GoalServicer interface {
	Create(userID string, in GoalInput) (*GoalWithProgress, error)
	List(userID string, includeInactive bool) ([]GoalWithProgress, error)
	Get(userID, goalID string) (*GoalWithProgress, error)
	Update(userID, goalID string, in UpdateGoalInput) (*GoalWithProgress, error)
	Delete(userID, goalID string) error
	ProcessTransaction(userID, goalID string, txType models.GoalTransactionType, amount int64, description string) (*GoalTransactionResult, error)
	Complete(userID, goalID string) (*GoalWithProgress, error)
	GetTransactions(userID, goalID string, page pagination.PageRequest) (*pagination.PageResponse[models.GoalTransaction], error)
	Statistics(userID string) (*GoalStatistics, error)
}

// Notifier emits templated notification events. Implementations must be
// fire-and-forget: delivery problems are logged, never returned, so a
// ledger operation can never fail because of its notification.
type Notifier interface {
	Send(userID string, notificationType models.NotificationType, vars map[string]string, priority models.NotificationPriority)
}

// UpdateSettingsInput carries optional notification settings edits.
type UpdateSettingsInput struct {
	PushEnabled        *bool
	EmailEnabled       *bool
	InAppEnabled       *bool
	BudgetAlerts       *bool
	GoalUpdates        *bool
	RecurringReminders *bool
}

// NotificationServicer defines the user-facing notification surface.
type NotificationServicer interface {
	Notifier
	List(userID string, page pagination.PageRequest, unreadOnly bool) (*pagination.PageResponse[models.Notification], error)
	MarkRead(userID, notificationID string) (*models.Notification, error)
	MarkAllRead(userID string) (int64, error)
	GetSettings(userID string) (*models.NotificationSettings, error)
	UpdateSettings(userID string, in UpdateSettingsInput) (*models.NotificationSettings, error)
	RegisterDeviceToken(userID, token, platform string) error
}

// PushSender delivers a push notification to a user's registered
// devices. The concrete delivery backend lives outside this module.
type PushSender interface {
	SendPush(userID, title, body string, tokens []string) error
}

// EmailSender delivers a notification email. The concrete delivery
// backend lives outside this module.
type EmailSender interface {
	SendEmail(to, subject, body string) error
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
