// Package errors provides the typed error values used across the API.
// Service-layer code returns *AppError so the HTTP boundary can pick a
// status code by tag instead of matching on message text, and so that
// internal details never leak to clients.
package errors

import "net/http"

// AppError is a structured application error carrying a stable code, a
// client-safe message, the HTTP status to respond with, and an optional
// wrapped internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap returns a copy of sentinel carrying an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage returns a copy of sentinel with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Budget ledger errors.
var (
	ErrBudgetNotFound      = &AppError{Code: "BUDGET_NOT_FOUND", Message: "No active budget found", StatusCode: http.StatusNotFound}
	ErrBudgetInconsistent  = &AppError{Code: "BUDGET_INCONSISTENT", Message: "Allocated amount cannot exceed total income", StatusCode: http.StatusBadRequest}
	ErrCategoryNotFound    = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrInsufficientBalance = &AppError{Code: "INSUFFICIENT_BALANCE", Message: "Insufficient category balance", StatusCode: http.StatusBadRequest}
	ErrSameCategory        = &AppError{Code: "SAME_CATEGORY", Message: "Source and destination categories must differ", StatusCode: http.StatusBadRequest}
	ErrLimitExceeded       = &AppError{Code: "LIMIT_EXCEEDED", Message: "Transfer would push the destination category above its allocated amount", StatusCode: http.StatusBadRequest}
)

// Recurring transaction errors.
var (
	ErrRecurringNotFound = &AppError{Code: "RECURRING_NOT_FOUND", Message: "Recurring transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidFrequency  = &AppError{Code: "INVALID_FREQUENCY", Message: "Unsupported recurrence frequency", StatusCode: http.StatusInternalServerError}
	ErrEndBeforeStart    = &AppError{Code: "END_BEFORE_START", Message: "End date must be after the start date", StatusCode: http.StatusBadRequest}
)

// Goal errors.
var (
	ErrGoalNotFound       = &AppError{Code: "GOAL_NOT_FOUND", Message: "Goal not found", StatusCode: http.StatusNotFound}
	ErrGoalInactive       = &AppError{Code: "GOAL_INACTIVE", Message: "Cannot transact on an inactive goal", StatusCode: http.StatusBadRequest}
	ErrGoalCompleted      = &AppError{Code: "GOAL_COMPLETED", Message: "Goal is already completed", StatusCode: http.StatusBadRequest}
	ErrGoalTargetExceeded = &AppError{Code: "GOAL_TARGET_EXCEEDED", Message: "Deposit would push the goal above its target amount", StatusCode: http.StatusBadRequest}
	ErrGoalNotReached     = &AppError{Code: "GOAL_NOT_REACHED", Message: "Goal has not reached its target amount", StatusCode: http.StatusBadRequest}
	ErrGoalHasBalance     = &AppError{Code: "GOAL_HAS_BALANCE", Message: "Withdraw the goal balance before deleting it", StatusCode: http.StatusBadRequest}
	ErrGoalLimitReached   = &AppError{Code: "GOAL_LIMIT_REACHED", Message: "Active goal limit reached", StatusCode: http.StatusBadRequest}
	ErrTargetDatePast     = &AppError{Code: "TARGET_DATE_PAST", Message: "Target date must be in the future", StatusCode: http.StatusBadRequest}
	ErrTargetBelowSaved   = &AppError{Code: "TARGET_BELOW_SAVED", Message: "Target amount cannot be below the amount already saved", StatusCode: http.StatusBadRequest}
)

// Notification errors.
var (
	ErrNotificationNotFound = &AppError{Code: "NOTIFICATION_NOT_FOUND", Message: "Notification not found", StatusCode: http.StatusNotFound}
	ErrTemplateNotFound     = &AppError{Code: "TEMPLATE_NOT_FOUND", Message: "Notification template not found", StatusCode: http.StatusNotFound}
)
