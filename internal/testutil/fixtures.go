package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"bolso/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		Name:     fmt.Sprintf("Test User %d", nextID()),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestBudget creates an active budget for the given user.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID string, totalIncome int64) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:      userID,
		Name:        fmt.Sprintf("Test Budget %d", nextID()),
		TotalIncome: totalIncome,
		IsActive:    true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestIncome creates an income source on the given budget.
func CreateTestIncome(t *testing.T, db *gorm.DB, budgetID string, amount int64) *models.Income {
	t.Helper()

	income := &models.Income{
		BudgetID:    budgetID,
		Description: fmt.Sprintf("Test Income %d", nextID()),
		Amount:      amount,
		ReceiveDay:  5,
		IsActive:    true,
	}
	if err := db.Create(income).Error; err != nil {
		t.Fatalf("failed to create test income: %v", err)
	}
	return income
}

// CreateTestCategory creates a category with its full allocation as balance.
func CreateTestCategory(t *testing.T, db *gorm.DB, budgetID string, allocated int64) *models.Category {
	t.Helper()
	return CreateTestCategoryWithBalance(t, db, budgetID, allocated, allocated)
}

// CreateTestCategoryWithBalance creates a category with an explicit balance (in cents).
func CreateTestCategoryWithBalance(t *testing.T, db *gorm.DB, budgetID string, allocated, balance int64) *models.Category {
	t.Helper()

	category := &models.Category{
		BudgetID:        budgetID,
		Name:            fmt.Sprintf("Test Category %d", nextID()),
		AllocatedAmount: allocated,
		CurrentBalance:  balance,
		IsActive:        true,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestRecurring creates an active recurring rule on the category.
func CreateTestRecurring(t *testing.T, db *gorm.DB, budgetID, categoryID string, amount int64, frequency models.Frequency, startDate time.Time) *models.RecurringTransaction {
	t.Helper()

	rule := &models.RecurringTransaction{
		BudgetID:          budgetID,
		CategoryID:        categoryID,
		Description:       fmt.Sprintf("Test Recurring %d", nextID()),
		Amount:            amount,
		Frequency:         frequency,
		StartDate:         startDate,
		NextExecutionDate: startDate,
		IsActive:          true,
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("failed to create test recurring transaction: %v", err)
	}
	return rule
}

// CreateTestGoal creates an active goal with the given amounts (in cents).
func CreateTestGoal(t *testing.T, db *gorm.DB, userID string, target, current int64) *models.Goal {
	t.Helper()

	goal := &models.Goal{
		UserID:        userID,
		Name:          fmt.Sprintf("Test Goal %d", nextID()),
		TargetAmount:  target,
		CurrentAmount: current,
		IsActive:      true,
	}
	if err := db.Create(goal).Error; err != nil {
		t.Fatalf("failed to create test goal: %v", err)
	}
	return goal
}

// CreateTestTemplate creates a notification template for the given type.
func CreateTestTemplate(t *testing.T, db *gorm.DB, notificationType models.NotificationType, title, body string) *models.NotificationTemplate {
	t.Helper()

	template := &models.NotificationTemplate{
		Type:          notificationType,
		TitleTemplate: title,
		BodyTemplate:  body,
		Priority:      models.PriorityNormal,
	}
	if err := db.Create(template).Error; err != nil {
		t.Fatalf("failed to create test template: %v", err)
	}
	return template
}

// CreateTestTemplates seeds a minimal template for every notification type.
func CreateTestTemplates(t *testing.T, db *gorm.DB) {
	t.Helper()

	for _, nt := range []models.NotificationType{
		models.NotificationBudgetAlert,
		models.NotificationBudgetLimit,
		models.NotificationGoalMilestone,
		models.NotificationGoalCompleted,
		models.NotificationRecurring,
	} {
		CreateTestTemplate(t, db, nt, string(nt), "{{category_name}}{{goal_name}}{{description}}")
	}
}
