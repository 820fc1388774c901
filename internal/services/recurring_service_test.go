package services

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"bolso/internal/models"
	"bolso/internal/schedule"
	"bolso/internal/testutil"
)

func newTestScheduler(t *testing.T) *schedule.Scheduler {
	t.Helper()
	s, err := schedule.New("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}
	return s
}

func recurringFixture(t *testing.T, db *gorm.DB) (RecurringServicer, *models.User, *models.Budget, *models.Category) {
	t.Helper()
	svc := NewRecurringService(db, newTestScheduler(t), nil)
	user := testutil.CreateTestUser(t, db)
	budget := testutil.CreateTestBudget(t, db, user.ID, 100000)
	cat := testutil.CreateTestCategory(t, db, budget.ID, 50000)
	return svc, user, budget, cat
}

func TestCreateRecurring(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, user, _, cat := recurringFixture(t, db)

		start := time.Now().AddDate(0, 0, 3)
		rule, err := svc.Create(user.ID, CreateRecurringInput{
			CategoryID:  cat.ID,
			Description: "Streaming",
			Amount:      2990,
			Frequency:   models.FrequencyMonthly,
			StartDate:   start,
		})
		testutil.AssertNoError(t, err)

		if !rule.IsActive {
			t.Error("expected rule to be active")
		}
		if rule.LastExecutedAt != nil {
			t.Error("new rule must not have a last execution")
		}
		// A future start is its own first occurrence.
		scheduler := newTestScheduler(t)
		if !rule.NextExecutionDate.Equal(scheduler.Today(start)) {
			t.Errorf("next execution %v, want start date %v", rule.NextExecutionDate, scheduler.Today(start))
		}
	})

	t.Run("end_before_start", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, user, _, cat := recurringFixture(t, db)

		start := time.Now()
		end := start.AddDate(0, 0, -1)
		_, err := svc.Create(user.ID, CreateRecurringInput{
			CategoryID:  cat.ID,
			Description: "Broken",
			Amount:      1000,
			Frequency:   models.FrequencyDaily,
			StartDate:   start,
			EndDate:     &end,
		})
		testutil.AssertAppError(t, err, "END_BEFORE_START")
	})

	t.Run("other_users_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _, _, cat := recurringFixture(t, db)
		intruder := testutil.CreateTestUser(t, db)
		testutil.CreateTestBudget(t, db, intruder.ID, 100000)

		_, err := svc.Create(intruder.ID, CreateRecurringInput{
			CategoryID:  cat.ID,
			Description: "Sneaky",
			Amount:      1000,
			Frequency:   models.FrequencyDaily,
			StartDate:   time.Now(),
		})
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("no_active_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewRecurringService(db, newTestScheduler(t), nil)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.Create(user.ID, CreateRecurringInput{
			CategoryID:  "3a0b1f6e-0000-0000-0000-000000000000",
			Description: "Nothing",
			Amount:      1000,
			Frequency:   models.FrequencyDaily,
			StartDate:   time.Now(),
		})
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})
}

func TestUpdateRecurringReschedules(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc, user, budget, cat := recurringFixture(t, db)
	start := time.Now().AddDate(0, -2, 0)
	rule := testutil.CreateTestRecurring(t, db, budget.ID, cat.ID, 1000, models.FrequencyMonthly, start)

	weekly := models.FrequencyWeekly
	updated, err := svc.Update(user.ID, rule.ID, UpdateRecurringInput{Frequency: &weekly})
	testutil.AssertNoError(t, err)

	if updated.Frequency != models.FrequencyWeekly {
		t.Errorf("frequency %s, want weekly", updated.Frequency)
	}
	scheduler := newTestScheduler(t)
	today := scheduler.Today(time.Now())
	if updated.NextExecutionDate.Before(today) {
		t.Errorf("rescheduled next execution %v is in the past", updated.NextExecutionDate)
	}
}

func TestExecuteRecurring(t *testing.T) {
	t.Run("success_applies_expense_and_advances", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, user, budget, cat := recurringFixture(t, db)
		start := time.Now().AddDate(0, 0, -10)
		rule := testutil.CreateTestRecurring(t, db, budget.ID, cat.ID, 5000, models.FrequencyMonthly, start)

		result, err := svc.ExecuteByID(user.ID, rule.ID)
		testutil.AssertNoError(t, err)

		if !result.Success {
			t.Fatalf("expected success, got error %q", result.Error)
		}
		if result.NewBalance == nil || *result.NewBalance != 45000 {
			t.Errorf("new balance = %v, want 45000", result.NewBalance)
		}

		var stored models.RecurringTransaction
		testutil.AssertNoError(t, db.Where("id = ?", rule.ID).First(&stored).Error)
		if stored.LastExecutedAt == nil {
			t.Fatal("expected last_executed_at to be stamped")
		}
		scheduler := newTestScheduler(t)
		if !stored.NextExecutionDate.After(scheduler.Today(time.Now())) {
			t.Errorf("next execution %v must be after today", stored.NextExecutionDate)
		}

		var tx models.BudgetTransaction
		testutil.AssertNoError(t, db.Where("budget_id = ?", budget.ID).First(&tx).Error)
		if !tx.IsRecurring {
			t.Error("ledger row must be flagged recurring")
		}
		if tx.RecurringTransactionID == nil || *tx.RecurringTransactionID != rule.ID {
			t.Error("ledger row must reference the rule")
		}

		var execLog models.RecurringExecutionLog
		testutil.AssertNoError(t, db.Where("recurring_transaction_id = ?", rule.ID).First(&execLog).Error)
		if !execLog.Success {
			t.Error("expected success log row")
		}
		if execLog.BalanceBefore != 50000 {
			t.Errorf("log balance_before %d, want 50000", execLog.BalanceBefore)
		}
		if execLog.BalanceAfter == nil || *execLog.BalanceAfter != 45000 {
			t.Errorf("log balance_after %v, want 45000", execLog.BalanceAfter)
		}
	})

	t.Run("insufficient_balance_is_failure_result", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewRecurringService(db, newTestScheduler(t), nil)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, 100000)
		cat := testutil.CreateTestCategoryWithBalance(t, db, budget.ID, 50000, 1000)
		rule := testutil.CreateTestRecurring(t, db, budget.ID, cat.ID, 5000, models.FrequencyDaily, time.Now().AddDate(0, 0, -1))

		result, err := svc.ExecuteByID(user.ID, rule.ID)
		testutil.AssertNoError(t, err)

		if result.Success {
			t.Fatal("expected a failure result")
		}
		if result.Error == "" {
			t.Error("expected an error message")
		}

		// Rule and category must be untouched; the attempt is logged.
		var stored models.RecurringTransaction
		testutil.AssertNoError(t, db.Where("id = ?", rule.ID).First(&stored).Error)
		if stored.LastExecutedAt != nil {
			t.Error("failed execution must not stamp last_executed_at")
		}

		var storedCat models.Category
		testutil.AssertNoError(t, db.Where("id = ?", cat.ID).First(&storedCat).Error)
		if storedCat.CurrentBalance != 1000 {
			t.Errorf("category balance %d, want 1000", storedCat.CurrentBalance)
		}

		var execLog models.RecurringExecutionLog
		testutil.AssertNoError(t, db.Where("recurring_transaction_id = ?", rule.ID).First(&execLog).Error)
		if execLog.Success {
			t.Error("expected failure log row")
		}
		if execLog.ErrorMessage == "" {
			t.Error("expected error message in log")
		}
	})
}

func TestProcessAll(t *testing.T) {
	t.Run("executes_due_rules_once_per_day", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _, budget, cat := recurringFixture(t, db)
		testutil.CreateTestRecurring(t, db, budget.ID, cat.ID, 5000, models.FrequencyMonthly, time.Now().AddDate(0, -1, 0))

		now := time.Now()
		first, err := svc.ProcessAll(now)
		testutil.AssertNoError(t, err)
		if first.Executed != 1 {
			t.Fatalf("first run executed %d, want 1", first.Executed)
		}

		// Same-day rerun must be a no-op.
		second, err := svc.ProcessAll(now)
		testutil.AssertNoError(t, err)
		if second.Executed != 0 {
			t.Errorf("second run executed %d, want 0", second.Executed)
		}
		if second.Skipped != 1 {
			t.Errorf("second run skipped %d, want 1", second.Skipped)
		}

		var txCount int64
		testutil.AssertNoError(t, db.Model(&models.BudgetTransaction{}).
			Where("budget_id = ?", budget.ID).Count(&txCount).Error)
		if txCount != 1 {
			t.Errorf("expected exactly 1 ledger row, got %d", txCount)
		}
	})

	t.Run("one_bad_rule_does_not_abort_batch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _, budget, cat := recurringFixture(t, db)
		testutil.CreateTestRecurring(t, db, budget.ID, cat.ID, 5000, models.FrequencyDaily, time.Now().AddDate(0, 0, -1))
		testutil.CreateTestRecurring(t, db, budget.ID, cat.ID, 1000, models.Frequency("fortnightly"), time.Now().AddDate(0, 0, -1))

		result, err := svc.ProcessAll(time.Now())
		testutil.AssertNoError(t, err)

		if result.Total != 2 {
			t.Errorf("total %d, want 2", result.Total)
		}
		if result.Executed != 1 {
			t.Errorf("executed %d, want 1", result.Executed)
		}
		if result.Failed != 1 {
			t.Errorf("failed %d, want 1", result.Failed)
		}
	})

	t.Run("expired_rules_are_excluded", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _, budget, cat := recurringFixture(t, db)
		rule := testutil.CreateTestRecurring(t, db, budget.ID, cat.ID, 5000, models.FrequencyDaily, time.Now().AddDate(0, 0, -30))
		end := time.Now().AddDate(0, 0, -2)
		testutil.AssertNoError(t, db.Model(rule).Update("end_date", end).Error)

		result, err := svc.ProcessAll(time.Now())
		testutil.AssertNoError(t, err)
		if result.Total != 0 {
			t.Errorf("expired rule included in batch: total %d", result.Total)
		}
	})

	t.Run("inactive_rules_are_excluded", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _, budget, cat := recurringFixture(t, db)
		rule := testutil.CreateTestRecurring(t, db, budget.ID, cat.ID, 5000, models.FrequencyDaily, time.Now().AddDate(0, 0, -1))
		testutil.AssertNoError(t, db.Model(rule).Update("is_active", false).Error)

		result, err := svc.ProcessAll(time.Now())
		testutil.AssertNoError(t, err)
		if result.Total != 0 {
			t.Errorf("inactive rule included in batch: total %d", result.Total)
		}
	})
}

func TestDeleteRecurringKeepsHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc, user, budget, cat := recurringFixture(t, db)
	rule := testutil.CreateTestRecurring(t, db, budget.ID, cat.ID, 5000, models.FrequencyDaily, time.Now().AddDate(0, 0, -1))

	result, err := svc.ExecuteByID(user.ID, rule.ID)
	testutil.AssertNoError(t, err)
	if !result.Success {
		t.Fatalf("setup execution failed: %s", result.Error)
	}

	testutil.AssertNoError(t, svc.Delete(user.ID, rule.ID))

	_, err = svc.Get(user.ID, rule.ID)
	testutil.AssertAppError(t, err, "RECURRING_NOT_FOUND")

	var logCount int64
	testutil.AssertNoError(t, db.Model(&models.RecurringExecutionLog{}).
		Where("recurring_transaction_id = ?", rule.ID).Count(&logCount).Error)
	if logCount != 1 {
		t.Errorf("execution history lost on delete: %d rows", logCount)
	}
}
