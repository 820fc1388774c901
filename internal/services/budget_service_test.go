package services

import (
	"testing"

	"bolso/internal/models"
	"bolso/internal/pagination"
	"bolso/internal/testutil"
)

// captureNotifier records emitted notification events for assertions.
type captureNotifier struct {
	events []capturedEvent
}

type capturedEvent struct {
	UserID   string
	Type     models.NotificationType
	Vars     map[string]string
	Priority models.NotificationPriority
}

func (n *captureNotifier) Send(userID string, notificationType models.NotificationType, vars map[string]string, priority models.NotificationPriority) {
	n.events = append(n.events, capturedEvent{UserID: userID, Type: notificationType, Vars: vars, Priority: priority})
}

func (n *captureNotifier) ofType(t models.NotificationType) []capturedEvent {
	var out []capturedEvent
	for _, e := range n.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func TestCreateCompleteBudget(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, nil)
		user := testutil.CreateTestUser(t, db)

		budget, err := svc.CreateCompleteBudget(user.ID, "Orçamento Familiar",
			[]IncomeInput{{Description: "Salary", Amount: 500000, ReceiveDay: 5}},
			[]CategoryInput{
				{Name: "Groceries", AllocatedAmount: 150000},
				{Name: "Transport", AllocatedAmount: 50000},
			})
		testutil.AssertNoError(t, err)

		if budget.TotalIncome != 500000 {
			t.Errorf("expected total income 500000, got %d", budget.TotalIncome)
		}
		if budget.AllocatedAmount != 200000 {
			t.Errorf("expected allocated 200000, got %d", budget.AllocatedAmount)
		}
		if budget.AvailableBalance != 300000 {
			t.Errorf("expected available balance 300000, got %d", budget.AvailableBalance)
		}
		if !budget.IsActive {
			t.Error("expected budget to be active")
		}
		for _, cat := range budget.Categories {
			if cat.CurrentBalance != cat.AllocatedAmount {
				t.Errorf("category %s: balance %d, want full allocation %d", cat.Name, cat.CurrentBalance, cat.AllocatedAmount)
			}
		}

		var stored models.User
		testutil.AssertNoError(t, db.Where("id = ?", user.ID).First(&stored).Error)
		if !stored.SetupCompleted {
			t.Error("expected setup_completed to be set")
		}
	})

	t.Run("allocation_exceeds_income", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, nil)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCompleteBudget(user.ID, "",
			[]IncomeInput{{Description: "Salary", Amount: 100000, ReceiveDay: 1}},
			[]CategoryInput{{Name: "Rent", AllocatedAmount: 150000}})
		testutil.AssertAppError(t, err, "BUDGET_INCONSISTENT")
	})

	t.Run("no_incomes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, nil)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCompleteBudget(user.ID, "", nil,
			[]CategoryInput{{Name: "Rent", AllocatedAmount: 1000}})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("replaces_previous_active_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, nil)
		user := testutil.CreateTestUser(t, db)

		first, err := svc.CreateCompleteBudget(user.ID, "First",
			[]IncomeInput{{Description: "Salary", Amount: 100000, ReceiveDay: 1}},
			[]CategoryInput{{Name: "A", AllocatedAmount: 50000}})
		testutil.AssertNoError(t, err)

		second, err := svc.CreateCompleteBudget(user.ID, "Second",
			[]IncomeInput{{Description: "Salary", Amount: 200000, ReceiveDay: 1}},
			[]CategoryInput{{Name: "B", AllocatedAmount: 80000}})
		testutil.AssertNoError(t, err)

		var activeCount int64
		testutil.AssertNoError(t, db.Model(&models.Budget{}).
			Where("user_id = ? AND is_active = ?", user.ID, true).
			Count(&activeCount).Error)
		if activeCount != 1 {
			t.Fatalf("expected exactly one active budget, got %d", activeCount)
		}

		active, err := svc.GetActiveBudget(user.ID)
		testutil.AssertNoError(t, err)
		if active.ID != second.ID {
			t.Errorf("expected active budget %s, got %s", second.ID, active.ID)
		}
		if active.ID == first.ID {
			t.Error("first budget must no longer be active")
		}
	})
}

func TestRecordExpense(t *testing.T) {
	t.Run("debits_category_and_appends_row", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, nil)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, 100000)
		cat := testutil.CreateTestCategory(t, db, budget.ID, 50000)

		result, err := svc.RecordExpense(user.ID, cat.ID, 20000, "Supermarket")
		testutil.AssertNoError(t, err)

		if result.NewBalance != 30000 {
			t.Errorf("expected new balance 30000, got %d", result.NewBalance)
		}

		var stored models.Category
		testutil.AssertNoError(t, db.Where("id = ?", cat.ID).First(&stored).Error)
		if stored.CurrentBalance != 30000 {
			t.Errorf("stored balance %d, want 30000", stored.CurrentBalance)
		}

		var txCount int64
		testutil.AssertNoError(t, db.Model(&models.BudgetTransaction{}).
			Where("budget_id = ? AND type = ?", budget.ID, models.TransactionTypeExpense).
			Count(&txCount).Error)
		if txCount != 1 {
			t.Errorf("expected 1 ledger row, got %d", txCount)
		}
	})

	t.Run("insufficient_balance_rejected_untouched", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, nil)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, 100000)
		cat := testutil.CreateTestCategoryWithBalance(t, db, budget.ID, 50000, 10000)

		_, err := svc.RecordExpense(user.ID, cat.ID, 10001, "Too much")
		testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")

		var stored models.Category
		testutil.AssertNoError(t, db.Where("id = ?", cat.ID).First(&stored).Error)
		if stored.CurrentBalance != 10000 {
			t.Errorf("balance changed on rejected expense: %d", stored.CurrentBalance)
		}

		var txCount int64
		testutil.AssertNoError(t, db.Model(&models.BudgetTransaction{}).
			Where("budget_id = ?", budget.ID).Count(&txCount).Error)
		if txCount != 0 {
			t.Errorf("expected no ledger rows, got %d", txCount)
		}
	})

	t.Run("exact_balance_allowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, nil)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, 100000)
		cat := testutil.CreateTestCategoryWithBalance(t, db, budget.ID, 50000, 10000)

		result, err := svc.RecordExpense(user.ID, cat.ID, 10000, "Everything")
		testutil.AssertNoError(t, err)
		if result.NewBalance != 0 {
			t.Errorf("expected zero balance, got %d", result.NewBalance)
		}
	})

	t.Run("other_users_category_forbidden", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, nil)
		owner := testutil.CreateTestUser(t, db)
		intruder := testutil.CreateTestUser(t, db)
		ownerBudget := testutil.CreateTestBudget(t, db, owner.ID, 100000)
		testutil.CreateTestBudget(t, db, intruder.ID, 100000)
		cat := testutil.CreateTestCategory(t, db, ownerBudget.ID, 50000)

		_, err := svc.RecordExpense(intruder.ID, cat.ID, 1000, "Sneaky")
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("unknown_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, nil)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestBudget(t, db, user.ID, 100000)

		_, err := svc.RecordExpense(user.ID, "3a0b1f6e-0000-0000-0000-000000000000", 1000, "Ghost")
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("emits_alert_on_threshold_crossing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		notifier := &captureNotifier{}
		svc := NewBudgetService(db, notifier)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, 100000)
		cat := testutil.CreateTestCategory(t, db, budget.ID, 100000)

		// 0% -> 85%: crosses the warning threshold once.
		_, err := svc.RecordExpense(user.ID, cat.ID, 85000, "Big")
		testutil.AssertNoError(t, err)
		if got := len(notifier.ofType(models.NotificationBudgetAlert)); got != 1 {
			t.Fatalf("expected 1 budget_alert, got %d", got)
		}

		// 85% -> 90%: already past the threshold, no second alert.
		_, err = svc.RecordExpense(user.ID, cat.ID, 5000, "Small")
		testutil.AssertNoError(t, err)
		if got := len(notifier.ofType(models.NotificationBudgetAlert)); got != 1 {
			t.Fatalf("expected still 1 budget_alert, got %d", got)
		}

		// 90% -> 100%: exhaustion fires budget_limit as urgent.
		_, err = svc.RecordExpense(user.ID, cat.ID, 10000, "Rest")
		testutil.AssertNoError(t, err)
		limits := notifier.ofType(models.NotificationBudgetLimit)
		if len(limits) != 1 {
			t.Fatalf("expected 1 budget_limit, got %d", len(limits))
		}
		if limits[0].Priority != models.PriorityUrgent {
			t.Errorf("expected urgent priority, got %s", limits[0].Priority)
		}
	})
}

func TestProcessTransfer(t *testing.T) {
	t.Run("moves_funds_with_paired_legs", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, nil)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, 100000)
		from := testutil.CreateTestCategoryWithBalance(t, db, budget.ID, 50000, 20000)
		to := testutil.CreateTestCategoryWithBalance(t, db, budget.ID, 20000, 5000)

		result, err := svc.ProcessTransfer(user.ID, from.ID, to.ID, 10000, "Rebalance")
		testutil.AssertNoError(t, err)

		if result.FromNewBalance != 10000 {
			t.Errorf("from balance %d, want 10000", result.FromNewBalance)
		}
		if result.ToNewBalance != 15000 {
			t.Errorf("to balance %d, want 15000", result.ToNewBalance)
		}

		var legs []models.BudgetTransaction
		testutil.AssertNoError(t, db.Where("budget_id = ?", budget.ID).Order("type").Find(&legs).Error)
		if len(legs) != 2 {
			t.Fatalf("expected 2 ledger legs, got %d", len(legs))
		}
		if legs[0].TransferGroupID == nil || legs[1].TransferGroupID == nil {
			t.Fatal("expected both legs to carry a transfer group")
		}
		if *legs[0].TransferGroupID != *legs[1].TransferGroupID {
			t.Error("legs must share the same transfer group")
		}
		if legs[0].Type == legs[1].Type {
			t.Error("expected one transfer_in and one transfer_out leg")
		}
	})

	t.Run("same_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, nil)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, 100000)
		cat := testutil.CreateTestCategory(t, db, budget.ID, 50000)

		_, err := svc.ProcessTransfer(user.ID, cat.ID, cat.ID, 1000, "Noop")
		testutil.AssertAppError(t, err, "SAME_CATEGORY")
	})

	t.Run("insufficient_source_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, nil)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, 100000)
		from := testutil.CreateTestCategoryWithBalance(t, db, budget.ID, 50000, 500)
		to := testutil.CreateTestCategoryWithBalance(t, db, budget.ID, 50000, 0)

		_, err := svc.ProcessTransfer(user.ID, from.ID, to.ID, 1000, "")
		testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")
	})

	t.Run("destination_over_allocation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, nil)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, 100000)
		from := testutil.CreateTestCategoryWithBalance(t, db, budget.ID, 50000, 20000)
		to := testutil.CreateTestCategoryWithBalance(t, db, budget.ID, 10000, 9000)

		_, err := svc.ProcessTransfer(user.ID, from.ID, to.ID, 2000, "")
		testutil.AssertAppError(t, err, "LIMIT_EXCEEDED")

		// Neither side may have changed.
		var storedFrom, storedTo models.Category
		testutil.AssertNoError(t, db.Where("id = ?", from.ID).First(&storedFrom).Error)
		testutil.AssertNoError(t, db.Where("id = ?", to.ID).First(&storedTo).Error)
		if storedFrom.CurrentBalance != 20000 || storedTo.CurrentBalance != 9000 {
			t.Errorf("balances changed on rejected transfer: %d, %d", storedFrom.CurrentBalance, storedTo.CurrentBalance)
		}
	})
}

func TestBudgetLedgerScenario(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBudgetService(db, nil)
	user := testutil.CreateTestUser(t, db)
	budget := testutil.CreateTestBudget(t, db, user.ID, 100000)
	catA := testutil.CreateTestCategory(t, db, budget.ID, 50000)
	catB := testutil.CreateTestCategoryWithBalance(t, db, budget.ID, 20000, 5000)

	// Expense of 200.00 leaves A at 300.00.
	resA, err := svc.RecordExpense(user.ID, catA.ID, 20000, "Groceries")
	testutil.AssertNoError(t, err)
	if resA.NewBalance != 30000 {
		t.Fatalf("A after expense = %d, want 30000", resA.NewBalance)
	}

	// Transfer 100.00 from A to B.
	resT, err := svc.ProcessTransfer(user.ID, catA.ID, catB.ID, 10000, "Top up")
	testutil.AssertNoError(t, err)
	if resT.FromNewBalance != 20000 || resT.ToNewBalance != 15000 {
		t.Fatalf("after transfer A=%d B=%d, want 20000/15000", resT.FromNewBalance, resT.ToNewBalance)
	}

	// Overspend attempt leaves A untouched.
	_, err = svc.RecordExpense(user.ID, catA.ID, 25000, "Too big")
	testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")

	var storedA models.Category
	testutil.AssertNoError(t, db.Where("id = ?", catA.ID).First(&storedA).Error)
	if storedA.CurrentBalance != 20000 {
		t.Fatalf("A after rejected expense = %d, want 20000", storedA.CurrentBalance)
	}

	// Ledger carries one expense and two transfer legs, newest first.
	page, err := svc.GetTransactions(user.ID, pagination.PageRequest{Page: 1, PageSize: 10})
	testutil.AssertNoError(t, err)
	if page.TotalItems != 3 {
		t.Fatalf("expected 3 ledger rows, got %d", page.TotalItems)
	}
}
