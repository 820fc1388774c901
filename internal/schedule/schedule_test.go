package schedule

import (
	"testing"
	"time"

	"bolso/internal/models"
	"bolso/internal/testutil"
)

const testTZ = "America/Sao_Paulo"

func newScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(testTZ)
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}
	return s
}

func date(t *testing.T, s *Scheduler, value string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02", value, s.Location())
	if err != nil {
		t.Fatalf("bad date %q: %v", value, err)
	}
	return d
}

func TestNextExecution(t *testing.T) {
	s := newScheduler(t)

	tests := []struct {
		name         string
		frequency    models.Frequency
		anchor       string
		executionDay *int
		now          string
		want         string
	}{
		{"daily_past_anchor", models.FrequencyDaily, "2024-01-01", nil, "2024-01-10", "2024-01-10"},
		{"daily_anchor_today", models.FrequencyDaily, "2024-01-10", nil, "2024-01-10", "2024-01-11"},
		{"daily_future_anchor", models.FrequencyDaily, "2024-02-01", nil, "2024-01-10", "2024-02-01"},

		{"weekly_same_weekday", models.FrequencyWeekly, "2024-01-01", nil, "2024-01-10", "2024-01-15"},
		{"weekly_due_day", models.FrequencyWeekly, "2024-01-01", nil, "2024-01-08", "2024-01-08"},
		{"weekly_executed_today", models.FrequencyWeekly, "2024-01-08", nil, "2024-01-08", "2024-01-15"},
		{"weekly_future_anchor", models.FrequencyWeekly, "2024-03-04", nil, "2024-01-10", "2024-03-04"},

		{"monthly_leap_year_clamp", models.FrequencyMonthly, "2024-01-31", nil, "2024-02-01", "2024-02-29"},
		{"monthly_advance_past_clamp", models.FrequencyMonthly, "2024-01-31", nil, "2024-03-01", "2024-03-31"},
		{"monthly_non_leap_clamp", models.FrequencyMonthly, "2023-01-31", nil, "2023-02-01", "2023-02-28"},
		{"monthly_executed_today", models.FrequencyMonthly, "2024-02-15", nil, "2024-02-15", "2024-03-15"},
		{"monthly_execution_day", models.FrequencyMonthly, "2024-01-05", intPtr(20), "2024-01-10", "2024-01-20"},
		{"monthly_future_anchor", models.FrequencyMonthly, "2025-12-15", nil, "2025-08-31", "2025-12-15"},

		{"yearly_advance", models.FrequencyYearly, "2023-03-10", nil, "2024-01-01", "2024-03-10"},
		{"yearly_executed_today", models.FrequencyYearly, "2024-03-10", nil, "2024-03-10", "2025-03-10"},
		{"yearly_future_anchor", models.FrequencyYearly, "2024-06-01", nil, "2024-01-01", "2024-06-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.NextExecution(tt.frequency, date(t, s, tt.anchor), tt.executionDay, date(t, s, tt.now))
			testutil.AssertNoError(t, err)

			want := date(t, s, tt.want)
			if !got.Equal(want) {
				t.Errorf("next execution = %s, want %s", got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestNextExecutionInvalidFrequency(t *testing.T) {
	s := newScheduler(t)

	_, err := s.NextExecution("fortnightly", time.Now(), nil, time.Now())
	testutil.AssertAppError(t, err, "INVALID_FREQUENCY")
}

func TestShouldExecuteToday(t *testing.T) {
	s := newScheduler(t)
	now := date(t, s, "2024-02-29")

	t.Run("never_executed_started", func(t *testing.T) {
		rule := &models.RecurringTransaction{
			Frequency: models.FrequencyMonthly,
			StartDate: date(t, s, "2024-01-31"),
		}
		due, err := s.ShouldExecuteToday(rule, now)
		testutil.AssertNoError(t, err)
		if !due {
			t.Error("expected rule with past start date to be due")
		}
	})

	t.Run("never_executed_future_start", func(t *testing.T) {
		rule := &models.RecurringTransaction{
			Frequency: models.FrequencyDaily,
			StartDate: date(t, s, "2024-03-15"),
		}
		due, err := s.ShouldExecuteToday(rule, now)
		testutil.AssertNoError(t, err)
		if due {
			t.Error("expected rule with future start date not to be due")
		}
	})

	t.Run("monthly_due_on_clamped_day", func(t *testing.T) {
		last := date(t, s, "2024-01-31")
		rule := &models.RecurringTransaction{
			Frequency:      models.FrequencyMonthly,
			StartDate:      date(t, s, "2024-01-31"),
			LastExecutedAt: &last,
		}
		due, err := s.ShouldExecuteToday(rule, now)
		testutil.AssertNoError(t, err)
		if !due {
			t.Error("expected monthly rule to be due on the clamped leap day")
		}
	})

	t.Run("idempotent_same_day", func(t *testing.T) {
		last := date(t, s, "2024-02-29")
		for _, freq := range []models.Frequency{
			models.FrequencyDaily,
			models.FrequencyWeekly,
			models.FrequencyMonthly,
			models.FrequencyYearly,
		} {
			rule := &models.RecurringTransaction{
				Frequency:      freq,
				StartDate:      date(t, s, "2024-01-01"),
				LastExecutedAt: &last,
			}
			due, err := s.ShouldExecuteToday(rule, now)
			testutil.AssertNoError(t, err)
			if due {
				t.Errorf("%s rule executed today must not be due again", freq)
			}
		}
	})

	t.Run("daily_executed_yesterday", func(t *testing.T) {
		last := date(t, s, "2024-02-28")
		rule := &models.RecurringTransaction{
			Frequency:      models.FrequencyDaily,
			StartDate:      date(t, s, "2024-01-01"),
			LastExecutedAt: &last,
		}
		due, err := s.ShouldExecuteToday(rule, now)
		testutil.AssertNoError(t, err)
		if !due {
			t.Error("expected daily rule executed yesterday to be due")
		}
	})
}

func TestExpired(t *testing.T) {
	s := newScheduler(t)
	now := date(t, s, "2024-06-01")

	end := date(t, s, "2024-05-31")
	rule := &models.RecurringTransaction{EndDate: &end}
	if !s.Expired(rule, now) {
		t.Error("expected rule past its end date to be expired")
	}

	endToday := date(t, s, "2024-06-01")
	rule = &models.RecurringTransaction{EndDate: &endToday}
	if s.Expired(rule, now) {
		t.Error("rule ending today must still be eligible")
	}

	rule = &models.RecurringTransaction{}
	if s.Expired(rule, now) {
		t.Error("rule without end date never expires")
	}
}

func intPtr(v int) *int { return &v }
