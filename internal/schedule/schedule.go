// Package schedule implements the date arithmetic for recurring
// transactions. It is pure: no clocks, no storage, every function takes
// the reference time as an argument.
//
// All comparisons happen at civil-date granularity in one fixed
// timezone, chosen at construction. Running the server in another
// region must never shift a rule's execution day.
package schedule

import (
	"time"

	apperrors "bolso/internal/errors"
	"bolso/internal/models"
)

// Scheduler computes execution dates in a fixed civil timezone.
type Scheduler struct {
	loc *time.Location
}

// New creates a Scheduler anchored to the named timezone.
func New(tz string) (*Scheduler, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &Scheduler{loc: loc}, nil
}

// Location returns the scheduler's timezone.
func (s *Scheduler) Location() *time.Location { return s.loc }

// Today truncates t to its civil date in the scheduler's timezone.
func (s *Scheduler) Today(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// NextExecution returns the next execution date for a rule with the
// given frequency, anchored at anchor (the start date for a rule that
// has never run, the last execution otherwise). executionDay, when
// non-nil, overrides the anchor's day-of-month for monthly and yearly
// cadences; days past the end of a short month clamp to its last day.
//
// For anchors in the future the anchor's own occurrence is returned.
// For past anchors the result is the first occurrence strictly after
// the anchor that is not before today, so a date is never reported as
// "next" once it has passed.
func (s *Scheduler) NextExecution(frequency models.Frequency, anchor time.Time, executionDay *int, now time.Time) (time.Time, error) {
	today := s.Today(now)
	start := s.Today(anchor)

	switch frequency {
	case models.FrequencyDaily:
		switch {
		case start.After(today):
			return start, nil
		case start.Equal(today):
			return today.AddDate(0, 0, 1), nil
		default:
			return today, nil
		}

	case models.FrequencyWeekly:
		if start.After(today) {
			return start, nil
		}
		next := start.AddDate(0, 0, 7)
		for next.Before(today) {
			next = next.AddDate(0, 0, 7)
		}
		return next, nil

	case models.FrequencyMonthly:
		day := start.Day()
		if executionDay != nil {
			day = *executionDay
		}
		year, month := start.Year(), start.Month()
		next := s.clampedDate(year, month, day)
		if start.After(today) {
			for next.Before(start) {
				year, month = nextMonth(year, month)
				next = s.clampedDate(year, month, day)
			}
			return next, nil
		}
		for next.Before(today) || !next.After(start) {
			year, month = nextMonth(year, month)
			next = s.clampedDate(year, month, day)
		}
		return next, nil

	case models.FrequencyYearly:
		day := start.Day()
		if executionDay != nil {
			day = *executionDay
		}
		year, month := start.Year(), start.Month()
		next := s.clampedDate(year, month, day)
		if start.After(today) {
			if next.Before(start) {
				next = s.clampedDate(year+1, month, day)
			}
			return next, nil
		}
		for next.Before(today) || !next.After(start) {
			year++
			next = s.clampedDate(year, month, day)
		}
		return next, nil

	default:
		return time.Time{}, apperrors.ErrInvalidFrequency
	}
}

// ShouldExecuteToday reports whether a rule is due. A rule that never
// ran is due once its start date arrives. Otherwise the next execution
// is recomputed from the last actual execution, which makes the check
// idempotent per calendar day: once LastExecutedAt carries today's
// date, the recomputed next execution lands strictly after today.
func (s *Scheduler) ShouldExecuteToday(rule *models.RecurringTransaction, now time.Time) (bool, error) {
	today := s.Today(now)

	if rule.LastExecutedAt == nil {
		return !s.Today(rule.StartDate).After(today), nil
	}

	next, err := s.NextExecution(rule.Frequency, *rule.LastExecutedAt, rule.ExecutionDay, now)
	if err != nil {
		return false, err
	}
	return !next.After(today), nil
}

// Expired reports whether a rule's end date has passed.
func (s *Scheduler) Expired(rule *models.RecurringTransaction, now time.Time) bool {
	if rule.EndDate == nil {
		return false
	}
	return s.Today(*rule.EndDate).Before(s.Today(now))
}

// clampedDate builds a civil date, clamping day to the month's length.
func (s *Scheduler) clampedDate(year int, month time.Month, day int) time.Time {
	last := lastDayOfMonth(year, month)
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, s.loc)
}

func lastDayOfMonth(year int, month time.Month) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func nextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}
