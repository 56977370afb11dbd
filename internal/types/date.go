package types

import (
	"time"

	ierr "github.com/ispops/billing/internal/errors"
)

const (
	// shortCycleMinDays and shortCycleMaxDays bound (inclusive) the gap between two due dates
	// that is treated as a degenerate billing cycle and pushed one more month forward.
	shortCycleMinDays = 2
	shortCycleMaxDays = 10
)

// NextDueDate returns the due date that follows base for a contract billed on dueDay.
// It moves one calendar month forward and clamps the day to dueDay or the last day of that
// month, whichever is smaller. When the result lands between 2 and 10 days (inclusive)
// after base, the cycle would be too short, so it moves one further month and clamps again.
// For example:
// - 2026-01-10 with due day 10 gives 2026-02-10.
// - 2026-01-31 with due day 31 gives 2026-02-28.
// - 2026-01-30 with due day 1 gives 2026-03-01, since 2026-02-01 is only 2 days later.
func NextDueDate(base time.Time, dueDay int) time.Time {
	base = TruncateToDay(base)

	next := dueDateInMonth(base, 1, dueDay)
	if gap := DaysBetween(base, next); gap >= shortCycleMinDays && gap <= shortCycleMaxDays {
		next = dueDateInMonth(base, 2, dueDay)
	}
	return next
}

// AdvanceDueDate applies NextDueDate months times starting from current.
func AdvanceDueDate(current time.Time, dueDay int, months int) (time.Time, error) {
	if months < 1 {
		return current, ierr.NewError("months must be at least 1").
			WithHintf("Cannot advance a due date by %d months", months).
			WithReportableDetails(map[string]any{
				"months": months,
			}).
			Mark(ierr.ErrValidation)
	}

	due := current
	for i := 0; i < months; i++ {
		due = NextDueDate(due, dueDay)
	}
	return due, nil
}

// dueDateInMonth returns the date months calendar months after base, on dueDay clamped to
// the length of the target month.
func dueDateInMonth(base time.Time, months int, dueDay int) time.Time {
	y, m, _ := base.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, base.Location())
	day := min(max(dueDay, 1), LastDayOfMonth(first))
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, base.Location())
}

// AddClampedDate adds years, months and days to t without letting the day overflow into the
// following month. Adding one month to January 31 yields the last day of February.
func AddClampedDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	// Calculate the proposed year and month
	newY := y + years
	newM := time.Month(int(m) + months)

	// If we move beyond December, it adjusts correctly,
	// for example adding 2 months to November will land on January next year.
	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	lastDay := LastDayOfMonth(time.Date(newY, newM, 1, 0, 0, 0, 0, t.Location()))
	if d > lastDay {
		d = lastDay
	}

	return time.Date(newY, newM, d, h, min, sec, t.Nanosecond(), t.Location()).AddDate(0, 0, days)
}

// LastDayOfMonth returns the number of days in t's month.
func LastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// TruncateToDay drops the clock part of t, keeping its location.
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of calendar days from a to b (negative when b is before a).
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	// UTC midnights keep DST shifts out of the count
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// Date is a shorthand for a UTC calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
