package types

import (
	"fmt"
	"time"
)

// BillingPeriod is the inclusive date range covered by a single invoice.
// End always equals the due date of the invoice that covers it.
type BillingPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewBillingPeriod returns the period that follows an invoice due on previousDue and ends on
// currentDue. Callers must pass currentDue after previousDue.
func NewBillingPeriod(previousDue, currentDue time.Time) BillingPeriod {
	return BillingPeriod{
		Start: TruncateToDay(previousDue).AddDate(0, 0, 1),
		End:   TruncateToDay(currentDue),
	}
}

// FirstBillingPeriod returns the period of the first invoice of a contract, running from the
// subscription date to the first due date.
func FirstBillingPeriod(subscriptionDate, firstDue time.Time) BillingPeriod {
	return BillingPeriod{
		Start: TruncateToDay(subscriptionDate),
		End:   TruncateToDay(firstDue),
	}
}

// Contains reports whether d falls inside the period, both ends included.
func (p BillingPeriod) Contains(d time.Time) bool {
	d = TruncateToDay(d)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Days returns the number of calendar days in the period, both ends included.
func (p BillingPeriod) Days() int {
	return DaysBetween(p.Start, p.End) + 1
}

// FollowedBy reports whether next starts the day after p ends.
func (p BillingPeriod) FollowedBy(next BillingPeriod) bool {
	return DaysBetween(p.End, next.Start) == 1
}

func (p BillingPeriod) String() string {
	return fmt.Sprintf("%s..%s", p.Start.Format(time.DateOnly), p.End.Format(time.DateOnly))
}
