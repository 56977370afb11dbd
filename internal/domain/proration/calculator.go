package proration

import (
	"time"

	ierr "github.com/ispops/billing/internal/errors"
	"github.com/ispops/billing/internal/types"
	"github.com/shopspring/decimal"
)

// FractionPrecision is the number of decimal places UsedFraction keeps. Day ratios such as 1/3
// have no finite decimal form, so the fraction is rounded half away from zero at this precision.
const FractionPrecision int32 = 28

// UsedFraction returns the share of the monthly window [periodStart, periodStart + 1 month)
// consumed before cutoff, counted in calendar days: 0 when cutoff equals periodStart and 1 once
// cutoff reaches the end of the window.
func UsedFraction(periodStart, cutoff time.Time) (decimal.Decimal, error) {
	used, total, err := usedDays(periodStart, cutoff)
	if err != nil {
		return decimal.Zero, err
	}
	return used.DivRound(total, FractionPrecision), nil
}

// ProrateAmount scales amount by the share of the window starting at periodStart used before
// cutoff and rounds the result to cents. The amount is multiplied before dividing so the only
// rounding is the final one.
func ProrateAmount(amount decimal.Decimal, periodStart, cutoff time.Time) (decimal.Decimal, error) {
	used, total, err := usedDays(periodStart, cutoff)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(used).DivRound(total, 2), nil
}

// usedDays returns the days consumed before cutoff and the length of the window, with used
// clamped to the window
func usedDays(periodStart, cutoff time.Time) (decimal.Decimal, decimal.Decimal, error) {
	start := types.TruncateToDay(periodStart)
	cutoff = types.TruncateToDay(cutoff)

	if cutoff.Before(start) {
		return decimal.Zero, decimal.Zero, ierr.NewError("cutoff date before period start").
			WithHintf("Cutoff %s is before the period start %s", cutoff.Format(time.DateOnly), start.Format(time.DateOnly)).
			WithReportableDetails(map[string]any{
				"period_start": start,
				"cutoff":       cutoff,
			}).
			Mark(ierr.ErrValidation)
	}

	windowEnd := types.AddClampedDate(start, 0, 1, 0)
	total := types.DaysBetween(start, windowEnd)
	used := min(types.DaysBetween(start, cutoff), total)

	return decimal.NewFromInt(int64(used)), decimal.NewFromInt(int64(total)), nil
}
