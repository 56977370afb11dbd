package types

import (
	"fmt"
	"testing"
	"time"

	ierr "github.com/ispops/billing/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDueDate(t *testing.T) {
	tests := []struct {
		name   string
		base   time.Time
		dueDay int
		want   time.Time
	}{
		{
			name:   "same day next month",
			base:   Date(2026, time.January, 10),
			dueDay: 10,
			want:   Date(2026, time.February, 10),
		},
		{
			name:   "clamped to end of february",
			base:   Date(2026, time.January, 31),
			dueDay: 31,
			want:   Date(2026, time.February, 28),
		},
		{
			name:   "clamped to end of february in leap year",
			base:   Date(2028, time.January, 31),
			dueDay: 31,
			want:   Date(2028, time.February, 29),
		},
		{
			name:   "short cycle of 2 days skips a month",
			base:   Date(2026, time.January, 30),
			dueDay: 1,
			want:   Date(2026, time.March, 1),
		},
		{
			name:   "short cycle of 10 days skips a month",
			base:   Date(2026, time.January, 22),
			dueDay: 1,
			want:   Date(2026, time.March, 1),
		},
		{
			name:   "11 days is a valid cycle",
			base:   Date(2026, time.January, 21),
			dueDay: 1,
			want:   Date(2026, time.February, 1),
		},
		{
			name:   "1 day gap is not a short cycle",
			base:   Date(2026, time.January, 31),
			dueDay: 1,
			want:   Date(2026, time.February, 1),
		},
		{
			name:   "december rolls into the next year",
			base:   Date(2026, time.December, 15),
			dueDay: 15,
			want:   Date(2027, time.January, 15),
		},
		{
			name:   "due day moves forward inside the next month",
			base:   Date(2026, time.March, 5),
			dueDay: 20,
			want:   Date(2026, time.April, 20),
		},
		{
			name:   "clock part is dropped",
			base:   time.Date(2026, time.January, 10, 18, 45, 0, 0, time.UTC),
			dueDay: 10,
			want:   Date(2026, time.February, 10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDueDate(tt.base, tt.dueDay)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want.Format(time.DateOnly), got.Format(time.DateOnly))
		})
	}
}

func TestNextDueDate_Properties(t *testing.T) {
	start := Date(2024, time.January, 1)
	for offset := 0; offset < 3*366; offset++ {
		base := start.AddDate(0, 0, offset)
		for dueDay := 1; dueDay <= 31; dueDay++ {
			got := NextDueDate(base, dueDay)
			label := fmt.Sprintf("base %s due day %d", base.Format(time.DateOnly), dueDay)

			require.True(t, got.After(base), label)
			assert.Equal(t, min(dueDay, LastDayOfMonth(got)), got.Day(), label)

			gap := DaysBetween(base, got)
			assert.False(t, gap >= 2 && gap <= 10, "%s: gap of %d days", label, gap)

			naive := dueDateInMonth(base, 1, dueDay)
			if naiveGap := DaysBetween(base, naive); naiveGap >= 2 && naiveGap <= 10 {
				assert.GreaterOrEqual(t, gap, 11, label)
			}
		}
	}
}

func TestAdvanceDueDate(t *testing.T) {
	got, err := AdvanceDueDate(Date(2026, time.January, 31), 31, 3)
	require.NoError(t, err)
	assert.True(t, Date(2026, time.April, 30).Equal(got), "got %s", got.Format(time.DateOnly))

	got, err = AdvanceDueDate(Date(2026, time.January, 10), 10, 12)
	require.NoError(t, err)
	assert.True(t, Date(2027, time.January, 10).Equal(got), "got %s", got.Format(time.DateOnly))
}

func TestAdvanceDueDate_InvalidMonths(t *testing.T) {
	for _, months := range []int{0, -1, -12} {
		_, err := AdvanceDueDate(Date(2026, time.January, 10), 10, months)
		require.Error(t, err, "months %d", months)
		assert.True(t, ierr.IsValidation(err), "months %d", months)
	}
}

func TestAdvanceDueDate_FoldsNextDueDate(t *testing.T) {
	start := Date(2025, time.November, 1)
	for offset := 0; offset < 120; offset += 7 {
		base := start.AddDate(0, 0, offset)
		for dueDay := 1; dueDay <= 31; dueDay += 3 {
			one, err := AdvanceDueDate(base, dueDay, 1)
			require.NoError(t, err)
			assert.True(t, NextDueDate(base, dueDay).Equal(one))

			folded := base
			for months := 1; months <= 6; months++ {
				folded = NextDueDate(folded, dueDay)
				got, err := AdvanceDueDate(base, dueDay, months)
				require.NoError(t, err)
				assert.True(t, folded.Equal(got), "base %s due day %d months %d", base.Format(time.DateOnly), dueDay, months)
			}
		}
	}
}

func TestAddClampedDate(t *testing.T) {
	tests := []struct {
		name                string
		in                  time.Time
		years, months, days int
		want                time.Time
	}{
		{name: "end of january plus a month", in: Date(2026, time.January, 31), months: 1, want: Date(2026, time.February, 28)},
		{name: "end of march minus a month", in: Date(2026, time.March, 31), months: -1, want: Date(2026, time.February, 28)},
		{name: "january minus a month", in: Date(2026, time.January, 15), months: -1, want: Date(2025, time.December, 15)},
		{name: "november plus three months", in: Date(2026, time.November, 30), months: 3, want: Date(2027, time.February, 28)},
		{name: "leap day plus a year", in: Date(2028, time.February, 29), years: 1, want: Date(2029, time.February, 28)},
		{name: "days are added after clamping", in: Date(2026, time.January, 31), months: 1, days: 1, want: Date(2026, time.March, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddClampedDate(tt.in, tt.years, tt.months, tt.days)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want.Format(time.DateOnly), got.Format(time.DateOnly))
		})
	}
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(Date(2026, time.March, 1), Date(2026, time.March, 1)))
	assert.Equal(t, 28, DaysBetween(Date(2026, time.February, 1), Date(2026, time.March, 1)))
	assert.Equal(t, -1, DaysBetween(Date(2026, time.March, 2), Date(2026, time.March, 1)))

	// calendar days, regardless of the clock or a DST change in between
	sp, err := time.LoadLocation("America/Sao_Paulo")
	if err == nil {
		a := time.Date(2018, time.November, 3, 23, 0, 0, 0, sp)
		b := time.Date(2018, time.November, 5, 1, 0, 0, 0, sp)
		assert.Equal(t, 2, DaysBetween(a, b))
	}
}
