package proration

import (
	"strings"
	"testing"
	"time"

	ierr "github.com/ispops/billing/internal/errors"
	"github.com/ispops/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsedFraction(t *testing.T) {
	tests := []struct {
		name        string
		periodStart time.Time
		cutoff      time.Time
		expected    decimal.Decimal
		wantErr     bool
	}{
		{
			name:        "cutoff_on_period_start",
			periodStart: types.Date(2026, time.January, 10),
			cutoff:      types.Date(2026, time.January, 10),
			expected:    decimal.Zero,
		},
		{
			name:        "half_of_thirty_day_window",
			periodStart: types.Date(2026, time.April, 1),
			cutoff:      types.Date(2026, time.April, 16),
			expected:    decimal.NewFromFloat(0.5),
		},
		{
			name:        "cutoff_on_window_end",
			periodStart: types.Date(2026, time.January, 10),
			cutoff:      types.Date(2026, time.February, 10),
			expected:    decimal.NewFromInt(1),
		},
		{
			name:        "cutoff_after_window_end",
			periodStart: types.Date(2026, time.January, 10),
			cutoff:      types.Date(2026, time.June, 1),
			expected:    decimal.NewFromInt(1),
		},
		{
			name:        "february_window_has_28_days",
			periodStart: types.Date(2026, time.February, 1),
			cutoff:      types.Date(2026, time.February, 8),
			expected:    decimal.NewFromFloat(0.25),
		},
		{
			name:        "end_of_month_window_is_clamped",
			periodStart: types.Date(2026, time.January, 31),
			cutoff:      types.Date(2026, time.February, 28),
			expected:    decimal.NewFromInt(1),
		},
		{
			name:        "cutoff_before_period_start",
			periodStart: types.Date(2026, time.January, 10),
			cutoff:      types.Date(2026, time.January, 9),
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UsedFraction(tt.periodStart, tt.cutoff)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, ierr.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestUsedFraction_MidJanuary(t *testing.T) {
	got, err := UsedFraction(types.Date(2026, time.January, 10), types.Date(2026, time.January, 25))
	require.NoError(t, err)

	// 15 of the 31 days between January 10 and February 10
	assert.InDelta(t, 0.4833, got.InexactFloat64(), 0.001)
	assert.True(t, decimal.NewFromInt(15).DivRound(decimal.NewFromInt(31), FractionPrecision).Equal(got))
}

func TestUsedFraction_KeepsFullPrecision(t *testing.T) {
	// 10 of the 30 days in April
	got, err := UsedFraction(types.Date(2026, time.April, 1), types.Date(2026, time.April, 11))
	require.NoError(t, err)
	assert.Equal(t, "0."+strings.Repeat("3", int(FractionPrecision)), got.String())
}

func TestUsedFraction_StaysWithinBounds(t *testing.T) {
	start := types.Date(2025, time.January, 1)
	for i := 0; i < 400; i += 3 {
		periodStart := start.AddDate(0, 0, i)
		for offset := 0; offset <= 40; offset++ {
			got, err := UsedFraction(periodStart, periodStart.AddDate(0, 0, offset))
			require.NoError(t, err)
			assert.False(t, got.IsNegative(), "start %s offset %d", periodStart.Format(time.DateOnly), offset)
			assert.False(t, got.GreaterThan(decimal.NewFromInt(1)), "start %s offset %d", periodStart.Format(time.DateOnly), offset)
		}

		whole, err := UsedFraction(periodStart, types.AddClampedDate(periodStart, 0, 1, 0))
		require.NoError(t, err)
		assert.True(t, whole.Equal(decimal.NewFromInt(1)))
	}
}

func TestProrateAmount(t *testing.T) {
	got, err := ProrateAmount(decimal.NewFromInt(100), types.Date(2026, time.January, 10), types.Date(2026, time.January, 25))
	require.NoError(t, err)
	assert.Equal(t, "48.39", got.StringFixed(2))

	// a third of a large amount stays exact when the amount is scaled before dividing
	got, err = ProrateAmount(decimal.NewFromInt(300_000_000_000_000), types.Date(2026, time.April, 1), types.Date(2026, time.April, 11))
	require.NoError(t, err)
	assert.Equal(t, "100000000000000.00", got.StringFixed(2))

	_, err = ProrateAmount(decimal.NewFromInt(100), types.Date(2026, time.January, 10), types.Date(2026, time.January, 1))
	assert.True(t, ierr.IsValidation(err))
}
