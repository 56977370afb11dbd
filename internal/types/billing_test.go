package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewBillingPeriod(t *testing.T) {
	p := NewBillingPeriod(Date(2026, time.January, 10), Date(2026, time.February, 10))

	assert.True(t, Date(2026, time.January, 11).Equal(p.Start))
	assert.True(t, Date(2026, time.February, 10).Equal(p.End))
	assert.Equal(t, 31, p.Days())
	assert.Equal(t, "2026-01-11..2026-02-10", p.String())
}

func TestFirstBillingPeriod(t *testing.T) {
	p := FirstBillingPeriod(time.Date(2026, time.January, 5, 14, 0, 0, 0, time.UTC), Date(2026, time.February, 10))

	assert.True(t, Date(2026, time.January, 5).Equal(p.Start))
	assert.True(t, Date(2026, time.February, 10).Equal(p.End))
}

func TestBillingPeriod_Contains(t *testing.T) {
	p := NewBillingPeriod(Date(2026, time.January, 10), Date(2026, time.February, 10))

	tests := []struct {
		name string
		d    time.Time
		want bool
	}{
		{name: "day before start", d: Date(2026, time.January, 10), want: false},
		{name: "start", d: Date(2026, time.January, 11), want: true},
		{name: "middle with clock", d: time.Date(2026, time.January, 25, 13, 0, 0, 0, time.UTC), want: true},
		{name: "end", d: Date(2026, time.February, 10), want: true},
		{name: "day after end", d: Date(2026, time.February, 11), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Contains(tt.d))
		})
	}
}

func TestBillingPeriods_AreContiguous(t *testing.T) {
	for dueDay := 1; dueDay <= 31; dueDay++ {
		prev := Date(2026, time.January, 1).AddDate(0, 0, dueDay-1)
		var last BillingPeriod
		for i := 0; i < 36; i++ {
			next := NextDueDate(prev, dueDay)
			period := NewBillingPeriod(prev, next)
			if i > 0 {
				assert.True(t, last.FollowedBy(period), "due day %d: %s then %s", dueDay, last, period)
			}
			assert.Positive(t, period.Days())
			last = period
			prev = next
		}
	}
}
