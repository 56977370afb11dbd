package contract

import (
	"testing"
	"time"

	ierr "github.com/ispops/billing/internal/errors"
	"github.com/ispops/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validContract() *Contract {
	return &Contract{
		ID:                  "ctr_1",
		SubscriptionDate:    types.Date(2026, time.January, 5),
		DueDay:              10,
		MonthlyFee:          decimal.NewFromInt(100),
		InstallationFee:     decimal.NewFromInt(100),
		InstallmentFeeCount: 3,
		PaymentProfileID:    "pprof_1",
		TermMonths:          12,
	}
}

func TestContract_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Contract)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Contract) {}},
		{name: "due day zero", mutate: func(c *Contract) { c.DueDay = 0 }, wantErr: true},
		{name: "due day 32", mutate: func(c *Contract) { c.DueDay = 32 }, wantErr: true},
		{name: "negative fee", mutate: func(c *Contract) { c.MonthlyFee = decimal.NewFromInt(-1) }, wantErr: true},
		{name: "fee without installments", mutate: func(c *Contract) { c.InstallmentFeeCount = 0 }, wantErr: true},
		{name: "no installation fee", mutate: func(c *Contract) {
			c.InstallationFee = decimal.Zero
			c.InstallmentFeeCount = 0
		}},
		{name: "negative term", mutate: func(c *Contract) { c.TermMonths = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validContract()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.True(t, ierr.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestContract_InstallmentFeeFor(t *testing.T) {
	c := validContract()

	assert.Equal(t, "33.33", c.InstallmentFeeFor(1).StringFixed(2))
	assert.Equal(t, "33.33", c.InstallmentFeeFor(3).StringFixed(2))
	assert.True(t, c.InstallmentFeeFor(4).IsZero())

	c.InstallmentFeeCount = 0
	c.InstallationFee = decimal.Zero
	assert.True(t, c.InstallmentFeeFor(1).IsZero())
}

func TestContract_ResolveFirstDueDate(t *testing.T) {
	c := validContract()
	assert.True(t, types.Date(2026, time.February, 10).Equal(c.ResolveFirstDueDate()))

	c.FirstDueDate = lo.ToPtr(types.Date(2026, time.January, 10))
	assert.True(t, types.Date(2026, time.January, 10).Equal(c.ResolveFirstDueDate()))
}
