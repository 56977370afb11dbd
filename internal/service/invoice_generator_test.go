package service

import (
	"testing"
	"time"

	"github.com/ispops/billing/internal/domain/contract"
	"github.com/ispops/billing/internal/domain/invoice"
	"github.com/ispops/billing/internal/domain/paymentprofile"
	ierr "github.com/ispops/billing/internal/errors"
	"github.com/ispops/billing/internal/testutil"
	"github.com/ispops/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceGeneratorServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  InvoiceGeneratorService
	testData struct {
		profile  *paymentprofile.PaymentProfile
		contract *contract.Contract
	}
}

func TestInvoiceGeneratorService(t *testing.T) {
	suite.Run(t, new(InvoiceGeneratorServiceSuite))
}

func (s *InvoiceGeneratorServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewInvoiceGeneratorService(newTestServiceParams(&s.BaseServiceTestSuite))
	s.testData.profile = s.CreatePaymentProfile(100, 6)
	s.testData.contract = s.CreateContract(s.testData.profile.ID)
}

func newTestServiceParams(base *testutil.BaseServiceTestSuite) ServiceParams {
	stores := base.GetStores()
	return ServiceParams{
		Logger:             base.GetLogger(),
		Config:             base.GetConfig(),
		DB:                 base.GetDB(),
		ContractRepo:       stores.ContractRepo,
		InvoiceRepo:        stores.InvoiceRepo,
		PaymentProfileRepo: stores.PaymentProfileRepo,
		SequenceAllocator:  stores.SequenceAllocator,
	}
}

func (s *InvoiceGeneratorServiceSuite) listInvoices(contractID string) []*invoice.Invoice {
	filter := types.NewNoLimitInvoiceFilter()
	filter.ContractID = contractID
	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), filter)
	s.Require().NoError(err)
	return invoices
}

func (s *InvoiceGeneratorServiceSuite) TestGenerate_FirstInvoices() {
	c := s.testData.contract

	invoices, err := s.service.Generate(s.GetContext(), c, 3, 1)
	s.Require().NoError(err)
	s.Require().Len(invoices, 3)

	// the first period starts on the subscription date
	s.True(types.Date(2026, time.January, 5).Equal(invoices[0].PeriodStart))
	s.True(types.Date(2026, time.February, 10).Equal(invoices[0].DueDate))
	s.True(types.Date(2026, time.March, 10).Equal(invoices[1].DueDate))
	s.True(types.Date(2026, time.April, 10).Equal(invoices[2].DueDate))

	for i, inv := range invoices {
		s.Equal(i+1, inv.InstallmentIndex)
		s.Equal(1, inv.MonthsCovered)
		s.True(inv.PeriodEnd.Equal(inv.DueDate))
		s.True(inv.OriginalDueDate.Equal(inv.DueDate))
		s.True(inv.Amount.Equal(decimal.NewFromInt(100)), "amount %s", inv.Amount)
		s.True(inv.OriginalAmount.Equal(inv.Amount))
		s.Equal(int64(100+i), inv.ExternalSequence)
		s.Equal(paymentprofile.FormatExternalNumber(int64(100+i), 6), inv.ExternalNumber)
		if i > 0 {
			prev := invoices[i-1]
			s.True(inv.DueDate.After(prev.DueDate))
			s.True(prev.Period().FollowedBy(inv.Period()), "%s then %s", prev.Period(), inv.Period())
			s.Greater(inv.ExternalNumber, prev.ExternalNumber)
		}
	}

	s.Len(s.listInvoices(c.ID), 3)

	profile, err := s.GetStores().PaymentProfileRepo.Get(s.GetContext(), s.testData.profile.ID)
	s.Require().NoError(err)
	s.Equal(int64(103), profile.NextExternalNumber)
}

func (s *InvoiceGeneratorServiceSuite) TestGenerate_ContinuesExistingStream() {
	c := s.testData.contract

	first, err := s.service.Generate(s.GetContext(), c, 2, 1)
	s.Require().NoError(err)

	next, err := s.service.Generate(s.GetContext(), c, 2, 3)
	s.Require().NoError(err)
	s.Require().Len(next, 2)

	last := first[len(first)-1]
	s.Equal(3, next[0].InstallmentIndex)
	s.True(types.Date(2026, time.March, 11).Equal(next[0].PeriodStart))
	s.True(types.Date(2026, time.June, 10).Equal(next[0].DueDate))
	s.True(last.Period().FollowedBy(next[0].Period()))
	s.Equal(3, next[0].MonthsCovered)
	s.True(next[0].Amount.Equal(decimal.NewFromInt(300)))
	s.True(types.Date(2026, time.September, 10).Equal(next[1].DueDate))
}

func (s *InvoiceGeneratorServiceSuite) TestGenerate_RestartsAfterAllInvoicesCancelled() {
	c := s.testData.contract

	first, err := s.service.Generate(s.GetContext(), c, 2, 1)
	s.Require().NoError(err)
	for _, inv := range first {
		s.Require().NoError(s.GetStores().InvoiceRepo.Void(s.GetContext(), inv.ID, s.GetNow()))
	}

	next, err := s.service.Generate(s.GetContext(), c, 1, 1)
	s.Require().NoError(err)
	s.Require().Len(next, 1)

	// installment numbering keeps counting cancelled invoices, the period restarts
	s.Equal(3, next[0].InstallmentIndex)
	s.True(types.Date(2026, time.January, 5).Equal(next[0].PeriodStart))
	s.True(types.Date(2026, time.February, 10).Equal(next[0].DueDate))
}

func (s *InvoiceGeneratorServiceSuite) TestGenerate_ConfiguredFirstDueDate() {
	c := s.CreateContract(s.testData.profile.ID, func(c *contract.Contract) {
		c.SubscriptionDate = types.Date(2026, time.January, 20)
		c.FirstDueDate = lo.ToPtr(types.Date(2026, time.January, 31))
		c.DueDay = 31
	})

	invoices, err := s.service.Generate(s.GetContext(), c, 3, 1)
	s.Require().NoError(err)

	s.True(types.Date(2026, time.January, 20).Equal(invoices[0].PeriodStart))
	s.True(types.Date(2026, time.January, 31).Equal(invoices[0].DueDate))
	s.True(types.Date(2026, time.February, 28).Equal(invoices[1].DueDate))
	s.True(types.Date(2026, time.March, 31).Equal(invoices[2].DueDate))
}

func (s *InvoiceGeneratorServiceSuite) TestGenerate_ProratesCancellationPeriod() {
	c := s.CreateContract(s.testData.profile.ID, func(c *contract.Contract) {
		// inside the second period, 2026-02-11..2026-03-10
		c.CancellationDate = lo.ToPtr(types.Date(2026, time.February, 25))
	})

	invoices, err := s.service.Generate(s.GetContext(), c, 3, 1)
	s.Require().NoError(err)
	s.Require().Len(invoices, 3)

	s.True(invoices[0].Amount.Equal(decimal.NewFromInt(100)))
	s.True(invoices[1].Amount.LessThan(c.MonthlyFee))
	// 14 of the 28 days between February 11 and March 11
	s.Equal("50.00", invoices[1].Amount.StringFixed(2))
	s.True(invoices[2].Amount.Equal(decimal.NewFromInt(100)))
}

func (s *InvoiceGeneratorServiceSuite) TestGenerate_AmortizesInstallationFee() {
	c := s.CreateContract(s.testData.profile.ID, func(c *contract.Contract) {
		c.InstallationFee = decimal.NewFromInt(100)
		c.InstallmentFeeCount = 3
	})

	invoices, err := s.service.Generate(s.GetContext(), c, 4, 1)
	s.Require().NoError(err)

	s.Equal("133.33", invoices[0].Amount.StringFixed(2))
	s.Equal("133.33", invoices[1].Amount.StringFixed(2))
	s.Equal("133.33", invoices[2].Amount.StringFixed(2))
	s.Equal("100.00", invoices[3].Amount.StringFixed(2))
}

func (s *InvoiceGeneratorServiceSuite) TestGenerate_InvalidInput() {
	c := s.testData.contract

	tests := []struct {
		name   string
		count  int
		months int
	}{
		{name: "zero count", count: 0, months: 1},
		{name: "negative count", count: -1, months: 1},
		{name: "zero months", count: 1, months: 0},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			invoices, err := s.service.Generate(s.GetContext(), c, tt.count, tt.months)
			s.Error(err)
			s.True(ierr.IsValidation(err))
			s.Nil(invoices)
		})
	}
	s.Empty(s.listInvoices(c.ID))
}

func (s *InvoiceGeneratorServiceSuite) TestGenerate_MissingPaymentProfile() {
	c := s.CreateContract("")

	_, err := s.service.Generate(s.GetContext(), c, 1, 1)
	s.True(ierr.IsMissingDependency(err))

	unknown := s.CreateContract("pprof_unknown")
	_, err = s.service.Generate(s.GetContext(), unknown, 1, 1)
	s.True(ierr.IsMissingDependency(err))
	s.Empty(s.listInvoices(unknown.ID))
}

func (s *InvoiceGeneratorServiceSuite) TestGenerate_RollsBackOnFailure() {
	c := s.testData.contract
	failure := ierr.NewError("disk full").Mark(ierr.ErrDatabase)

	s.GetStores().InvoiceRepo.OnCreate(func(inv *invoice.Invoice) error {
		if inv.InstallmentIndex == 3 {
			return failure
		}
		return nil
	})

	invoices, err := s.service.Generate(s.GetContext(), c, 3, 1)
	s.True(ierr.IsDatabase(err))
	s.Nil(invoices)
	s.Empty(s.listInvoices(c.ID))

	// numbers consumed by the failed run are handed out again
	profile, err := s.GetStores().PaymentProfileRepo.Get(s.GetContext(), s.testData.profile.ID)
	s.Require().NoError(err)
	s.Equal(int64(100), profile.NextExternalNumber)
}

func (s *InvoiceGeneratorServiceSuite) TestGenerate_ResyncsOnNumberConflict() {
	c := s.testData.contract
	other := s.CreateContract(s.testData.profile.ID)

	// a writer that bypassed the counter already used number 100
	period := types.NewBillingPeriod(types.Date(2026, time.January, 10), types.Date(2026, time.February, 10))
	stale := invoice.NewDraft(s.GetContext(), other.ID, s.testData.profile.ID, period, 1, 1, decimal.NewFromInt(100))
	stale.ExternalSequence = 100
	stale.ExternalNumber = "000100"
	s.Require().NoError(s.GetStores().InvoiceRepo.Create(s.GetContext(), stale))

	invoices, err := s.service.Generate(s.GetContext(), c, 2, 1)
	s.Require().NoError(err)
	s.Equal(int64(101), invoices[0].ExternalSequence)
	s.Equal(int64(102), invoices[1].ExternalSequence)
	s.Equal(1, s.GetDB().Rollbacks())
}

func (s *InvoiceGeneratorServiceSuite) TestGenerate_ConflictRetriesExhausted() {
	c := s.testData.contract

	s.GetStores().InvoiceRepo.OnCreate(func(inv *invoice.Invoice) error {
		return ierr.NewError("duplicate external sequence").Mark(ierr.ErrAllocationConflict)
	})

	_, err := s.service.Generate(s.GetContext(), c, 1, 1)
	s.True(ierr.IsDatabase(err))
	s.Empty(s.listInvoices(c.ID))
}

func (s *InvoiceGeneratorServiceSuite) TestPreview() {
	c := s.CreateContract(s.testData.profile.ID, func(c *contract.Contract) {
		c.InstallationFee = decimal.NewFromInt(60)
		c.InstallmentFeeCount = 2
	})

	drafts, err := s.service.Preview(s.GetContext(), c, 3, 1)
	s.Require().NoError(err)
	s.Require().Len(drafts, 3)

	s.Empty(drafts[0].ExternalNumber)
	s.Equal("130.00", drafts[0].Amount.StringFixed(2))
	s.Equal("100.00", drafts[2].Amount.StringFixed(2))
	s.Empty(s.listInvoices(c.ID))

	invoices, err := s.service.Generate(s.GetContext(), c, 3, 1)
	s.Require().NoError(err)
	for i := range drafts {
		s.True(drafts[i].DueDate.Equal(invoices[i].DueDate))
		s.True(drafts[i].Amount.Equal(invoices[i].Amount))
	}
}
