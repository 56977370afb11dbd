package service

import (
	"testing"

	"github.com/ispops/billing/internal/domain/invoice"
	"github.com/ispops/billing/internal/domain/paymentprofile"
	ierr "github.com/ispops/billing/internal/errors"
	"github.com/ispops/billing/internal/testutil"
	"github.com/ispops/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceCorrectionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service   InvoiceCorrectionService
	generator InvoiceGeneratorService
	testData  struct {
		profile  *paymentprofile.PaymentProfile
		invoices []*invoice.Invoice
	}
}

func TestInvoiceCorrectionService(t *testing.T) {
	suite.Run(t, new(InvoiceCorrectionServiceSuite))
}

func (s *InvoiceCorrectionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewInvoiceCorrectionService(params)
	s.generator = NewInvoiceGeneratorService(params)

	s.testData.profile = s.CreatePaymentProfile(1, 0)
	c := s.CreateContract(s.testData.profile.ID)

	var err error
	s.testData.invoices, err = s.generator.Generate(s.GetContext(), c, 2, 1)
	s.Require().NoError(err)
}

// register marks an invoice as reported to the external registrar
func (s *InvoiceCorrectionServiceSuite) register(inv *invoice.Invoice) *invoice.Invoice {
	store := s.GetStores().InvoiceRepo
	inv.ExternalRegistrationID = lo.ToPtr("nfcom-" + inv.ExternalNumber)
	s.Require().NoError(store.Update(s.GetContext(), inv.ID, inv))
	return inv
}

func (s *InvoiceCorrectionServiceSuite) contractInvoices(contractID string) []*invoice.Invoice {
	filter := types.NewNoLimitInvoiceFilter()
	filter.ContractID = contractID
	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), filter)
	s.Require().NoError(err)
	return invoices
}

func (s *InvoiceCorrectionServiceSuite) TestCorrect_RegisteredInvoiceIsCancelled() {
	old := s.register(s.testData.invoices[1])

	replacement, err := s.service.Correct(s.GetContext(), old, decimal.NewFromInt(80))
	s.Require().NoError(err)

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), old.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStateCancelled, stored.State())
	s.True(stored.Amount.Equal(decimal.NewFromInt(100)))

	s.True(replacement.Amount.Equal(decimal.NewFromInt(80)))
	s.True(replacement.OriginalAmount.Equal(decimal.NewFromInt(100)))
	s.True(replacement.PeriodStart.Equal(old.PeriodStart))
	s.True(replacement.PeriodEnd.Equal(old.PeriodEnd))
	s.True(replacement.DueDate.Equal(old.DueDate))
	s.True(replacement.OriginalDueDate.Equal(old.OriginalDueDate))
	s.Equal(old.InstallmentIndex, replacement.InstallmentIndex)
	s.Equal("3", replacement.ExternalNumber)
	s.NotEqual(old.ExternalNumber, replacement.ExternalNumber)
	s.Require().NotNil(replacement.ReplacesInvoiceID)
	s.Equal(old.ID, *replacement.ReplacesInvoiceID)

	invoices := s.contractInvoices(old.ContractID)
	s.Len(invoices, 3)
	active := lo.Filter(invoices, func(inv *invoice.Invoice, _ int) bool { return inv.IsActive() })
	s.Len(active, 2)
}

func (s *InvoiceCorrectionServiceSuite) TestCorrect_UnregisteredInvoiceIsRemoved() {
	old := s.testData.invoices[0]

	replacement, err := s.service.Correct(s.GetContext(), old, decimal.NewFromInt(120))
	s.Require().NoError(err)

	_, err = s.GetStores().InvoiceRepo.Get(s.GetContext(), old.ID)
	s.True(ierr.IsNotFound(err))

	invoices := s.contractInvoices(old.ContractID)
	s.Len(invoices, 2)
	s.Equal(replacement.ID, invoices[0].ID)
	s.True(invoices[0].Amount.Equal(decimal.NewFromInt(120)))
	s.True(invoices[0].OriginalAmount.Equal(decimal.NewFromInt(100)))
	s.Equal(int64(3), invoices[0].ExternalSequence)
}

func (s *InvoiceCorrectionServiceSuite) TestCorrect_CancelledInvoice() {
	old := s.register(s.testData.invoices[0])

	_, err := s.service.Correct(s.GetContext(), old, decimal.NewFromInt(90))
	s.Require().NoError(err)

	_, err = s.service.Correct(s.GetContext(), old, decimal.NewFromInt(70))
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceCorrectionServiceSuite) TestCorrect_NegativeAmount() {
	_, err := s.service.Correct(s.GetContext(), s.testData.invoices[0], decimal.NewFromInt(-1))
	s.True(ierr.IsValidation(err))
	s.Len(s.contractInvoices(s.testData.invoices[0].ContractID), 2)
}

func (s *InvoiceCorrectionServiceSuite) TestCorrect_RollsBackOnFailure() {
	old := s.register(s.testData.invoices[1])

	s.GetStores().InvoiceRepo.OnCreate(func(inv *invoice.Invoice) error {
		return ierr.NewError("connection reset").Mark(ierr.ErrDatabase)
	})

	_, err := s.service.Correct(s.GetContext(), old, decimal.NewFromInt(80))
	s.True(ierr.IsDatabase(err))

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), old.ID)
	s.Require().NoError(err)
	s.True(stored.IsActive())
	s.Len(s.contractInvoices(old.ContractID), 2)
}
