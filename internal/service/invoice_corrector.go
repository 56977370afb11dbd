package service

import (
	"context"
	"time"

	"github.com/ispops/billing/internal/domain/invoice"
	ierr "github.com/ispops/billing/internal/errors"
	"github.com/shopspring/decimal"
)

// InvoiceCorrectionService changes invoice amounts by replacing invoices instead of editing them
type InvoiceCorrectionService interface {
	// Correct supersedes inv with an invoice carrying newAmount. A registered invoice is
	// cancelled and kept, an unregistered one is removed. The replacement keeps the period,
	// due dates and installment index and receives a new external number.
	Correct(ctx context.Context, inv *invoice.Invoice, newAmount decimal.Decimal) (*invoice.Invoice, error)
}

type invoiceCorrectionService struct {
	ServiceParams
}

func NewInvoiceCorrectionService(params ServiceParams) InvoiceCorrectionService {
	return &invoiceCorrectionService{
		ServiceParams: params,
	}
}

func (s *invoiceCorrectionService) Correct(ctx context.Context, inv *invoice.Invoice, newAmount decimal.Decimal) (*invoice.Invoice, error) {
	if inv == nil || inv.ID == "" {
		return nil, ierr.NewError("invoice is required").
			WithHint("Please provide the invoice to correct").
			Mark(ierr.ErrValidation)
	}

	if newAmount.IsNegative() {
		return nil, ierr.NewError("invoice amount cannot be negative").
			WithHint("Please provide a valid invoice amount").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"amount":     newAmount.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	var replacement *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		// the stored row is authoritative, inv may be stale
		current, err := s.InvoiceRepo.Get(ctx, inv.ID)
		if err != nil {
			return err
		}

		if !current.IsActive() {
			return ierr.NewError("invoice is cancelled").
				WithHint("A cancelled invoice cannot be corrected").
				WithReportableDetails(map[string]any{
					"invoice_id":   current.ID,
					"cancelled_at": current.CancelledAt,
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		if current.PaymentProfileID == "" {
			return ierr.NewError("invoice has no payment profile").
				WithHint("The invoice cannot be renumbered without a payment profile").
				WithReportableDetails(map[string]any{
					"invoice_id": current.ID,
				}).
				Mark(ierr.ErrMissingDependency)
		}

		profile, err := s.loadPaymentProfile(ctx, current.PaymentProfileID)
		if err != nil {
			return err
		}

		if current.IsRegistered() {
			if err := s.InvoiceRepo.Void(ctx, current.ID, time.Now().UTC()); err != nil {
				return err
			}
		} else {
			if err := s.InvoiceRepo.Delete(ctx, current.ID); err != nil {
				return err
			}
		}

		replacement = invoice.NewReplacement(ctx, current, newAmount)
		if err := s.createNumbered(ctx, profile, replacement); err != nil {
			return err
		}

		s.Logger.Infow("corrected invoice",
			"invoice_id", current.ID,
			"replacement_id", replacement.ID,
			"contract_id", current.ContractID,
			"registered", current.IsRegistered(),
			"old_amount", current.Amount.String(),
			"new_amount", newAmount.String(),
			"external_number", replacement.ExternalNumber,
		)
		return nil
	})
	if err != nil {
		s.Logger.Errorw("failed to correct invoice",
			"invoice_id", inv.ID,
			"error", err,
		)
		return nil, err
	}

	return replacement, nil
}
