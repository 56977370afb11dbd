package service

import (
	"github.com/ispops/billing/internal/config"
	"github.com/ispops/billing/internal/domain/contract"
	"github.com/ispops/billing/internal/domain/invoice"
	"github.com/ispops/billing/internal/domain/paymentprofile"
	"github.com/ispops/billing/internal/logger"
	"github.com/ispops/billing/internal/postgres"
	"github.com/ispops/billing/internal/sentry"
	"go.uber.org/fx"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Sentry *sentry.Service

	// Repositories
	ContractRepo       contract.Repository
	InvoiceRepo        invoice.Repository
	PaymentProfileRepo paymentprofile.Repository
	SequenceAllocator  invoice.SequenceAllocator
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	sentry *sentry.Service,
	contractRepo contract.Repository,
	invoiceRepo invoice.Repository,
	paymentProfileRepo paymentprofile.Repository,
	sequenceAllocator invoice.SequenceAllocator,
) ServiceParams {
	return ServiceParams{
		Logger:             logger,
		Config:             config,
		DB:                 db,
		Sentry:             sentry,
		ContractRepo:       contractRepo,
		InvoiceRepo:        invoiceRepo,
		PaymentProfileRepo: paymentProfileRepo,
		SequenceAllocator:  sequenceAllocator,
	}
}

// Module provides the billing services to an fx application
func Module() fx.Option {
	return fx.Provide(
		NewServiceParams,
		NewInvoiceGeneratorService,
		NewInvoiceCorrectionService,
		NewRenewalService,
	)
}
