package repository

import (
	"github.com/ispops/billing/internal/domain/contract"
	"github.com/ispops/billing/internal/domain/invoice"
	"github.com/ispops/billing/internal/domain/paymentprofile"
	"github.com/ispops/billing/internal/logger"
	"github.com/ispops/billing/internal/postgres"
	postgresRepo "github.com/ispops/billing/internal/repository/postgres"
	"go.uber.org/fx"
)

// Module provides the postgres backed repositories to an fx application
func Module() fx.Option {
	return fx.Provide(
		NewContractRepository,
		NewInvoiceRepository,
		NewPaymentProfileRepository,
		NewSequenceAllocator,
	)
}

func NewContractRepository(db *postgres.DB, logger *logger.Logger) contract.Repository {
	return postgresRepo.NewContractRepository(db, logger)
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger)
}

func NewPaymentProfileRepository(db *postgres.DB, logger *logger.Logger) paymentprofile.Repository {
	return postgresRepo.NewPaymentProfileRepository(db, logger)
}

func NewSequenceAllocator(db *postgres.DB, logger *logger.Logger) invoice.SequenceAllocator {
	return postgresRepo.NewSequenceAllocator(db, logger)
}
