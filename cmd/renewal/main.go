package main

import (
	"context"
	"time"

	"github.com/ispops/billing/internal/config"
	"github.com/ispops/billing/internal/logger"
	"github.com/ispops/billing/internal/postgres"
	"github.com/ispops/billing/internal/repository"
	"github.com/ispops/billing/internal/sentry"
	"github.com/ispops/billing/internal/service"
	"github.com/ispops/billing/internal/types"
	"github.com/ispops/billing/internal/validator"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			logger.NewLogger,
		),
		sentry.Module(),
		postgres.Module(),
		fx.Decorate(postgres.NewSentryClient),
	)

	// Repositories and services
	opts = append(opts,
		repository.Module(),
		service.Module(),
	)

	opts = append(opts,
		fx.Invoke(startRenewal),
	)

	app := fx.New(opts...)
	app.Run()
}

func startRenewal(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Configuration,
	renewalService service.RenewalService,
	log *logger.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				runRenewal(ctx, cfg, renewalService, log)
				if err := shutdowner.Shutdown(); err != nil {
					log.Errorw("failed to shut down after renewal", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
			return nil
		},
	})
}

func runRenewal(ctx context.Context, cfg *config.Configuration, renewalService service.RenewalService, log *logger.Logger) {
	ctx = types.SetTenantID(ctx, cfg.Renewal.TenantID)
	ctx = types.SetUserID(ctx, types.DefaultUserID)

	if len(cfg.Renewal.PaymentProfileIDs) == 0 {
		log.Warn("no payment profiles configured for renewal")
		return
	}

	for _, profileID := range cfg.Renewal.PaymentProfileIDs {
		result, err := renewalService.RenewBatch(ctx, profileID, cfg.Renewal.MonthsPerInvoice)
		if err != nil {
			log.Errorw("renewal batch failed",
				"payment_profile_id", profileID,
				"error", err,
			)
			if ctx.Err() != nil {
				return
			}
			continue
		}

		for _, f := range result.Failed {
			log.Warnw("contract renewal failed",
				"batch_id", result.ID,
				"contract_id", f.ContractID,
				"message", f.Message,
			)
		}
	}
}
