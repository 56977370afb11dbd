package sentry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/ispops/billing/internal/config"
	"github.com/ispops/billing/internal/logger"
	"go.uber.org/fx"
)

const flushTimeout = 2 * time.Second

// Service reports renewal failures and rolled back transactions. A nil or disabled Service
// drops everything, so tests and local runs can pass nil.
type Service struct {
	cfg    *config.Configuration
	logger *logger.Logger
}

// Module provides the Service and ties the Sentry client to the app lifecycle
func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewSentryService),
		fx.Invoke(RegisterHooks),
	)
}

func NewSentryService(cfg *config.Configuration, logger *logger.Logger) *Service {
	return &Service{
		cfg:    cfg,
		logger: logger,
	}
}

// RegisterHooks initializes the client on start and flushes queued events on stop
func RegisterHooks(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return svc.init()
		},
		OnStop: func(context.Context) error {
			if svc.enabled() && !sentry.Flush(flushTimeout) {
				svc.logger.Warn("sentry flush timed out, some events were dropped")
			}
			return nil
		},
	})
}

func (s *Service) init() error {
	if !s.enabled() {
		s.logger.Info("Sentry is disabled")
		return nil
	}

	opts := s.cfg.Sentry
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		TracesSampleRate: opts.SampleRate,
	}); err != nil {
		s.logger.Errorw("failed to initialize sentry", "error", err)
		return err
	}

	s.logger.Infow("sentry initialized",
		"environment", opts.Environment,
		"sample_rate", opts.SampleRate,
	)
	return nil
}

func (s *Service) enabled() bool {
	return s != nil && s.cfg != nil && s.cfg.Sentry.Enabled
}

// CaptureRenewalFailure reports a contract that failed inside a renewal batch, tagged so
// failures of one payment profile can be grouped
func (s *Service) CaptureRenewalFailure(err error, paymentProfileID, contractID string) {
	if !s.enabled() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("payment_profile_id", paymentProfileID)
		scope.SetTag("contract_id", contractID)
		sentry.CaptureException(err)
	})
}

// AddBreadcrumb records an event on the current scope, attached to the next captured failure
func (s *Service) AddBreadcrumb(category, message string, data map[string]interface{}) {
	if !s.enabled() {
		return
	}
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Level:     sentry.LevelWarning,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}
