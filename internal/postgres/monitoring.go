package postgres

import (
	"context"

	"github.com/ispops/billing/internal/logger"
	sentryService "github.com/ispops/billing/internal/sentry"
)

// SentryClient wraps the transaction boundary with Sentry breadcrumbs
type SentryClient struct {
	client IClient
	sentry *sentryService.Service
	logger *logger.Logger
}

// NewSentryClient creates a new Sentry-instrumented transaction boundary
func NewSentryClient(client IClient, sentry *sentryService.Service, logger *logger.Logger) IClient {
	return &SentryClient{
		client: client,
		sentry: sentry,
		logger: logger,
	}
}

// WithTx wraps the given function in a transaction and records failed transactions as
// breadcrumbs so they show up next to the error that caused them
func (c *SentryClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	err := c.client.WithTx(ctx, fn)
	if err != nil {
		c.sentry.AddBreadcrumb("postgres.transaction", "transaction rolled back", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return err
}
