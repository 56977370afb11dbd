package testutil

import (
	"context"

	"github.com/ispops/billing/internal/types"
)

// SetupContext returns a context scoped to the default tenant and user
func SetupContext() context.Context {
	ctx := types.SetTenantID(context.Background(), types.DefaultTenantID)
	return types.SetUserID(ctx, types.DefaultUserID)
}
