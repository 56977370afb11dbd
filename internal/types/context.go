package types

import (
	"context"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxTenantID      ContextKey = "ctx_tenant_id"
	CtxUserID        ContextKey = "ctx_user_id"
	CtxBatchID       ContextKey = "ctx_batch_id"
	CtxDBTransaction ContextKey = "ctx_db_transaction"

	// Defaults used by scheduled jobs that run outside any user session
	DefaultTenantID = "00000000-0000-0000-0000-000000000000"
	DefaultUserID   = "00000000-0000-0000-0000-000000000000"
)

func stringValue(ctx context.Context, key ContextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

func GetTenantID(ctx context.Context) string {
	return stringValue(ctx, CtxTenantID)
}

func GetUserID(ctx context.Context) string {
	return stringValue(ctx, CtxUserID)
}

// GetBatchID returns the renewal batch the current work belongs to, if any
func GetBatchID(ctx context.Context) string {
	return stringValue(ctx, CtxBatchID)
}

func SetTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, CtxTenantID, tenantID)
}

func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

// SetBatchID tags ctx with a renewal batch so every log line of the batch can be correlated
func SetBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, CtxBatchID, batchID)
}
