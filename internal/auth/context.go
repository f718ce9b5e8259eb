package auth

import (
	"context"
	"errors"
)

type contextKey string

const (
	tenantIDKey contextKey = "tenant_id"
	storeIDKey  contextKey = "store_id"
	userIDKey   contextKey = "user_id"
)

var ErrNoTenant = errors.New("no tenant id in context")

func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

func GetTenantID(ctx context.Context) string {
	if val, ok := ctx.Value(tenantIDKey).(string); ok {
		return val
	}
	return ""
}

// RequireTenantID fails fast when the caller did not establish tenant scope.
func RequireTenantID(ctx context.Context) (string, error) {
	tenantID := GetTenantID(ctx)
	if tenantID == "" {
		return "", ErrNoTenant
	}
	return tenantID, nil
}

// WithStoreID records the caller's store context, used as the implicit
// target store for TRANSFER-type requests.
func WithStoreID(ctx context.Context, storeID string) context.Context {
	return context.WithValue(ctx, storeIDKey, storeID)
}

func GetStoreID(ctx context.Context) string {
	if val, ok := ctx.Value(storeIDKey).(string); ok {
		return val
	}
	return ""
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func GetUserID(ctx context.Context) string {
	if val, ok := ctx.Value(userIDKey).(string); ok {
		return val
	}
	return ""
}
