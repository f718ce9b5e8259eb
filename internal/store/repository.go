package store

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

// Repository resolves store identity within a tenant. Every other feature
// depends on it to validate store ids and to fall back to the main store.
type Repository interface {
	// FindOne returns nil, nil when the store does not exist in the tenant.
	FindOne(ctx context.Context, tenantID, storeID string) (*model.Store, error)
	FindAllByTenant(ctx context.Context, tenantID string) ([]model.Store, error)
	// FindMainStore returns nil, nil when the tenant has no main store.
	FindMainStore(ctx context.Context, tenantID string) (*model.Store, error)
}

// AccessChecker decides whether a user may act on a store. Backed by store
// membership; approval and confirmation of transfers go through it.
type AccessChecker interface {
	HasAccess(ctx context.Context, userID, storeID, action string) (bool, error)
}
