package batch

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

// Repository persists inventory batches. Every ledger write is a
// compare-and-swap on the batch's version column; a lost race surfaces as
// apperr.ErrVersionConflict and is never silently absorbed.
type Repository interface {
	// GetByID returns nil, nil when the batch does not exist in the tenant.
	GetByID(ctx context.Context, tenantID, batchID string) (*model.InventoryBatch, error)

	// GetByRequestID resolves the batch owning a transfer request through
	// the transfer_request_index table. Returns nil, nil when unknown.
	GetByRequestID(ctx context.Context, tenantID, requestID string) (*model.InventoryBatch, error)

	ListByTenant(ctx context.Context, tenantID string) ([]model.InventoryBatch, error)
	ListWithTransferRequests(ctx context.Context, tenantID string) ([]model.InventoryBatch, error)

	// ListEligibleForReservation returns live batches of one inventory item
	// with remaining quantity, oldest first.
	ListEligibleForReservation(ctx context.Context, tenantID, inventoryID string) ([]model.InventoryBatch, error)

	// UpdateLedger writes both embedded ledgers and remaining_quantity in a
	// single conditional update, and keeps the request index in sync.
	UpdateLedger(ctx context.Context, b *model.InventoryBatch) error

	// UpdateLedgers applies UpdateLedger to every batch inside one
	// transaction; any failure rolls back all of them.
	UpdateLedgers(ctx context.Context, batches []*model.InventoryBatch) error
}
