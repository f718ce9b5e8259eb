package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetByID(ctx context.Context, tenantID, batchID string) (*model.InventoryBatch, error) {
	var b model.InventoryBatch
	query := `SELECT * FROM inventory_batches WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	err := r.DB.GetContext(ctx, &b, query, tenantID, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *PGRepository) GetByRequestID(ctx context.Context, tenantID, requestID string) (*model.InventoryBatch, error) {
	var b model.InventoryBatch
	query := `
        SELECT b.* FROM inventory_batches b
        JOIN transfer_request_index i ON i.batch_id = b.id
        WHERE i.request_id = $1 AND b.tenant_id = $2 AND b.deleted_at IS NULL
    `
	err := r.DB.GetContext(ctx, &b, query, requestID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *PGRepository) ListByTenant(ctx context.Context, tenantID string) ([]model.InventoryBatch, error) {
	var batches []model.InventoryBatch
	query := `SELECT * FROM inventory_batches WHERE tenant_id = $1 AND deleted_at IS NULL ORDER BY created_at ASC`
	err := r.DB.SelectContext(ctx, &batches, query, tenantID)
	return batches, err
}

func (r *PGRepository) ListWithTransferRequests(ctx context.Context, tenantID string) ([]model.InventoryBatch, error) {
	var batches []model.InventoryBatch
	query := `
        SELECT * FROM inventory_batches
        WHERE tenant_id = $1 AND transfer_requests IS NOT NULL AND deleted_at IS NULL
        ORDER BY created_at ASC
    `
	err := r.DB.SelectContext(ctx, &batches, query, tenantID)
	return batches, err
}

func (r *PGRepository) ListEligibleForReservation(ctx context.Context, tenantID, inventoryID string) ([]model.InventoryBatch, error) {
	var batches []model.InventoryBatch
	query := `
        SELECT * FROM inventory_batches
        WHERE tenant_id = $1 AND inventory_id = $2 AND remaining_quantity > 0 AND deleted_at IS NULL
        ORDER BY created_at ASC
    `
	err := r.DB.SelectContext(ctx, &batches, query, tenantID, inventoryID)
	return batches, err
}

func (r *PGRepository) UpdateLedger(ctx context.Context, b *model.InventoryBatch) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyLedger(ctx, tx, b); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PGRepository) UpdateLedgers(ctx context.Context, batches []*model.InventoryBatch) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, b := range batches {
		if err := applyLedger(ctx, tx, b); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// applyLedger writes both embedded ledgers and remaining_quantity guarded by
// the version the caller read, then mirrors the request ids into the index
// table so approve/confirm can resolve a request without scanning batches.
func applyLedger(ctx context.Context, tx *sqlx.Tx, b *model.InventoryBatch) error {
	query := `
        UPDATE inventory_batches
        SET store_allocations = $1,
            transfer_requests = $2,
            remaining_quantity = $3,
            version = version + 1
        WHERE id = $4 AND tenant_id = $5 AND version = $6 AND deleted_at IS NULL
    `
	res, err := tx.ExecContext(ctx, query,
		b.StoreAllocations, b.TransferRequests, b.RemainingQuantity,
		b.ID, b.TenantID, b.Version)
	if err != nil {
		return fmt.Errorf("failed to update batch ledger: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrVersionConflict
	}
	b.Version++

	for requestID := range b.TransferRequests {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO transfer_request_index (request_id, batch_id, tenant_id)
            VALUES ($1, $2, $3)
            ON CONFLICT (request_id) DO NOTHING
        `, requestID, b.ID, b.TenantID)
		if err != nil {
			return fmt.Errorf("failed to index transfer request: %w", err)
		}
	}

	return nil
}
