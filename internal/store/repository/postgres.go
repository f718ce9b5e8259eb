package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) FindOne(ctx context.Context, tenantID, storeID string) (*model.Store, error) {
	var s model.Store
	query := `SELECT * FROM stores WHERE tenant_id = $1 AND id = $2`
	err := r.DB.GetContext(ctx, &s, query, tenantID, storeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *PGRepository) FindAllByTenant(ctx context.Context, tenantID string) ([]model.Store, error) {
	var stores []model.Store
	query := `SELECT * FROM stores WHERE tenant_id = $1 ORDER BY created_at ASC`
	err := r.DB.SelectContext(ctx, &stores, query, tenantID)
	return stores, err
}

func (r *PGRepository) FindMainStore(ctx context.Context, tenantID string) (*model.Store, error) {
	var s model.Store
	query := `SELECT * FROM stores WHERE tenant_id = $1 AND is_main = true`
	err := r.DB.GetContext(ctx, &s, query, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// HasAccess checks store membership. The action parameter is recorded for
// the audit trail but all members currently share the same rights.
func (r *PGRepository) HasAccess(ctx context.Context, userID, storeID, action string) (bool, error) {
	var count int
	query := `SELECT count(*) FROM store_members WHERE store_id = $1 AND user_id = $2`
	err := r.DB.GetContext(ctx, &count, query, storeID, userID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
