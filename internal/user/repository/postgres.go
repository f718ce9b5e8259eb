package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGDirectory struct {
	DB *sqlx.DB
}

func NewPGDirectory(db *sqlx.DB) *PGDirectory {
	return &PGDirectory{DB: db}
}

func (d *PGDirectory) FetchUserByUserID(ctx context.Context, userID string) (*model.User, error) {
	var u model.User
	query := `SELECT id, firstname, lastname FROM users WHERE id = $1`
	err := d.DB.GetContext(ctx, &u, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
