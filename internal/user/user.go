package user

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

// Directory resolves user identity for audit display names.
type Directory interface {
	// FetchUserByUserID returns nil, nil when the user is unknown.
	FetchUserByUserID(ctx context.Context, userID string) (*model.User, error)
}
