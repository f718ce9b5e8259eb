package transfer

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/transfer/dto"
)

type UseCase interface {
	// CreateTransferRequest records a PENDING request and returns its id.
	// Allocations do not move until the request is confirmed.
	CreateTransferRequest(ctx context.Context, input *dto.CreateTransferRequestInput, userID string) (string, error)

	// ApproveTransferRequest moves a PENDING request to APPROVED or
	// REJECTED. Still no allocation change.
	ApproveTransferRequest(ctx context.Context, requestID string, input *dto.ApproveTransferRequestInput, userID string) error

	// ConfirmTransferRequest completes an APPROVED request, moving the
	// transfer quantity from source to target in one persisted update.
	ConfirmTransferRequest(ctx context.Context, requestID, userID string) error

	// ListForStore returns requests where the store is source or target,
	// newest first.
	ListForStore(ctx context.Context, storeID string, filters *dto.RequestFilters) ([]dto.TransferRequestView, error)
}
