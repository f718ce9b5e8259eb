package batch

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/batch/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type UseCase interface {
	AllocateBatchToStore(ctx context.Context, input *dto.AllocateInput) (*model.InventoryBatch, error)
	GetStoreInventoryView(ctx context.Context, storeID string) (*dto.StoreInventoryView, error)
}
