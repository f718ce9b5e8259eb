package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/batch"
	"github.com/fekuna/omnipos-inventory-service/internal/batch/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/batch/ledger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/store"
	"github.com/fekuna/omnipos-inventory-service/pkg/cache"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type batchUseCase struct {
	repo   batch.Repository
	stores store.Repository
	locks  cache.Locker
	logger logger.ZapLogger
}

func NewBatchUseCase(repo batch.Repository, stores store.Repository, locks cache.Locker, log logger.ZapLogger) batch.UseCase {
	return &batchUseCase{
		repo:   repo,
		stores: stores,
		locks:  locks,
		logger: log,
	}
}

func (uc *batchUseCase) AllocateBatchToStore(ctx context.Context, input *dto.AllocateInput) (*model.InventoryBatch, error) {
	if input.UserID == "" {
		return nil, &apperr.InvalidTransferRequestError{Reason: "user id is required"}
	}
	if input.Quantity <= 0 {
		return nil, &apperr.InvalidTransferRequestError{Reason: "allocation quantity must be positive"}
	}

	tenantID, err := auth.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	s, err := uc.stores.FindOne(ctx, tenantID, input.StoreID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, &apperr.StoreNotFoundError{StoreID: input.StoreID, TenantID: tenantID}
	}

	unlock, err := acquireBatchLock(ctx, uc.locks, tenantID, input.BatchID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := uc.repo.GetByID(ctx, tenantID, input.BatchID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, &apperr.InventoryBatchNotFoundError{BatchID: input.BatchID, TenantID: tenantID}
	}

	availableForAllocation := b.RemainingQuantity - ledger.TotalAllocated(b.StoreAllocations)
	if input.Quantity > availableForAllocation {
		return nil, &apperr.InsufficientStoreAllocationError{
			StoreID:   input.StoreID,
			BatchID:   b.ID,
			Requested: input.Quantity,
			Available: availableForAllocation,
		}
	}

	current, _ := ledger.GetStoreAllocation(b.StoreAllocations, input.StoreID)
	allocations, err := ledger.UpdateStoreAllocation(b.StoreAllocations, input.StoreID,
		current.Allocated+input.Quantity, current.Reserved, input.UserID)
	if err != nil {
		return nil, err
	}
	b.StoreAllocations = allocations

	if err := uc.repo.UpdateLedger(ctx, b); err != nil {
		return nil, err
	}

	uc.logger.Info("Allocated batch quantity to store",
		zap.String("batch_id", b.ID),
		zap.String("store_id", input.StoreID),
		zap.Float64("quantity", input.Quantity),
	)

	return b, nil
}

func (uc *batchUseCase) GetStoreInventoryView(ctx context.Context, storeID string) (*dto.StoreInventoryView, error) {
	tenantID, err := auth.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	s, err := uc.stores.FindOne(ctx, tenantID, storeID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, &apperr.StoreNotFoundError{StoreID: storeID, TenantID: tenantID}
	}

	mainStore, err := uc.stores.FindMainStore(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	batches, err := uc.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	itemsByInventory := map[string]*dto.StoreInventoryItemView{}
	for _, b := range batches {
		alloc, _ := ledger.GetStoreAllocation(b.StoreAllocations, storeID)
		available := alloc.Allocated - alloc.Reserved
		if available < 0 {
			available = 0
		}

		view := dto.StoreBatchView{
			BatchID:          b.ID,
			InventoryID:      b.InventoryID,
			BatchNumber:      b.BatchNumber,
			AllocatedToStore: alloc.Allocated,
			ReservedInStore:  alloc.Reserved,
			AvailableInStore: available,
			OwnerStoreID:     ownerStore(b.StoreAllocations, mainStore),
			Price:            b.Price,
			CreatedAt:        b.CreatedAt,
		}

		item, ok := itemsByInventory[b.InventoryID]
		if !ok {
			item = &dto.StoreInventoryItemView{InventoryID: b.InventoryID}
			itemsByInventory[b.InventoryID] = item
		}
		item.TotalAllocated += view.AllocatedToStore
		item.TotalReserved += view.ReservedInStore
		item.TotalAvailable += view.AvailableInStore
		item.Batches = append(item.Batches, view)
	}

	items := make([]dto.StoreInventoryItemView, 0, len(itemsByInventory))
	for _, item := range itemsByInventory {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].InventoryID < items[j].InventoryID })

	return &dto.StoreInventoryView{
		StoreID:   s.ID,
		StoreName: s.Name,
		Items:     items,
	}, nil
}

// ownerStore picks the store holding the largest allocation as a display
// convenience. Ties break on ascending store id so the result is stable; a
// batch with no allocations falls back to the main store.
func ownerStore(m model.StoreAllocationMap, mainStore *model.Store) string {
	var ownerID string
	var best float64
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if m[id].Allocated > best {
			best = m[id].Allocated
			ownerID = id
		}
	}
	if ownerID == "" && mainStore != nil {
		return mainStore.ID
	}
	return ownerID
}

// acquireBatchLock serializes read-modify-write sequences on one batch.
// Returns a release func; callers must defer it.
func acquireBatchLock(ctx context.Context, locks cache.Locker, tenantID, batchID string) (func(), error) {
	lockKey := fmt.Sprintf("lock:batch:%s:%s", tenantID, batchID)
	lockValue := uuid.New().String()

	acquired := false
	for i := 0; i < 3; i++ {
		ok, err := locks.AcquireLock(ctx, lockKey, lockValue, 5*time.Second)
		if err != nil {
			return nil, err
		}
		if ok {
			acquired = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !acquired {
		return nil, fmt.Errorf("batch %s is busy, please try again", batchID)
	}

	return func() {
		_ = locks.ReleaseLock(context.Background(), lockKey, lockValue)
	}, nil
}
