package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/batch"
	"github.com/fekuna/omnipos-inventory-service/internal/batch/ledger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/sale"
	"github.com/fekuna/omnipos-inventory-service/internal/sale/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/store"
	"github.com/fekuna/omnipos-inventory-service/pkg/cache"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type saleUseCase struct {
	batches   batch.Repository
	stores    store.Repository
	locks     cache.Locker
	logger    logger.ZapLogger
	txTimeout time.Duration
}

func NewSaleUseCase(batches batch.Repository, stores store.Repository, locks cache.Locker,
	log logger.ZapLogger, txTimeout time.Duration) sale.UseCase {
	return &saleUseCase{
		batches:   batches,
		stores:    stores,
		locks:     locks,
		logger:    log,
		txTimeout: txTimeout,
	}
}

func (uc *saleUseCase) ReserveForSale(ctx context.Context, input *dto.ReserveForSaleInput) ([]dto.BatchDeduction, error) {
	if input.StoreID == "" {
		return nil, &apperr.InvalidTransferRequestError{Reason: "store id is required"}
	}
	if len(input.Lines) == 0 {
		return nil, &apperr.InvalidTransferRequestError{Reason: "sale has no lines"}
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

	// The whole reservation runs under one deadline; the transaction at the
	// end aborts with it and no partial decrement survives.
	ctx, cancel := context.WithTimeout(ctx, uc.txTimeout)
	defer cancel()

	actor := input.UserID
	if actor == "" {
		actor = "system"
	}

	// Lines for the same item are consumed once, against one requirement.
	required := map[string]float64{}
	order := []string{}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, &apperr.InvalidTransferRequestError{Reason: "sale line quantity must be positive"}
		}
		if _, ok := required[line.InventoryID]; !ok {
			order = append(order, line.InventoryID)
		}
		required[line.InventoryID] += line.Quantity
	}

	for _, inventoryID := range order {
		unlock, err := uc.acquireInventoryLock(ctx, tenantID, inventoryID, input.StoreID)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	var deductions []dto.BatchDeduction
	updatedByID := map[string]*model.InventoryBatch{}

	for _, inventoryID := range order {
		needed := required[inventoryID]

		batches, err := uc.batches.ListEligibleForReservation(ctx, tenantID, inventoryID)
		if err != nil {
			return nil, err
		}

		for i := range batches {
			if needed <= 0 {
				break
			}
			b := &batches[i]

			alloc, _ := ledger.GetStoreAllocation(b.StoreAllocations, input.StoreID)
			available := alloc.Allocated - alloc.Reserved
			take := minQuantity(available, b.RemainingQuantity, needed)
			if take <= 0 {
				continue
			}

			allocations, err := ledger.UpdateStoreAllocation(b.StoreAllocations, input.StoreID,
				alloc.Allocated-take, alloc.Reserved, actor)
			if err != nil {
				return nil, err
			}
			b.StoreAllocations = allocations
			b.RemainingQuantity -= take

			deductions = append(deductions, dto.BatchDeduction{
				BatchID:     b.ID,
				InventoryID: inventoryID,
				Quantity:    take,
			})
			updatedByID[b.ID] = b
			needed -= take
		}

		if needed > 0 {
			return nil, &apperr.InsufficientInventoryError{
				InventoryID: inventoryID,
				StoreID:     input.StoreID,
				Required:    required[inventoryID],
				Available:   required[inventoryID] - needed,
			}
		}
	}

	updated := make([]*model.InventoryBatch, 0, len(updatedByID))
	for _, b := range updatedByID {
		updated = append(updated, b)
	}
	sort.Slice(updated, func(i, j int) bool { return updated[i].ID < updated[j].ID })

	if err := uc.batches.UpdateLedgers(ctx, updated); err != nil {
		return nil, err
	}

	uc.logger.Info("Reserved inventory for sale",
		zap.String("sale_id", input.SaleID),
		zap.String("store_id", input.StoreID),
		zap.Int("batches_touched", len(updated)),
	)

	return deductions, nil
}

func minQuantity(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func (uc *saleUseCase) acquireInventoryLock(ctx context.Context, tenantID, inventoryID, storeID string) (func(), error) {
	lockKey := fmt.Sprintf("lock:inventory:%s:%s:%s", tenantID, inventoryID, storeID)
	lockValue := uuid.New().String()

	acquired := false
	for i := 0; i < 3; i++ {
		ok, err := uc.locks.AcquireLock(ctx, lockKey, lockValue, 5*time.Second)
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
		return nil, fmt.Errorf("inventory %s is busy, please try again", inventoryID)
	}

	return func() {
		_ = uc.locks.ReleaseLock(context.Background(), lockKey, lockValue)
	}, nil
}
