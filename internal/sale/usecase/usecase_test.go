package usecase

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/sale/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTenant = "tenant-1"

type fakeLocker struct{}

func (f *fakeLocker) AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (f *fakeLocker) ReleaseLock(ctx context.Context, key, value string) error {
	return nil
}

type fakeStoreRepo struct {
	stores map[string]model.Store
}

func (f *fakeStoreRepo) FindOne(ctx context.Context, tenantID, storeID string) (*model.Store, error) {
	s, ok := f.stores[storeID]
	if !ok || s.TenantID != tenantID {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeStoreRepo) FindAllByTenant(ctx context.Context, tenantID string) ([]model.Store, error) {
	return nil, nil
}

func (f *fakeStoreRepo) FindMainStore(ctx context.Context, tenantID string) (*model.Store, error) {
	return nil, nil
}

type fakeBatchRepo struct {
	batches map[string]model.InventoryBatch
}

func (f *fakeBatchRepo) GetByID(ctx context.Context, tenantID, batchID string) (*model.InventoryBatch, error) {
	b, ok := f.batches[batchID]
	if !ok || b.TenantID != tenantID {
		return nil, nil
	}
	return &b, nil
}

func (f *fakeBatchRepo) GetByRequestID(ctx context.Context, tenantID, requestID string) (*model.InventoryBatch, error) {
	return nil, nil
}

func (f *fakeBatchRepo) ListByTenant(ctx context.Context, tenantID string) ([]model.InventoryBatch, error) {
	return nil, nil
}

func (f *fakeBatchRepo) ListWithTransferRequests(ctx context.Context, tenantID string) ([]model.InventoryBatch, error) {
	return nil, nil
}

func (f *fakeBatchRepo) ListEligibleForReservation(ctx context.Context, tenantID, inventoryID string) ([]model.InventoryBatch, error) {
	var out []model.InventoryBatch
	for _, b := range f.batches {
		if b.TenantID == tenantID && b.InventoryID == inventoryID && b.RemainingQuantity > 0 && b.DeletedAt == nil {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeBatchRepo) UpdateLedger(ctx context.Context, b *model.InventoryBatch) error {
	stored, ok := f.batches[b.ID]
	if !ok || stored.Version != b.Version {
		return apperr.ErrVersionConflict
	}
	b.Version++
	f.batches[b.ID] = *b
	return nil
}

func (f *fakeBatchRepo) UpdateLedgers(ctx context.Context, batches []*model.InventoryBatch) error {
	for _, b := range batches {
		if stored, ok := f.batches[b.ID]; !ok || stored.Version != b.Version {
			return apperr.ErrVersionConflict
		}
	}
	for _, b := range batches {
		b.Version++
		f.batches[b.ID] = *b
	}
	return nil
}

func testContext() context.Context {
	return auth.WithTenantID(context.Background(), testTenant)
}

func newFixture() (*fakeBatchRepo, *saleUseCase) {
	batches := &fakeBatchRepo{batches: map[string]model.InventoryBatch{}}
	stores := &fakeStoreRepo{stores: map[string]model.Store{
		"store-a": {ID: "store-a", TenantID: testTenant, Name: "Store A"},
	}}
	uc := NewSaleUseCase(batches, stores, &fakeLocker{}, logger.NewNop(), 10*time.Second).(*saleUseCase)
	return batches, uc
}

func seedBatch(repo *fakeBatchRepo, id string, remaining float64, createdAgo time.Duration, allocations model.StoreAllocationMap) {
	repo.batches[id] = model.InventoryBatch{
		ID:                id,
		TenantID:          testTenant,
		InventoryID:       "inv-1",
		RemainingQuantity: remaining,
		StoreAllocations:  allocations,
		CreatedAt:         time.Now().Add(-createdAgo),
	}
}

func TestReserveForSale_OldestBatchFirst(t *testing.T) {
	batches, uc := newFixture()
	seedBatch(batches, "batch-old", 100, 2*time.Hour, model.StoreAllocationMap{
		"store-a": {Allocated: 5},
	})
	seedBatch(batches, "batch-new", 100, 1*time.Hour, model.StoreAllocationMap{
		"store-a": {Allocated: 10},
	})

	deductions, err := uc.ReserveForSale(testContext(), &dto.ReserveForSaleInput{
		SaleID:  "sale-1",
		StoreID: "store-a",
		Lines:   []dto.SaleLine{{InventoryID: "inv-1", Quantity: 8}},
		UserID:  "user-1",
	})
	require.NoError(t, err)

	require.Len(t, deductions, 2)
	assert.Equal(t, "batch-old", deductions[0].BatchID)
	assert.Equal(t, 5.0, deductions[0].Quantity)
	assert.Equal(t, "batch-new", deductions[1].BatchID)
	assert.Equal(t, 3.0, deductions[1].Quantity)

	old := batches.batches["batch-old"]
	assert.Equal(t, 95.0, old.RemainingQuantity)
	assert.Equal(t, 0.0, old.StoreAllocations["store-a"].Allocated)

	newer := batches.batches["batch-new"]
	assert.Equal(t, 97.0, newer.RemainingQuantity)
	assert.Equal(t, 7.0, newer.StoreAllocations["store-a"].Allocated)
}

func TestReserveForSale_TakeBoundedByGlobalRemaining(t *testing.T) {
	batches, uc := newFixture()
	// Allocation outlived the global remaining quantity; only the remaining
	// 3 units can actually be taken from this batch.
	seedBatch(batches, "batch-1", 3, 2*time.Hour, model.StoreAllocationMap{
		"store-a": {Allocated: 9},
	})
	seedBatch(batches, "batch-2", 50, 1*time.Hour, model.StoreAllocationMap{
		"store-a": {Allocated: 6},
	})

	deductions, err := uc.ReserveForSale(testContext(), &dto.ReserveForSaleInput{
		SaleID:  "sale-1",
		StoreID: "store-a",
		Lines:   []dto.SaleLine{{InventoryID: "inv-1", Quantity: 7}},
	})
	require.NoError(t, err)

	require.Len(t, deductions, 2)
	assert.Equal(t, 3.0, deductions[0].Quantity)
	assert.Equal(t, 4.0, deductions[1].Quantity)
	assert.Equal(t, 0.0, batches.batches["batch-1"].RemainingQuantity)
}

func TestReserveForSale_ReservedIsNotConsumable(t *testing.T) {
	batches, uc := newFixture()
	seedBatch(batches, "batch-1", 100, time.Hour, model.StoreAllocationMap{
		"store-a": {Allocated: 10, Reserved: 4},
	})

	deductions, err := uc.ReserveForSale(testContext(), &dto.ReserveForSaleInput{
		SaleID:  "sale-1",
		StoreID: "store-a",
		Lines:   []dto.SaleLine{{InventoryID: "inv-1", Quantity: 6}},
	})
	require.NoError(t, err)
	require.Len(t, deductions, 1)
	assert.Equal(t, 6.0, deductions[0].Quantity)

	b := batches.batches["batch-1"]
	assert.Equal(t, 4.0, b.StoreAllocations["store-a"].Allocated)
	assert.Equal(t, 4.0, b.StoreAllocations["store-a"].Reserved)
	assert.Equal(t, 94.0, b.RemainingQuantity)
}

func TestReserveForSale_ShortfallFailsWholeSale(t *testing.T) {
	batches, uc := newFixture()
	seedBatch(batches, "batch-1", 100, 2*time.Hour, model.StoreAllocationMap{
		"store-a": {Allocated: 5},
	})
	seedBatch(batches, "batch-2", 100, 1*time.Hour, model.StoreAllocationMap{
		"store-a": {Allocated: 3},
	})

	_, err := uc.ReserveForSale(testContext(), &dto.ReserveForSaleInput{
		SaleID:  "sale-1",
		StoreID: "store-a",
		Lines:   []dto.SaleLine{{InventoryID: "inv-1", Quantity: 10}},
	})

	var insufficient *apperr.InsufficientInventoryError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "inv-1", insufficient.InventoryID)
	assert.Equal(t, 10.0, insufficient.Required)
	assert.Equal(t, 8.0, insufficient.Available)

	// Nothing was persisted.
	assert.Equal(t, 100.0, batches.batches["batch-1"].RemainingQuantity)
	assert.Equal(t, 5.0, batches.batches["batch-1"].StoreAllocations["store-a"].Allocated)
	assert.Equal(t, 100.0, batches.batches["batch-2"].RemainingQuantity)
}

func TestReserveForSale_AggregatesDuplicateLines(t *testing.T) {
	batches, uc := newFixture()
	seedBatch(batches, "batch-1", 100, time.Hour, model.StoreAllocationMap{
		"store-a": {Allocated: 10},
	})

	deductions, err := uc.ReserveForSale(testContext(), &dto.ReserveForSaleInput{
		SaleID:  "sale-1",
		StoreID: "store-a",
		Lines: []dto.SaleLine{
			{InventoryID: "inv-1", Quantity: 4},
			{InventoryID: "inv-1", Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.Len(t, deductions, 1)
	assert.Equal(t, 7.0, deductions[0].Quantity)
	assert.Equal(t, 3.0, batches.batches["batch-1"].StoreAllocations["store-a"].Allocated)
}

func TestReserveForSale_Validation(t *testing.T) {
	_, uc := newFixture()

	var invalid *apperr.InvalidTransferRequestError
	_, err := uc.ReserveForSale(testContext(), &dto.ReserveForSaleInput{
		SaleID: "sale-1", StoreID: "store-a", Lines: nil,
	})
	assert.ErrorAs(t, err, &invalid)

	_, err = uc.ReserveForSale(testContext(), &dto.ReserveForSaleInput{
		SaleID: "sale-1", StoreID: "store-a",
		Lines: []dto.SaleLine{{InventoryID: "inv-1", Quantity: -1}},
	})
	assert.ErrorAs(t, err, &invalid)

	var storeNotFound *apperr.StoreNotFoundError
	_, err = uc.ReserveForSale(testContext(), &dto.ReserveForSaleInput{
		SaleID: "sale-1", StoreID: "store-missing",
		Lines: []dto.SaleLine{{InventoryID: "inv-1", Quantity: 1}},
	})
	assert.ErrorAs(t, err, &storeNotFound)

	_, err = uc.ReserveForSale(context.Background(), &dto.ReserveForSaleInput{
		SaleID: "sale-1", StoreID: "store-a",
		Lines: []dto.SaleLine{{InventoryID: "inv-1", Quantity: 1}},
	})
	assert.ErrorIs(t, err, auth.ErrNoTenant)
}
