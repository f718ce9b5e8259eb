package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/batch/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
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
	var out []model.Store
	for _, s := range f.stores {
		if s.TenantID == tenantID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStoreRepo) FindMainStore(ctx context.Context, tenantID string) (*model.Store, error) {
	for _, s := range f.stores {
		if s.TenantID == tenantID && s.IsMain {
			out := s
			return &out, nil
		}
	}
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
	for _, b := range f.batches {
		if b.TenantID != tenantID {
			continue
		}
		if _, ok := b.TransferRequests[requestID]; ok {
			out := b
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeBatchRepo) ListByTenant(ctx context.Context, tenantID string) ([]model.InventoryBatch, error) {
	var out []model.InventoryBatch
	for _, b := range f.batches {
		if b.TenantID == tenantID && b.DeletedAt == nil {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBatchRepo) ListWithTransferRequests(ctx context.Context, tenantID string) ([]model.InventoryBatch, error) {
	var out []model.InventoryBatch
	for _, b := range f.batches {
		if b.TenantID == tenantID && b.TransferRequests != nil {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBatchRepo) ListEligibleForReservation(ctx context.Context, tenantID, inventoryID string) ([]model.InventoryBatch, error) {
	var out []model.InventoryBatch
	for _, b := range f.batches {
		if b.TenantID == tenantID && b.InventoryID == inventoryID && b.RemainingQuantity > 0 && b.DeletedAt == nil {
			out = append(out, b)
		}
	}
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

func newFixture() (*fakeBatchRepo, *fakeStoreRepo, *batchUseCase) {
	batches := &fakeBatchRepo{batches: map[string]model.InventoryBatch{}}
	stores := &fakeStoreRepo{stores: map[string]model.Store{
		"store-main": {ID: "store-main", TenantID: testTenant, Name: "Main Store", IsMain: true},
		"store-a":    {ID: "store-a", TenantID: testTenant, Name: "Store A"},
		"store-b":    {ID: "store-b", TenantID: testTenant, Name: "Store B"},
	}}
	uc := NewBatchUseCase(batches, stores, &fakeLocker{}, logger.NewNop()).(*batchUseCase)
	return batches, stores, uc
}

func TestAllocateBatchToStore(t *testing.T) {
	batches, _, uc := newFixture()
	batches.batches["batch-1"] = model.InventoryBatch{
		ID:                "batch-1",
		TenantID:          testTenant,
		InventoryID:       "inv-1",
		RemainingQuantity: 100,
	}

	got, err := uc.AllocateBatchToStore(testContext(), &dto.AllocateInput{
		BatchID:  "batch-1",
		StoreID:  "store-a",
		Quantity: 60,
		UserID:   "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 60.0, got.StoreAllocations["store-a"].Allocated)
	assert.Equal(t, 0.0, got.StoreAllocations["store-a"].Reserved)
	assert.Equal(t, "user-1", got.StoreAllocations["store-a"].UpdatedBy)

	// Only 40 of the batch remains unallocated, so 50 more must fail.
	_, err = uc.AllocateBatchToStore(testContext(), &dto.AllocateInput{
		BatchID:  "batch-1",
		StoreID:  "store-b",
		Quantity: 50,
		UserID:   "user-1",
	})
	var insufficient *apperr.InsufficientStoreAllocationError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 50.0, insufficient.Requested)
	assert.Equal(t, 40.0, insufficient.Available)

	_, err = uc.AllocateBatchToStore(testContext(), &dto.AllocateInput{
		BatchID:  "batch-1",
		StoreID:  "store-b",
		Quantity: 40,
		UserID:   "user-1",
	})
	require.NoError(t, err)
}

func TestAllocateBatchToStore_Validation(t *testing.T) {
	batches, _, uc := newFixture()
	batches.batches["batch-1"] = model.InventoryBatch{
		ID:                "batch-1",
		TenantID:          testTenant,
		RemainingQuantity: 10,
	}

	_, err := uc.AllocateBatchToStore(testContext(), &dto.AllocateInput{
		BatchID: "batch-1", StoreID: "store-a", Quantity: 0, UserID: "user-1",
	})
	var invalid *apperr.InvalidTransferRequestError
	assert.ErrorAs(t, err, &invalid)

	_, err = uc.AllocateBatchToStore(testContext(), &dto.AllocateInput{
		BatchID: "batch-1", StoreID: "store-missing", Quantity: 5, UserID: "user-1",
	})
	var storeNotFound *apperr.StoreNotFoundError
	require.ErrorAs(t, err, &storeNotFound)
	assert.Equal(t, "store-missing", storeNotFound.StoreID)

	_, err = uc.AllocateBatchToStore(testContext(), &dto.AllocateInput{
		BatchID: "batch-missing", StoreID: "store-a", Quantity: 5, UserID: "user-1",
	})
	var batchNotFound *apperr.InventoryBatchNotFoundError
	require.ErrorAs(t, err, &batchNotFound)
	assert.Equal(t, "batch-missing", batchNotFound.BatchID)
}

func TestGetStoreInventoryView(t *testing.T) {
	batches, _, uc := newFixture()
	created := time.Now().Add(-time.Hour)
	batches.batches["batch-1"] = model.InventoryBatch{
		ID:                "batch-1",
		TenantID:          testTenant,
		InventoryID:       "inv-1",
		BatchNumber:       1,
		RemainingQuantity: 100,
		CreatedAt:         created,
		StoreAllocations: model.StoreAllocationMap{
			"store-a": {Allocated: 30, Reserved: 10},
			"store-b": {Allocated: 50, Reserved: 0},
		},
	}
	batches.batches["batch-2"] = model.InventoryBatch{
		ID:                "batch-2",
		TenantID:          testTenant,
		InventoryID:       "inv-1",
		BatchNumber:       2,
		RemainingQuantity: 40,
		CreatedAt:         created.Add(time.Minute),
	}

	view, err := uc.GetStoreInventoryView(testContext(), "store-a")
	require.NoError(t, err)
	assert.Equal(t, "store-a", view.StoreID)
	assert.Equal(t, "Store A", view.StoreName)
	require.Len(t, view.Items, 1)

	item := view.Items[0]
	assert.Equal(t, "inv-1", item.InventoryID)
	assert.Equal(t, 30.0, item.TotalAllocated)
	assert.Equal(t, 10.0, item.TotalReserved)
	assert.Equal(t, 20.0, item.TotalAvailable)
	require.Len(t, item.Batches, 2)

	for _, bv := range item.Batches {
		switch bv.BatchID {
		case "batch-1":
			// store-b holds the largest slice of batch-1.
			assert.Equal(t, "store-b", bv.OwnerStoreID)
			assert.Equal(t, 20.0, bv.AvailableInStore)
		case "batch-2":
			// No allocations at all falls back to the main store.
			assert.Equal(t, "store-main", bv.OwnerStoreID)
			assert.Equal(t, 0.0, bv.AllocatedToStore)
		}
	}
}

func TestOwnerStore_TieBreaksOnStoreID(t *testing.T) {
	m := model.StoreAllocationMap{
		"store-b": {Allocated: 25},
		"store-a": {Allocated: 25},
	}
	assert.Equal(t, "store-a", ownerStore(m, &model.Store{ID: "store-main"}))
}
