// Package ledger holds the pure transforms over a batch's embedded
// allocation and transfer-request maps. Nothing here touches the database;
// callers read the current maps, compute new ones, and persist them under
// the per-batch compare-and-swap.
package ledger

import (
	"errors"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

var ErrNegativeQuantity = errors.New("allocation quantities must not be negative")

// GetStoreAllocation returns the entry for storeID, reporting whether one
// exists. A missing entry means the store has never been allocated any of
// this batch.
func GetStoreAllocation(m model.StoreAllocationMap, storeID string) (model.StoreAllocation, bool) {
	alloc, ok := m[storeID]
	return alloc, ok
}

// TotalAllocated sums allocated over all stores. The unallocated remainder
// of a batch is remainingQuantity minus this total.
func TotalAllocated(m model.StoreAllocationMap) float64 {
	var total float64
	for _, alloc := range m {
		total += alloc.Allocated
	}
	return total
}

// UpdateStoreAllocation returns a copy of m with the entry for storeID
// replaced and stamped. The input map is never mutated. Negative quantities
// are rejected here; the sum-vs-remaining invariant is the caller's check.
func UpdateStoreAllocation(m model.StoreAllocationMap, storeID string, allocated, reserved float64, actorID string) (model.StoreAllocationMap, error) {
	if allocated < 0 || reserved < 0 {
		return nil, ErrNegativeQuantity
	}

	out := make(model.StoreAllocationMap, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[storeID] = model.StoreAllocation{
		Allocated:   allocated,
		Reserved:    reserved,
		LastUpdated: time.Now(),
		UpdatedBy:   actorID,
	}
	return out, nil
}

// PutTransferRequest returns a copy of m with req stored under requestID.
// The input map is never mutated.
func PutTransferRequest(m model.TransferRequestMap, requestID string, req model.TransferRequest) model.TransferRequestMap {
	out := make(model.TransferRequestMap, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[requestID] = req
	return out
}

// FindPendingForTarget returns the id of a PENDING request targeting
// targetStoreID, if any. At most one such request may exist per batch.
func FindPendingForTarget(m model.TransferRequestMap, targetStoreID string) (string, bool) {
	for id, req := range m {
		if req.Status == model.TransferStatusPending && req.TargetStoreID == targetStoreID {
			return id, true
		}
	}
	return "", false
}
