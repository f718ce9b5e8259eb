package dto

import "time"

// StoreBatchView is one batch as seen from a single store.
type StoreBatchView struct {
	BatchID          string    `json:"batch_id"`
	InventoryID      string    `json:"inventory_id"`
	BatchNumber      int       `json:"batch_number"`
	AllocatedToStore float64   `json:"allocated_to_store"`
	ReservedInStore  float64   `json:"reserved_in_store"`
	AvailableInStore float64   `json:"available_in_store"`
	OwnerStoreID     string    `json:"owner_store_id"`
	Price            float64   `json:"price"`
	CreatedAt        time.Time `json:"created_at"`
}

// StoreInventoryItemView aggregates a store's batches per inventory item.
type StoreInventoryItemView struct {
	InventoryID    string           `json:"inventory_id"`
	TotalAllocated float64          `json:"total_allocated"`
	TotalReserved  float64          `json:"total_reserved"`
	TotalAvailable float64          `json:"total_available"`
	Batches        []StoreBatchView `json:"batches"`
}

type StoreInventoryView struct {
	StoreID   string                   `json:"store_id"`
	StoreName string                   `json:"store_name"`
	Items     []StoreInventoryItemView `json:"items"`
}
