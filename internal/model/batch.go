package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StoreAllocation is one store's slice of a batch's remaining quantity.
// Reserved is the earmarked-but-not-deducted subset, so reserved <= allocated.
type StoreAllocation struct {
	Allocated   float64   `json:"allocated"`
	Reserved    float64   `json:"reserved"`
	LastUpdated time.Time `json:"last_updated"`
	UpdatedBy   string    `json:"updated_by"`
}

// StoreAllocationMap maps storeID to that store's allocation. Stored as a
// jsonb column on the batch row; the row is the sole owner of this state.
type StoreAllocationMap map[string]StoreAllocation

func (m StoreAllocationMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *StoreAllocationMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported type %T for StoreAllocationMap", src)
	}
}

type TransferRequestType string

const (
	TransferTypeAllocation TransferRequestType = "ALLOCATION"
	TransferTypeTransfer   TransferRequestType = "TRANSFER"
)

type TransferRequestStatus string

const (
	TransferStatusPending   TransferRequestStatus = "PENDING"
	TransferStatusApproved  TransferRequestStatus = "APPROVED"
	TransferStatusRejected  TransferRequestStatus = "REJECTED"
	TransferStatusCompleted TransferRequestStatus = "COMPLETED"
	TransferStatusCancelled TransferRequestStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is permitted.
func (s TransferRequestStatus) IsTerminal() bool {
	return s == TransferStatusRejected || s == TransferStatusCompleted || s == TransferStatusCancelled
}

// TransferRequest is one proposed allocation move between two stores,
// embedded on the batch row and keyed by a generated request id.
type TransferRequest struct {
	Type              TransferRequestType   `json:"type"`
	SourceStoreID     string                `json:"source_store_id"`
	TargetStoreID     string                `json:"target_store_id"`
	RequestedQuantity float64               `json:"requested_quantity"`
	ApprovedQuantity  *float64              `json:"approved_quantity,omitempty"`
	Status            TransferRequestStatus `json:"status"`
	Reason            string                `json:"reason,omitempty"`
	RequestedBy       string                `json:"requested_by"`
	RequestedByName   string                `json:"requested_by_name"`
	RequestedAt       time.Time             `json:"requested_at"`
	ApprovedBy        *string               `json:"approved_by,omitempty"`
	ApprovedByName    *string               `json:"approved_by_name,omitempty"`
	ApprovedAt        *time.Time            `json:"approved_at,omitempty"`
	ConfirmedBy       *string               `json:"confirmed_by,omitempty"`
	ConfirmedByName   *string               `json:"confirmed_by_name,omitempty"`
	ConfirmedAt       *time.Time            `json:"confirmed_at,omitempty"`
	RejectionReason   *string               `json:"rejection_reason,omitempty"`
}

// TransferQuantity is the quantity that actually moves on confirmation.
func (r TransferRequest) TransferQuantity() float64 {
	if r.ApprovedQuantity != nil {
		return *r.ApprovedQuantity
	}
	return r.RequestedQuantity
}

// TransferRequestMap maps requestID to the request, stored as jsonb.
type TransferRequestMap map[string]TransferRequest

func (m TransferRequestMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *TransferRequestMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported type %T for TransferRequestMap", src)
	}
}

// InventoryBatch is one intake lot of an inventory item. The embedded maps
// plus remaining_quantity form a single optimistically-updated aggregate;
// Version backs the compare-and-swap on every ledger write.
type InventoryBatch struct {
	ID                string             `db:"id"`
	InventoryID       string             `db:"inventory_id"`
	TenantID          string             `db:"tenant_id"`
	BatchNumber       int                `db:"batch_number"`
	NumberOfStock     float64            `db:"number_of_stock"`
	RemainingQuantity float64            `db:"remaining_quantity"`
	Price             float64            `db:"price"`
	CostOfItem        float64            `db:"cost_of_item"`
	StoreAllocations  StoreAllocationMap `db:"store_allocations"`
	TransferRequests  TransferRequestMap `db:"transfer_requests"`
	Version           int64              `db:"version"`
	CreatedAt         time.Time          `db:"created_at"`
	DeletedAt         *time.Time         `db:"deleted_at"`
}
