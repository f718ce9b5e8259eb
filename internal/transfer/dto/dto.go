package dto

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

// TransferRequestView is a request flattened out of its batch with store
// names resolved for display.
type TransferRequestView struct {
	RequestID         string                      `json:"request_id"`
	BatchID           string                      `json:"batch_id"`
	InventoryID       string                      `json:"inventory_id"`
	BatchNumber       int                         `json:"batch_number"`
	Type              model.TransferRequestType   `json:"type"`
	Status            model.TransferRequestStatus `json:"status"`
	SourceStoreID     string                      `json:"source_store_id"`
	SourceStoreName   string                      `json:"source_store_name"`
	TargetStoreID     string                      `json:"target_store_id"`
	TargetStoreName   string                      `json:"target_store_name"`
	RequestedQuantity float64                     `json:"requested_quantity"`
	ApprovedQuantity  *float64                    `json:"approved_quantity,omitempty"`
	Reason            string                      `json:"reason,omitempty"`
	RequestedBy       string                      `json:"requested_by"`
	RequestedByName   string                      `json:"requested_by_name"`
	RequestedAt       time.Time                   `json:"requested_at"`
	ApprovedBy        *string                     `json:"approved_by,omitempty"`
	ApprovedByName    *string                     `json:"approved_by_name,omitempty"`
	ApprovedAt        *time.Time                  `json:"approved_at,omitempty"`
	ConfirmedBy       *string                     `json:"confirmed_by,omitempty"`
	ConfirmedByName   *string                     `json:"confirmed_by_name,omitempty"`
	ConfirmedAt       *time.Time                  `json:"confirmed_at,omitempty"`
	RejectionReason   *string                     `json:"rejection_reason,omitempty"`
}
