package dto

import "github.com/fekuna/omnipos-inventory-service/internal/model"

type CreateTransferRequestInput struct {
	BatchID string
	Type    model.TransferRequestType
	// SourceStoreID is required for TRANSFER; ALLOCATION sources from the
	// tenant's main store.
	SourceStoreID string
	// TargetStoreID is required for ALLOCATION; TRANSFER targets the
	// caller's store context.
	TargetStoreID     string
	RequestedQuantity float64
	Reason            string
}

type ApproveTransferRequestInput struct {
	// Decision is APPROVED or REJECTED.
	Decision model.TransferRequestStatus
	// ApprovedQuantity defaults to the requested quantity when nil.
	ApprovedQuantity *float64
	RejectionReason  string
}

type RequestFilters struct {
	Status        model.TransferRequestStatus
	Type          model.TransferRequestType
	SourceStoreID string
	TargetStoreID string
}
