// Package apperr defines the domain error taxonomy of the allocation core.
// Each failure kind is a distinct type carrying structured context so the
// calling layer can render an actionable message; callers discriminate with
// errors.As. Infrastructure failures are wrapped and propagated opaquely.
package apperr

import (
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

// ErrVersionConflict marks a lost optimistic-concurrency race on a batch
// row. It is not a domain error; callers either retry or surface it as an
// infrastructure failure.
var ErrVersionConflict = errors.New("batch version conflict")

type InvalidTransferRequestError struct {
	Reason string
}

func (e *InvalidTransferRequestError) Error() string {
	return fmt.Sprintf("invalid transfer request: %s", e.Reason)
}

type StoreNotFoundError struct {
	StoreID  string
	TenantID string
}

func (e *StoreNotFoundError) Error() string {
	return fmt.Sprintf("store %s not found for tenant %s", e.StoreID, e.TenantID)
}

type InventoryBatchNotFoundError struct {
	BatchID  string
	TenantID string
}

func (e *InventoryBatchNotFoundError) Error() string {
	return fmt.Sprintf("inventory batch %s not found for tenant %s", e.BatchID, e.TenantID)
}

type InsufficientStoreAllocationError struct {
	StoreID   string
	BatchID   string
	Requested float64
	Available float64
}

func (e *InsufficientStoreAllocationError) Error() string {
	return fmt.Sprintf("insufficient allocation in store %s for batch %s: requested %g, available %g",
		e.StoreID, e.BatchID, e.Requested, e.Available)
}

type StoreAccessDeniedError struct {
	StoreID string
	Action  string
	UserID  string
}

func (e *StoreAccessDeniedError) Error() string {
	return fmt.Sprintf("user %s has no %s access to store %s", e.UserID, e.Action, e.StoreID)
}

type TransferRequestNotFoundError struct {
	RequestID string
}

func (e *TransferRequestNotFoundError) Error() string {
	return fmt.Sprintf("transfer request %s not found", e.RequestID)
}

type InvalidTransferRequestStateError struct {
	RequestID     string
	CurrentState  model.TransferRequestStatus
	RequiredState model.TransferRequestStatus
	Operation     string
}

func (e *InvalidTransferRequestStateError) Error() string {
	return fmt.Sprintf("cannot %s transfer request %s: status is %s, must be %s",
		e.Operation, e.RequestID, e.CurrentState, e.RequiredState)
}

type TransferRequestConflictError struct {
	ConflictingRequestID string
	BatchID              string
	SourceStoreID        string
	TargetStoreID        string
}

func (e *TransferRequestConflictError) Error() string {
	return fmt.Sprintf("a pending transfer request (%s) already exists for batch %s targeting store %s",
		e.ConflictingRequestID, e.BatchID, e.TargetStoreID)
}

type InsufficientInventoryError struct {
	InventoryID string
	StoreID     string
	Required    float64
	Available   float64
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for item %s in store %s: required %g, available %g",
		e.InventoryID, e.StoreID, e.Required, e.Available)
}
