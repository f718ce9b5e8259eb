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
	"github.com/fekuna/omnipos-inventory-service/internal/store"
	"github.com/fekuna/omnipos-inventory-service/internal/transfer"
	"github.com/fekuna/omnipos-inventory-service/internal/transfer/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/user"
	"github.com/fekuna/omnipos-inventory-service/pkg/cache"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	actionApproveTransfer = "approve_transfer"
	actionConfirmTransfer = "confirm_transfer"
)

type transferUseCase struct {
	batches batch.Repository
	stores  store.Repository
	access  store.AccessChecker
	users   user.Directory
	locks   cache.Locker
	logger  logger.ZapLogger
}

func NewTransferUseCase(batches batch.Repository, stores store.Repository, access store.AccessChecker,
	users user.Directory, locks cache.Locker, log logger.ZapLogger) transfer.UseCase {
	return &transferUseCase{
		batches: batches,
		stores:  stores,
		access:  access,
		users:   users,
		locks:   locks,
		logger:  log,
	}
}

func (uc *transferUseCase) CreateTransferRequest(ctx context.Context, input *dto.CreateTransferRequestInput, userID string) (string, error) {
	if userID == "" {
		return "", &apperr.InvalidTransferRequestError{Reason: "user id is required"}
	}
	if input.RequestedQuantity <= 0 {
		return "", &apperr.InvalidTransferRequestError{Reason: "requested quantity must be positive"}
	}

	tenantID, err := auth.RequireTenantID(ctx)
	if err != nil {
		return "", err
	}

	requesterName, err := uc.displayName(ctx, userID)
	if err != nil {
		return "", err
	}

	sourceStoreID, targetStoreID, err := uc.resolveStores(ctx, tenantID, input)
	if err != nil {
		return "", err
	}

	unlock, err := acquireBatchLock(ctx, uc.locks, tenantID, input.BatchID)
	if err != nil {
		return "", err
	}
	defer unlock()

	b, err := uc.batches.GetByID(ctx, tenantID, input.BatchID)
	if err != nil {
		return "", err
	}
	if b == nil {
		return "", &apperr.InventoryBatchNotFoundError{BatchID: input.BatchID, TenantID: tenantID}
	}

	sourceAlloc, _ := ledger.GetStoreAllocation(b.StoreAllocations, sourceStoreID)
	if sourceAlloc.Allocated < input.RequestedQuantity {
		return "", &apperr.InsufficientStoreAllocationError{
			StoreID:   sourceStoreID,
			BatchID:   b.ID,
			Requested: input.RequestedQuantity,
			Available: sourceAlloc.Allocated,
		}
	}

	if conflictID, ok := ledger.FindPendingForTarget(b.TransferRequests, targetStoreID); ok {
		return "", &apperr.TransferRequestConflictError{
			ConflictingRequestID: conflictID,
			BatchID:              b.ID,
			SourceStoreID:        sourceStoreID,
			TargetStoreID:        targetStoreID,
		}
	}

	requestID := uuid.New().String()
	b.TransferRequests = ledger.PutTransferRequest(b.TransferRequests, requestID, model.TransferRequest{
		Type:              input.Type,
		SourceStoreID:     sourceStoreID,
		TargetStoreID:     targetStoreID,
		RequestedQuantity: input.RequestedQuantity,
		Status:            model.TransferStatusPending,
		Reason:            input.Reason,
		RequestedBy:       userID,
		RequestedByName:   requesterName,
		RequestedAt:       time.Now(),
	})

	if err := uc.batches.UpdateLedger(ctx, b); err != nil {
		return "", err
	}

	uc.logger.Info("Created transfer request",
		zap.String("request_id", requestID),
		zap.String("batch_id", b.ID),
		zap.String("source_store_id", sourceStoreID),
		zap.String("target_store_id", targetStoreID),
		zap.Float64("quantity", input.RequestedQuantity),
	)

	return requestID, nil
}

// resolveStores derives the source and target store of the request from its
// type and verifies both exist in the tenant.
func (uc *transferUseCase) resolveStores(ctx context.Context, tenantID string, input *dto.CreateTransferRequestInput) (string, string, error) {
	var sourceStoreID, targetStoreID string

	switch input.Type {
	case model.TransferTypeAllocation:
		if input.TargetStoreID == "" {
			return "", "", &apperr.InvalidTransferRequestError{Reason: "target store id is required for allocation requests"}
		}
		mainStore, err := uc.stores.FindMainStore(ctx, tenantID)
		if err != nil {
			return "", "", err
		}
		if mainStore == nil {
			return "", "", &apperr.StoreNotFoundError{StoreID: "main", TenantID: tenantID}
		}
		sourceStoreID = mainStore.ID
		targetStoreID = input.TargetStoreID

	case model.TransferTypeTransfer:
		if input.SourceStoreID == "" {
			return "", "", &apperr.InvalidTransferRequestError{Reason: "source store id is required for transfer requests"}
		}
		callerStoreID := auth.GetStoreID(ctx)
		if callerStoreID == "" {
			return "", "", &apperr.InvalidTransferRequestError{Reason: "caller store context is required for transfer requests"}
		}
		sourceStoreID = input.SourceStoreID
		targetStoreID = callerStoreID

	default:
		return "", "", &apperr.InvalidTransferRequestError{Reason: fmt.Sprintf("unknown request type %q", input.Type)}
	}

	for _, storeID := range []string{sourceStoreID, targetStoreID} {
		s, err := uc.stores.FindOne(ctx, tenantID, storeID)
		if err != nil {
			return "", "", err
		}
		if s == nil {
			return "", "", &apperr.StoreNotFoundError{StoreID: storeID, TenantID: tenantID}
		}
	}

	return sourceStoreID, targetStoreID, nil
}

func (uc *transferUseCase) ApproveTransferRequest(ctx context.Context, requestID string, input *dto.ApproveTransferRequestInput, userID string) error {
	if userID == "" {
		return &apperr.InvalidTransferRequestError{Reason: "user id is required"}
	}

	tenantID, err := auth.RequireTenantID(ctx)
	if err != nil {
		return err
	}

	approverName, err := uc.displayName(ctx, userID)
	if err != nil {
		return err
	}

	b, req, unlock, err := uc.lockRequest(ctx, tenantID, requestID)
	if err != nil {
		return err
	}
	defer unlock()

	if req.Status != model.TransferStatusPending {
		return &apperr.InvalidTransferRequestStateError{
			RequestID:     requestID,
			CurrentState:  req.Status,
			RequiredState: model.TransferStatusPending,
			Operation:     "approve",
		}
	}

	if err := uc.requireStoreAccess(ctx, userID, req.SourceStoreID, actionApproveTransfer); err != nil {
		return err
	}

	now := time.Now()

	switch input.Decision {
	case model.TransferStatusApproved:
		approvedQty := req.RequestedQuantity
		if input.ApprovedQuantity != nil {
			approvedQty = *input.ApprovedQuantity
		}
		if approvedQty <= 0 || approvedQty > req.RequestedQuantity {
			return &apperr.InvalidTransferRequestError{
				Reason: fmt.Sprintf("approved quantity must be positive and at most the requested %g", req.RequestedQuantity),
			}
		}

		sourceAlloc, _ := ledger.GetStoreAllocation(b.StoreAllocations, req.SourceStoreID)
		if sourceAlloc.Allocated < approvedQty {
			return &apperr.InsufficientStoreAllocationError{
				StoreID:   req.SourceStoreID,
				BatchID:   b.ID,
				Requested: approvedQty,
				Available: sourceAlloc.Allocated,
			}
		}

		req.Status = model.TransferStatusApproved
		req.ApprovedQuantity = &approvedQty
		req.ApprovedBy = &userID
		req.ApprovedByName = &approverName
		req.ApprovedAt = &now

	case model.TransferStatusRejected:
		if input.RejectionReason == "" {
			return &apperr.InvalidTransferRequestError{Reason: "rejection reason is required"}
		}
		req.Status = model.TransferStatusRejected
		req.RejectionReason = &input.RejectionReason
		req.ApprovedBy = &userID
		req.ApprovedByName = &approverName
		req.ApprovedAt = &now

	default:
		return &apperr.InvalidTransferRequestError{Reason: fmt.Sprintf("decision must be %s or %s", model.TransferStatusApproved, model.TransferStatusRejected)}
	}

	b.TransferRequests = ledger.PutTransferRequest(b.TransferRequests, requestID, req)

	if err := uc.batches.UpdateLedger(ctx, b); err != nil {
		return err
	}

	uc.logger.Info("Decided transfer request",
		zap.String("request_id", requestID),
		zap.String("status", string(req.Status)),
		zap.String("decided_by", userID),
	)

	return nil
}

func (uc *transferUseCase) ConfirmTransferRequest(ctx context.Context, requestID, userID string) error {
	if userID == "" {
		return &apperr.InvalidTransferRequestError{Reason: "user id is required"}
	}

	tenantID, err := auth.RequireTenantID(ctx)
	if err != nil {
		return err
	}

	confirmerName, err := uc.displayName(ctx, userID)
	if err != nil {
		return err
	}

	b, req, unlock, err := uc.lockRequest(ctx, tenantID, requestID)
	if err != nil {
		return err
	}
	defer unlock()

	if req.Status != model.TransferStatusApproved {
		return &apperr.InvalidTransferRequestStateError{
			RequestID:     requestID,
			CurrentState:  req.Status,
			RequiredState: model.TransferStatusApproved,
			Operation:     "confirm",
		}
	}

	if err := uc.requireStoreAccess(ctx, userID, req.TargetStoreID, actionConfirmTransfer); err != nil {
		return err
	}

	// The source allocation may have been consumed by sales since approval;
	// this check at confirm time is the authoritative one.
	transferQty := req.TransferQuantity()
	sourceAlloc, _ := ledger.GetStoreAllocation(b.StoreAllocations, req.SourceStoreID)
	if sourceAlloc.Allocated < transferQty {
		return &apperr.InsufficientStoreAllocationError{
			StoreID:   req.SourceStoreID,
			BatchID:   b.ID,
			Requested: transferQty,
			Available: sourceAlloc.Allocated,
		}
	}

	targetAlloc, _ := ledger.GetStoreAllocation(b.StoreAllocations, req.TargetStoreID)

	allocations, err := ledger.UpdateStoreAllocation(b.StoreAllocations, req.SourceStoreID,
		sourceAlloc.Allocated-transferQty, sourceAlloc.Reserved, userID)
	if err != nil {
		return err
	}
	allocations, err = ledger.UpdateStoreAllocation(allocations, req.TargetStoreID,
		targetAlloc.Allocated+transferQty, targetAlloc.Reserved, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	req.Status = model.TransferStatusCompleted
	req.ConfirmedBy = &userID
	req.ConfirmedByName = &confirmerName
	req.ConfirmedAt = &now

	// Both ledgers go out in one conditional update so the allocation move
	// and the status change land atomically.
	b.StoreAllocations = allocations
	b.TransferRequests = ledger.PutTransferRequest(b.TransferRequests, requestID, req)

	if err := uc.batches.UpdateLedger(ctx, b); err != nil {
		return err
	}

	uc.logger.Info("Completed transfer request",
		zap.String("request_id", requestID),
		zap.String("batch_id", b.ID),
		zap.String("source_store_id", req.SourceStoreID),
		zap.String("target_store_id", req.TargetStoreID),
		zap.Float64("quantity", transferQty),
	)

	return nil
}

func (uc *transferUseCase) ListForStore(ctx context.Context, storeID string, filters *dto.RequestFilters) ([]dto.TransferRequestView, error) {
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

	stores, err := uc.stores.FindAllByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	storeNames := make(map[string]string, len(stores))
	for _, st := range stores {
		storeNames[st.ID] = st.Name
	}

	batches, err := uc.batches.ListWithTransferRequests(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var views []dto.TransferRequestView
	for _, b := range batches {
		for requestID, req := range b.TransferRequests {
			if req.SourceStoreID != storeID && req.TargetStoreID != storeID {
				continue
			}
			if !matchesFilters(req, filters) {
				continue
			}
			views = append(views, dto.TransferRequestView{
				RequestID:         requestID,
				BatchID:           b.ID,
				InventoryID:       b.InventoryID,
				BatchNumber:       b.BatchNumber,
				Type:              req.Type,
				Status:            req.Status,
				SourceStoreID:     req.SourceStoreID,
				SourceStoreName:   storeNames[req.SourceStoreID],
				TargetStoreID:     req.TargetStoreID,
				TargetStoreName:   storeNames[req.TargetStoreID],
				RequestedQuantity: req.RequestedQuantity,
				ApprovedQuantity:  req.ApprovedQuantity,
				Reason:            req.Reason,
				RequestedBy:       req.RequestedBy,
				RequestedByName:   req.RequestedByName,
				RequestedAt:       req.RequestedAt,
				ApprovedBy:        req.ApprovedBy,
				ApprovedByName:    req.ApprovedByName,
				ApprovedAt:        req.ApprovedAt,
				ConfirmedBy:       req.ConfirmedBy,
				ConfirmedByName:   req.ConfirmedByName,
				ConfirmedAt:       req.ConfirmedAt,
				RejectionReason:   req.RejectionReason,
			})
		}
	}

	sort.Slice(views, func(i, j int) bool { return views[i].RequestedAt.After(views[j].RequestedAt) })

	return views, nil
}

func matchesFilters(req model.TransferRequest, f *dto.RequestFilters) bool {
	if f == nil {
		return true
	}
	if f.Status != "" && req.Status != f.Status {
		return false
	}
	if f.Type != "" && req.Type != f.Type {
		return false
	}
	if f.SourceStoreID != "" && req.SourceStoreID != f.SourceStoreID {
		return false
	}
	if f.TargetStoreID != "" && req.TargetStoreID != f.TargetStoreID {
		return false
	}
	return true
}

// lockRequest resolves the batch owning requestID, locks it, and re-reads it
// under the lock so the caller decides on fresh state.
func (uc *transferUseCase) lockRequest(ctx context.Context, tenantID, requestID string) (*model.InventoryBatch, model.TransferRequest, func(), error) {
	located, err := uc.batches.GetByRequestID(ctx, tenantID, requestID)
	if err != nil {
		return nil, model.TransferRequest{}, nil, err
	}
	if located == nil {
		return nil, model.TransferRequest{}, nil, &apperr.TransferRequestNotFoundError{RequestID: requestID}
	}

	unlock, err := acquireBatchLock(ctx, uc.locks, tenantID, located.ID)
	if err != nil {
		return nil, model.TransferRequest{}, nil, err
	}

	b, err := uc.batches.GetByID(ctx, tenantID, located.ID)
	if err != nil {
		unlock()
		return nil, model.TransferRequest{}, nil, err
	}
	if b == nil {
		unlock()
		return nil, model.TransferRequest{}, nil, &apperr.InventoryBatchNotFoundError{BatchID: located.ID, TenantID: tenantID}
	}

	req, ok := b.TransferRequests[requestID]
	if !ok {
		unlock()
		return nil, model.TransferRequest{}, nil, &apperr.TransferRequestNotFoundError{RequestID: requestID}
	}

	return b, req, unlock, nil
}

func (uc *transferUseCase) requireStoreAccess(ctx context.Context, userID, storeID, action string) error {
	ok, err := uc.access.HasAccess(ctx, userID, storeID, action)
	if err != nil {
		return err
	}
	if !ok {
		return &apperr.StoreAccessDeniedError{StoreID: storeID, Action: action, UserID: userID}
	}
	return nil
}

func (uc *transferUseCase) displayName(ctx context.Context, userID string) (string, error) {
	u, err := uc.users.FetchUserByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u == nil {
		return userID, nil
	}
	return u.DisplayName(), nil
}

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
