package sale

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/sale/dto"
)

type UseCase interface {
	// ReserveForSale consumes store-scoped batch allocations oldest-batch-
	// first for every sale line, inside one transaction. On any shortfall
	// the whole sale fails and nothing is persisted.
	ReserveForSale(ctx context.Context, input *dto.ReserveForSaleInput) ([]dto.BatchDeduction, error)
}
