package dto

type SaleLine struct {
	InventoryID string
	Quantity    float64
}

type ReserveForSaleInput struct {
	SaleID  string
	StoreID string
	Lines   []SaleLine
	UserID  string
}

// BatchDeduction reports how much of a sale line one batch supplied.
type BatchDeduction struct {
	BatchID     string
	InventoryID string
	Quantity    float64
}
