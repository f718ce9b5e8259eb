package dto

type AllocateInput struct {
	BatchID  string
	StoreID  string
	Quantity float64
	UserID   string
}
