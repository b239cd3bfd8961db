package dto

import "github.com/chrisostomemataba/inventory-ledger/internal/model"

type ApplyTransactionInput struct {
	ProductID       string
	TransactionType model.TransactionType
	Quantity        int
	UserID          string
	Notes           string
	ReferenceID     string
	ReferenceType   string // 'manual_adjustment', 'sale', 'return'
}

type UpdateProductInput struct {
	ProductID       string
	Name            string
	Description     *string
	Barcode         *string
	UnitPrice       float64
	CostPrice       float64
	Quantity        int
	MinimumQuantity int
	MaximumQuantity *int
	CategoryID      string
	SupplierID      *string
	UserID          string
}
