package model

import "time"

type TransactionType string

const (
	TransactionIn  TransactionType = "IN"
	TransactionOut TransactionType = "OUT"
)

func (t TransactionType) Valid() bool {
	return t == TransactionIn || t == TransactionOut
}

// InventoryTransaction is one immutable ledger entry. Rows are append-only:
// replaying a product's entries in created_at order from zero must reproduce
// its current balance exactly.
type InventoryTransaction struct {
	ID              string          `db:"id" json:"id"`
	ProductID       string          `db:"product_id" json:"product_id"`
	TransactionType TransactionType `db:"transaction_type" json:"transaction_type"`
	Quantity        int             `db:"quantity" json:"quantity"`
	UserID          string          `db:"user_id" json:"user_id"`
	Notes           string          `db:"notes" json:"notes"`
	ReferenceID     *string         `db:"reference_id" json:"reference_id"`
	ReferenceType   *string         `db:"reference_type" json:"reference_type"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	ProductName     *string         `db:"product_name" json:"product_name,omitempty"` // Joined data
	ProductSKU      *string         `db:"product_sku" json:"product_sku,omitempty"`   // Joined data
}

// SignedQuantity is the balance delta this entry applied.
func (t *InventoryTransaction) SignedQuantity() int {
	if t.TransactionType == TransactionOut {
		return -t.Quantity
	}
	return t.Quantity
}
