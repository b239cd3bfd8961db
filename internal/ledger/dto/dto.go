package dto

import (
	"time"

	"github.com/chrisostomemataba/inventory-ledger/internal/model"
)

type TransactionFilters struct {
	ProductID       string
	TransactionType model.TransactionType
	StartDate       *time.Time
	EndDate         *time.Time
	Page            int
	PageSize        int
}

// ApplyResult is returned from a committed stock movement. LowStock flags
// whether the new balance is at or below the product's minimum; notification
// transports are the caller's concern.
type ApplyResult struct {
	Transaction *model.InventoryTransaction `json:"transaction"`
	Product     *model.Product              `json:"product"`
	LowStock    bool                        `json:"low_stock"`
}

// ProductDetail is a product joined with its most recent ledger entries.
type ProductDetail struct {
	Product *model.Product               `json:"product"`
	Recent  []model.InventoryTransaction `json:"recent_transactions"`
}
