package analytics

import (
	"context"
	"time"

	"github.com/chrisostomemataba/inventory-ledger/internal/model"
)

// Repository is the read-only slice of the ledger store the analytics engine
// needs. Every method materializes plain rows; all numeric policy lives in
// the pure packages so it stays decoupled from the query engine.
type Repository interface {
	ActiveProducts(ctx context.Context) ([]model.Product, error)
	Categories(ctx context.Context) ([]model.Category, error)
	Suppliers(ctx context.Context) ([]model.Supplier, error)

	// TransactionsInWindow returns ledger rows with created_at in
	// [start, end], joined with product name/sku, ordered by created_at.
	TransactionsInWindow(ctx context.Context, start, end time.Time) ([]model.InventoryTransaction, error)
}
