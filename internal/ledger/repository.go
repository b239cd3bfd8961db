package ledger

import (
	"context"
	"errors"

	"github.com/chrisostomemataba/inventory-ledger/internal/ledger/dto"
	"github.com/chrisostomemataba/inventory-ledger/internal/model"
)

// ErrStaleBalance is returned by CommitMovement when the product balance
// changed between the caller's read and the commit. The caller surfaces it
// rather than retrying; a blind retry could double-apply a movement.
var ErrStaleBalance = errors.New("product balance changed concurrently")

type Repository interface {
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	GetProductWithRelations(ctx context.Context, id string) (*model.Product, error)

	// CommitMovement persists the product row, the ledger entry and the audit
	// entry as one atomic unit. The product update is guarded on the balance
	// still being expectedBefore; all writes succeed or none do. txn may be
	// nil for product edits that do not move stock.
	CommitMovement(ctx context.Context, p *model.Product, expectedBefore int, txn *model.InventoryTransaction, audit *model.AuditLog) error

	ListTransactions(ctx context.Context, f *dto.TransactionFilters) ([]model.InventoryTransaction, int, error)
	ProductHistory(ctx context.Context, productID string, limit int) ([]model.InventoryTransaction, error)
}
