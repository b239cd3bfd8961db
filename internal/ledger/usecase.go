package ledger

import (
	"context"

	"github.com/chrisostomemataba/inventory-ledger/internal/ledger/dto"
	"github.com/chrisostomemataba/inventory-ledger/internal/model"
)

type UseCase interface {
	Apply(ctx context.Context, input *dto.ApplyTransactionInput) (*dto.ApplyResult, error)
	GetProduct(ctx context.Context, id string) (*dto.ProductDetail, error)
	UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error)
	SoftDeleteProduct(ctx context.Context, productID, userID string) error
	ListTransactions(ctx context.Context, f *dto.TransactionFilters) ([]model.InventoryTransaction, int, error)
	History(ctx context.Context, productID string, limit int) ([]model.InventoryTransaction, error)
}
