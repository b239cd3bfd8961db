package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chrisostomemataba/inventory-ledger/internal/model"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) ActiveProducts(ctx context.Context) ([]model.Product, error) {
	var items []model.Product
	err := r.DB.SelectContext(ctx, &items, `
        SELECT * FROM products
        WHERE is_active = true
        ORDER BY id
    `)
	return items, err
}

func (r *PGRepository) Categories(ctx context.Context) ([]model.Category, error) {
	var items []model.Category
	err := r.DB.SelectContext(ctx, &items, `SELECT * FROM categories ORDER BY id`)
	return items, err
}

func (r *PGRepository) Suppliers(ctx context.Context) ([]model.Supplier, error) {
	var items []model.Supplier
	err := r.DB.SelectContext(ctx, &items, `SELECT * FROM suppliers ORDER BY id`)
	return items, err
}

func (r *PGRepository) TransactionsInWindow(ctx context.Context, start, end time.Time) ([]model.InventoryTransaction, error) {
	var items []model.InventoryTransaction
	err := r.DB.SelectContext(ctx, &items, `
        SELECT it.*, p.name AS product_name, p.sku AS product_sku
        FROM inventory_transactions it
        JOIN products p ON p.id = it.product_id
        WHERE it.created_at >= $1 AND it.created_at <= $2
        ORDER BY it.created_at
    `, start, end)
	return items, err
}
