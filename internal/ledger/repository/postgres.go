package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/chrisostomemataba/inventory-ledger/internal/ledger"
	"github.com/chrisostomemataba/inventory-ledger/internal/ledger/dto"
	"github.com/chrisostomemataba/inventory-ledger/internal/model"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	err := r.DB.GetContext(ctx, &p, `SELECT * FROM products WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Caller decides whether missing is an error
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) GetProductWithRelations(ctx context.Context, id string) (*model.Product, error) {
	p, err := r.GetProduct(ctx, id)
	if err != nil || p == nil {
		return p, err
	}

	var cat model.Category
	if err := r.DB.GetContext(ctx, &cat, `SELECT * FROM categories WHERE id = $1`, p.CategoryID); err == nil {
		p.Category = &cat
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if p.SupplierID != nil {
		var sup model.Supplier
		if err := r.DB.GetContext(ctx, &sup, `SELECT * FROM suppliers WHERE id = $1`, *p.SupplierID); err == nil {
			p.Supplier = &sup
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	return p, nil
}

func (r *PGRepository) CommitMovement(ctx context.Context, p *model.Product, expectedBefore int, txn *model.InventoryTransaction, audit *model.AuditLog) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Update product, guarded on the balance the caller read. Zero rows
	// means a concurrent writer got there first.
	res, err := tx.ExecContext(ctx, `
        UPDATE products SET
            name = $1, description = $2, barcode = $3,
            category_id = $4, supplier_id = $5,
            unit_price = $6, cost_price = $7,
            quantity = $8, minimum_quantity = $9, maximum_quantity = $10,
            is_active = $11, updated_at = $12
        WHERE id = $13 AND quantity = $14
    `,
		p.Name, p.Description, p.Barcode,
		p.CategoryID, p.SupplierID,
		p.UnitPrice, p.CostPrice,
		p.Quantity, p.MinimumQuantity, p.MaximumQuantity,
		p.IsActive, p.UpdatedAt,
		p.ID, expectedBefore,
	)
	if err != nil {
		return fmt.Errorf("failed to update product balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrStaleBalance
	}

	// 2. Append ledger entry. Edits with no quantity delta carry no entry.
	if txn != nil {
		_, err = tx.NamedExecContext(ctx, `
        INSERT INTO inventory_transactions (
            id, product_id, transaction_type, quantity,
            user_id, notes, reference_id, reference_type, created_at
        )
        VALUES (
            :id, :product_id, :transaction_type, :quantity,
            :user_id, :notes, :reference_id, :reference_type, :created_at
        )
    `, txn)
		if err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}
	}

	// 3. Append audit entry
	_, err = tx.NamedExecContext(ctx, `
        INSERT INTO audit_logs (
            id, user_id, action, table_name, record_id,
            old_values, new_values, ip_address, created_at
        )
        VALUES (
            :id, :user_id, :action, :table_name, :record_id,
            :old_values, :new_values, :ip_address, :created_at
        )
    `, audit)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return tx.Commit()
}

func (r *PGRepository) ListTransactions(ctx context.Context, f *dto.TransactionFilters) ([]model.InventoryTransaction, int, error) {
	var items []model.InventoryTransaction
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.ProductID != "" {
		conditions = append(conditions, "it.product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.TransactionType != "" {
		conditions = append(conditions, "it.transaction_type = :transaction_type")
		args["transaction_type"] = f.TransactionType
	}
	if f.StartDate != nil {
		conditions = append(conditions, "it.created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "it.created_at <= :end_date")
		args["end_date"] = *f.EndDate
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM inventory_transactions it" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return nil, 0, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	query := `
        SELECT it.*, p.name AS product_name, p.sku AS product_sku
        FROM inventory_transactions it
        JOIN products p ON p.id = it.product_id` + whereClause + `
        ORDER BY it.created_at DESC`
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

func (r *PGRepository) ProductHistory(ctx context.Context, productID string, limit int) ([]model.InventoryTransaction, error) {
	var items []model.InventoryTransaction
	err := r.DB.SelectContext(ctx, &items, `
        SELECT * FROM inventory_transactions
        WHERE product_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `, productID, limit)
	return items, err
}
