package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chrisostomemataba/inventory-ledger/internal/apperr"
	"github.com/chrisostomemataba/inventory-ledger/internal/auth"
	"github.com/chrisostomemataba/inventory-ledger/internal/ledger"
	"github.com/chrisostomemataba/inventory-ledger/internal/ledger/dto"
	"github.com/chrisostomemataba/inventory-ledger/internal/model"
	"github.com/chrisostomemataba/inventory-ledger/internal/pkg/logger"
)

const defaultHistoryLimit = 10

// Locker serializes writers per product. Satisfied by cache.RedisClient.
type Locker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}

type ledgerUseCase struct {
	repo   ledger.Repository
	locks  Locker
	logger logger.ZapLogger
	now    func() time.Time
}

func NewLedgerUseCase(repo ledger.Repository, locks Locker, log logger.ZapLogger, now func() time.Time) ledger.UseCase {
	if now == nil {
		now = time.Now
	}
	return &ledgerUseCase{
		repo:   repo,
		locks:  locks,
		logger: log,
		now:    now,
	}
}

func (uc *ledgerUseCase) Apply(ctx context.Context, input *dto.ApplyTransactionInput) (*dto.ApplyResult, error) {
	if input.Quantity <= 0 {
		return nil, apperr.InvalidInput("quantity must be greater than 0")
	}
	if !input.TransactionType.Valid() {
		return nil, apperr.InvalidInput("unknown transaction type: " + string(input.TransactionType))
	}

	unlock, err := uc.lockProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := uc.repo.GetProduct(ctx, input.ProductID)
	if err != nil {
		return nil, apperr.StoreUnavailable(err, "read product")
	}
	if p == nil {
		return nil, apperr.NotFound("product not found")
	}
	if !p.IsActive {
		return nil, apperr.InvalidInput("product is inactive")
	}

	before := p.Quantity
	newQuantity := before + input.Quantity
	if input.TransactionType == model.TransactionOut {
		newQuantity = before - input.Quantity
	}
	if newQuantity < 0 {
		return nil, apperr.InsufficientStock(
			fmt.Sprintf("insufficient stock: have %d, requested %d", before, input.Quantity))
	}

	now := uc.now()
	txn := &model.InventoryTransaction{
		ID:              uuid.New().String(),
		ProductID:       p.ID,
		TransactionType: input.TransactionType,
		Quantity:        input.Quantity,
		UserID:          input.UserID,
		Notes:           input.Notes,
		ReferenceID:     optional(input.ReferenceID),
		ReferenceType:   optional(input.ReferenceType),
		CreatedAt:       now,
	}

	audit, err := uc.buildAudit(ctx, input.UserID, model.AuditActionTransaction, "inventory_transactions", txn.ID,
		map[string]interface{}{"quantity": before},
		map[string]interface{}{
			"product_id":        p.ID,
			"transaction_type":  input.TransactionType,
			"quantity":          input.Quantity,
			"notes":             input.Notes,
			"previous_quantity": before,
			"new_quantity":      newQuantity,
		}, now)
	if err != nil {
		return nil, err
	}

	p.Quantity = newQuantity
	p.UpdatedAt = now

	if err := uc.repo.CommitMovement(ctx, p, before, txn, audit); err != nil {
		return nil, apperr.StoreUnavailable(err, "commit movement")
	}

	result := &dto.ApplyResult{
		Transaction: txn,
		Product:     p,
		LowStock:    newQuantity <= p.MinimumQuantity,
	}
	if result.LowStock {
		uc.logger.Warn("low stock after transaction",
			zap.String("product_id", p.ID),
			zap.Int("quantity", newQuantity),
			zap.Int("minimum", p.MinimumQuantity),
		)
	}
	return result, nil
}

func (uc *ledgerUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	if input.Quantity < 0 {
		return nil, apperr.InvalidInput("quantity cannot be negative")
	}

	unlock, err := uc.lockProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := uc.repo.GetProduct(ctx, input.ProductID)
	if err != nil {
		return nil, apperr.StoreUnavailable(err, "read product")
	}
	if p == nil {
		return nil, apperr.NotFound("product not found")
	}

	before := p.Quantity
	oldSnapshot := *p

	p.Name = input.Name
	p.Description = input.Description
	p.Barcode = input.Barcode
	p.UnitPrice = input.UnitPrice
	p.CostPrice = input.CostPrice
	p.Quantity = input.Quantity
	p.MinimumQuantity = input.MinimumQuantity
	p.MaximumQuantity = input.MaximumQuantity
	p.CategoryID = input.CategoryID
	p.SupplierID = input.SupplierID

	now := uc.now()
	p.UpdatedAt = now

	// A direct quantity edit still goes through the ledger: synthesize the
	// compensating transaction so replay stays faithful.
	var txn *model.InventoryTransaction
	if delta := input.Quantity - before; delta != 0 {
		txnType := model.TransactionIn
		magnitude := delta
		if delta < 0 {
			txnType = model.TransactionOut
			magnitude = -delta
		}
		txn = &model.InventoryTransaction{
			ID:              uuid.New().String(),
			ProductID:       p.ID,
			TransactionType: txnType,
			Quantity:        magnitude,
			UserID:          input.UserID,
			Notes:           fmt.Sprintf("Quantity adjusted from %d to %d", before, input.Quantity),
			CreatedAt:       now,
		}
	}

	audit, err := uc.buildAudit(ctx, input.UserID, model.AuditActionUpdate, "products", p.ID, oldSnapshot, p, now)
	if err != nil {
		return nil, err
	}

	if err := uc.repo.CommitMovement(ctx, p, before, txn, audit); err != nil {
		return nil, apperr.StoreUnavailable(err, "commit product update")
	}
	return p, nil
}

func (uc *ledgerUseCase) SoftDeleteProduct(ctx context.Context, productID, userID string) error {
	unlock, err := uc.lockProduct(ctx, productID)
	if err != nil {
		return err
	}
	defer unlock()

	p, err := uc.repo.GetProduct(ctx, productID)
	if err != nil {
		return apperr.StoreUnavailable(err, "read product")
	}
	if p == nil {
		return apperr.NotFound("product not found")
	}
	if !p.IsActive {
		return apperr.InvalidInput("product is already inactive")
	}

	before := p.Quantity
	oldSnapshot := *p

	now := uc.now()
	p.IsActive = false
	p.Quantity = 0
	p.UpdatedAt = now

	// Zero-quantity OUT row marks the ledger closed for this product.
	txn := &model.InventoryTransaction{
		ID:              uuid.New().String(),
		ProductID:       p.ID,
		TransactionType: model.TransactionOut,
		Quantity:        0,
		UserID:          userID,
		Notes:           "Product deleted",
		CreatedAt:       now,
	}

	audit, err := uc.buildAudit(ctx, userID, model.AuditActionDelete, "products", p.ID, oldSnapshot, p, now)
	if err != nil {
		return err
	}

	if err := uc.repo.CommitMovement(ctx, p, before, txn, audit); err != nil {
		return apperr.StoreUnavailable(err, "commit product delete")
	}
	return nil
}

func (uc *ledgerUseCase) GetProduct(ctx context.Context, id string) (*dto.ProductDetail, error) {
	p, err := uc.repo.GetProductWithRelations(ctx, id)
	if err != nil {
		return nil, apperr.StoreUnavailable(err, "read product")
	}
	if p == nil {
		return nil, apperr.NotFound("product not found")
	}

	recent, err := uc.repo.ProductHistory(ctx, id, 5)
	if err != nil {
		return nil, apperr.StoreUnavailable(err, "read product history")
	}
	return &dto.ProductDetail{Product: p, Recent: recent}, nil
}

func (uc *ledgerUseCase) ListTransactions(ctx context.Context, f *dto.TransactionFilters) ([]model.InventoryTransaction, int, error) {
	if f.TransactionType != "" && !f.TransactionType.Valid() {
		return nil, 0, apperr.InvalidInput("unknown transaction type: " + string(f.TransactionType))
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return nil, 0, apperr.InvalidInput("window end precedes start")
	}
	items, total, err := uc.repo.ListTransactions(ctx, f)
	if err != nil {
		return nil, 0, apperr.StoreUnavailable(err, "list transactions")
	}
	return items, total, nil
}

func (uc *ledgerUseCase) History(ctx context.Context, productID string, limit int) ([]model.InventoryTransaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	items, err := uc.repo.ProductHistory(ctx, productID, limit)
	if err != nil {
		return nil, apperr.StoreUnavailable(err, "read product history")
	}
	return items, nil
}

// lockProduct takes the per-product advisory lock with a short retry loop.
func (uc *ledgerUseCase) lockProduct(ctx context.Context, productID string) (func(), error) {
	if uc.locks == nil {
		return func() {}, nil
	}

	lockKey := "lock:ledger:" + productID
	lockValue := uuid.New().String()

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, apperr.StoreUnavailable(ctx.Err(), "acquire product lock")
			case <-time.After(100 * time.Millisecond):
			}
		}

		ok, err := uc.locks.AcquireLock(ctx, lockKey, lockValue, 5*time.Second)
		if err != nil {
			lastErr = err
			uc.logger.Error("failed to acquire lock", zap.Error(err))
			continue
		}
		if ok {
			return func() {
				if err := uc.locks.ReleaseLock(ctx, lockKey, lockValue); err != nil {
					uc.logger.Error("failed to release lock", zap.Error(err))
				}
			}, nil
		}
		lastErr = nil
	}

	// Contention and a failing lock store are different failures: a caller can
	// retry the former, the latter is an outage.
	if lastErr != nil {
		return nil, apperr.StoreUnavailable(lastErr, "acquire product lock")
	}
	return nil, apperr.New(apperr.KindStoreUnavailable, "product is locked by another writer")
}

func (uc *ledgerUseCase) buildAudit(ctx context.Context, userID, action, tableName, recordID string, oldValues, newValues interface{}, now time.Time) (*model.AuditLog, error) {
	oldJSON, err := json.Marshal(oldValues)
	if err != nil {
		return nil, apperr.InvalidInput("marshal old values: " + err.Error())
	}
	newJSON, err := json.Marshal(newValues)
	if err != nil {
		return nil, apperr.InvalidInput("marshal new values: " + err.Error())
	}
	return &model.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		TableName: tableName,
		RecordID:  recordID,
		OldValues: oldJSON,
		NewValues: newJSON,
		IPAddress: auth.GetIPAddress(ctx),
		CreatedAt: now,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
