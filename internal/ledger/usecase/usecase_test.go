package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chrisostomemataba/inventory-ledger/internal/apperr"
	"github.com/chrisostomemataba/inventory-ledger/internal/auth"
	"github.com/chrisostomemataba/inventory-ledger/internal/ledger"
	"github.com/chrisostomemataba/inventory-ledger/internal/ledger/dto"
	"github.com/chrisostomemataba/inventory-ledger/internal/model"
	"github.com/chrisostomemataba/inventory-ledger/internal/pkg/logger"
)

// fakeRepository keeps state in memory and enforces the same guarded-update
// contract as the SQL implementation: the product write only lands when the
// stored balance still matches expectedBefore.
type fakeRepository struct {
	mu           sync.Mutex
	products     map[string]model.Product
	transactions []model.InventoryTransaction
	audits       []model.AuditLog
	beforeCommit func()
}

func newFakeRepository(products ...model.Product) *fakeRepository {
	r := &fakeRepository{products: make(map[string]model.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeRepository) GetProduct(_ context.Context, id string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	cp := p
	return &cp, nil
}

func (r *fakeRepository) GetProductWithRelations(ctx context.Context, id string) (*model.Product, error) {
	return r.GetProduct(ctx, id)
}

func (r *fakeRepository) CommitMovement(_ context.Context, p *model.Product, expectedBefore int, txn *model.InventoryTransaction, audit *model.AuditLog) error {
	if r.beforeCommit != nil {
		r.beforeCommit()
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.products[p.ID]
	if !ok || stored.Quantity != expectedBefore {
		return ledger.ErrStaleBalance
	}
	r.products[p.ID] = *p
	if txn != nil {
		r.transactions = append(r.transactions, *txn)
	}
	r.audits = append(r.audits, *audit)
	return nil
}

func (r *fakeRepository) ListTransactions(_ context.Context, f *dto.TransactionFilters) ([]model.InventoryTransaction, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.InventoryTransaction
	for _, t := range r.transactions {
		if f.ProductID != "" && t.ProductID != f.ProductID {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

func (r *fakeRepository) ProductHistory(_ context.Context, productID string, limit int) ([]model.InventoryTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.InventoryTransaction
	for i := len(r.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		if r.transactions[i].ProductID == productID {
			out = append(out, r.transactions[i])
		}
	}
	return out, nil
}

// blockingLocker serializes holders per key like the redis lock does, but
// blocks instead of failing so concurrent tests stay deterministic.
type blockingLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newBlockingLocker() *blockingLocker {
	return &blockingLocker{locks: make(map[string]chan struct{})}
}

func (l *blockingLocker) AcquireLock(_ context.Context, key, _ string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	l.mu.Unlock()
	ch <- struct{}{}
	return true, nil
}

func (l *blockingLocker) ReleaseLock(_ context.Context, key, _ string) error {
	l.mu.Lock()
	ch := l.locks[key]
	l.mu.Unlock()
	<-ch
	return nil
}

// deniedLocker always refuses the lock.
type deniedLocker struct{}

func (deniedLocker) AcquireLock(context.Context, string, string, time.Duration) (bool, error) {
	return false, nil
}
func (deniedLocker) ReleaseLock(context.Context, string, string) error { return nil }

// brokenLocker fails every acquire with a store error.
type brokenLocker struct{ err error }

func (l brokenLocker) AcquireLock(context.Context, string, string, time.Duration) (bool, error) {
	return false, l.err
}
func (brokenLocker) ReleaseLock(context.Context, string, string) error { return nil }

func testProduct(id string, quantity, minimum int) model.Product {
	p := model.Product{
		Name:            "Test Product " + id,
		SKU:             "SKU-" + id,
		CategoryID:      "cat-1",
		UnitPrice:       10,
		CostPrice:       6,
		Quantity:        quantity,
		MinimumQuantity: minimum,
		IsActive:        true,
	}
	p.ID = id
	p.CreatedAt = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	return p
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestApplyInAndOut(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepository(testProduct("p1", 10, 3))
	uc := NewLedgerUseCase(repo, nil, logger.NewNop(), fixedClock(now))
	ctx := context.Background()

	res, err := uc.Apply(ctx, &dto.ApplyTransactionInput{
		ProductID:       "p1",
		TransactionType: model.TransactionIn,
		Quantity:        5,
		UserID:          "u1",
	})
	if err != nil {
		t.Fatalf("apply IN: %v", err)
	}
	if res.Product.Quantity != 15 {
		t.Fatalf("quantity after IN = %d, want 15", res.Product.Quantity)
	}
	if res.LowStock {
		t.Fatal("IN above minimum flagged low stock")
	}

	res, err = uc.Apply(ctx, &dto.ApplyTransactionInput{
		ProductID:       "p1",
		TransactionType: model.TransactionOut,
		Quantity:        13,
		UserID:          "u1",
	})
	if err != nil {
		t.Fatalf("apply OUT: %v", err)
	}
	if res.Product.Quantity != 2 {
		t.Fatalf("quantity after OUT = %d, want 2", res.Product.Quantity)
	}
	if !res.LowStock {
		t.Fatal("balance at 2 with minimum 3 not flagged low stock")
	}
	if res.Transaction.CreatedAt != now {
		t.Fatalf("transaction timestamp = %v, want %v", res.Transaction.CreatedAt, now)
	}

	if got := len(repo.transactions); got != 2 {
		t.Fatalf("ledger rows = %d, want 2", got)
	}
	if got := len(repo.audits); got != 2 {
		t.Fatalf("audit rows = %d, want 2", got)
	}
}

func TestApplyReplaysToCurrentBalance(t *testing.T) {
	repo := newFakeRepository(testProduct("p1", 0, 0))
	uc := NewLedgerUseCase(repo, nil, logger.NewNop(), nil)
	ctx := context.Background()

	moves := []struct {
		typ model.TransactionType
		qty int
	}{
		{model.TransactionIn, 20},
		{model.TransactionOut, 7},
		{model.TransactionIn, 3},
		{model.TransactionOut, 11},
	}
	for _, m := range moves {
		if _, err := uc.Apply(ctx, &dto.ApplyTransactionInput{
			ProductID:       "p1",
			TransactionType: m.typ,
			Quantity:        m.qty,
			UserID:          "u1",
		}); err != nil {
			t.Fatalf("apply %s %d: %v", m.typ, m.qty, err)
		}
	}

	replayed := 0
	for _, txn := range repo.transactions {
		replayed += txn.SignedQuantity()
	}
	final := repo.products["p1"].Quantity
	if replayed != final {
		t.Fatalf("replayed balance %d does not match stored balance %d", replayed, final)
	}
	if final != 5 {
		t.Fatalf("final balance = %d, want 5", final)
	}
}

func TestApplyRejectsInvalidInput(t *testing.T) {
	repo := newFakeRepository(testProduct("p1", 10, 0))
	uc := NewLedgerUseCase(repo, nil, logger.NewNop(), nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		input dto.ApplyTransactionInput
		kind  apperr.Kind
	}{
		{
			name:  "zero quantity",
			input: dto.ApplyTransactionInput{ProductID: "p1", TransactionType: model.TransactionIn, Quantity: 0},
			kind:  apperr.KindInvalidInput,
		},
		{
			name:  "negative quantity",
			input: dto.ApplyTransactionInput{ProductID: "p1", TransactionType: model.TransactionOut, Quantity: -4},
			kind:  apperr.KindInvalidInput,
		},
		{
			name:  "unknown type",
			input: dto.ApplyTransactionInput{ProductID: "p1", TransactionType: "TRANSFER", Quantity: 1},
			kind:  apperr.KindInvalidInput,
		},
		{
			name:  "missing product",
			input: dto.ApplyTransactionInput{ProductID: "nope", TransactionType: model.TransactionIn, Quantity: 1},
			kind:  apperr.KindNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Apply(ctx, &tc.input)
			if !apperr.IsKind(err, tc.kind) {
				t.Fatalf("kind = %v (%v), want %v", apperr.KindOf(err), err, tc.kind)
			}
		})
	}

	if len(repo.transactions) != 0 || repo.products["p1"].Quantity != 10 {
		t.Fatal("rejected input mutated state")
	}
}

func TestApplyInsufficientStockLeavesStateUntouched(t *testing.T) {
	repo := newFakeRepository(testProduct("p1", 3, 0))
	uc := NewLedgerUseCase(repo, nil, logger.NewNop(), nil)

	_, err := uc.Apply(context.Background(), &dto.ApplyTransactionInput{
		ProductID:       "p1",
		TransactionType: model.TransactionOut,
		Quantity:        4,
		UserID:          "u1",
	})
	if !apperr.IsKind(err, apperr.KindInsufficientStock) {
		t.Fatalf("kind = %v (%v), want KindInsufficientStock", apperr.KindOf(err), err)
	}
	if !strings.Contains(err.Error(), "have 3, requested 4") {
		t.Fatalf("error message %q missing balances", err.Error())
	}
	if repo.products["p1"].Quantity != 3 {
		t.Fatalf("balance mutated to %d on rejected movement", repo.products["p1"].Quantity)
	}
	if len(repo.transactions) != 0 || len(repo.audits) != 0 {
		t.Fatal("rejected movement left ledger or audit rows")
	}
}

func TestApplyRejectsInactiveProduct(t *testing.T) {
	p := testProduct("p1", 10, 0)
	p.IsActive = false
	repo := newFakeRepository(p)
	uc := NewLedgerUseCase(repo, nil, logger.NewNop(), nil)

	_, err := uc.Apply(context.Background(), &dto.ApplyTransactionInput{
		ProductID:       "p1",
		TransactionType: model.TransactionIn,
		Quantity:        1,
	})
	if !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Fatalf("kind = %v, want KindInvalidInput", apperr.KindOf(err))
	}
}

func TestApplyConcurrentDrainsToZero(t *testing.T) {
	const n = 8
	repo := newFakeRepository(testProduct("p1", n, 0))
	uc := NewLedgerUseCase(repo, newBlockingLocker(), logger.NewNop(), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Apply(ctx, &dto.ApplyTransactionInput{
				ProductID:       "p1",
				TransactionType: model.TransactionOut,
				Quantity:        1,
				UserID:          "u1",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent apply: %v", err)
		}
	}

	if got := repo.products["p1"].Quantity; got != 0 {
		t.Fatalf("final balance = %d, want 0", got)
	}
	if got := len(repo.transactions); got != n {
		t.Fatalf("ledger rows = %d, want %d", got, n)
	}
}

func TestApplyFailsWhenLockHeld(t *testing.T) {
	repo := newFakeRepository(testProduct("p1", 10, 0))
	uc := NewLedgerUseCase(repo, deniedLocker{}, logger.NewNop(), nil)

	_, err := uc.Apply(context.Background(), &dto.ApplyTransactionInput{
		ProductID:       "p1",
		TransactionType: model.TransactionIn,
		Quantity:        1,
	})
	if !apperr.IsKind(err, apperr.KindStoreUnavailable) {
		t.Fatalf("kind = %v, want KindStoreUnavailable", apperr.KindOf(err))
	}
	if !strings.Contains(err.Error(), "locked by another writer") {
		t.Fatalf("contention error = %q, want the contention message", err.Error())
	}
	if len(repo.transactions) != 0 {
		t.Fatal("lock failure still wrote a ledger row")
	}
}

func TestApplyLockStoreOutage(t *testing.T) {
	cause := errors.New("redis: connection refused")
	repo := newFakeRepository(testProduct("p1", 10, 0))
	uc := NewLedgerUseCase(repo, brokenLocker{err: cause}, logger.NewNop(), nil)

	_, err := uc.Apply(context.Background(), &dto.ApplyTransactionInput{
		ProductID:       "p1",
		TransactionType: model.TransactionIn,
		Quantity:        1,
	})
	if !apperr.IsKind(err, apperr.KindStoreUnavailable) {
		t.Fatalf("kind = %v, want KindStoreUnavailable", apperr.KindOf(err))
	}
	if !errors.Is(err, cause) {
		t.Fatalf("error %v lost its cause", err)
	}
	if strings.Contains(err.Error(), "locked by another writer") {
		t.Fatalf("outage reported as contention: %q", err.Error())
	}
	if len(repo.transactions) != 0 {
		t.Fatal("lock outage still wrote a ledger row")
	}
}

func TestApplyLockWaitHonorsCancellation(t *testing.T) {
	repo := newFakeRepository(testProduct("p1", 10, 0))
	uc := NewLedgerUseCase(repo, deniedLocker{}, logger.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := uc.Apply(ctx, &dto.ApplyTransactionInput{
		ProductID:       "p1",
		TransactionType: model.TransactionIn,
		Quantity:        1,
	})
	if !apperr.IsKind(err, apperr.KindStoreUnavailable) {
		t.Fatalf("kind = %v, want KindStoreUnavailable", apperr.KindOf(err))
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error %v should carry the canceled context", err)
	}
}

func TestApplySurfacesStaleBalance(t *testing.T) {
	repo := newFakeRepository(testProduct("p1", 10, 0))
	repo.beforeCommit = func() {
		// Another writer slips in between the read and the commit.
		repo.mu.Lock()
		p := repo.products["p1"]
		p.Quantity = 9
		repo.products["p1"] = p
		repo.mu.Unlock()
		repo.beforeCommit = nil
	}
	uc := NewLedgerUseCase(repo, nil, logger.NewNop(), nil)

	_, err := uc.Apply(context.Background(), &dto.ApplyTransactionInput{
		ProductID:       "p1",
		TransactionType: model.TransactionOut,
		Quantity:        2,
		UserID:          "u1",
	})
	if !apperr.IsKind(err, apperr.KindStoreUnavailable) {
		t.Fatalf("kind = %v (%v), want KindStoreUnavailable", apperr.KindOf(err), err)
	}
	if len(repo.transactions) != 0 {
		t.Fatal("stale commit still appended a ledger row")
	}
	if repo.products["p1"].Quantity != 9 {
		t.Fatalf("balance = %d, want the competing writer's 9", repo.products["p1"].Quantity)
	}
}

func TestApplyAuditRecordsBalances(t *testing.T) {
	ctx := auth.WithIPAddress(auth.WithUserID(context.Background(), "u1"), "10.0.0.7")
	repo := newFakeRepository(testProduct("p1", 10, 0))
	uc := NewLedgerUseCase(repo, nil, logger.NewNop(), nil)

	if _, err := uc.Apply(ctx, &dto.ApplyTransactionInput{
		ProductID:       "p1",
		TransactionType: model.TransactionOut,
		Quantity:        4,
		UserID:          "u1",
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	audit := repo.audits[0]
	if audit.Action != model.AuditActionTransaction {
		t.Fatalf("action = %q, want %q", audit.Action, model.AuditActionTransaction)
	}
	if audit.TableName != "inventory_transactions" {
		t.Fatalf("table = %q", audit.TableName)
	}
	if audit.IPAddress != "10.0.0.7" {
		t.Fatalf("ip = %q, want 10.0.0.7", audit.IPAddress)
	}

	var newValues map[string]interface{}
	if err := json.Unmarshal(audit.NewValues, &newValues); err != nil {
		t.Fatalf("unmarshal new values: %v", err)
	}
	if newValues["previous_quantity"] != float64(10) || newValues["new_quantity"] != float64(6) {
		t.Fatalf("audit balances = %v -> %v, want 10 -> 6", newValues["previous_quantity"], newValues["new_quantity"])
	}
}

func TestUpdateProductSynthesizesAdjustment(t *testing.T) {
	repo := newFakeRepository(testProduct("p1", 10, 2))
	uc := NewLedgerUseCase(repo, nil, logger.NewNop(), nil)
	ctx := context.Background()

	p, err := uc.UpdateProduct(ctx, &dto.UpdateProductInput{
		ProductID:       "p1",
		Name:            "Renamed",
		UnitPrice:       12,
		CostPrice:       6,
		Quantity:        4,
		MinimumQuantity: 2,
		CategoryID:      "cat-1",
		UserID:          "u1",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.Quantity != 4 || p.Name != "Renamed" {
		t.Fatalf("updated product = %+v", p)
	}

	if len(repo.transactions) != 1 {
		t.Fatalf("ledger rows = %d, want 1 compensating entry", len(repo.transactions))
	}
	txn := repo.transactions[0]
	if txn.TransactionType != model.TransactionOut || txn.Quantity != 6 {
		t.Fatalf("compensating entry = %s %d, want OUT 6", txn.TransactionType, txn.Quantity)
	}
	if txn.Notes != "Quantity adjusted from 10 to 4" {
		t.Fatalf("notes = %q", txn.Notes)
	}
	if repo.audits[0].Action != model.AuditActionUpdate {
		t.Fatalf("audit action = %q", repo.audits[0].Action)
	}
}

func TestUpdateProductNoDeltaWritesNoLedgerRow(t *testing.T) {
	repo := newFakeRepository(testProduct("p1", 10, 2))
	uc := NewLedgerUseCase(repo, nil, logger.NewNop(), nil)

	if _, err := uc.UpdateProduct(context.Background(), &dto.UpdateProductInput{
		ProductID:       "p1",
		Name:            "Renamed",
		UnitPrice:       15,
		CostPrice:       6,
		Quantity:        10,
		MinimumQuantity: 2,
		CategoryID:      "cat-1",
		UserID:          "u1",
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(repo.transactions) != 0 {
		t.Fatal("price-only edit wrote a ledger row")
	}
	if len(repo.audits) != 1 {
		t.Fatalf("audit rows = %d, want 1", len(repo.audits))
	}
}

func TestSoftDeleteClosesLedger(t *testing.T) {
	repo := newFakeRepository(testProduct("p1", 7, 2))
	uc := NewLedgerUseCase(repo, nil, logger.NewNop(), nil)
	ctx := context.Background()

	if err := uc.SoftDeleteProduct(ctx, "p1", "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	stored := repo.products["p1"]
	if stored.IsActive || stored.Quantity != 0 {
		t.Fatalf("stored product after delete = active=%v quantity=%d", stored.IsActive, stored.Quantity)
	}
	if len(repo.transactions) != 1 {
		t.Fatalf("ledger rows = %d, want 1 closing entry", len(repo.transactions))
	}
	closing := repo.transactions[0]
	if closing.TransactionType != model.TransactionOut || closing.Quantity != 0 {
		t.Fatalf("closing entry = %s %d, want OUT 0", closing.TransactionType, closing.Quantity)
	}
	if closing.Notes != "Product deleted" {
		t.Fatalf("closing notes = %q", closing.Notes)
	}
	if repo.audits[0].Action != model.AuditActionDelete {
		t.Fatalf("audit action = %q", repo.audits[0].Action)
	}

	if err := uc.SoftDeleteProduct(ctx, "p1", "u1"); !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Fatalf("second delete kind = %v, want KindInvalidInput", apperr.KindOf(err))
	}
}

func TestListTransactionsValidatesFilters(t *testing.T) {
	repo := newFakeRepository()
	uc := NewLedgerUseCase(repo, nil, logger.NewNop(), nil)
	ctx := context.Background()

	_, _, err := uc.ListTransactions(ctx, &dto.TransactionFilters{TransactionType: "BOGUS"})
	if !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Fatalf("kind = %v, want KindInvalidInput", apperr.KindOf(err))
	}

	start := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	_, _, err = uc.ListTransactions(ctx, &dto.TransactionFilters{StartDate: &start, EndDate: &end})
	if !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Fatalf("kind = %v, want KindInvalidInput for inverted window", apperr.KindOf(err))
	}
}

func TestGetProductReturnsRecentHistory(t *testing.T) {
	repo := newFakeRepository(testProduct("p1", 100, 0))
	uc := NewLedgerUseCase(repo, nil, logger.NewNop(), nil)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if _, err := uc.Apply(ctx, &dto.ApplyTransactionInput{
			ProductID:       "p1",
			TransactionType: model.TransactionOut,
			Quantity:        1,
			UserID:          "u1",
		}); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}

	detail, err := uc.GetProduct(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(detail.Recent) != 5 {
		t.Fatalf("recent entries = %d, want 5", len(detail.Recent))
	}

	if _, err := uc.GetProduct(ctx, "missing"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("missing product kind = %v, want KindNotFound", apperr.KindOf(err))
	}
}
