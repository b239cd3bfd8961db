package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/chrisostomemataba/inventory-ledger/internal/analytics/dto"
	"github.com/chrisostomemataba/inventory-ledger/internal/model"
)

var now = time.Date(2026, time.March, 30, 12, 0, 0, 0, time.UTC)

func window30() dto.Window {
	return dto.Window{Start: now.AddDate(0, 0, -29), End: now}
}

func product(id string, quantity int, unitPrice, costPrice float64) model.Product {
	p := model.Product{
		Name:       "Product " + id,
		SKU:        "SKU-" + id,
		CategoryID: "c1",
		UnitPrice:  unitPrice,
		CostPrice:  costPrice,
		Quantity:   quantity,
		IsActive:   true,
	}
	p.ID = id
	p.CreatedAt = now.AddDate(0, 0, -60)
	return p
}

func txn(productID string, typ model.TransactionType, qty int, at time.Time) model.InventoryTransaction {
	return model.InventoryTransaction{
		ProductID:       productID,
		TransactionType: typ,
		Quantity:        qty,
		CreatedAt:       at,
	}
}

func floatEq(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestProductsTurnoverAndMargin(t *testing.T) {
	w := window30()
	p := product("p1", 10, 10, 5)
	txns := []model.InventoryTransaction{
		txn("p1", model.TransactionIn, 30, now.AddDate(0, 0, -20)),
		txn("p1", model.TransactionOut, 12, now.AddDate(0, 0, -10)),
		txn("p1", model.TransactionOut, 8, now.AddDate(0, 0, -5)),
	}

	snaps := Products([]model.Product{p}, txns, w, now)
	if len(snaps) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(snaps))
	}
	s := snaps[0]

	if s.TransactionCount != 3 || s.TotalIn != 30 || s.TotalOut != 20 {
		t.Fatalf("counts = %d in=%d out=%d, want 3/30/20", s.TransactionCount, s.TotalIn, s.TotalOut)
	}
	if s.DaysSinceLastMovement != 5 {
		t.Fatalf("days since movement = %d, want 5", s.DaysSinceLastMovement)
	}
	// totalOut/quantity scaled by windowDays/daysSinceMovement: 20/10 * 30/5.
	if !floatEq(s.TurnoverRate, 12) {
		t.Fatalf("turnover = %v, want 12", s.TurnoverRate)
	}
	// (100 - 50) / 50 * 100.
	if s.MarginPercentage == nil || !floatEq(*s.MarginPercentage, 100) {
		t.Fatalf("margin = %v, want 100", s.MarginPercentage)
	}
	if s.LastMovement == nil || !s.LastMovement.Equal(now.AddDate(0, 0, -5)) {
		t.Fatalf("last movement = %v", s.LastMovement)
	}
}

func TestProductsUndefinedMetricsAreNil(t *testing.T) {
	w := window30()

	t.Run("zero cost value has no margin", func(t *testing.T) {
		p := product("p1", 10, 10, 0)
		s := Products([]model.Product{p}, nil, w, now)[0]
		if s.MarginPercentage != nil {
			t.Fatalf("margin = %v, want nil when cost value is 0", *s.MarginPercentage)
		}
	})

	t.Run("zero quantity has no turnover", func(t *testing.T) {
		p := product("p1", 0, 10, 5)
		txns := []model.InventoryTransaction{txn("p1", model.TransactionOut, 5, now.AddDate(0, 0, -3))}
		s := Products([]model.Product{p}, txns, w, now)[0]
		if s.TurnoverRate != 0 {
			t.Fatalf("turnover = %v, want 0 on an empty shelf", s.TurnoverRate)
		}
	})
}

func TestProductsNeverMovedUsesCreationDate(t *testing.T) {
	p := product("p1", 4, 10, 5)
	s := Products([]model.Product{p}, nil, window30(), now)[0]
	if s.LastMovement != nil {
		t.Fatalf("last movement = %v, want nil", s.LastMovement)
	}
	if s.DaysSinceLastMovement != 60 {
		t.Fatalf("days since movement = %d, want 60 from creation", s.DaysSinceLastMovement)
	}
}

func TestProductsOrderedByValueThenID(t *testing.T) {
	products := []model.Product{
		product("p3", 1, 10, 5),  // value 10
		product("p1", 10, 10, 5), // value 100
		product("p2", 1, 10, 5),  // value 10, ties with p3
	}
	snaps := Products(products, nil, window30(), now)
	got := []string{snaps[0].ProductID, snaps[1].ProductID, snaps[2].ProductID}
	want := []string{"p1", "p2", "p3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestCategories(t *testing.T) {
	c1 := model.Category{Name: "Tools"}
	c1.ID = "c1"
	c2 := model.Category{Name: "Empty"}
	c2.ID = "c2"

	p1 := product("p1", 2, 10, 5) // low: minimum below
	p1.MinimumQuantity = 5
	p2 := product("p2", 50, 10, 5)
	txns := []model.InventoryTransaction{
		txn("p1", model.TransactionOut, 1, now.AddDate(0, 0, -1)),
		txn("p1", model.TransactionOut, 1, now.AddDate(0, 0, -2)),
	}

	snaps := Categories([]model.Category{c1, c2}, []model.Product{p1, p2}, txns)
	if len(snaps) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(snaps))
	}

	tools := snaps[0] // higher value sorts first
	if tools.CategoryID != "c1" {
		t.Fatalf("first snapshot = %s, want c1", tools.CategoryID)
	}
	if tools.ProductCount != 2 || tools.LowStockCount != 1 || tools.ActiveProductCount != 1 {
		t.Fatalf("tools = %+v", tools)
	}
	if tools.TransactionVolume != 2 {
		t.Fatalf("volume = %d, want 2", tools.TransactionVolume)
	}
	if tools.LowStockPercentage == nil || !floatEq(*tools.LowStockPercentage, 50) {
		t.Fatalf("low stock pct = %v, want 50", tools.LowStockPercentage)
	}

	empty := snaps[1]
	if empty.ProductCount != 0 || empty.LowStockPercentage != nil {
		t.Fatalf("empty category = %+v, want no products and nil percentage", empty)
	}
}

func TestSuppliers(t *testing.T) {
	s1 := model.Supplier{Name: "Acme"}
	s1.ID = "s1"

	sid := "s1"
	p1 := product("p1", 10, 10, 6)
	p1.SupplierID = &sid
	p1.MinimumQuantity = 5
	p2 := product("p2", 3, 10, 6)
	p2.SupplierID = &sid
	p2.MinimumQuantity = 5
	p3 := product("p3", 100, 10, 6) // no supplier

	snaps := Suppliers([]model.Supplier{s1}, []model.Product{p1, p2, p3})
	if len(snaps) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(snaps))
	}
	s := snaps[0]
	if s.ProductCount != 2 || s.TotalStock != 13 {
		t.Fatalf("supplier = %+v", s)
	}
	if !floatEq(s.TotalValue, 130) || !floatEq(s.InventoryValue, 78) {
		t.Fatalf("values = %v/%v, want 130/78", s.TotalValue, s.InventoryValue)
	}
	// One of two products above minimum.
	if !floatEq(s.StockAvailabilityRate, 0.5) {
		t.Fatalf("availability = %v, want 0.5", s.StockAvailabilityRate)
	}
}
