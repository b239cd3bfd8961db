// Package aggregate computes per-entity metric snapshots from materialized
// product and ledger rows. Every snapshot is independent of the others, so
// callers may evaluate entities in parallel; output order is stable
// (descending value, entity id as tiebreak).
package aggregate

import (
	"sort"
	"time"

	"github.com/chrisostomemataba/inventory-ledger/internal/analytics/dto"
	"github.com/chrisostomemataba/inventory-ledger/internal/model"
)

type ProductSnapshot struct {
	ProductID             string     `json:"product_id"`
	Name                  string     `json:"name"`
	Quantity              int        `json:"quantity"`
	MinimumQuantity       int        `json:"minimum_quantity"`
	UnitPrice             float64    `json:"unit_price"`
	CostPrice             float64    `json:"cost_price"`
	TransactionCount      int        `json:"transaction_count"`
	TotalIn               int        `json:"total_in"`
	TotalOut              int        `json:"total_out"`
	CurrentValue          float64    `json:"current_value"`
	CostValue             float64    `json:"cost_value"`
	TurnoverRate          float64    `json:"turnover_rate"`
	MarginPercentage      *float64   `json:"margin_percentage"` // nil when cost value is 0
	LastMovement          *time.Time `json:"last_movement"`
	DaysSinceLastMovement int        `json:"days_since_last_movement"`
}

type CategorySnapshot struct {
	CategoryID         string   `json:"category_id"`
	Name               string   `json:"name"`
	ProductCount       int      `json:"product_count"`
	ActiveProductCount int      `json:"active_product_count"` // products with movement in window
	LowStockCount      int      `json:"low_stock_count"`
	TransactionVolume  int      `json:"transaction_volume"`
	TotalValue         float64  `json:"total_value"`
	LowStockPercentage *float64 `json:"low_stock_percentage"` // nil when the category is empty
}

type SupplierSnapshot struct {
	SupplierID            string  `json:"supplier_id"`
	Name                  string  `json:"name"`
	ProductCount          int     `json:"product_count"`
	TotalStock            int     `json:"total_stock"`
	TotalValue            float64 `json:"total_value"`
	InventoryValue        float64 `json:"inventory_value"` // at cost
	StockAvailabilityRate float64 `json:"stock_availability_rate"`
}

// Products builds one snapshot per product from the transactions inside the
// window. now anchors daysSinceLastMovement; products that never moved fall
// back to their creation date.
func Products(products []model.Product, txns []model.InventoryTransaction, w dto.Window, now time.Time) []ProductSnapshot {
	byProduct := groupByProduct(txns)

	snapshots := make([]ProductSnapshot, 0, len(products))
	for _, p := range products {
		s := ProductSnapshot{
			ProductID:       p.ID,
			Name:            p.Name,
			Quantity:        p.Quantity,
			MinimumQuantity: p.MinimumQuantity,
			UnitPrice:       p.UnitPrice,
			CostPrice:       p.CostPrice,
			CurrentValue:    p.CurrentValue(),
			CostValue:       p.CostValue(),
		}

		var last time.Time
		for _, t := range byProduct[p.ID] {
			s.TransactionCount++
			if t.TransactionType == model.TransactionIn {
				s.TotalIn += t.Quantity
			} else {
				s.TotalOut += t.Quantity
			}
			if t.CreatedAt.After(last) {
				last = t.CreatedAt
			}
		}

		if !last.IsZero() {
			lastCopy := last
			s.LastMovement = &lastCopy
			s.DaysSinceLastMovement = daysBetween(last, now)
		} else {
			s.DaysSinceLastMovement = daysBetween(p.CreatedAt, now)
		}

		if p.Quantity > 0 && s.DaysSinceLastMovement > 0 {
			s.TurnoverRate = float64(s.TotalOut) / float64(p.Quantity) *
				(float64(w.Days()) / float64(s.DaysSinceLastMovement))
		}

		if s.CostValue != 0 {
			margin := (s.CurrentValue - s.CostValue) / s.CostValue * 100
			s.MarginPercentage = &margin
		}

		snapshots = append(snapshots, s)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].CurrentValue != snapshots[j].CurrentValue {
			return snapshots[i].CurrentValue > snapshots[j].CurrentValue
		}
		return snapshots[i].ProductID < snapshots[j].ProductID
	})
	return snapshots
}

// Categories rolls products up by category. ActiveProductCount counts
// products with at least one ledger entry in the window.
func Categories(categories []model.Category, products []model.Product, txns []model.InventoryTransaction) []CategorySnapshot {
	byProduct := groupByProduct(txns)

	snapshots := make([]CategorySnapshot, 0, len(categories))
	for _, c := range categories {
		s := CategorySnapshot{CategoryID: c.ID, Name: c.Name}
		for _, p := range products {
			if p.CategoryID != c.ID {
				continue
			}
			s.ProductCount++
			s.TotalValue += p.CurrentValue()
			if p.Quantity <= p.MinimumQuantity {
				s.LowStockCount++
			}
			if moved := byProduct[p.ID]; len(moved) > 0 {
				s.ActiveProductCount++
				s.TransactionVolume += len(moved)
			}
		}
		if s.ProductCount > 0 {
			pct := float64(s.LowStockCount) / float64(s.ProductCount) * 100
			s.LowStockPercentage = &pct
		}
		snapshots = append(snapshots, s)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].TotalValue != snapshots[j].TotalValue {
			return snapshots[i].TotalValue > snapshots[j].TotalValue
		}
		return snapshots[i].CategoryID < snapshots[j].CategoryID
	})
	return snapshots
}

// Suppliers rolls products up by supplier. StockAvailabilityRate is the
// fraction of a supplier's products above their minimum quantity.
func Suppliers(suppliers []model.Supplier, products []model.Product) []SupplierSnapshot {
	snapshots := make([]SupplierSnapshot, 0, len(suppliers))
	for _, sup := range suppliers {
		s := SupplierSnapshot{SupplierID: sup.ID, Name: sup.Name}
		available := 0
		for _, p := range products {
			if p.SupplierID == nil || *p.SupplierID != sup.ID {
				continue
			}
			s.ProductCount++
			s.TotalStock += p.Quantity
			s.TotalValue += p.CurrentValue()
			s.InventoryValue += p.CostValue()
			if p.Quantity > p.MinimumQuantity {
				available++
			}
		}
		if s.ProductCount > 0 {
			s.StockAvailabilityRate = float64(available) / float64(s.ProductCount)
		}
		snapshots = append(snapshots, s)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].TotalValue != snapshots[j].TotalValue {
			return snapshots[i].TotalValue > snapshots[j].TotalValue
		}
		return snapshots[i].SupplierID < snapshots[j].SupplierID
	})
	return snapshots
}

func groupByProduct(txns []model.InventoryTransaction) map[string][]model.InventoryTransaction {
	byProduct := make(map[string][]model.InventoryTransaction)
	for _, t := range txns {
		byProduct[t.ProductID] = append(byProduct[t.ProductID], t)
	}
	return byProduct
}

func daysBetween(from, to time.Time) int {
	d := int(to.Sub(from).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
