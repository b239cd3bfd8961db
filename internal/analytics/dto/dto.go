package dto

import (
	"time"

	"github.com/chrisostomemataba/inventory-ledger/internal/apperr"
)

// Window is a closed time range. All analytics are computed over transactions
// whose created_at falls inside it.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return apperr.InvalidInput("window requires both start and end")
	}
	if w.End.Before(w.Start) {
		return apperr.InvalidInput("window end precedes start")
	}
	return nil
}

// Days is the inclusive calendar-day count of the window.
func (w Window) Days() int {
	start := w.Start.Truncate(24 * time.Hour)
	end := w.End.Truncate(24 * time.Hour)
	return int(end.Sub(start).Hours()/24) + 1
}

// LastDays builds a window covering the n calendar days ending at now.
func LastDays(now time.Time, n int) Window {
	return Window{Start: now.AddDate(0, 0, -n), End: now}
}

type GroupBy string

const (
	GroupByProduct  GroupBy = "product"
	GroupByCategory GroupBy = "category"
	GroupBySupplier GroupBy = "supplier"
)

func (g GroupBy) Valid() bool {
	return g == GroupByProduct || g == GroupByCategory || g == GroupBySupplier
}

type CategoryAnalysis struct {
	Name         string  `json:"name"`
	ProductCount int     `json:"product_count"`
	TotalValue   float64 `json:"total_value"`
}

// Summary is the dashboard headline rollup.
type Summary struct {
	Inventory struct {
		TotalProducts      int     `json:"total_products"`
		LowStockProducts   int     `json:"low_stock_products"`
		OutOfStockProducts int     `json:"out_of_stock_products"`
		StockHealth        float64 `json:"stock_health"`
	} `json:"inventory"`
	Value struct {
		TotalInventoryValue float64  `json:"total_inventory_value"`
		TotalCostValue      float64  `json:"total_cost_value"`
		GrossProfitMargin   *float64 `json:"gross_profit_margin"`
		AverageItemValue    float64  `json:"average_item_value"`
	} `json:"value"`
	Categories struct {
		TotalCategories  int                `json:"total_categories"`
		CategoryAnalysis []CategoryAnalysis `json:"category_analysis"`
		TopCategory      *CategoryAnalysis  `json:"top_category"`
	} `json:"categories"`
	Transactions struct {
		DailyIn   int `json:"daily_in"`
		DailyOut  int `json:"daily_out"`
		NetChange int `json:"net_change"`
	} `json:"transactions"`
}

type HealthStatus string

const (
	HealthOutOfStock HealthStatus = "OUT_OF_STOCK"
	HealthLowStock   HealthStatus = "LOW_STOCK"
	HealthSlowMoving HealthStatus = "SLOW_MOVING"
	HealthActive     HealthStatus = "ACTIVE"
	HealthInactive   HealthStatus = "INACTIVE"
)

type ProductHealth struct {
	ProductID         string       `json:"product_id"`
	Name              string       `json:"name"`
	Quantity          int          `json:"quantity"`
	MinimumQuantity   int          `json:"minimum_quantity"`
	TransactionCount  int          `json:"transaction_count"`
	TotalOut          int          `json:"total_out"`
	DaysSinceMovement int          `json:"days_since_movement"`
	Status            HealthStatus `json:"status"`
}
