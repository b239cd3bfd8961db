// Package forecast derives demand forecasts and replenishment suggestions
// from a product's outbound ledger entries.
package forecast

import (
	"math"
	"time"

	"github.com/chrisostomemataba/inventory-ledger/internal/analytics/dto"
	"github.com/chrisostomemataba/inventory-ledger/internal/model"
)

// lookAheadDays is the replenishment horizon for order suggestions.
const lookAheadDays = 30

type Result struct {
	ProductID       string `json:"product_id"`
	Name            string `json:"name"`
	CurrentStock    int    `json:"current_stock"`
	MinimumQuantity int    `json:"minimum_quantity"`

	AvgDailyDemand float64 `json:"avg_daily_demand"`
	StdDevDemand   float64 `json:"std_dev_demand"`
	PeakDemand     int     `json:"peak_demand"`
	DaysWithDemand int     `json:"days_with_demand"`

	// DaysOfStockLeft is nil when average demand is zero: no reliable
	// forecast exists, which is different from zero days.
	DaysOfStockLeft        *float64 `json:"days_of_stock_left"`
	SuggestedOrderQuantity int      `json:"suggested_order_quantity"`
	SafetyStockLevel       float64  `json:"safety_stock_level"`
}

// Product forecasts one product from its transactions in the window. Demand
// is averaged over every calendar day of the window; days without sales count
// as zero demand so intermittent sellers are not overestimated.
func Product(p model.Product, txns []model.InventoryTransaction, w dto.Window) Result {
	r := Result{
		ProductID:       p.ID,
		Name:            p.Name,
		CurrentStock:    p.Quantity,
		MinimumQuantity: p.MinimumQuantity,
	}

	daily := dailyDemand(txns, w)
	days := len(daily)
	if days == 0 {
		return r
	}

	total := 0
	for _, d := range daily {
		total += d
		if d > 0 {
			r.DaysWithDemand++
		}
		if d > r.PeakDemand {
			r.PeakDemand = d
		}
	}

	r.AvgDailyDemand = float64(total) / float64(days)
	r.StdDevDemand = populationStdDev(daily, r.AvgDailyDemand)

	if r.AvgDailyDemand > 0 {
		left := float64(p.Quantity) / r.AvgDailyDemand
		r.DaysOfStockLeft = &left

		suggested := float64(p.MinimumQuantity) - float64(p.Quantity) + r.AvgDailyDemand*lookAheadDays
		r.SuggestedOrderQuantity = int(math.Ceil(math.Max(0, suggested)))
	}

	if r.StdDevDemand > 0 {
		r.SafetyStockLevel = (r.AvgDailyDemand + 2*r.StdDevDemand) * 1.1
	} else {
		r.SafetyStockLevel = r.AvgDailyDemand * 1.1
	}

	return r
}

// dailyDemand buckets OUT quantities per calendar day across the full window.
func dailyDemand(txns []model.InventoryTransaction, w dto.Window) []int {
	days := w.Days()
	if days <= 0 {
		return nil
	}

	start := time.Date(w.Start.Year(), w.Start.Month(), w.Start.Day(), 0, 0, 0, 0, w.Start.Location())
	daily := make([]int, days)
	for _, t := range txns {
		if t.TransactionType != model.TransactionOut {
			continue
		}
		day := time.Date(t.CreatedAt.Year(), t.CreatedAt.Month(), t.CreatedAt.Day(), 0, 0, 0, 0, t.CreatedAt.Location())
		idx := int(day.Sub(start).Hours() / 24)
		if idx < 0 || idx >= days {
			continue
		}
		daily[idx] += t.Quantity
	}
	return daily
}

func populationStdDev(values []int, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		d := float64(v) - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
