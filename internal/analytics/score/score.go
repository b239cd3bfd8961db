// Package score computes weighted composite performance scores. Sub-metrics
// are normalized and capped at 1.0 before weighting so a single outlier
// cannot dominate a score. The caps and weights are fixed policy.
package score

import "github.com/chrisostomemataba/inventory-ledger/internal/analytics/aggregate"

// Product blends turnover, stock value and activity:
// 0.4*min(turnover/2, 1) + 0.3*min(value/10000, 1) + 0.3*min(transactions/100, 1).
func Product(turnoverRate, currentValue float64, transactionCount int) float64 {
	turnoverScore := capAt1(turnoverRate / 2)
	valueScore := capAt1(currentValue / 10000)
	transactionScore := capAt1(float64(transactionCount) / 100)
	return turnoverScore*0.4 + valueScore*0.3 + transactionScore*0.3
}

// Category blends the active-product ratio with transaction volume, equally
// weighted. An empty category scores 0.
func Category(activeProductCount, totalProductCount, transactionVolume int) float64 {
	if totalProductCount == 0 {
		return 0
	}
	activeRatio := float64(activeProductCount) / float64(totalProductCount)
	volumeScore := capAt1(float64(transactionVolume) / 100)
	return activeRatio*0.5 + volumeScore*0.5
}

// Supplier weighs availability over breadth:
// 0.7*stockAvailabilityRate + 0.3*min(productCount/20, 1).
func Supplier(stockAvailabilityRate float64, productCount int) float64 {
	return stockAvailabilityRate*0.7 + capAt1(float64(productCount)/20)*0.3
}

// AverageTurnover is the mean turnover rate across snapshots.
func AverageTurnover(snapshots []aggregate.ProductSnapshot) float64 {
	if len(snapshots) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range snapshots {
		sum += s.TurnoverRate
	}
	return sum / float64(len(snapshots))
}

func capAt1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
