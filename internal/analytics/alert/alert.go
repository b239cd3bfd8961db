// Package alert classifies metric snapshots into severity-tagged alerts.
// The classifier is stateless: it is a pure function of its input and alerts
// are never persisted here.
package alert

import (
	"fmt"
	"math"
	"sort"

	"github.com/chrisostomemataba/inventory-ledger/internal/analytics/aggregate"
	"github.com/chrisostomemataba/inventory-ledger/internal/model"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

type Type string

const (
	TypeLowStock           Type = "LOW_STOCK"
	TypeDeadStock          Type = "DEAD_STOCK"
	TypeValuation          Type = "VALUATION"
	TypeCategory           Type = "CATEGORY"
	TypeUnusualTransaction Type = "UNUSUAL_TRANSACTION"
)

const (
	ActionReorder           = "REORDER"
	ActionReview            = "REVIEW"
	ActionReviewPricing     = "REVIEW_PRICING"
	ActionReviewCategory    = "REVIEW_CATEGORY"
	ActionReviewTransaction = "REVIEW_TRANSACTION"
)

type Alert struct {
	Type     Type                   `json:"type"`
	Severity Severity               `json:"severity"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details"`
	Action   string                 `json:"action"`
}

type Statistics struct {
	TotalAlerts   int `json:"total_alerts"`
	CriticalCount int `json:"critical_count"`
	WarningCount  int `json:"warning_count"`
	InfoCount     int `json:"info_count"`
}

type Report struct {
	Critical   []Alert    `json:"critical"`
	Warning    []Alert    `json:"warning"`
	Info       []Alert    `json:"info"`
	Statistics Statistics `json:"statistics"`
}

// Input carries the already-aggregated rows the classifier reads. Recent
// should hold the trailing 30 days of transactions for anomaly detection.
type Input struct {
	Products   []aggregate.ProductSnapshot
	Categories []aggregate.CategorySnapshot
	Recent     []model.InventoryTransaction
}

// Classify evaluates all five alert families and tallies statistics.
func Classify(in Input) *Report {
	r := &Report{
		Critical: []Alert{},
		Warning:  []Alert{},
		Info:     []Alert{},
	}

	for _, p := range in.Products {
		r.add(lowStock(p)...)
		r.add(deadStock(p)...)
		r.add(valuation(p)...)
	}
	for _, c := range in.Categories {
		r.add(category(c)...)
	}
	r.add(unusualTransactions(in.Recent)...)

	r.Statistics = Statistics{
		TotalAlerts:   len(r.Critical) + len(r.Warning) + len(r.Info),
		CriticalCount: len(r.Critical),
		WarningCount:  len(r.Warning),
		InfoCount:     len(r.Info),
	}
	return r
}

func (r *Report) add(alerts ...Alert) {
	for _, a := range alerts {
		switch a.Severity {
		case SeverityCritical:
			r.Critical = append(r.Critical, a)
		case SeverityWarning:
			r.Warning = append(r.Warning, a)
		default:
			r.Info = append(r.Info, a)
		}
	}
}

func lowStock(p aggregate.ProductSnapshot) []Alert {
	if p.Quantity > p.MinimumQuantity {
		return nil
	}
	severity := SeverityWarning
	state := "running low"
	if p.Quantity == 0 {
		severity = SeverityCritical
		state = "out of stock"
	}
	return []Alert{{
		Type:     TypeLowStock,
		Severity: severity,
		Message:  fmt.Sprintf("%s is %s", p.Name, state),
		Details: map[string]interface{}{
			"product_id": p.ProductID,
			"name":       p.Name,
			"quantity":   p.Quantity,
			"minimum":    p.MinimumQuantity,
		},
		Action: ActionReorder,
	}}
}

func deadStock(p aggregate.ProductSnapshot) []Alert {
	if p.Quantity <= 0 || p.DaysSinceLastMovement <= 90 {
		return nil
	}
	severity := SeverityInfo
	if p.DaysSinceLastMovement > 180 {
		severity = SeverityWarning
	}
	details := map[string]interface{}{
		"product_id": p.ProductID,
		"name":       p.Name,
		"value":      p.CurrentValue,
	}
	if p.LastMovement != nil {
		details["last_movement"] = *p.LastMovement
	}
	return []Alert{{
		Type:     TypeDeadStock,
		Severity: severity,
		Message:  fmt.Sprintf("%s hasn't moved in %d days", p.Name, p.DaysSinceLastMovement),
		Details:  details,
		Action:   ActionReview,
	}}
}

// valuation skips products whose margin is undefined (zero cost value):
// "no signal" never triggers a pricing alert.
func valuation(p aggregate.ProductSnapshot) []Alert {
	if p.MarginPercentage == nil {
		return nil
	}
	margin := *p.MarginPercentage
	if margin >= 15 && margin <= 100 {
		return nil
	}
	severity := SeverityInfo
	if margin < 15 {
		severity = SeverityWarning
	}
	return []Alert{{
		Type:     TypeValuation,
		Severity: severity,
		Message:  fmt.Sprintf("%s has unusual margin of %d%%", p.Name, int(math.Round(margin))),
		Details: map[string]interface{}{
			"product_id":    p.ProductID,
			"name":          p.Name,
			"current_value": p.CurrentValue,
			"cost_value":    p.CostValue,
			"margin":        margin,
		},
		Action: ActionReviewPricing,
	}}
}

func category(c aggregate.CategorySnapshot) []Alert {
	if c.LowStockCount == 0 && c.ProductCount > 0 {
		return nil
	}
	severity := SeverityInfo
	if c.LowStockPercentage != nil && *c.LowStockPercentage > 50 {
		severity = SeverityWarning
	}
	return []Alert{{
		Type:     TypeCategory,
		Severity: severity,
		Message:  fmt.Sprintf("%s has %d products low in stock", c.Name, c.LowStockCount),
		Details: map[string]interface{}{
			"category_id":     c.CategoryID,
			"name":            c.Name,
			"low_stock_count": c.LowStockCount,
			"total_products":  c.ProductCount,
			"percentage":      c.LowStockPercentage,
		},
		Action: ActionReviewCategory,
	}}
}

// unusualTransactions flags entries whose quantity exceeds the product's
// trailing mean by more than two standard deviations. Always informational.
func unusualTransactions(txns []model.InventoryTransaction) []Alert {
	byProduct := make(map[string][]model.InventoryTransaction)
	for _, t := range txns {
		byProduct[t.ProductID] = append(byProduct[t.ProductID], t)
	}
	productIDs := make([]string, 0, len(byProduct))
	for id := range byProduct {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)

	var alerts []Alert
	for _, id := range productIDs {
		group := byProduct[id]
		mean, stddev := quantityStats(group)
		if stddev == 0 {
			continue
		}
		threshold := mean + 2*stddev
		for _, t := range group {
			if float64(t.Quantity) <= threshold {
				continue
			}
			name := t.ProductID
			if t.ProductName != nil {
				name = *t.ProductName
			}
			alerts = append(alerts, Alert{
				Type:     TypeUnusualTransaction,
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("Unusual %s quantity for %s", t.TransactionType, name),
				Details: map[string]interface{}{
					"transaction_id": t.ID,
					"product_id":     t.ProductID,
					"quantity":       t.Quantity,
					"average":        mean,
					"deviation":      stddev,
					"timestamp":      t.CreatedAt,
				},
				Action: ActionReviewTransaction,
			})
		}
	}
	return alerts
}

func quantityStats(txns []model.InventoryTransaction) (mean, stddev float64) {
	if len(txns) == 0 {
		return 0, 0
	}
	sum := 0
	for _, t := range txns {
		sum += t.Quantity
	}
	mean = float64(sum) / float64(len(txns))

	var sumSq float64
	for _, t := range txns {
		d := float64(t.Quantity) - mean
		sumSq += d * d
	}
	stddev = math.Sqrt(sumSq / float64(len(txns)))
	return mean, stddev
}
