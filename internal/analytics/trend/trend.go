// Package trend builds dense daily time series from ledger rows. Days with no
// movement are gap-filled with zero change so moving averages and charts see
// a contiguous series.
package trend

import (
	"time"

	"github.com/chrisostomemataba/inventory-ledger/internal/analytics/dto"
	"github.com/chrisostomemataba/inventory-ledger/internal/model"
)

type Bucket string

const (
	BucketDaily   Bucket = "daily"
	BucketWeekly  Bucket = "weekly"
	BucketMonthly Bucket = "monthly"
)

// DefaultWindowSize is the moving-average span per bucket granularity.
func DefaultWindowSize(b Bucket) int {
	switch b {
	case BucketWeekly:
		return 4
	case BucketMonthly:
		return 3
	default:
		return 7
	}
}

type Point struct {
	Date          time.Time `json:"date"`
	NetChange     int       `json:"net_change"`
	Inbound       int       `json:"inbound"`
	Outbound      int       `json:"outbound"`
	RunningTotal  int       `json:"running_total"`
	MovingAverage float64   `json:"moving_average"`
}

// BuildDailySeries returns exactly one point per calendar day in the window,
// inclusive on both ends, ordered by date ascending. RunningTotal is the
// cumulative net change, MovingAverage a trailing average of net change with
// the given window size (partial windows at the head, never padded).
func BuildDailySeries(txns []model.InventoryTransaction, w dto.Window, windowSize int) []Point {
	loc := w.Start.Location()
	start := dayOf(w.Start)
	end := dayOf(w.End)

	// Bucket in the window's location: drivers often hand back UTC timestamps
	// and two times at the same instant only hash to the same day key when
	// their locations match.
	inbound := make(map[time.Time]int)
	outbound := make(map[time.Time]int)
	for _, t := range txns {
		day := dayOf(t.CreatedAt.In(loc))
		if day.Before(start) || day.After(end) {
			continue
		}
		if t.TransactionType == model.TransactionIn {
			inbound[day] += t.Quantity
		} else {
			outbound[day] += t.Quantity
		}
	}

	points := make([]Point, 0, w.Days())
	running := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		in := inbound[day]
		out := outbound[day]
		running += in - out
		points = append(points, Point{
			Date:         day,
			NetChange:    in - out,
			Inbound:      in,
			Outbound:     out,
			RunningTotal: running,
		})
	}

	changes := make([]float64, len(points))
	for i, p := range points {
		changes[i] = float64(p.NetChange)
	}
	for i, avg := range MovingAverage(changes, windowSize) {
		points[i].MovingAverage = avg
	}
	return points
}

// MovingAverage computes a trailing average: element i averages
// values[max(0, i-windowSize+1) .. i]. The head of the series uses the
// shorter window that is actually available.
func MovingAverage(values []float64, windowSize int) []float64 {
	if windowSize < 1 {
		windowSize = 1
	}
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= windowSize {
			sum -= values[i-windowSize]
		}
		n := i + 1
		if n > windowSize {
			n = windowSize
		}
		out[i] = sum / float64(n)
	}
	return out
}

// GrowthRate is the percentage change of the latest value against the value
// windowSize periods earlier. Zero when the series is too short or the prior
// value is zero; growth against nothing is no signal, not infinity.
func GrowthRate(values []float64, windowSize int) float64 {
	if len(values) == 0 {
		return 0
	}
	priorIdx := len(values) - 1 - windowSize
	if priorIdx < 0 {
		return 0
	}
	prior := values[priorIdx]
	if prior == 0 {
		return 0
	}
	latest := values[len(values)-1]
	return (latest - prior) / prior * 100
}

// CumulativeChange folds net change ordered by date ascending.
func CumulativeChange(points []Point) int {
	total := 0
	for _, p := range points {
		total += p.NetChange
	}
	return total
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
