package analytics

import (
	"context"

	"github.com/chrisostomemataba/inventory-ledger/internal/analytics/aggregate"
	"github.com/chrisostomemataba/inventory-ledger/internal/analytics/alert"
	"github.com/chrisostomemataba/inventory-ledger/internal/analytics/dto"
	"github.com/chrisostomemataba/inventory-ledger/internal/analytics/forecast"
	"github.com/chrisostomemataba/inventory-ledger/internal/analytics/trend"
)

type UseCase interface {
	Summary(ctx context.Context) (*dto.Summary, error)
	Aggregate(ctx context.Context, w dto.Window, groupBy dto.GroupBy) (*AggregateResult, error)
	Trends(ctx context.Context, w dto.Window, bucket trend.Bucket) (*Trends, error)
	Performance(ctx context.Context, w dto.Window) (*Performance, error)
	Forecast(ctx context.Context, w dto.Window) ([]forecast.Result, error)
	ForecastProduct(ctx context.Context, productID string, w dto.Window) (*forecast.Result, error)
	Alerts(ctx context.Context, w dto.Window) (*alert.Report, error)
	Health(ctx context.Context) ([]dto.ProductHealth, error)
}

// AggregateResult carries the snapshots for one grouping dimension.
type AggregateResult struct {
	GroupBy    dto.GroupBy                  `json:"group_by"`
	Window     dto.Window                   `json:"window"`
	Products   []aggregate.ProductSnapshot  `json:"products,omitempty"`
	Categories []aggregate.CategorySnapshot `json:"categories,omitempty"`
	Suppliers  []aggregate.SupplierSnapshot `json:"suppliers,omitempty"`
}

type Trends struct {
	Points              []trend.Point `json:"points"`
	MovingAverageWindow int           `json:"moving_average_window"`
	GrowthRate          float64       `json:"growth_rate"`
	CumulativeChange    int           `json:"cumulative_change"`
	TotalIn             int           `json:"total_in"`
	TotalOut            int           `json:"total_out"`
}

type ScoredProduct struct {
	aggregate.ProductSnapshot
	PerformanceScore float64 `json:"performance_score"`
}

type ScoredCategory struct {
	aggregate.CategorySnapshot
	PerformanceScore float64 `json:"performance_score"`
}

type ScoredSupplier struct {
	aggregate.SupplierSnapshot
	PerformanceScore float64 `json:"performance_score"`
}

type Performance struct {
	Products struct {
		Items           []ScoredProduct `json:"items"`
		TopPerformers   []ScoredProduct `json:"top_performers"`
		Underperformers []ScoredProduct `json:"underperformers"`
	} `json:"products"`
	Categories      []ScoredCategory `json:"categories"`
	Suppliers       []ScoredSupplier `json:"suppliers"`
	AverageTurnover float64          `json:"average_turnover"`
}
