package usecase

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrisostomemataba/inventory-ledger/internal/analytics"
	"github.com/chrisostomemataba/inventory-ledger/internal/analytics/aggregate"
	"github.com/chrisostomemataba/inventory-ledger/internal/analytics/alert"
	"github.com/chrisostomemataba/inventory-ledger/internal/analytics/dto"
	"github.com/chrisostomemataba/inventory-ledger/internal/analytics/forecast"
	"github.com/chrisostomemataba/inventory-ledger/internal/analytics/score"
	"github.com/chrisostomemataba/inventory-ledger/internal/analytics/trend"
	"github.com/chrisostomemataba/inventory-ledger/internal/apperr"
	"github.com/chrisostomemataba/inventory-ledger/internal/model"
	"github.com/chrisostomemataba/inventory-ledger/internal/pkg/logger"
)

const (
	summaryCacheKey = "analytics:summary"
	summaryCacheTTL = 60 * time.Second

	// anomalyLookbackDays bounds the history used for z-score anomaly
	// detection regardless of the requested window.
	anomalyLookbackDays = 30

	// healthLookbackDays is the history window behind the health rollup.
	healthLookbackDays = 365
)

// Cache holds short-lived dashboard payloads. Satisfied by cache.RedisClient.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type analyticsUseCase struct {
	repo   analytics.Repository
	cache  Cache
	logger logger.ZapLogger
	now    func() time.Time
}

func NewAnalyticsUseCase(repo analytics.Repository, cache Cache, log logger.ZapLogger, now func() time.Time) analytics.UseCase {
	if now == nil {
		now = time.Now
	}
	return &analyticsUseCase{
		repo:   repo,
		cache:  cache,
		logger: log,
		now:    now,
	}
}

// windowRows is everything a single dashboard evaluation reads from the
// store. Reads fan out in parallel; the transforms downstream are pure.
type windowRows struct {
	products     []model.Product
	categories   []model.Category
	suppliers    []model.Supplier
	transactions []model.InventoryTransaction
}

func (uc *analyticsUseCase) loadWindow(ctx context.Context, w dto.Window) (*windowRows, error) {
	rows := &windowRows{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		rows.products, err = uc.repo.ActiveProducts(gctx)
		return err
	})
	g.Go(func() (err error) {
		rows.categories, err = uc.repo.Categories(gctx)
		return err
	})
	g.Go(func() (err error) {
		rows.suppliers, err = uc.repo.Suppliers(gctx)
		return err
	})
	g.Go(func() (err error) {
		rows.transactions, err = uc.repo.TransactionsInWindow(gctx, w.Start, w.End)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, apperr.StoreUnavailable(err, "load analytics rows")
	}
	return rows, nil
}

func (uc *analyticsUseCase) Summary(ctx context.Context) (*dto.Summary, error) {
	if uc.cache != nil {
		if cached, err := uc.cache.Get(ctx, summaryCacheKey); err == nil && cached != "" {
			var s dto.Summary
			if err := json.Unmarshal([]byte(cached), &s); err == nil {
				return &s, nil
			}
		}
	}

	now := uc.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	rows, err := uc.loadWindow(ctx, dto.Window{Start: startOfDay, End: now})
	if err != nil {
		return nil, err
	}

	s := &dto.Summary{}
	for _, p := range rows.products {
		s.Inventory.TotalProducts++
		if p.Quantity == 0 {
			s.Inventory.OutOfStockProducts++
		} else if p.Quantity <= p.MinimumQuantity {
			s.Inventory.LowStockProducts++
		}
		s.Value.TotalInventoryValue += p.CurrentValue()
		s.Value.TotalCostValue += p.CostValue()
	}
	if s.Inventory.TotalProducts > 0 {
		healthy := s.Inventory.TotalProducts - s.Inventory.LowStockProducts - s.Inventory.OutOfStockProducts
		s.Inventory.StockHealth = float64(healthy) / float64(s.Inventory.TotalProducts) * 100
		s.Value.AverageItemValue = s.Value.TotalInventoryValue / float64(s.Inventory.TotalProducts)
	}
	if s.Value.TotalInventoryValue > 0 {
		margin := (s.Value.TotalInventoryValue - s.Value.TotalCostValue) / s.Value.TotalInventoryValue * 100
		s.Value.GrossProfitMargin = &margin
	}

	s.Categories.TotalCategories = len(rows.categories)
	for _, c := range rows.categories {
		analysis := dto.CategoryAnalysis{Name: c.Name}
		for _, p := range rows.products {
			if p.CategoryID == c.ID {
				analysis.ProductCount++
				analysis.TotalValue += p.CurrentValue()
			}
		}
		s.Categories.CategoryAnalysis = append(s.Categories.CategoryAnalysis, analysis)
	}
	sort.Slice(s.Categories.CategoryAnalysis, func(i, j int) bool {
		return s.Categories.CategoryAnalysis[i].TotalValue > s.Categories.CategoryAnalysis[j].TotalValue
	})
	if len(s.Categories.CategoryAnalysis) > 0 {
		s.Categories.TopCategory = &s.Categories.CategoryAnalysis[0]
	}

	for _, t := range rows.transactions {
		if t.TransactionType == model.TransactionIn {
			s.Transactions.DailyIn += t.Quantity
		} else {
			s.Transactions.DailyOut += t.Quantity
		}
	}
	s.Transactions.NetChange = s.Transactions.DailyIn - s.Transactions.DailyOut

	if uc.cache != nil {
		if payload, err := json.Marshal(s); err == nil {
			if err := uc.cache.Set(ctx, summaryCacheKey, string(payload), summaryCacheTTL); err != nil {
				uc.logger.Warn("failed to cache summary", zap.Error(err))
			}
		}
	}
	return s, nil
}

func (uc *analyticsUseCase) Aggregate(ctx context.Context, w dto.Window, groupBy dto.GroupBy) (*analytics.AggregateResult, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if !groupBy.Valid() {
		return nil, apperr.InvalidInput("unknown groupBy: " + string(groupBy))
	}

	rows, err := uc.loadWindow(ctx, w)
	if err != nil {
		return nil, err
	}

	result := &analytics.AggregateResult{GroupBy: groupBy, Window: w}
	switch groupBy {
	case dto.GroupByProduct:
		result.Products = aggregate.Products(rows.products, rows.transactions, w, uc.now())
	case dto.GroupByCategory:
		result.Categories = aggregate.Categories(rows.categories, rows.products, rows.transactions)
	case dto.GroupBySupplier:
		result.Suppliers = aggregate.Suppliers(rows.suppliers, rows.products)
	}
	return result, nil
}

func (uc *analyticsUseCase) Trends(ctx context.Context, w dto.Window, bucket trend.Bucket) (*analytics.Trends, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	txns, err := uc.repo.TransactionsInWindow(ctx, w.Start, w.End)
	if err != nil {
		return nil, apperr.StoreUnavailable(err, "load transactions")
	}

	windowSize := trend.DefaultWindowSize(bucket)
	points := trend.BuildDailySeries(txns, w, windowSize)

	changes := make([]float64, len(points))
	t := &analytics.Trends{Points: points, MovingAverageWindow: windowSize}
	for i, p := range points {
		changes[i] = float64(p.NetChange)
		t.TotalIn += p.Inbound
		t.TotalOut += p.Outbound
	}
	t.GrowthRate = trend.GrowthRate(changes, windowSize)
	t.CumulativeChange = trend.CumulativeChange(points)
	return t, nil
}

func (uc *analyticsUseCase) Performance(ctx context.Context, w dto.Window) (*analytics.Performance, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	rows, err := uc.loadWindow(ctx, w)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	productSnaps := aggregate.Products(rows.products, rows.transactions, w, now)
	categorySnaps := aggregate.Categories(rows.categories, rows.products, rows.transactions)
	supplierSnaps := aggregate.Suppliers(rows.suppliers, rows.products)

	perf := &analytics.Performance{}
	for _, s := range productSnaps {
		perf.Products.Items = append(perf.Products.Items, analytics.ScoredProduct{
			ProductSnapshot:  s,
			PerformanceScore: score.Product(s.TurnoverRate, s.CurrentValue, s.TransactionCount),
		})
	}
	for _, s := range categorySnaps {
		perf.Categories = append(perf.Categories, analytics.ScoredCategory{
			CategorySnapshot: s,
			PerformanceScore: score.Category(s.ActiveProductCount, s.ProductCount, s.TransactionVolume),
		})
	}
	for _, s := range supplierSnaps {
		perf.Suppliers = append(perf.Suppliers, analytics.ScoredSupplier{
			SupplierSnapshot: s,
			PerformanceScore: score.Supplier(s.StockAvailabilityRate, s.ProductCount),
		})
	}
	perf.AverageTurnover = score.AverageTurnover(productSnaps)

	byTurnover := make([]analytics.ScoredProduct, len(perf.Products.Items))
	copy(byTurnover, perf.Products.Items)
	sort.SliceStable(byTurnover, func(i, j int) bool {
		return byTurnover[i].TurnoverRate > byTurnover[j].TurnoverRate
	})
	perf.Products.TopPerformers = head(byTurnover, 5)

	var under []analytics.ScoredProduct
	for _, s := range perf.Products.Items {
		if s.Quantity > 0 && s.TurnoverRate == 0 {
			under = append(under, s)
		}
	}
	perf.Products.Underperformers = head(under, 5)

	return perf, nil
}

func (uc *analyticsUseCase) Forecast(ctx context.Context, w dto.Window) ([]forecast.Result, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	rows, err := uc.loadWindow(ctx, w)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string][]model.InventoryTransaction)
	for _, t := range rows.transactions {
		byProduct[t.ProductID] = append(byProduct[t.ProductID], t)
	}

	results := make([]forecast.Result, 0, len(rows.products))
	for _, p := range rows.products {
		r := forecast.Product(p, byProduct[p.ID], w)
		if r.DaysWithDemand == 0 {
			continue // nothing to forecast from
		}
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].AvgDailyDemand != results[j].AvgDailyDemand {
			return results[i].AvgDailyDemand > results[j].AvgDailyDemand
		}
		return results[i].ProductID < results[j].ProductID
	})
	return results, nil
}

func (uc *analyticsUseCase) ForecastProduct(ctx context.Context, productID string, w dto.Window) (*forecast.Result, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	var products []model.Product
	var txns []model.InventoryTransaction
	g.Go(func() (err error) {
		products, err = uc.repo.ActiveProducts(gctx)
		return err
	})
	g.Go(func() (err error) {
		txns, err = uc.repo.TransactionsInWindow(gctx, w.Start, w.End)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.StoreUnavailable(err, "load forecast rows")
	}

	for _, p := range products {
		if p.ID != productID {
			continue
		}
		var own []model.InventoryTransaction
		for _, t := range txns {
			if t.ProductID == productID {
				own = append(own, t)
			}
		}
		r := forecast.Product(p, own, w)
		return &r, nil
	}
	return nil, apperr.NotFound("product not found")
}

func (uc *analyticsUseCase) Alerts(ctx context.Context, w dto.Window) (*alert.Report, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	rows, err := uc.loadWindow(ctx, w)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	anomalyCutoff := w.End.AddDate(0, 0, -anomalyLookbackDays)
	var recent []model.InventoryTransaction
	for _, t := range rows.transactions {
		if !t.CreatedAt.Before(anomalyCutoff) {
			recent = append(recent, t)
		}
	}

	return alert.Classify(alert.Input{
		Products:   aggregate.Products(rows.products, rows.transactions, w, now),
		Categories: aggregate.Categories(rows.categories, rows.products, rows.transactions),
		Recent:     recent,
	}), nil
}

func (uc *analyticsUseCase) Health(ctx context.Context) ([]dto.ProductHealth, error) {
	now := uc.now()
	w := dto.LastDays(now, healthLookbackDays)
	rows, err := uc.loadWindow(ctx, w)
	if err != nil {
		return nil, err
	}

	snaps := aggregate.Products(rows.products, rows.transactions, w, now)
	health := make([]dto.ProductHealth, 0, len(snaps))
	for _, s := range snaps {
		h := dto.ProductHealth{
			ProductID:         s.ProductID,
			Name:              s.Name,
			Quantity:          s.Quantity,
			MinimumQuantity:   s.MinimumQuantity,
			TransactionCount:  s.TransactionCount,
			TotalOut:          s.TotalOut,
			DaysSinceMovement: s.DaysSinceLastMovement,
		}
		switch {
		case s.Quantity == 0:
			h.Status = dto.HealthOutOfStock
		case s.Quantity <= s.MinimumQuantity:
			h.Status = dto.HealthLowStock
		case s.DaysSinceLastMovement > 90:
			h.Status = dto.HealthSlowMoving
		case s.TotalOut > 0:
			h.Status = dto.HealthActive
		default:
			h.Status = dto.HealthInactive
		}
		health = append(health, h)
	}
	return health, nil
}

func head(items []analytics.ScoredProduct, n int) []analytics.ScoredProduct {
	if len(items) > n {
		return items[:n]
	}
	return items
}
