package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chrisostomemataba/inventory-ledger/internal/analytics"
	"github.com/chrisostomemataba/inventory-ledger/internal/analytics/dto"
	"github.com/chrisostomemataba/inventory-ledger/internal/analytics/trend"
	"github.com/chrisostomemataba/inventory-ledger/internal/apperr"
	"github.com/chrisostomemataba/inventory-ledger/internal/pkg/logger"
)

const defaultPeriodDays = 30

type AnalyticsHandler struct {
	uc     analytics.UseCase
	logger logger.ZapLogger
	now    func() time.Time
}

func NewAnalyticsHandler(uc analytics.UseCase, log logger.ZapLogger, now func() time.Time) *AnalyticsHandler {
	if now == nil {
		now = time.Now
	}
	return &AnalyticsHandler{
		uc:     uc,
		logger: log,
		now:    now,
	}
}

func (h *AnalyticsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard/summary", h.Summary)
	r.GET("/dashboard/trends", h.Trends)
	r.GET("/dashboard/performance", h.Performance)
	r.GET("/dashboard/aggregate", h.Aggregate)
	r.GET("/dashboard/forecast", h.Forecast)
	r.GET("/dashboard/forecast/:id", h.ForecastProduct)
	r.GET("/dashboard/alerts", h.Alerts)
	r.GET("/dashboard/health", h.Health)
}

func (h *AnalyticsHandler) Summary(c *gin.Context) {
	s, err := h.uc.Summary(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to build summary")
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *AnalyticsHandler) Trends(c *gin.Context) {
	bucket := trend.Bucket(c.DefaultQuery("interval", string(trend.BucketDaily)))
	t, err := h.uc.Trends(c.Request.Context(), h.window(c), bucket)
	if err != nil {
		h.fail(c, err, "failed to build trends")
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *AnalyticsHandler) Performance(c *gin.Context) {
	p, err := h.uc.Performance(c.Request.Context(), h.window(c))
	if err != nil {
		h.fail(c, err, "failed to build performance")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *AnalyticsHandler) Aggregate(c *gin.Context) {
	groupBy := dto.GroupBy(c.DefaultQuery("groupBy", string(dto.GroupByProduct)))
	result, err := h.uc.Aggregate(c.Request.Context(), h.window(c), groupBy)
	if err != nil {
		h.fail(c, err, "failed to aggregate")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AnalyticsHandler) Forecast(c *gin.Context) {
	results, err := h.uc.Forecast(c.Request.Context(), h.window(c))
	if err != nil {
		h.fail(c, err, "failed to build forecast")
		return
	}
	c.JSON(http.StatusOK, gin.H{"forecasts": results})
}

func (h *AnalyticsHandler) ForecastProduct(c *gin.Context) {
	result, err := h.uc.ForecastProduct(c.Request.Context(), c.Param("id"), h.window(c))
	if err != nil {
		h.fail(c, err, "failed to build product forecast")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AnalyticsHandler) Alerts(c *gin.Context) {
	report, err := h.uc.Alerts(c.Request.Context(), h.window(c))
	if err != nil {
		h.fail(c, err, "failed to classify alerts")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *AnalyticsHandler) Health(c *gin.Context) {
	health, err := h.uc.Health(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to build health rollup")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": health})
}

// window resolves the requested period, defaulting to the trailing 30 days.
func (h *AnalyticsHandler) window(c *gin.Context) dto.Window {
	period := defaultPeriodDays
	if v := c.Query("period"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			period = i
		}
	}
	return dto.LastDays(h.now(), period)
}

func (h *AnalyticsHandler) fail(c *gin.Context, err error, msg string) {
	h.logger.Error(msg, zap.Error(err))
	c.JSON(statusFromErr(err), gin.H{"error": err.Error()})
}

func statusFromErr(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
