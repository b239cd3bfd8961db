package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chrisostomemataba/inventory-ledger/internal/apperr"
	"github.com/chrisostomemataba/inventory-ledger/internal/auth"
	"github.com/chrisostomemataba/inventory-ledger/internal/ledger"
	"github.com/chrisostomemataba/inventory-ledger/internal/ledger/dto"
	"github.com/chrisostomemataba/inventory-ledger/internal/model"
	"github.com/chrisostomemataba/inventory-ledger/internal/pkg/logger"
)

type LedgerHandler struct {
	uc     ledger.UseCase
	logger logger.ZapLogger
}

func NewLedgerHandler(uc ledger.UseCase, log logger.ZapLogger) *LedgerHandler {
	return &LedgerHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *LedgerHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/transactions", h.CreateTransaction)
	r.GET("/transactions", h.ListTransactions)
	r.GET("/products/:id", h.GetProduct)
	r.PUT("/products/:id", h.UpdateProduct)
	r.DELETE("/products/:id", h.DeleteProduct)
	r.GET("/products/:id/history", h.ProductHistory)
}

// ActorContext copies the acting user and source address from the request
// into the context the usecases read.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			ctx = auth.WithUserID(ctx, userID)
		}
		ctx = auth.WithIPAddress(ctx, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

type createTransactionRequest struct {
	ProductID       string `json:"product_id" binding:"required"`
	TransactionType string `json:"transaction_type" binding:"required"`
	Quantity        int    `json:"quantity" binding:"required"`
	Notes           string `json:"notes"`
	ReferenceID     string `json:"reference_id"`
	ReferenceType   string `json:"reference_type"`
}

func (h *LedgerHandler) CreateTransaction(c *gin.Context) {
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	input := &dto.ApplyTransactionInput{
		ProductID:       req.ProductID,
		TransactionType: model.TransactionType(req.TransactionType),
		Quantity:        req.Quantity,
		UserID:          auth.GetUserID(ctx),
		Notes:           req.Notes,
		ReferenceID:     req.ReferenceID,
		ReferenceType:   req.ReferenceType,
	}

	result, err := h.uc.Apply(ctx, input)
	if err != nil {
		h.fail(c, err, "failed to apply transaction")
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	filters := &dto.TransactionFilters{
		ProductID:       c.Query("productId"),
		TransactionType: model.TransactionType(c.Query("type")),
		Page:            queryInt(c, "page", 1),
		PageSize:        queryInt(c, "limit", 20),
	}
	if t, ok := queryTime(c, "start"); ok {
		filters.StartDate = &t
	}
	if t, ok := queryTime(c, "end"); ok {
		filters.EndDate = &t
	}

	items, total, err := h.uc.ListTransactions(c.Request.Context(), filters)
	if err != nil {
		h.fail(c, err, "failed to list transactions")
		return
	}

	pages := 0
	if filters.PageSize > 0 {
		pages = (total + filters.PageSize - 1) / filters.PageSize
	}
	c.JSON(http.StatusOK, gin.H{
		"transactions": items,
		"pagination": gin.H{
			"total": total,
			"pages": pages,
			"page":  filters.Page,
			"limit": filters.PageSize,
		},
	})
}

func (h *LedgerHandler) GetProduct(c *gin.Context) {
	detail, err := h.uc.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to get product")
		return
	}
	c.JSON(http.StatusOK, detail)
}

type updateProductRequest struct {
	Name            string  `json:"name" binding:"required"`
	Description     *string `json:"description"`
	Barcode         *string `json:"barcode"`
	UnitPrice       float64 `json:"unit_price"`
	CostPrice       float64 `json:"cost_price"`
	Quantity        int     `json:"quantity"`
	MinimumQuantity int     `json:"minimum_quantity"`
	MaximumQuantity *int    `json:"maximum_quantity"`
	CategoryID      string  `json:"category_id" binding:"required"`
	SupplierID      *string `json:"supplier_id"`
}

func (h *LedgerHandler) UpdateProduct(c *gin.Context) {
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	input := &dto.UpdateProductInput{
		ProductID:       c.Param("id"),
		Name:            req.Name,
		Description:     req.Description,
		Barcode:         req.Barcode,
		UnitPrice:       req.UnitPrice,
		CostPrice:       req.CostPrice,
		Quantity:        req.Quantity,
		MinimumQuantity: req.MinimumQuantity,
		MaximumQuantity: req.MaximumQuantity,
		CategoryID:      req.CategoryID,
		SupplierID:      req.SupplierID,
		UserID:          auth.GetUserID(ctx),
	}

	p, err := h.uc.UpdateProduct(ctx, input)
	if err != nil {
		h.fail(c, err, "failed to update product")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *LedgerHandler) DeleteProduct(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.uc.SoftDeleteProduct(ctx, c.Param("id"), auth.GetUserID(ctx)); err != nil {
		h.fail(c, err, "failed to delete product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *LedgerHandler) ProductHistory(c *gin.Context) {
	items, err := h.uc.History(c.Request.Context(), c.Param("id"), queryInt(c, "limit", 10))
	if err != nil {
		h.fail(c, err, "failed to get product history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": items})
}

func (h *LedgerHandler) fail(c *gin.Context, err error, msg string) {
	h.logger.Error(msg, zap.Error(err))
	c.JSON(statusFromErr(err), gin.H{"error": err.Error()})
}

func statusFromErr(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindInsufficientStock:
		return http.StatusConflict
	case apperr.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func queryTime(c *gin.Context, key string) (time.Time, bool) {
	if v := c.Query(key); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
