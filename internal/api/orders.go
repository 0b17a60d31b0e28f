package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TOKYOFLOWER/BeDelivery/internal/exporter"
	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
)

var validStatuses = map[model.OrderStatus]bool{
	model.StatusNew:        true,
	model.StatusProcessing: true,
	model.StatusShipped:    true,
	model.StatusCancelled:  true,
}

func orderFilter(c *gin.Context) (model.OrderFilter, bool) {
	filter := model.OrderFilter{
		Status:     model.OrderStatus(strings.TrimSpace(c.Query("status"))),
		SearchText: strings.TrimSpace(c.Query("search")),
	}
	if filter.Status != "" && !validStatuses[filter.Status] {
		badRequest(c, "ステータスが不正です")
		return filter, false
	}
	return filter, true
}

// ListOrders 注文一覧
// GET /api/orders?status=&search=
func (h *Handler) ListOrders(c *gin.Context) {
	filter, ok := orderFilter(c)
	if !ok {
		return
	}
	orders, err := h.orders.GetOrders(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"items": orders, "total": len(orders)})
}

// ExportOrders 注文一覧を xlsx でダウンロードする
// GET /api/orders/export
func (h *Handler) ExportOrders(c *gin.Context) {
	filter, ok := orderFilter(c)
	if !ok {
		return
	}
	orders, err := h.orders.GetOrders(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	f, err := exporter.ExportOrders(orders)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer f.Close()

	h.writeXLSX(c, f, "注文一覧.xlsx")
}

// GetOrder 注文1件
// GET /api/orders/:key
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// CreateOrder 注文を登録する
// POST /api/orders
func (h *Handler) CreateOrder(c *gin.Context) {
	var payload model.OrderPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "注文データが不正です")
		return
	}
	if strings.TrimSpace(payload.RecipientLastName+payload.RecipientFirstName) == "" {
		badRequest(c, "お届け先の氏名を入力してください")
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), payload)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

type updateOrderRequest struct {
	model.OrderPayload
	Status model.OrderStatus `json:"status"`
}

// UpdateOrder 注文を更新する
// PATCH /api/orders/:key
func (h *Handler) UpdateOrder(c *gin.Context) {
	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "注文データが不正です")
		return
	}
	if req.Status != "" && !validStatuses[req.Status] {
		badRequest(c, "ステータスが不正です")
		return
	}

	order, err := h.orders.UpdateOrder(c.Request.Context(), c.Param("key"), req.OrderPayload, req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// DeleteOrder 注文を削除する
// DELETE /api/orders/:key
func (h *Handler) DeleteOrder(c *gin.Context) {
	if err := h.orders.DeleteOrder(c.Request.Context(), c.Param("key")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetStatistics ステータス別件数
// GET /api/statistics
func (h *Handler) GetStatistics(c *gin.Context) {
	st, err := h.orders.GetStatistics(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
