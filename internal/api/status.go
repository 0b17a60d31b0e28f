package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
	"github.com/TOKYOFLOWER/BeDelivery/internal/store"
)

// StatusResponse システム状態
type StatusResponse struct {
	Backend        string            `json:"backend"`
	StoreReachable bool              `json:"storeReachable"`
	Statistics     *model.Statistics `json:"statistics,omitempty"`
	ActiveSessions int               `json:"activeSessions"`
	LastImportTime string            `json:"lastImportTime"`
}

// GetStatus システム状態
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	resp := StatusResponse{
		Backend:        h.backend,
		ActiveSessions: h.coord.Sessions().Len(),
	}

	st, err := h.orders.GetStatistics(c.Request.Context())
	if err != nil {
		h.logger.Warn("statistics unavailable", zap.Error(err))
	} else {
		resp.StoreReachable = true
		resp.Statistics = &st
	}

	if h.logs != nil {
		if t, ok := h.logs.LastImportAt(); ok {
			resp.LastImportTime = t.Format("2006-01-02 15:04:05")
		}
	}

	c.JSON(http.StatusOK, resp)
}

// ListImportLogs 取り込み履歴
// GET /api/import-logs?limit=
func (h *Handler) ListImportLogs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		badRequest(c, "limit が不正です")
		return
	}
	if h.logs == nil {
		c.JSON(http.StatusOK, gin.H{"items": []store.ImportLog{}})
		return
	}

	logs, err := h.logs.ListImportLogs(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": logs})
}
