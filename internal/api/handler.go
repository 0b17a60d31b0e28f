// Package api は取り込みと注文管理の HTTP API。
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TOKYOFLOWER/BeDelivery/internal/importer"
	"github.com/TOKYOFLOWER/BeDelivery/internal/orderstore"
	"github.com/TOKYOFLOWER/BeDelivery/internal/store"
)

const defaultMaxUploadBytes = 10 << 20

// ImportLogReader 取り込み履歴の参照
type ImportLogReader interface {
	ListImportLogs(ctx context.Context, limit int) ([]store.ImportLog, error)
	LastImportAt() (time.Time, bool)
}

// Deps Handler の依存
type Deps struct {
	Coordinator    *importer.Coordinator
	Orders         orderstore.Store
	Logs           ImportLogReader
	Backend        string
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// Handler API ハンドラ
type Handler struct {
	coord          *importer.Coordinator
	orders         orderstore.Store
	logs           ImportLogReader
	backend        string
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewHandler ハンドラを作成する
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	return &Handler{
		coord:          d.Coordinator,
		orders:         d.Orders,
		logs:           d.Logs,
		backend:        d.Backend,
		maxUploadBytes: maxUpload,
		logger:         logger.Named("api"),
	}
}

// RegisterRoutes ルートを登録する
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// システム状態
	router.GET("/status", h.GetStatus)
	router.GET("/import-logs", h.ListImportLogs)

	// 取り込み
	router.POST("/imports", h.CreateImport)
	router.GET("/imports/:id", h.GetImport)
	router.PATCH("/imports/:id/entries/:index", h.ToggleEntry)
	router.POST("/imports/:id/select", h.SelectAll)
	router.GET("/imports/:id/export", h.ExportImport)
	router.POST("/imports/:id/execute", h.ExecuteImport)
	router.DELETE("/imports/:id", h.CancelImport)

	// 注文
	router.GET("/orders", h.ListOrders)
	router.GET("/orders/export", h.ExportOrders)
	router.GET("/orders/:key", h.GetOrder)
	router.POST("/orders", h.CreateOrder)
	router.PATCH("/orders/:key", h.UpdateOrder)
	router.DELETE("/orders/:key", h.DeleteOrder)
	router.GET("/statistics", h.GetStatistics)
}
