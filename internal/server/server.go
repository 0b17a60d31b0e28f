package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TOKYOFLOWER/BeDelivery/internal/api"
)

const devFrontendURL = "http://localhost:5173"

// Server HTTP サーバー
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     *zap.Logger
	components *Components
}

// NewServer サーバーを作成する
func NewServer(c *Components) *Server {
	devMode := c.Config.Server.DevMode
	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := c.Logger.Named("http")
	handler := api.NewHandler(api.Deps{
		Coordinator:    c.Coordinator,
		Orders:         c.Orders,
		Logs:           c.Local,
		Backend:        c.Config.Store.Backend,
		MaxUploadBytes: c.Config.Import.MaxUploadBytes(),
		Logger:         c.Logger,
	})

	s := &Server{
		router:     gin.New(),
		logger:     logger,
		components: c,
	}
	s.router.Use(requestLogger(logger), recovery(logger))
	s.setupRoutes(handler, devMode)
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// setupRoutes ルートを設定する
func (s *Server) setupRoutes(h *api.Handler, devMode bool) {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	apiGroup := s.router.Group("/api")
	{
		h.RegisterRoutes(apiGroup)
	}

	s.router.GET("/healthz", func(c *gin.Context) {
		if err := s.components.Local.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(s.components.Metrics.Handler()))

	if devMode {
		// 開発モード：フロントエンドの開発サーバーへ転送
		s.router.NoRoute(func(c *gin.Context) {
			c.Redirect(http.StatusTemporaryRedirect, devFrontendURL+c.Request.URL.Path)
		})
		return
	}
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "見つかりません"})
	})
}

// Handler テスト用の http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr 待ち受けアドレス
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Run サーバーを起動する。Shutdown で止めた場合は nil を返す
func (s *Server) Run() error {
	s.logger.Info("listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 処理中のリクエストを待って停止する
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
