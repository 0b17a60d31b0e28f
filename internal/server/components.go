package server

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/TOKYOFLOWER/BeDelivery/internal/config"
	"github.com/TOKYOFLOWER/BeDelivery/internal/gasclient"
	"github.com/TOKYOFLOWER/BeDelivery/internal/importer"
	"github.com/TOKYOFLOWER/BeDelivery/internal/metrics"
	"github.com/TOKYOFLOWER/BeDelivery/internal/orderstore"
	"github.com/TOKYOFLOWER/BeDelivery/internal/store"
)

// Components 設定から組み立てた部品一式
type Components struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Local       *store.Store
	Orders      orderstore.Store
	Coordinator *importer.Coordinator
}

// NewComponents 設定に従ってストアと取り込み処理を組み立てる
// 取り込み履歴は常にローカルの SQLite に記録する。
func NewComponents(cfg *config.AppConfig, logger *zap.Logger) (*Components, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("データディレクトリを作成できません: %w", err)
	}
	logger.Info("data directory ready", zap.String("path", dataDir))

	local, err := store.New(config.DatabasePath(cfg))
	if err != nil {
		return nil, fmt.Errorf("データベースを初期化できません: %w", err)
	}

	m := metrics.New()

	var orders orderstore.Store = local
	switch cfg.Store.Backend {
	case config.BackendRemote:
		client, err := gasclient.New(gasclient.Config{
			URL:           cfg.Remote.APIURL,
			Timeout:       cfg.Remote.Timeout(),
			RatePerSecond: cfg.Remote.RatePerSecond,
			Observe:       m.RecordRemoteCall,
		})
		if err != nil {
			_ = local.Close()
			return nil, fmt.Errorf("リモート API を設定できません: %w", err)
		}
		orders = client
	case config.BackendMemory:
		orders = orderstore.NewMemoryStore()
	case config.BackendSQLite, "":
	default:
		_ = local.Close()
		return nil, fmt.Errorf("store.backend が不正です: %q", cfg.Store.Backend)
	}

	coord := importer.NewCoordinator(orders, importer.Options{
		Selector:       cfg.SheetSelector(),
		Defaults:       cfg.ParserDefaults(),
		DeleteSentinel: cfg.Import.DeleteSentinel,
		SessionTTL:     cfg.Import.SessionTTL(),
		SingleSession:  cfg.Import.SingleSession,
		Journal:        local,
		Logger:         logger,
		Metrics:        m,
	})

	logger.Info("order store configured", zap.String("backend", cfg.Store.Backend))

	return &Components{
		Config:      cfg,
		Logger:      logger,
		Metrics:     m,
		Local:       local,
		Orders:      orders,
		Coordinator: coord,
	}, nil
}

// Close 保持している資源を解放する
func (c *Components) Close() error {
	var errs []error
	if c.Local != nil {
		errs = append(errs, c.Local.Close())
	}
	return errors.Join(errs...)
}
