// Package main は BeDelivery の取り込みツール。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TOKYOFLOWER/BeDelivery/internal/config"
	"github.com/TOKYOFLOWER/BeDelivery/internal/logging"
	"github.com/TOKYOFLOWER/BeDelivery/internal/server"
)

var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
	dataDir    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "bedelivery",
		Short: "定期お花リストの取り込みツール",
		Long: `bedelivery はお花リスト（xlsx / xls / csv）を注文一覧と照合し、
追加・変更・削除をまとめて反映します。

Examples:
  # Web 画面を起動
  bedelivery serve

  # 差分だけ確認
  bedelivery preview お花リスト.xlsx

  # 差分を反映
  bedelivery import お花リスト.xlsx --yes`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "設定ファイル (既定: 実行ファイルと同じ場所の config.toml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "ログレベル (debug/info/warn/error)")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "データディレクトリ (設定ファイルより優先)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newPreviewCmd(opts))
	cmd.AddCommand(newImportCmd(opts))
	return cmd
}

// loadConfig 設定を読み込みフラグで上書きする
func (o *rootOptions) loadConfig() (*config.AppConfig, config.LoadConfigInfo, error) {
	cfg, info, err := config.LoadConfigWithInfo(o.configPath)
	if err != nil {
		return nil, info, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.dataDir != "" {
		cfg.Data.DataDir = o.dataDir
	}
	return cfg, info, nil
}

// open 設定・ロガー・部品をまとめて用意する
func (o *rootOptions) open(cfg *config.AppConfig) (*server.Components, func(), error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}

	c, err := server.NewComponents(cfg, logger)
	if err != nil {
		_ = logging.Sync(logger)
		return nil, nil, err
	}

	cleanup := func() {
		if err := c.Close(); err != nil {
			logger.Warn("failed to close components", zap.Error(err))
		}
		_ = logging.Sync(logger)
	}
	return c, cleanup, nil
}
