package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TOKYOFLOWER/BeDelivery/internal/server"
	"github.com/TOKYOFLOWER/BeDelivery/internal/util"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		port      int
		devMode   bool
		noBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Web 画面と API を起動する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, info, err := root.loadConfig()
			if err != nil {
				return err
			}
			// config.toml にポートがなければフラグを使う
			if port > 0 && !info.PortSpecified {
				cfg.Server.Port = port
			}
			if devMode {
				cfg.Server.DevMode = true
			}
			if noBrowser {
				cfg.Server.OpenBrowser = false
			}

			c, cleanup, err := root.open(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			return runServe(cmd.Context(), cmd, c)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "ポート (config.toml で指定がない場合のみ有効)")
	cmd.Flags().BoolVar(&devMode, "dev", false, "開発モード")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "起動時にブラウザを開かない")
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, c *server.Components) error {
	cfg := c.Config
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "==========================================")
	fmt.Fprintln(out, "  BeDelivery - お花リスト取り込み")
	fmt.Fprintln(out, "==========================================")

	srv := server.NewServer(c)
	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	if cfg.Server.OpenBrowser && !cfg.Server.DevMode {
		fmt.Fprintf(out, "ブラウザを開いています: %s\n", url)
		if err := util.OpenBrowserWithFallback(url); err != nil {
			fmt.Fprintf(out, "ブラウザを開けませんでした。%s にアクセスしてください\n", url)
		}
	} else {
		fmt.Fprintf(out, "%s にアクセスしてください\n", url)
	}
	fmt.Fprintln(out, "Ctrl+C で停止します")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.Logger.Warn("graceful shutdown failed", zap.Error(err))
		return err
	}
	return <-errCh
}
