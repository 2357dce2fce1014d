package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"LabelDesk/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "启动LabelDesk服务器",
	Long:    `启动LabelDesk的HTTP API服务器，提供厂牌、艺人、发行审核与资源上传接口`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is not configured")
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := os.MkdirAll(cfg.StagingDir, 0o755); err != nil {
			return err
		}
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		h := server.NewAPIHandler(a.store, a.roster, a.releases, a.pipeline, cfg)
		return server.Run(ctx, cfg.HTTPAddr, server.NewRouter(h, a.registry))
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
