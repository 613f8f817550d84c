package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cuetrainer/core/auth"
	"cuetrainer/core/capture"
	"cuetrainer/core/history"
	"cuetrainer/db"
	"cuetrainer/logger"
	"cuetrainer/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 CueTrainer 服务器",
	Long:  `启动 HTTP API 与进度 websocket，按配置连接 MySQL、Redis、MinIO。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, appOptions{persistent: true, mirror: true})
		if err != nil {
			return err
		}
		defer a.close()

		h := server.NewAPIHandler(a.lib, a.sched, a.board, a.hist, auth.NewManager(cfg.APISecret))
		if db.GormDB != nil {
			h.AddHealthCheck("mysql", func(ctx context.Context) error {
				sqlDB, err := db.GormDB.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			})
		}
		if db.RedisClient != nil {
			h.AddHealthCheck("redis", func(ctx context.Context) error {
				return db.RedisClient.Ping(ctx).Err()
			})
		}

		var background []func(ctx context.Context) error
		if cfg.InboxDir != "" {
			background = append(background, capture.NewInbox(cfg.InboxDir, a.lib).Run)
		}
		if cfg.HistoryRetentionDays > 0 {
			retention := history.NewRetention(a.lib, cfg.HistoryRetentionDays)
			background = append(background, func(ctx context.Context) error {
				if err := retention.Start(); err != nil {
					return err
				}
				<-ctx.Done()
				retention.Stop()
				return nil
			})
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("CueTrainer 启动",
			logger.String("playback", cfg.PlaybackMode),
			logger.Bool("mysql", db.GormDB != nil),
			logger.Bool("redis", db.RedisClient != nil),
			logger.Bool("auth", cfg.APISecret != ""))
		return server.Run(ctx, fmt.Sprintf(":%s", cfg.ServerPort), server.NewRouter(h), background...)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
