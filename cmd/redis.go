package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cuetrainer/cache"
	"cuetrainer/db"

	"github.com/spf13/cobra"
)

var redisWatch bool

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis连接测试",
	Long:  `测试Redis连接与基本读写；加 --watch 时订阅服务器发布的播放进度。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Redis配置: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := db.ConnectRedis(cfg); err != nil {
			return fmt.Errorf("无法连接到Redis: %w", err)
		}
		defer db.CloseRedis()
		fmt.Fprintln(out, "Redis连接成功！")

		if err := db.TestRedis(cmd.Context(), db.RedisClient); err != nil {
			return fmt.Errorf("Redis操作测试失败: %w", err)
		}
		fmt.Fprintln(out, "Redis基本操作测试成功！")

		pc := cache.NewPlaybackCache(db.RedisClient)
		if snap, err := pc.LoadProgress(cmd.Context()); err == nil && snap != nil {
			fmt.Fprintf(out, "最近进度: %s %s\n", snap.State, snap.StatusLine)
		}
		if msg, err := pc.LoadStatus(cmd.Context()); err == nil && msg != nil {
			fmt.Fprintf(out, "当前提示: [%s] %s\n", msg.Kind, msg.Text)
		}
		if !redisWatch {
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		updates, err := pc.SubscribeProgress(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "正在订阅播放进度，Ctrl+C 退出")
		for snap := range updates {
			fmt.Fprintf(out, "#%d %s %s\n", snap.Seq, snap.State, describeSnapshot(snap))
		}
		return nil
	},
}

func init() {
	redisCmd.Flags().BoolVarP(&redisWatch, "watch", "w", false, "订阅播放进度")
	rootCmd.AddCommand(redisCmd)
}
