package cmd

import (
	"errors"
	"fmt"
	"time"

	"cuetrainer/core/auth"

	"github.com/spf13/cobra"
)

var (
	tokenClient string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "签发API访问令牌",
	Long:  `使用 API_SECRET 签发 Bearer 令牌，供远程控制端调用 API 与订阅进度。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m := auth.NewManager(cfg.APISecret)
		if !m.Enabled() {
			return errors.New("API_SECRET 未设置，服务器未启用认证")
		}
		token, err := m.IssueToken(tokenClient, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenClient, "client", "remote", "客户端名称")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", auth.DefaultTokenTTL, "有效期")
	rootCmd.AddCommand(tokenCmd)
}
