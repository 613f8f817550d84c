package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"cuetrainer/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看MinIO存储桶中保存的录音文件及统计信息。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		store, err := storage.NewMinioStore(cfg)
		if err != nil {
			return fmt.Errorf("无法连接到MinIO: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		objects, stats, err := store.List(ctx, minioPrefix)
		if err != nil {
			return err
		}

		if !minioStats {
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tSIZE\tTYPE\tMODIFIED")
			for _, o := range objects {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.Key, formatSize(o.Size), o.ContentType,
					o.LastModified.Format("2006-01-02 15:04:05"))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
		}

		fmt.Fprintf(out, "\n对象数: %d, 总大小: %s", stats.TotalObjects, formatSize(stats.TotalSize))
		if !stats.LastModified.IsZero() {
			fmt.Fprintf(out, ", 最后修改: %s", stats.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(out)
		return nil
	},
}

// formatSize 格式化文件大小
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func init() {
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "recordings/", "对象前缀")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "只显示统计信息")
	rootCmd.AddCommand(minioCmd)
}
