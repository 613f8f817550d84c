package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"cuetrainer/server"

	"github.com/spf13/cobra"
)

var (
	dataOutput string
	dataYes    bool
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "备份、恢复与清空数据",
}

var dataExportCmd = &cobra.Command{
	Use:   "export",
	Short: "导出全部数据为JSON备份",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, appOptions{persistent: true})
		if err != nil {
			return err
		}
		defer a.close()

		path := dataOutput
		if path == "" {
			path = server.BackupFilename(time.Now())
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := a.lib.WriteBundle(cmd.Context(), f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "已导出到 %s\n", path)
		return nil
	},
}

var dataImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "从JSON备份恢复数据（替换现有数据）",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cfg, appOptions{persistent: true})
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.lib.Import(cmd.Context(), data); err != nil {
			return err
		}
		a.lib.Flush()
		c := a.lib.Counts()
		fmt.Fprintf(cmd.OutOrStdout(), "导入完成: %d 条录音, %d 个阶段, %d 个练习, %d 个训练\n",
			c["recordings"], c["phases"], c["exercises"], c["trainings"])
		return nil
	},
}

var dataClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "删除全部数据",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !dataYes {
			return errors.New("清空数据不可恢复，请加 --yes 确认")
		}
		a, err := newApp(cfg, appOptions{persistent: true})
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.lib.Clear(cmd.Context()); err != nil {
			return err
		}
		a.lib.Flush()
		fmt.Fprintln(cmd.OutOrStdout(), "数据已清空")
		return nil
	},
}

func init() {
	dataExportCmd.Flags().StringVarP(&dataOutput, "output", "o", "", "输出文件（默认 cuetrainer-backup-日期.json）")
	dataClearCmd.Flags().BoolVar(&dataYes, "yes", false, "确认清空")
	dataCmd.AddCommand(dataExportCmd, dataImportCmd, dataClearCmd)
	rootCmd.AddCommand(dataCmd)
}
