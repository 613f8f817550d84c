package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"cuetrainer/core/history"

	"github.com/spf13/cobra"
)

var (
	historyExport string
	historyPrune  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "查看训练历史",
	Long:  `按日期和训练分组列出训练历史，可导出为Excel或清理旧记录。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, appOptions{persistent: true})
		if err != nil {
			return err
		}
		defer a.close()

		if historyPrune > 0 {
			n := history.NewRetention(a.lib, historyPrune).RunNow()
			a.lib.Flush()
			fmt.Fprintf(cmd.OutOrStdout(), "已删除 %d 条记录\n", n)
			return nil
		}

		groups := a.hist.Groups()
		if historyExport != "" {
			f, err := os.Create(historyExport)
			if err != nil {
				return err
			}
			if err := history.WriteWorkbook(f, groups); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已导出 %d 组到 %s\n", len(groups), historyExport)
			return nil
		}

		if len(groups) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "暂无训练记录")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tTRAINING\tCOUNT\tTOTAL\tLAST")
		for _, g := range groups {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", g.Date, g.TrainingName, g.Count,
				history.FormatDuration(g.TotalDuration), g.Entries[0].CompletedAt.In(time.Local).Format("15:04"))
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyExport, "export", "", "导出为xlsx文件")
	historyCmd.Flags().IntVar(&historyPrune, "prune", 0, "删除早于N天的记录")
	rootCmd.AddCommand(historyCmd)
}
