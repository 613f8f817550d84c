package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cuetrainer/core/scheduler"
	"cuetrainer/model"

	"github.com/spf13/cobra"
)

var (
	playBundle   string
	playPhase    string
	playExercise string
	playTraining string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "在终端播放一个阶段、练习或训练",
	Long: `播放单个阶段、练习或训练，并在终端打印进度。
使用 --bundle 时从备份文件加载数据（仅内存），否则按配置连接存储。Ctrl+C 停止播放。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, id, err := playTarget()
		if err != nil {
			return err
		}

		a, err := newApp(cfg, appOptions{persistent: playBundle == ""})
		if err != nil {
			return err
		}
		defer a.close()

		if playBundle != "" {
			data, err := os.ReadFile(playBundle)
			if err != nil {
				return fmt.Errorf("读取备份文件失败: %w", err)
			}
			if err := a.lib.Import(cmd.Context(), data); err != nil {
				return err
			}
		}

		updates, cancel := a.sched.Subscribe()
		defer cancel()

		var run *scheduler.Run
		switch kind {
		case model.RunKindPhase:
			run, err = a.sched.RunPhase(id)
		case model.RunKindExercise:
			run, err = a.sched.RunExercise(id)
		default:
			run, err = a.sched.RunTraining(id)
		}
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		last := ""
		for {
			select {
			case snap := <-updates:
				if snap.RunID != run.ID || snap.StatusLine == "" {
					continue
				}
				if line := describeSnapshot(snap); line != last {
					last = line
					fmt.Fprintln(out, line)
				}
			case <-ctx.Done():
				a.sched.Stop()
				<-run.Done()
				fmt.Fprintln(out, "已停止")
				return nil
			case <-run.Done():
				fmt.Fprintf(out, "结束: %s\n", run.Outcome())
				return nil
			}
		}
	},
}

func playTarget() (model.RunKind, string, error) {
	var (
		kind  model.RunKind
		id    string
		count int
	)
	for k, v := range map[model.RunKind]string{
		model.RunKindPhase:    playPhase,
		model.RunKindExercise: playExercise,
		model.RunKindTraining: playTraining,
	} {
		if v != "" {
			kind, id = k, v
			count++
		}
	}
	if count != 1 {
		return "", "", errors.New("需要且只能指定 --phase、--exercise 或 --training 其中之一")
	}
	return kind, id, nil
}

func describeSnapshot(s model.ProgressSnapshot) string {
	line := s.StatusLine
	if s.TotalExercises > 0 {
		line = fmt.Sprintf("[%d/%d %s] %s", s.ExerciseIndex, s.TotalExercises, s.ExerciseName, line)
	}
	if s.RemainingSeconds > 0 {
		line = fmt.Sprintf("%s (%ds)", line, s.RemainingSeconds)
	}
	return line
}

func init() {
	playCmd.Flags().StringVar(&playBundle, "bundle", "", "从备份JSON文件加载数据")
	playCmd.Flags().StringVar(&playPhase, "phase", "", "阶段ID")
	playCmd.Flags().StringVar(&playExercise, "exercise", "", "练习ID")
	playCmd.Flags().StringVar(&playTraining, "training", "", "训练ID")
	rootCmd.AddCommand(playCmd)
}
