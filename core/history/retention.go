package history

import (
	"time"

	"cuetrainer/logger"

	"github.com/robfig/cron/v3"
)

// RetentionSpec runs the cleanup every day at 03:00.
const RetentionSpec = "0 3 * * *"

// Retention 定时清理过期训练记录
type Retention struct {
	cron *cron.Cron
	src  Source
	keep time.Duration
	now  func() time.Time
}

// NewRetention keeps entries for days days.
func NewRetention(src Source, days int) *Retention {
	return &Retention{
		cron: cron.New(cron.WithLocation(time.Local)),
		src:  src,
		keep: time.Duration(days) * 24 * time.Hour,
		now:  time.Now,
	}
}

// Start 启动定时任务
func (r *Retention) Start() error {
	if _, err := r.cron.AddFunc(RetentionSpec, func() { r.RunNow() }); err != nil {
		return err
	}
	r.cron.Start()
	logger.Info("训练记录清理任务已启动", logger.String("spec", RetentionSpec), logger.Duration("keep", r.keep))
	return nil
}

// Stop waits for a running cleanup to finish.
func (r *Retention) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// RunNow deletes entries older than the retention window and returns how many went.
func (r *Retention) RunNow() int {
	cutoff := r.now().Add(-r.keep)
	n := r.src.DeleteHistoryBefore(cutoff)
	if n > 0 {
		logger.Info("已清理过期训练记录", logger.Int("count", n), logger.String("cutoff", cutoff.Format(time.RFC3339)))
	}
	return n
}
