package audio

import (
	"context"
	"os/exec"
	"time"

	"cuetrainer/logger"
	"cuetrainer/model"
)

// killWait bounds how long a killed ffplay may hold its output pipes.
const killWait = 2 * time.Second

// FFplayPlayer plays recordings through the local audio device using ffplay.
type FFplayPlayer struct {
	ffplayPath string
	spool      *Spool
}

// NewFFplayPlayer 创建 ffplay 播放器
func NewFFplayPlayer(ffplayPath string, spool *Spool) *FFplayPlayer {
	return &FFplayPlayer{ffplayPath: ffplayPath, spool: spool}
}

func (p *FFplayPlayer) Start(ctx context.Context, rec *model.Recording) Handle {
	h := newHandle()
	go func() {
		runCtx, cancel := h.bind(ctx)
		defer cancel()

		path, err := p.spool.Path(runCtx, rec)
		if err != nil {
			if h.aborted() {
				err = nil
			}
			h.finish(err)
			return
		}

		cmd := exec.CommandContext(runCtx, p.ffplayPath, "-nodisp", "-autoexit", "-loglevel", "error", path)
		cmd.WaitDelay = killWait
		if err := cmd.Run(); err != nil {
			// Killed by abort or cancellation is not a playback failure.
			if runCtx.Err() != nil {
				h.finish(nil)
				return
			}
			logger.Error("ffplay 播放失败", logger.String("recordingId", rec.ID), logger.ErrorField(err))
			h.finish(&Error{Operation: "play", Message: "failed to play " + rec.Name, Err: err})
			return
		}
		h.finish(nil)
	}()
	return h
}
