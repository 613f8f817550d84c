package audio

import (
	"context"
	"time"

	"cuetrainer/logger"
	"cuetrainer/model"
)

// DefaultCueLength is used when a payload's duration cannot be determined.
const DefaultCueLength = time.Second

// ClockPlayer renders no sound: it holds each playback open for the recording's
// measured length. Used headless and when no audio output is available.
type ClockPlayer struct {
	spool  *Spool
	prober *Prober
}

// NewClockPlayer 创建计时播放器
func NewClockPlayer(spool *Spool, prober *Prober) *ClockPlayer {
	return &ClockPlayer{spool: spool, prober: prober}
}

func (p *ClockPlayer) Start(ctx context.Context, rec *model.Recording) Handle {
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

		length, err := p.prober.Duration(runCtx, path)
		if h.aborted() {
			h.finish(nil)
			return
		}
		if err != nil || length <= 0 {
			logger.Warn("无法获取录音时长，使用默认值",
				logger.String("recordingId", rec.ID),
				logger.Duration("default", DefaultCueLength))
			length = DefaultCueLength
		}

		timer := time.NewTimer(length)
		defer timer.Stop()
		select {
		case <-timer.C:
			h.finish(nil)
		case <-h.abort:
			h.finish(nil)
		case <-ctx.Done():
			h.finish(ctx.Err())
		}
	}()
	return h
}
