// Package status keeps the single transient status line shown to the user.
package status

import (
	"context"
	"sync"
	"time"

	"cuetrainer/logger"
	"cuetrainer/model"
)

// DefaultTTL is how long a message stays visible.
const DefaultTTL = 3 * time.Second

// Mirror receives every posted message, e.g. a Redis key with the same TTL.
type Mirror interface {
	MirrorStatus(ctx context.Context, msg model.StatusMessage, ttl time.Duration) error
	ClearStatus(ctx context.Context) error
}

// Board holds at most one message; each post replaces the previous one and
// arms its own expiry timer.
type Board struct {
	mu      sync.RWMutex
	current *model.StatusMessage
	timer   *time.Timer
	gen     uint64
	ttl     time.Duration
	now     func() time.Time
	mirror  Mirror
}

// NewBoard 创建状态提示板
func NewBoard(ttl time.Duration, mirror Mirror) *Board {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Board{ttl: ttl, now: time.Now, mirror: mirror}
}

// Post shows msg for the default TTL.
func (b *Board) Post(kind model.StatusKind, text string) {
	if b == nil {
		return
	}
	b.PostFor(kind, text, b.ttl)
}

// PostFor shows msg for ttl.
func (b *Board) PostFor(kind model.StatusKind, text string, ttl time.Duration) {
	if b == nil {
		return
	}
	now := b.now()
	msg := model.StatusMessage{Text: text, Kind: kind, PostedAt: now, ExpiresAt: now.Add(ttl)}

	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.current = &msg
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(ttl, func() { b.expire(gen) })
	b.mu.Unlock()

	logger.Debug("状态提示", logger.String("type", string(kind)), logger.String("message", text))
	if b.mirror != nil {
		if err := b.mirror.MirrorStatus(context.Background(), msg, ttl); err != nil {
			logger.Warn("同步状态提示到 Redis 失败", logger.ErrorField(err))
		}
	}
}

// Info, Success, Error are shorthands for Post.
func (b *Board) Info(text string)    { b.Post(model.StatusInfo, text) }
func (b *Board) Success(text string) { b.Post(model.StatusSuccess, text) }
func (b *Board) Error(text string)   { b.Post(model.StatusError, text) }

func (b *Board) expire(gen uint64) {
	b.mu.Lock()
	if b.gen != gen {
		b.mu.Unlock()
		return
	}
	b.current = nil
	b.timer = nil
	b.mu.Unlock()

	if b.mirror != nil {
		if err := b.mirror.ClearStatus(context.Background()); err != nil {
			logger.Warn("清除 Redis 状态提示失败", logger.ErrorField(err))
		}
	}
}

// Current returns the visible message, or nil once it has expired.
func (b *Board) Current() *model.StatusMessage {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.current == nil {
		return nil
	}
	msg := *b.current
	return &msg
}

// Clear hides the current message immediately.
func (b *Board) Clear() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.gen++
	gen := b.gen
	if b.timer != nil {
		b.timer.Stop()
	}
	b.mu.Unlock()
	b.expire(gen)
}
