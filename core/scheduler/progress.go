package scheduler

import (
	"context"
	"sync"

	"cuetrainer/logger"
	"cuetrainer/model"
)

// ProgressMirror receives snapshots outside the scheduler lock, e.g. a Redis mirror.
type ProgressMirror interface {
	MirrorProgress(ctx context.Context, snap model.ProgressSnapshot) error
}

// Hub holds the latest snapshot and hands it to watchers. Watchers only ever
// see the newest value; intermediate snapshots are dropped, never queued.
type Hub struct {
	mu       sync.Mutex
	latest   model.ProgressSnapshot
	seq      int64
	watchers map[int]chan model.ProgressSnapshot
	nextID   int
}

// NewHub 创建进度中心，初始为空闲状态
func NewHub() *Hub {
	return &Hub{
		latest:   model.ProgressSnapshot{State: model.RunStateIdle},
		watchers: make(map[int]chan model.ProgressSnapshot),
	}
}

// Publish stamps snap with the next sequence number and makes it current.
func (h *Hub) Publish(snap model.ProgressSnapshot) model.ProgressSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	snap.Seq = h.seq
	h.latest = snap
	for _, ch := range h.watchers {
		offer(ch, snap)
	}
	return snap
}

// Latest returns the current snapshot.
func (h *Hub) Latest() model.ProgressSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// Watch returns a channel that always holds at most the newest snapshot,
// starting with the current one. The returned func unsubscribes and closes it.
func (h *Hub) Watch() (<-chan model.ProgressSnapshot, func()) {
	ch := make(chan model.ProgressSnapshot, 1)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.watchers[id] = ch
	ch <- h.latest
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.watchers, id)
			close(ch)
			h.mu.Unlock()
		})
	}
}

// Watchers 当前订阅数
func (h *Hub) Watchers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers)
}

// offer replaces whatever is buffered in ch with snap. Only called with h.mu
// held, so there is a single producer and the send never blocks.
func offer(ch chan model.ProgressSnapshot, snap model.ProgressSnapshot) {
	select {
	case <-ch:
	default:
	}
	ch <- snap
}

// runMirror forwards snapshots to m until ctx is done.
func runMirror(ctx context.Context, h *Hub, m ProgressMirror) {
	ch, unsubscribe := h.Watch()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if err := m.MirrorProgress(ctx, snap); err != nil {
				logger.Warn("同步播放进度失败", logger.Int64("seq", snap.Seq), logger.ErrorField(err))
			}
		}
	}
}
