// Package audio plays recording payloads and reports when each one finishes.
package audio

import (
	"context"
	"fmt"
	"sync"

	"cuetrainer/model"
)

// Error is a playback failure for a single recording.
type Error struct {
	Operation string // e.g. "spool", "probe", "play"
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("audio %s: %s (%v)", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("audio %s: %s", e.Operation, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Handle is one in-flight playback.
type Handle interface {
	// Done is closed when playback ends for any reason.
	Done() <-chan struct{}
	// Abort stops playback and returns once the output is released.
	// Safe to call more than once.
	Abort()
	// Err is the failure, if any, once Done is closed.
	Err() error
}

// Player starts playback of recordings. Start never blocks on the audio itself.
type Player interface {
	Start(ctx context.Context, rec *model.Recording) Handle
}

// handle is the Handle shared by the players in this package.
type handle struct {
	done      chan struct{}
	abort     chan struct{}
	abortOnce sync.Once
	doneOnce  sync.Once

	mu  sync.Mutex
	err error
}

func newHandle() *handle {
	return &handle{done: make(chan struct{}), abort: make(chan struct{})}
}

func (h *handle) Done() <-chan struct{} { return h.done }

func (h *handle) Abort() {
	h.abortOnce.Do(func() { close(h.abort) })
	<-h.done
}

// bind derives a context that is also cancelled by Abort, so spooling,
// probing and the output process all stop with the handle.
func (h *handle) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-h.abort:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func (h *handle) aborted() bool {
	select {
	case <-h.abort:
		return true
	default:
		return false
	}
}

func (h *handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *handle) finish(err error) {
	h.doneOnce.Do(func() {
		h.mu.Lock()
		h.err = err
		h.mu.Unlock()
		close(h.done)
	})
}

// Finished returns a Handle that is already done with err.
func Finished(err error) Handle {
	h := newHandle()
	h.finish(err)
	return h
}
