package scheduler

import (
	"context"
	"sync"

	"cuetrainer/core/audio"
	"cuetrainer/model"
)

// session is the state of the one active run. Fields other than ctx, run and
// kind are guarded by Scheduler.mu.
type session struct {
	runID  string
	kind   model.RunKind
	label  string
	ctx    context.Context
	cancel context.CancelFunc
	run    *Run

	cancelled bool
	handle    audio.Handle
	progress  model.ProgressSnapshot

	// record builds the history entry under Scheduler.mu when the run ends
	// naturally. The entry is appended after the lock is released.
	record func() *model.TrainingHistoryEntry
}

// Run is the caller's view of a started run.
type Run struct {
	ID   string
	Kind model.RunKind

	done    chan struct{}
	mu      sync.Mutex
	outcome model.RunState
}

func newRun(id string, kind model.RunKind) *Run {
	return &Run{ID: id, Kind: kind, done: make(chan struct{}), outcome: model.RunStateRunning}
}

// Done is closed when the run's goroutine has returned.
func (r *Run) Done() <-chan struct{} { return r.done }

// Outcome is Completed or Stopped once Done is closed.
func (r *Run) Outcome() model.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome
}

func (r *Run) settle(state model.RunState) {
	r.mu.Lock()
	r.outcome = state
	r.mu.Unlock()
}
