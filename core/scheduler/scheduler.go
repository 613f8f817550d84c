// Package scheduler walks trainings, exercises and phases, waiting and
// playing cues one at a time. At most one run is active per Scheduler.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"cuetrainer/core/apperr"
	"cuetrainer/core/audio"
	"cuetrainer/logger"
	"cuetrainer/model"

	"github.com/google/uuid"
)

// DefaultTick is the countdown refresh interval for timed exercises.
const DefaultTick = 100 * time.Millisecond

// Store is the read side of the entity store. Lookups return snapshots that
// the scheduler may keep for the rest of a step.
type Store interface {
	Recording(id string) (*model.Recording, bool)
	Phase(id string) (*model.Phase, bool)
	Exercise(id string) (*model.Exercise, bool)
	Training(id string) (*model.Training, bool)
}

// StatusPoster shows transient user-facing messages.
type StatusPoster interface {
	Post(kind model.StatusKind, text string)
}

// HistorySink records completed trainings.
type HistorySink interface {
	AppendHistory(entry *model.TrainingHistoryEntry) error
}

// Options configures a Scheduler. Zero values pick the real clock, a
// time-seeded rand source, DefaultTick and no status, history or mirror.
type Options struct {
	Clock   Clock
	Rand    *rand.Rand
	Status  StatusPoster
	History HistorySink
	Tick    time.Duration
	Mirror  ProgressMirror
}

var errPhaseUnplayable = errors.New("phase is no longer playable")

// Scheduler owns the single playback session.
type Scheduler struct {
	store    Store
	player   audio.Player
	clock    Clock
	resolver *Resolver
	status   StatusPoster
	history  HistorySink
	tick     time.Duration
	hub      *Hub

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu      sync.Mutex
	session *session
}

// New 创建调度器
func New(store Store, player audio.Player, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		store:      store,
		player:     player,
		clock:      opts.Clock,
		resolver:   NewResolver(opts.Rand),
		status:     opts.Status,
		history:    opts.History,
		tick:       opts.Tick,
		hub:        NewHub(),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
	if opts.Mirror != nil {
		go runMirror(ctx, s.hub, opts.Mirror)
	}
	return s
}

// Close stops any active run and the progress mirror.
func (s *Scheduler) Close() {
	s.Stop()
	s.baseCancel()
}

// Snapshot returns the latest progress snapshot.
func (s *Scheduler) Snapshot() model.ProgressSnapshot {
	return s.hub.Latest()
}

// State returns the state of the latest snapshot.
func (s *Scheduler) State() model.RunState {
	return s.hub.Latest().State
}

// Active reports whether a run currently holds the session.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// Watchers is the number of live progress subscriptions.
func (s *Scheduler) Watchers() int {
	return s.hub.Watchers()
}

// Subscribe returns a latest-value watcher of progress snapshots.
func (s *Scheduler) Subscribe() (<-chan model.ProgressSnapshot, func()) {
	return s.hub.Watch()
}

// Stop cancels the active run. The in-flight wait or playback is interrupted
// before Stop returns and the progress resets to an idle Stopped snapshot.
// It reports whether a run was active.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	sess := s.session
	if sess == nil {
		s.mu.Unlock()
		return false
	}
	sess.cancelled = true
	sess.cancel()
	h := sess.handle
	sess.handle = nil
	s.session = nil
	sess.run.settle(model.RunStateStopped)
	s.hub.Publish(model.ProgressSnapshot{State: model.RunStateStopped})
	s.mu.Unlock()

	if h != nil {
		h.Abort()
	}
	logger.Info("播放已停止", logger.String("runId", sess.runID), logger.String("kind", string(sess.kind)))
	s.post(model.StatusInfo, kindTitle(sess.kind)+" stopped")
	return true
}

// RunPhase loops one phase until stopped.
func (s *Scheduler) RunPhase(id string) (*Run, error) {
	if s.Active() {
		return nil, s.reject(apperr.ErrAlreadyPlaying)
	}
	phase, ok := s.store.Phase(id)
	if !ok {
		return nil, s.reject(apperr.NotFound("phase", id))
	}
	if len(ResolveRecordings(phase, s.store.Recording)) == 0 {
		return nil, s.reject(apperr.NothingToPlay("Phase has no playable recordings"))
	}

	return s.launch(model.RunKindPhase, phase.Name, func(sess *session) error {
		return s.loopPhase(sess, phase.ID)
	}, nil)
}

// RunExercise plays one exercise to completion.
func (s *Scheduler) RunExercise(id string) (*Run, error) {
	if s.Active() {
		return nil, s.reject(apperr.ErrAlreadyPlaying)
	}
	ex, ok := s.store.Exercise(id)
	if !ok {
		return nil, s.reject(apperr.NotFound("exercise", id))
	}
	plan, err := s.planExercise(ex)
	if err != nil {
		return nil, s.reject(err)
	}

	return s.launch(model.RunKindExercise, ex.Name, func(sess *session) error {
		return s.playExercise(sess, plan, 0, 0)
	}, nil)
}

// RunTraining plays each resolvable exercise of a training in order and
// records a history entry when it finishes without being stopped.
func (s *Scheduler) RunTraining(id string) (*Run, error) {
	if s.Active() {
		return nil, s.reject(apperr.ErrAlreadyPlaying)
	}
	training, ok := s.store.Training(id)
	if !ok {
		return nil, s.reject(apperr.NotFound("training", id))
	}
	exercises := s.resolveExercises(training)
	if !s.anyPlannable(exercises) {
		return nil, s.reject(apperr.NothingToPlay("Training has no playable exercises"))
	}

	started := s.clock.Now()
	record := func() *model.TrainingHistoryEntry {
		now := s.clock.Now()
		return &model.TrainingHistoryEntry{
			ID:            uuid.NewString(),
			TrainingID:    training.ID,
			CompletedAt:   now,
			Duration:      now.Sub(started).Seconds(),
			ExerciseCount: len(exercises),
		}
	}

	return s.launch(model.RunKindTraining, training.Name, func(sess *session) error {
		return s.playTraining(sess, exercises)
	}, record)
}

// launch takes the session, publishes Starting and runs body on its own goroutine.
func (s *Scheduler) launch(kind model.RunKind, label string, body func(*session) error, record func() *model.TrainingHistoryEntry) (*Run, error) {
	ctx, cancel := context.WithCancel(s.baseCtx)
	runID := uuid.NewString()
	sess := &session{
		runID:      runID,
		kind:       kind,
		label:      label,
		ctx:        ctx,
		cancel:     cancel,
		run:        newRun(runID, kind),
		record:     record,
	}

	s.mu.Lock()
	if s.session != nil {
		s.mu.Unlock()
		cancel()
		return nil, s.reject(apperr.ErrAlreadyPlaying)
	}
	s.session = sess
	sess.progress = s.hub.Publish(model.ProgressSnapshot{
		RunID:    runID,
		Kind:     kind,
		State:    model.RunStateStarting,
		RunLabel: label,
	})
	s.mu.Unlock()

	logger.Info("开始播放", logger.String("runId", runID), logger.String("kind", string(kind)), logger.String("label", label))
	s.post(model.StatusRecording, "Playing "+label+"...")

	go func() {
		err := s.run(sess, body)
		s.finish(sess, err)
	}()
	return sess.run, nil
}

func (s *Scheduler) run(sess *session, body func(*session) error) error {
	if !s.update(sess, func(p *model.ProgressSnapshot) { p.State = model.RunStateRunning }) {
		return context.Canceled
	}
	return body(sess)
}

// finish is the natural end of a run. A run already stopped was reset by Stop.
func (s *Scheduler) finish(sess *session, err error) {
	defer close(sess.run.done)

	s.mu.Lock()
	if sess.cancelled || s.session != sess {
		s.mu.Unlock()
		return
	}
	s.session = nil
	sess.cancel()

	state := model.RunStateCompleted
	line := kindTitle(sess.kind) + " completed!"
	var entry *model.TrainingHistoryEntry
	if err != nil {
		state = model.RunStateStopped
		line = kindTitle(sess.kind) + " stopped: " + err.Error()
	} else if sess.record != nil {
		entry = sess.record()
	}
	sess.run.settle(state)
	s.hub.Publish(model.ProgressSnapshot{State: state, StatusLine: line})
	s.mu.Unlock()

	if err != nil {
		logger.Warn("播放异常结束", logger.String("runId", sess.runID), logger.ErrorField(err))
		s.post(model.StatusError, line)
		return
	}
	if entry != nil && s.history != nil {
		if err := s.history.AppendHistory(entry); err != nil {
			logger.Error("保存训练记录失败", logger.String("trainingId", entry.TrainingID), logger.ErrorField(err))
		}
	}
	logger.Info("播放完成", logger.String("runId", sess.runID), logger.String("kind", string(sess.kind)))
	s.post(model.StatusSuccess, line)
}

// update mutates and republishes the session's progress unless the run was stopped.
func (s *Scheduler) update(sess *session, fn func(p *model.ProgressSnapshot)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.cancelled || s.session != sess {
		return false
	}
	fn(&sess.progress)
	sess.progress = s.hub.Publish(sess.progress)
	return true
}

func (s *Scheduler) check(sess *session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.cancelled || s.session != sess {
		return context.Canceled
	}
	return sess.ctx.Err()
}

// wait is the pause before a cue.
func (s *Scheduler) wait(sess *session, delay float64) error {
	ok := s.update(sess, func(p *model.ProgressSnapshot) {
		p.CurrentRecordingID = ""
		p.CurrentRecordingName = ""
		p.StatusLine = fmt.Sprintf("Waiting %.1fs", delay)
	})
	if !ok {
		return context.Canceled
	}
	if err := s.clock.Sleep(sess.ctx, seconds(delay)); err != nil {
		return err
	}
	return s.check(sess)
}

// play plays rec to completion. Playback failures are logged and count as done.
func (s *Scheduler) play(sess *session, rec *model.Recording, line string) error {
	ok := s.update(sess, func(p *model.ProgressSnapshot) {
		p.CurrentRecordingID = rec.ID
		p.CurrentRecordingName = rec.Name
		p.StatusLine = line
	})
	if !ok {
		return context.Canceled
	}

	h := s.player.Start(sess.ctx, rec)
	s.mu.Lock()
	if sess.cancelled {
		s.mu.Unlock()
		h.Abort()
		return context.Canceled
	}
	sess.handle = h
	s.mu.Unlock()

	select {
	case <-h.Done():
	case <-sess.ctx.Done():
		h.Abort()
	}

	s.mu.Lock()
	if sess.handle == h {
		sess.handle = nil
	}
	s.mu.Unlock()

	if err := s.check(sess); err != nil {
		return err
	}
	if err := h.Err(); err != nil {
		logger.Warn("录音播放失败，跳过",
			logger.String("runId", sess.runID),
			logger.String("recordingId", rec.ID),
			logger.ErrorField(err))
	}
	return nil
}

func (s *Scheduler) reject(err error) error {
	s.post(model.StatusError, apperr.Message(err))
	return err
}

func (s *Scheduler) post(kind model.StatusKind, text string) {
	if s.status != nil {
		s.status.Post(kind, text)
	}
}

func kindTitle(kind model.RunKind) string {
	switch kind {
	case model.RunKindPhase:
		return "Phase"
	case model.RunKindTraining:
		return "Training"
	default:
		return "Exercise"
	}
}
