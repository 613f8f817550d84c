package scheduler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"cuetrainer/core/audio"
	"cuetrainer/model"
)

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// fakeClock advances instantly on Sleep.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	log     *eventLog
	quiet   bool // do not log sleeps
	onSleep func(d time.Duration)
}

func newFakeClock(log *eventLog) *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), log: log}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	if !c.quiet {
		c.log.add("wait %s", d)
	}
	if c.onSleep != nil {
		c.onSleep(d)
	}
	return nil
}

// blockingClock parks every sleep until the context is cancelled.
type blockingClock struct {
	entered chan time.Duration
}

func (c *blockingClock) Now() time.Time { return time.Now() }

func (c *blockingClock) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case c.entered <- d:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

// heldHandle stays open until aborted.
type heldHandle struct {
	done    chan struct{}
	once    sync.Once
	aborted bool
	mu      sync.Mutex
}

func newHeldHandle() *heldHandle { return &heldHandle{done: make(chan struct{})} }

func (h *heldHandle) Done() <-chan struct{} { return h.done }
func (h *heldHandle) Err() error            { return nil }
func (h *heldHandle) Abort() {
	h.once.Do(func() {
		h.mu.Lock()
		h.aborted = true
		h.mu.Unlock()
		close(h.done)
	})
}

func (h *heldHandle) wasAborted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.aborted
}

// fakePlayer logs "play <name>". Playback finishes immediately unless hold
// is set; fail marks recordings whose playback errors.
type fakePlayer struct {
	log     *eventLog
	hold    bool
	fail    map[string]bool
	onStart func(rec *model.Recording, n int)

	mu      sync.Mutex
	count   int
	handles []*heldHandle
	started chan *model.Recording
}

func newFakePlayer(log *eventLog) *fakePlayer {
	return &fakePlayer{log: log, started: make(chan *model.Recording, 64)}
}

func (p *fakePlayer) Start(_ context.Context, rec *model.Recording) audio.Handle {
	p.log.add("play %s", rec.Name)
	p.mu.Lock()
	p.count++
	n := p.count
	p.mu.Unlock()

	select {
	case p.started <- rec:
	default:
	}
	if p.onStart != nil {
		p.onStart(rec, n)
	}
	if p.hold {
		h := newHeldHandle()
		p.mu.Lock()
		p.handles = append(p.handles, h)
		p.mu.Unlock()
		return h
	}
	if p.fail[rec.ID] {
		return audio.Finished(fmt.Errorf("decode %s: unsupported", rec.Name))
	}
	return audio.Finished(nil)
}

func (p *fakePlayer) lastHandle() *heldHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.handles) == 0 {
		return nil
	}
	return p.handles[len(p.handles)-1]
}

type fakeStore struct {
	recordings map[string]*model.Recording
	phases     map[string]*model.Phase
	exercises  map[string]*model.Exercise
	trainings  map[string]*model.Training

	// phaseLookups limits how many times a phase id resolves before it
	// reads as deleted.
	mu           sync.Mutex
	phaseLookups map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		recordings: map[string]*model.Recording{},
		phases:     map[string]*model.Phase{},
		exercises:  map[string]*model.Exercise{},
		trainings:  map[string]*model.Training{},

		phaseLookups: map[string]int{},
	}
}

func (s *fakeStore) rec(ids ...string) {
	for _, id := range ids {
		s.recordings[id] = &model.Recording{ID: id, Name: id}
	}
}

func (s *fakeStore) Recording(id string) (*model.Recording, bool) {
	r, ok := s.recordings[id]
	return r.Clone(), ok
}

func (s *fakeStore) Phase(id string) (*model.Phase, bool) {
	s.mu.Lock()
	if left, limited := s.phaseLookups[id]; limited {
		if left <= 0 {
			s.mu.Unlock()
			return nil, false
		}
		s.phaseLookups[id] = left - 1
	}
	s.mu.Unlock()
	p, ok := s.phases[id]
	return p.Clone(), ok
}

func (s *fakeStore) Exercise(id string) (*model.Exercise, bool) {
	e, ok := s.exercises[id]
	return e.Clone(), ok
}

func (s *fakeStore) Training(id string) (*model.Training, bool) {
	t, ok := s.trainings[id]
	return t.Clone(), ok
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []*model.TrainingHistoryEntry
}

func (h *fakeHistory) AppendHistory(e *model.TrainingHistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	return nil
}

func (h *fakeHistory) all() []*model.TrainingHistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*model.TrainingHistoryEntry(nil), h.entries...)
}

type fakeStatus struct {
	mu   sync.Mutex
	msgs []model.StatusMessage
}

func (s *fakeStatus) Post(kind model.StatusKind, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, model.StatusMessage{Kind: kind, Text: text})
}

func (s *fakeStatus) last() model.StatusMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.msgs) == 0 {
		return model.StatusMessage{}
	}
	return s.msgs[len(s.msgs)-1]
}

func (s *fakeStatus) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.msgs))
	for i, m := range s.msgs {
		out[i] = m.Text
	}
	return out
}

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func only(events []string, prefix string) []string {
	var out []string
	for _, e := range events {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			out = append(out, e)
		}
	}
	return out
}
