// Package library is the entity store: recordings, phases, exercises,
// trainings and training history. Reads return copies; every mutation is
// written to the repository asynchronously when one is configured.
package library

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cuetrainer/logger"
	"cuetrainer/model"
	"cuetrainer/repository"
	"cuetrainer/storage"
)

// Library 训练库
type Library struct {
	mu         sync.RWMutex
	recordings *table[model.Recording]
	phases     *table[model.Phase]
	exercises  *table[model.Exercise]
	trainings  *table[model.Training]
	history    *table[model.TrainingHistoryEntry]

	audio   storage.AudioStore
	persist *persister
	now     func() time.Time

	removedMu sync.RWMutex
	onRemoved []func(recordingID string)
}

// Option customises a Library.
type Option func(*Library)

// WithRepository persists every change through repo.
func WithRepository(repo repository.LibraryRepository) Option {
	return func(l *Library) {
		if repo != nil {
			l.persist = newPersister(repo)
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// New 创建训练库；audio 为 nil 时使用内存存储
func New(audio storage.AudioStore, opts ...Option) *Library {
	if audio == nil {
		audio = storage.NewMemoryStore()
	}
	l := &Library{
		recordings: newTable[model.Recording](),
		phases:     newTable[model.Phase](),
		exercises:  newTable[model.Exercise](),
		trainings:  newTable[model.Training](),
		history:    newTable[model.TrainingHistoryEntry](),
		audio:      audio,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.persist == nil {
		l.persist = newPersister(nil)
	}
	return l
}

// Load replaces the in-memory state with what the repository holds.
func (l *Library) Load(ctx context.Context, repo repository.LibraryRepository) error {
	snap, err := repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load library: %w", err)
	}

	l.mu.Lock()
	l.resetLocked()
	l.fillLocked(snap)
	l.mu.Unlock()

	logger.Info("训练库加载完成",
		logger.Int("recordings", len(snap.Recordings)),
		logger.Int("phases", len(snap.Phases)),
		logger.Int("exercises", len(snap.Exercises)),
		logger.Int("trainings", len(snap.Trainings)),
		logger.Int("history", len(snap.History)))
	return nil
}

// Flush waits for pending persistence.
func (l *Library) Flush() {
	l.persist.flush()
}

// Close flushes and stops the persistence worker.
func (l *Library) Close() {
	l.persist.close()
}

// OnRecordingRemoved registers fn to run after a recording is deleted or
// the library is cleared, e.g. to release cached playback files.
func (l *Library) OnRecordingRemoved(fn func(recordingID string)) {
	l.removedMu.Lock()
	l.onRemoved = append(l.onRemoved, fn)
	l.removedMu.Unlock()
}

func (l *Library) notifyRemoved(ids ...string) {
	l.removedMu.RLock()
	hooks := append([]func(string){}, l.onRemoved...)
	l.removedMu.RUnlock()
	for _, id := range ids {
		for _, fn := range hooks {
			fn(id)
		}
	}
}

// ========== 查询（调度器使用） ==========

func (l *Library) Recording(id string) (*model.Recording, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.recordings.get(id)
	return r.Clone(), ok
}

func (l *Library) Phase(id string) (*model.Phase, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.phases.get(id)
	return p.Clone(), ok
}

func (l *Library) Exercise(id string) (*model.Exercise, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.exercises.get(id)
	return e.Clone(), ok
}

func (l *Library) Training(id string) (*model.Training, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.trainings.get(id)
	return t.Clone(), ok
}

// ========== 列表 ==========

// Recordings lists recordings in creation order, optionally only those carrying label.
func (l *Library) Recordings(label string) []*model.Recording {
	l.mu.RLock()
	defer l.mu.RUnlock()
	all := l.recordings.list((*model.Recording).Clone)
	if label == "" {
		return all
	}
	out := all[:0]
	for _, r := range all {
		if r.Labels.Has(label) {
			out = append(out, r)
		}
	}
	return out
}

// Labels returns every label in use, in first-seen order.
func (l *Library) Labels() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var set model.LabelSet
	for _, id := range l.recordings.order {
		for _, label := range l.recordings.items[id].Labels {
			set = set.Add(label)
		}
	}
	return []string(set)
}

func (l *Library) Phases() []*model.Phase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.phases.list((*model.Phase).Clone)
}

// Exercises lists exercises; favoritesOnly keeps only favorites.
func (l *Library) Exercises(favoritesOnly bool) []*model.Exercise {
	l.mu.RLock()
	defer l.mu.RUnlock()
	all := l.exercises.list((*model.Exercise).Clone)
	if !favoritesOnly {
		return all
	}
	out := all[:0]
	for _, e := range all {
		if e.IsFavorite {
			out = append(out, e)
		}
	}
	return out
}

// Trainings lists trainings; favoritesOnly keeps only favorites.
func (l *Library) Trainings(favoritesOnly bool) []*model.Training {
	l.mu.RLock()
	defer l.mu.RUnlock()
	all := l.trainings.list((*model.Training).Clone)
	if !favoritesOnly {
		return all
	}
	out := all[:0]
	for _, t := range all {
		if t.IsFavorite {
			out = append(out, t)
		}
	}
	return out
}

// EstimateDuration sums the durations of the training's timed exercises, in
// seconds. Phased exercises depend on random delays and count as zero.
func (l *Library) EstimateDuration(t *model.Training) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := 0.0
	for _, id := range t.ExerciseIDs {
		if ex, ok := l.exercises.get(id); ok && ex.Type == model.ExerciseTypeTimed {
			total += ex.Duration
		}
	}
	return total
}

// Counts 各类实体数量
func (l *Library) Counts() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return map[string]int{
		"recordings": l.recordings.len(),
		"phases":     l.phases.len(),
		"exercises":  l.exercises.len(),
		"trainings":  l.trainings.len(),
		"history":    l.history.len(),
	}
}

// ========== 清空 ==========

// Clear deletes every entity, payload and history entry.
func (l *Library) Clear(ctx context.Context) error {
	l.mu.Lock()
	recs := l.recordings.list((*model.Recording).Clone)
	l.resetLocked()
	l.mu.Unlock()

	ids := make([]string, len(recs))
	var firstErr error
	for i, r := range recs {
		ids[i] = r.ID
		if err := l.audio.Delete(ctx, r.AudioKey); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("delete audio %s: %w", r.ID, err)
		}
	}
	l.persist.enqueue("clear", func(ctx context.Context, repo repository.LibraryRepository) error {
		return repo.ClearAll(ctx)
	})
	l.notifyRemoved(ids...)

	logger.Info("训练库已清空", logger.Int("recordings", len(recs)))
	return firstErr
}

func (l *Library) resetLocked() {
	l.recordings.reset()
	l.phases.reset()
	l.exercises.reset()
	l.trainings.reset()
	l.history.reset()
}

func (l *Library) fillLocked(snap *repository.LibrarySnapshot) {
	for _, r := range snap.Recordings {
		l.recordings.put(r.ID, r.Clone())
	}
	for _, p := range snap.Phases {
		l.phases.put(p.ID, p.Clone())
	}
	for _, e := range snap.Exercises {
		l.exercises.put(e.ID, e.Clone())
	}
	for _, t := range snap.Trainings {
		l.trainings.put(t.ID, t.Clone())
	}
	for _, h := range snap.History {
		entry := *h
		l.history.put(h.ID, &entry)
	}
}
