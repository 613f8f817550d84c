package library

import (
	"context"
	"sort"
	"time"

	"cuetrainer/core/apperr"
	"cuetrainer/model"
	"cuetrainer/repository"

	"github.com/google/uuid"
)

// AppendHistory records a completed training. Entries are never edited.
func (l *Library) AppendHistory(entry *model.TrainingHistoryEntry) error {
	e := *entry
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CompletedAt.IsZero() {
		e.CompletedAt = l.now()
	}

	l.mu.Lock()
	l.history.put(e.ID, &e)
	l.mu.Unlock()

	saved := e
	l.persist.enqueue("append history", func(ctx context.Context, repo repository.LibraryRepository) error {
		return repo.CreateHistory(ctx, &saved)
	})
	return nil
}

// History lists entries, newest first.
func (l *Library) History() []*model.TrainingHistoryEntry {
	l.mu.RLock()
	out := l.history.list(func(e *model.TrainingHistoryEntry) *model.TrainingHistoryEntry {
		c := *e
		return &c
	})
	l.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out
}

// DeleteHistory 删除单条训练记录
func (l *Library) DeleteHistory(id string) error {
	if n := l.DeleteHistoryEntries(id); n == 0 {
		return apperr.NotFound("history entry", id)
	}
	return nil
}

// DeleteHistoryEntries removes the given entries and returns how many existed.
func (l *Library) DeleteHistoryEntries(ids ...string) int {
	var removed []string
	l.mu.Lock()
	for _, id := range ids {
		if _, ok := l.history.remove(id); ok {
			removed = append(removed, id)
		}
	}
	l.mu.Unlock()

	if len(removed) > 0 {
		l.persist.enqueue("delete history", func(ctx context.Context, repo repository.LibraryRepository) error {
			return repo.DeleteHistory(ctx, removed...)
		})
	}
	return len(removed)
}

// DeleteHistoryBefore removes every entry completed before cutoff.
func (l *Library) DeleteHistoryBefore(cutoff time.Time) int {
	var ids []string
	l.mu.RLock()
	for _, id := range l.history.order {
		if l.history.items[id].CompletedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	l.mu.RUnlock()
	return l.DeleteHistoryEntries(ids...)
}
