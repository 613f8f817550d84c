package library

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"cuetrainer/core/apperr"
	"cuetrainer/logger"
	"cuetrainer/model"
	"cuetrainer/repository"
	"cuetrainer/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// DefaultMimeType is assumed when a capture does not say what it is.
const DefaultMimeType = "audio/webm"

// Checksum 计算音频内容摘要
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Capture stores a finished capture as a new recording named "Recording N",
// N being the current count plus one.
func (l *Library) Capture(ctx context.Context, data []byte, mimeType string) (*model.Recording, error) {
	if len(data) == 0 {
		return nil, apperr.Capture("Recording is empty", nil)
	}
	if mimeType == "" {
		mimeType = DefaultMimeType
	}

	id := uuid.NewString()
	key := storage.RecordingKey(id)
	if err := l.audio.Put(ctx, key, data, mimeType); err != nil {
		return nil, apperr.Capture("Could not save recording", err)
	}

	now := l.now()
	l.mu.Lock()
	rec := &model.Recording{
		ID:        id,
		Name:      fmt.Sprintf("Recording %d", l.recordings.len()+1),
		AudioKey:  key,
		MimeType:  mimeType,
		Size:      int64(len(data)),
		Checksum:  Checksum(data),
		Labels:    model.LabelSet{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	l.recordings.put(id, rec)
	out := rec.Clone()
	l.mu.Unlock()

	l.saveRecording(out)
	logger.Info("录音已保存", logger.String("recordingId", id), logger.String("name", out.Name), logger.Int64("size", out.Size))
	return out, nil
}

// RenameRecording 重命名录音
func (l *Library) RenameRecording(id, name string) (*model.Recording, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("Please enter a recording name")
	}
	return l.updateRecording(id, func(r *model.Recording) { r.Name = name })
}

// SetLabels replaces the recording's labels. Empty and duplicate labels are dropped.
func (l *Library) SetLabels(id string, labels []string) (*model.Recording, error) {
	set := model.LabelSet{}
	for _, label := range labels {
		set = set.Add(strings.TrimSpace(label))
	}
	return l.updateRecording(id, func(r *model.Recording) { r.Labels = set })
}

// AddLabel 添加标签
func (l *Library) AddLabel(id, label string) (*model.Recording, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, apperr.Validation("Please enter a label")
	}
	return l.updateRecording(id, func(r *model.Recording) { r.Labels = r.Labels.Add(label) })
}

// RemoveLabel 删除标签
func (l *Library) RemoveLabel(id, label string) (*model.Recording, error) {
	return l.updateRecording(id, func(r *model.Recording) { r.Labels = r.Labels.Remove(label) })
}

func (l *Library) updateRecording(id string, fn func(r *model.Recording)) (*model.Recording, error) {
	l.mu.Lock()
	cur, ok := l.recordings.get(id)
	if !ok {
		l.mu.Unlock()
		return nil, apperr.NotFound("recording", id)
	}
	next := cur.Clone()
	fn(next)
	next.UpdatedAt = l.now()
	l.recordings.put(id, next)
	out := next.Clone()
	l.mu.Unlock()

	l.saveRecording(out)
	return out, nil
}

// DeleteRecording removes the recording and its payload. Phases that still
// reference it skip it at play time.
func (l *Library) DeleteRecording(ctx context.Context, id string) error {
	l.mu.Lock()
	rec, ok := l.recordings.remove(id)
	l.mu.Unlock()
	if !ok {
		return apperr.NotFound("recording", id)
	}

	if err := l.audio.Delete(ctx, rec.AudioKey); err != nil {
		logger.Warn("删除录音音频失败", logger.String("recordingId", id), logger.ErrorField(err))
	}
	l.persist.enqueue("delete recording", func(ctx context.Context, repo repository.LibraryRepository) error {
		return repo.DeleteRecording(ctx, id)
	})
	l.notifyRemoved(id)
	return nil
}

// Audio returns the payload and mime type of a recording.
func (l *Library) Audio(ctx context.Context, id string) ([]byte, string, error) {
	rec, ok := l.Recording(id)
	if !ok {
		return nil, "", apperr.NotFound("recording", id)
	}
	data, err := l.audio.Get(ctx, rec.AudioKey)
	if err != nil {
		return nil, "", fmt.Errorf("load audio %s: %w", id, err)
	}
	return data, rec.MimeType, nil
}

func (l *Library) saveRecording(rec *model.Recording) {
	l.persist.enqueue("save recording", func(ctx context.Context, repo repository.LibraryRepository) error {
		return repo.SaveRecording(ctx, rec)
	})
}
