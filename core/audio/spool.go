package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cuetrainer/logger"
	"cuetrainer/model"
	"cuetrainer/storage"
)

// Spool materialises recording payloads as local files so external players can open them.
// Release drops the file for a recording that was deleted or replaced.
type Spool struct {
	dir   string
	store storage.AudioStore
	owned bool

	mu    sync.Mutex
	files map[string]string
}

// NewSpool 创建音频缓存目录，dir 为空时使用临时目录
func NewSpool(dir string, store storage.AudioStore) (*Spool, error) {
	owned := false
	if dir == "" {
		tmp, err := os.MkdirTemp("", "cuetrainer-spool-")
		if err != nil {
			return nil, fmt.Errorf("failed to create spool dir: %w", err)
		}
		dir, owned = tmp, true
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool dir %s: %w", dir, err)
	}
	return &Spool{dir: dir, store: store, owned: owned, files: make(map[string]string)}, nil
}

// Path returns a local file holding the recording payload, writing it on first use.
func (s *Spool) Path(ctx context.Context, rec *model.Recording) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.files[rec.ID]; ok {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	data, err := s.store.Get(ctx, rec.AudioKey)
	if err != nil {
		return "", &Error{Operation: "spool", Message: "failed to load " + rec.Name, Err: err}
	}

	p := filepath.Join(s.dir, rec.ID+extensionFor(rec.MimeType))
	if err := os.WriteFile(p, data, 0644); err != nil {
		return "", &Error{Operation: "spool", Message: "failed to write " + rec.Name, Err: err}
	}
	s.files[rec.ID] = p
	return p, nil
}

// Release removes the cached file for a recording.
func (s *Spool) Release(recordingID string) {
	s.mu.Lock()
	p, ok := s.files[recordingID]
	delete(s.files, recordingID)
	s.mu.Unlock()

	if ok {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Warn("删除缓存音频失败", logger.String("path", p), logger.ErrorField(err))
		}
	}
}

// ReleaseAll drops every cached file.
func (s *Spool) ReleaseAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.files))
	for id := range s.files {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.Release(id)
	}
}

// Close releases everything and removes the directory if the spool created it.
func (s *Spool) Close() error {
	s.ReleaseAll()
	if s.owned {
		return os.RemoveAll(s.dir)
	}
	return nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/flac", "audio/x-flac":
		return ".flac"
	case "audio/ogg", "audio/vorbis":
		return ".ogg"
	case "audio/mp4", "audio/aac":
		return ".m4a"
	default:
		return ".webm"
	}
}
