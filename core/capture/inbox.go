// Package capture turns audio files dropped into a watched directory into recordings.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuetrainer/logger"
	"cuetrainer/model"

	"github.com/fsnotify/fsnotify"
)

// Capturer stores a finished capture.
type Capturer interface {
	Capture(ctx context.Context, data []byte, mimeType string) (*model.Recording, error)
	RenameRecording(id, name string) (*model.Recording, error)
}

var mimeByExt = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
	".webm": "audio/webm",
	".m4a":  "audio/mp4",
}

// MimeType returns the audio mime type for path, or "" when the extension is not audio.
func MimeType(path string) string {
	return mimeByExt[strings.ToLower(filepath.Ext(path))]
}

// Inbox watches a directory. A file is captured once it has not changed for
// the settle window, then removed. The recording is named after the file.
type Inbox struct {
	dir    string
	target Capturer
	settle time.Duration
	tick   time.Duration
}

// NewInbox 创建收件箱监听器
func NewInbox(dir string, target Capturer) *Inbox {
	return &Inbox{dir: dir, target: target, settle: 300 * time.Millisecond, tick: 50 * time.Millisecond}
}

// Run blocks until ctx is done.
func (in *Inbox) Run(ctx context.Context) error {
	if err := os.MkdirAll(in.dir, 0755); err != nil {
		return fmt.Errorf("创建收件箱目录失败: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(in.dir); err != nil {
		return fmt.Errorf("监听目录失败: %w", err)
	}
	logger.Info("收件箱监听已启动", logger.String("dir", in.dir))

	// 启动前已存在的文件
	pending := make(map[string]time.Time)
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		return fmt.Errorf("读取收件箱目录失败: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			pending[filepath.Join(in.dir, e.Name())] = time.Time{}
		}
	}
	failed := make(map[string]bool)

	ticker := time.NewTicker(in.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				pending[event.Name] = time.Now()
				delete(failed, event.Name)
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				delete(pending, event.Name)
			}

		case <-ticker.C:
			now := time.Now()
			for path, last := range pending {
				if now.Sub(last) < in.settle {
					continue
				}
				delete(pending, path)
				if failed[path] {
					continue
				}
				if err := in.ingest(ctx, path); err != nil {
					failed[path] = true
					logger.Warn("收件箱文件导入失败", logger.String("file", path), logger.ErrorField(err))
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("文件监听错误", logger.ErrorField(err))
		}
	}
}

func (in *Inbox) ingest(ctx context.Context, path string) error {
	mime := MimeType(path)
	if mime == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rec, err := in.target.Capture(ctx, data, mime)
	if err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if name != "" {
		if renamed, err := in.target.RenameRecording(rec.ID, name); err == nil {
			rec = renamed
		}
	}
	if err := os.Remove(path); err != nil {
		logger.Warn("删除已导入文件失败", logger.String("file", path), logger.ErrorField(err))
	}
	logger.Info("收件箱文件已导入", logger.String("file", path), logger.String("recordingId", rec.ID), logger.String("name", rec.Name))
	return nil
}
