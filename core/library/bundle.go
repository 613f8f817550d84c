package library

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cuetrainer/core/apperr"
	"cuetrainer/logger"
	"cuetrainer/model"
	"cuetrainer/repository"
	"cuetrainer/storage"

	"github.com/google/uuid"
)

// BundleVersion is the only export format version this build reads and writes.
const BundleVersion = 1

// Bundle is the export/import document.
type Bundle struct {
	Version    int                           `json:"version"`
	ExportDate string                        `json:"exportDate"`
	Recordings []BundleRecording             `json:"recordings"`
	Phases     []*model.Phase                `json:"phases"`
	Exercises  []*model.Exercise             `json:"exercises"`
	Trainings  []*model.Training             `json:"trainings,omitempty"`
	History    []*model.TrainingHistoryEntry `json:"history,omitempty"`
}

// BundleRecording carries the payload inline as a data URL.
type BundleRecording struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timestamp Timestamp `json:"timestamp"`
	Labels    []string  `json:"labels,omitempty"`
	MimeType  string    `json:"mimeType,omitempty"`
	AudioData string    `json:"audioData"`
}

// Timestamp reads either an RFC 3339 string or epoch milliseconds and writes RFC 3339.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return err
		}
		t.Time = parsed
		return nil
	}
	ms, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s", s)
	}
	t.Time = time.UnixMilli(int64(ms))
	return nil
}

// Export builds a bundle of the whole library.
func (l *Library) Export(ctx context.Context) (*Bundle, error) {
	l.mu.RLock()
	recs := l.recordings.list((*model.Recording).Clone)
	b := &Bundle{
		Version:    BundleVersion,
		ExportDate: l.now().UTC().Format(time.RFC3339Nano),
		Phases:     l.phases.list((*model.Phase).Clone),
		Exercises:  l.exercises.list((*model.Exercise).Clone),
		Trainings:  l.trainings.list((*model.Training).Clone),
	}
	l.mu.RUnlock()
	b.History = l.History()

	b.Recordings = make([]BundleRecording, 0, len(recs))
	for _, r := range recs {
		data, err := l.audio.Get(ctx, r.AudioKey)
		if err != nil {
			return nil, fmt.Errorf("export recording %s: %w", r.ID, err)
		}
		b.Recordings = append(b.Recordings, BundleRecording{
			ID:        r.ID,
			Name:      r.Name,
			Timestamp: Timestamp{r.CreatedAt},
			Labels:    []string(r.Labels.Clone()),
			MimeType:  r.MimeType,
			AudioData: EncodeDataURL(r.MimeType, data),
		})
	}
	return b, nil
}

// WriteBundle exports the library as indented JSON.
func (l *Library) WriteBundle(ctx context.Context, w io.Writer) error {
	b, err := l.Export(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

type decodedRecording struct {
	rec  *model.Recording
	data []byte
}

// Import replaces the whole library with the bundle in data. The document is
// fully decoded and validated before anything in the library changes.
func (l *Library) Import(ctx context.Context, data []byte) error {
	b, err := ParseBundle(data)
	if err != nil {
		return err
	}

	decoded := make([]decodedRecording, 0, len(b.Recordings))
	for i, br := range b.Recordings {
		mime, payload, err := DecodeDataURL(br.AudioData)
		if err != nil {
			return apperr.InvalidBundle(fmt.Sprintf("recording %d has invalid audio data", i+1), err)
		}
		if br.MimeType != "" {
			mime = br.MimeType
		}
		if mime == "" {
			mime = DefaultMimeType
		}
		id := br.ID
		if id == "" {
			id = uuid.NewString()
		}
		created := br.Timestamp.Time
		if created.IsZero() {
			created = l.now()
		}
		labels := model.LabelSet{}
		for _, label := range br.Labels {
			labels = labels.Add(label)
		}
		decoded = append(decoded, decodedRecording{
			rec: &model.Recording{
				ID:        id,
				Name:      br.Name,
				AudioKey:  storage.RecordingKey(id),
				MimeType:  mime,
				Size:      int64(len(payload)),
				Checksum:  Checksum(payload),
				Labels:    labels,
				CreatedAt: created,
				UpdatedAt: created,
			},
			data: payload,
		})
	}

	if err := l.Clear(ctx); err != nil {
		logger.Warn("导入前清理音频失败", logger.ErrorField(err))
	}

	snap := &repository.LibrarySnapshot{}
	for _, d := range decoded {
		if err := l.audio.Put(ctx, d.rec.AudioKey, d.data, d.rec.MimeType); err != nil {
			return fmt.Errorf("import recording %s: %w", d.rec.ID, err)
		}
		snap.Recordings = append(snap.Recordings, d.rec)
	}
	for _, p := range b.Phases {
		if p == nil || p.ID == "" {
			continue
		}
		if p.Type == "" {
			p.Type = model.PhaseTypeRandom
		}
		if p.SoundRepetitions < 1 {
			p.SoundRepetitions = 1
		}
		snap.Phases = append(snap.Phases, p)
	}
	for _, e := range b.Exercises {
		if e == nil || e.ID == "" {
			continue
		}
		if e.Type == "" {
			e.Type = model.ExerciseTypePhased
		}
		if e.Repetitions < 1 {
			e.Repetitions = 1
		}
		snap.Exercises = append(snap.Exercises, e)
	}
	for _, t := range b.Trainings {
		if t != nil && t.ID != "" {
			snap.Trainings = append(snap.Trainings, t)
		}
	}
	for _, h := range b.History {
		if h != nil && h.ID != "" {
			snap.History = append(snap.History, h)
		}
	}

	l.mu.Lock()
	l.resetLocked()
	l.fillLocked(snap)
	l.mu.Unlock()

	l.persist.enqueue("import", func(ctx context.Context, repo repository.LibraryRepository) error {
		return repo.ReplaceAll(ctx, snap)
	})
	logger.Info("数据导入完成",
		logger.Int("recordings", len(snap.Recordings)),
		logger.Int("phases", len(snap.Phases)),
		logger.Int("exercises", len(snap.Exercises)),
		logger.Int("trainings", len(snap.Trainings)))
	return nil
}

// ParseBundle checks the required top-level keys and the version, then decodes.
func ParseBundle(data []byte) (*Bundle, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperr.InvalidBundle("Invalid data format", err)
	}
	for _, key := range []string{"version", "recordings", "phases", "exercises"} {
		v, ok := raw[key]
		if !ok || len(v) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return nil, apperr.InvalidBundle("Invalid data format: missing "+key, nil)
		}
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, apperr.InvalidBundle("Invalid data format", err)
	}
	if b.Version != BundleVersion {
		return nil, apperr.InvalidBundle(fmt.Sprintf("Unsupported data version %d", b.Version), nil)
	}
	return &b, nil
}

// EncodeDataURL renders data as "data:<mime>;base64,<payload>".
func EncodeDataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL accepts a base64 data URL or bare base64. The mime type is
// empty for bare base64.
func DecodeDataURL(s string) (string, []byte, error) {
	s = strings.TrimSpace(s)
	mimeType := ""
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return "", nil, fmt.Errorf("malformed data URL")
		}
		meta := s[len("data:"):comma]
		if !strings.HasSuffix(meta, ";base64") {
			return "", nil, fmt.Errorf("data URL is not base64 encoded")
		}
		meta = strings.TrimSuffix(meta, ";base64")
		if i := strings.IndexByte(meta, ';'); i >= 0 {
			meta = meta[:i]
		}
		mimeType = meta
		s = s[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", nil, err
	}
	return mimeType, data, nil
}
