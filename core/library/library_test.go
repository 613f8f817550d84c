package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"cuetrainer/core/apperr"
	"cuetrainer/model"
	"cuetrainer/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRepo 记录调用顺序的仓库替身
type recordingRepo struct {
	mu    sync.Mutex
	calls []string
	snap  *repository.LibrarySnapshot
}

func (r *recordingRepo) record(call string) error {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
	return nil
}

func (r *recordingRepo) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recordingRepo) SaveRecording(_ context.Context, rec *model.Recording) error {
	return r.record("save recording " + rec.Name)
}
func (r *recordingRepo) DeleteRecording(_ context.Context, id string) error {
	return r.record("delete recording")
}
func (r *recordingRepo) SavePhase(_ context.Context, p *model.Phase) error {
	return r.record("save phase " + p.Name)
}
func (r *recordingRepo) DeletePhase(context.Context, string) error { return r.record("delete phase") }
func (r *recordingRepo) SaveExercise(_ context.Context, e *model.Exercise) error {
	return r.record("save exercise " + e.Name)
}
func (r *recordingRepo) DeleteExercise(context.Context, string) error {
	return r.record("delete exercise")
}
func (r *recordingRepo) SaveTraining(_ context.Context, t *model.Training) error {
	return r.record("save training " + t.Name)
}
func (r *recordingRepo) DeleteTraining(context.Context, string) error {
	return r.record("delete training")
}
func (r *recordingRepo) CreateHistory(context.Context, *model.TrainingHistoryEntry) error {
	return r.record("create history")
}
func (r *recordingRepo) DeleteHistory(context.Context, ...string) error {
	return r.record("delete history")
}
func (r *recordingRepo) DeleteHistoryBefore(context.Context, time.Time) (int64, error) {
	return 0, r.record("delete history before")
}
func (r *recordingRepo) LoadAll(context.Context) (*repository.LibrarySnapshot, error) {
	if r.snap == nil {
		return nil, errors.New("no snapshot")
	}
	return r.snap, nil
}
func (r *recordingRepo) ClearAll(context.Context) error { return r.record("clear") }
func (r *recordingRepo) ReplaceAll(context.Context, *repository.LibrarySnapshot) error {
	return r.record("replace")
}

func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newTestLibrary(t *testing.T, opts ...Option) *Library {
	t.Helper()
	opts = append([]Option{WithClock(fixedClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)))}, opts...)
	l := New(nil, opts...)
	t.Cleanup(l.Close)
	return l
}

func capture(t *testing.T, l *Library, payload string) *model.Recording {
	t.Helper()
	rec, err := l.Capture(context.Background(), []byte(payload), "")
	require.NoError(t, err)
	return rec
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %T", err)
	assert.Equal(t, kind, e.Kind)
}

func TestCaptureNamesSequentially(t *testing.T) {
	l := newTestLibrary(t)

	r1 := capture(t, l, "one")
	r2 := capture(t, l, "two")

	assert.Equal(t, "Recording 1", r1.Name)
	assert.Equal(t, "Recording 2", r2.Name)
	assert.Equal(t, DefaultMimeType, r1.MimeType)
	assert.Equal(t, int64(3), r1.Size)
	assert.Equal(t, Checksum([]byte("one")), r1.Checksum)

	data, mime, err := l.Audio(context.Background(), r2.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)
	assert.Equal(t, DefaultMimeType, mime)
}

func TestCaptureRejectsEmptyPayload(t *testing.T) {
	l := newTestLibrary(t)
	_, err := l.Capture(context.Background(), nil, "audio/wav")
	assertKind(t, err, apperr.KindCapture)
	assert.Empty(t, l.Recordings(""))
}

func TestReadsReturnCopies(t *testing.T) {
	l := newTestLibrary(t)
	rec := capture(t, l, "x")

	got, ok := l.Recording(rec.ID)
	require.True(t, ok)
	got.Name = "mutated"
	got.Labels = append(got.Labels, "sneaky")

	again, _ := l.Recording(rec.ID)
	assert.Equal(t, "Recording 1", again.Name)
	assert.Empty(t, again.Labels)
}

func TestRecordingLabels(t *testing.T) {
	l := newTestLibrary(t)
	a := capture(t, l, "a")
	b := capture(t, l, "b")

	_, err := l.AddLabel(a.ID, "left")
	require.NoError(t, err)
	_, err = l.AddLabel(a.ID, "left")
	require.NoError(t, err)
	_, err = l.SetLabels(b.ID, []string{"right", " ", "left", "right"})
	require.NoError(t, err)

	got, _ := l.Recording(a.ID)
	assert.Equal(t, model.LabelSet{"left"}, got.Labels)
	got, _ = l.Recording(b.ID)
	assert.Equal(t, model.LabelSet{"right", "left"}, got.Labels)

	assert.Equal(t, []string{"left", "right"}, l.Labels())
	assert.Len(t, l.Recordings("left"), 2)
	assert.Len(t, l.Recordings("right"), 1)

	_, err = l.RemoveLabel(b.ID, "right")
	require.NoError(t, err)
	assert.Len(t, l.Recordings("right"), 0)

	_, err = l.AddLabel(a.ID, "  ")
	assertKind(t, err, apperr.KindValidation)
}

func TestRenameRecording(t *testing.T) {
	l := newTestLibrary(t)
	rec := capture(t, l, "a")

	_, err := l.RenameRecording(rec.ID, "   ")
	assertKind(t, err, apperr.KindValidation)

	renamed, err := l.RenameRecording(rec.ID, " Left hook ")
	require.NoError(t, err)
	assert.Equal(t, "Left hook", renamed.Name)

	_, err = l.RenameRecording("missing", "x")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteRecordingNotifiesAndKeepsPhases(t *testing.T) {
	l := newTestLibrary(t)
	a := capture(t, l, "a")
	b := capture(t, l, "b")
	p, err := l.CreatePhase(model.Phase{Name: "P", RecordingIDs: model.IDList{a.ID, b.ID}})
	require.NoError(t, err)

	var removed []string
	l.OnRecordingRemoved(func(id string) { removed = append(removed, id) })

	require.NoError(t, l.DeleteRecording(context.Background(), a.ID))
	assert.Equal(t, []string{a.ID}, removed)

	_, _, err = l.Audio(context.Background(), a.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	phase, ok := l.Phase(p.ID)
	require.True(t, ok)
	assert.Equal(t, model.IDList{a.ID, b.ID}, phase.RecordingIDs)

	assert.ErrorIs(t, l.DeleteRecording(context.Background(), a.ID), apperr.ErrNotFound)
}

func TestCreatePhaseValidation(t *testing.T) {
	l := newTestLibrary(t)
	rec := capture(t, l, "a")

	cases := []struct {
		name  string
		phase model.Phase
		msg   string
	}{
		{"no name", model.Phase{RecordingIDs: model.IDList{rec.ID}}, "Please enter a phase name"},
		{"no recordings", model.Phase{Name: "P"}, "Please select at least one recording"},
		{"unknown recording", model.Phase{Name: "P", RecordingIDs: model.IDList{"nope"}}, "Unknown recording nope"},
		{"negative delay", model.Phase{Name: "P", RecordingIDs: model.IDList{rec.ID}, MinDelay: -1}, "Delays must not be negative"},
		{"bad type", model.Phase{Name: "P", Type: "shuffle", RecordingIDs: model.IDList{rec.ID}}, "Unknown phase type shuffle"},
		{"missing timings", model.Phase{Name: "P", Type: model.PhaseTypeExactTiming, RecordingIDs: model.IDList{rec.ID}}, "Please enter valid timings for every recording"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.CreatePhase(tc.phase)
			assertKind(t, err, apperr.KindValidation)
			assert.Equal(t, tc.msg, apperr.Message(err))
		})
	}
	assert.Empty(t, l.Phases())
}

func TestCreatePhaseNormalizes(t *testing.T) {
	l := newTestLibrary(t)
	a := capture(t, l, "a")
	b := capture(t, l, "b")

	random, err := l.CreatePhase(model.Phase{Name: " Warmup ", RecordingIDs: model.IDList{a.ID}, MinDelay: 1, MaxDelay: 3, SoundRepetitions: 7})
	require.NoError(t, err)
	assert.Equal(t, "Warmup", random.Name)
	assert.Equal(t, model.PhaseTypeRandom, random.Type)
	assert.Equal(t, 1, random.SoundRepetitions)
	assert.NotEmpty(t, random.ID)

	rr, err := l.CreatePhase(model.Phase{Name: "RR", Type: model.PhaseTypeRoundRobin, RecordingIDs: model.IDList{a.ID, b.ID}})
	require.NoError(t, err)
	assert.Equal(t, 1, rr.SoundRepetitions)

	exact, err := l.CreatePhase(model.Phase{
		Name:         "Exact",
		Type:         model.PhaseTypeExactTiming,
		RecordingIDs: model.IDList{a.ID, b.ID},
		ExactTimings: model.TimingMap{a.ID: {1, -2, 3}, b.ID: {0.5}, "stale": {9}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.TimingMap{a.ID: {1, 3}, b.ID: {0.5}}, exact.ExactTimings)
}

func TestUpdatePhaseKeepsIdentity(t *testing.T) {
	l := newTestLibrary(t)
	a := capture(t, l, "a")
	p, err := l.CreatePhase(model.Phase{Name: "P", RecordingIDs: model.IDList{a.ID}})
	require.NoError(t, err)

	updated, err := l.UpdatePhase(p.ID, model.Phase{Name: "P2", RecordingIDs: model.IDList{a.ID}, MaxDelay: 4})
	require.NoError(t, err)
	assert.Equal(t, p.ID, updated.ID)
	assert.Equal(t, p.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(p.UpdatedAt))
	assert.Equal(t, 4.0, updated.MaxDelay)

	_, err = l.UpdatePhase("missing", model.Phase{Name: "x", RecordingIDs: model.IDList{a.ID}})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestExerciseValidationAndFavorites(t *testing.T) {
	l := newTestLibrary(t)
	a := capture(t, l, "a")
	p, err := l.CreatePhase(model.Phase{Name: "P", RecordingIDs: model.IDList{a.ID}})
	require.NoError(t, err)

	_, err = l.CreateExercise(model.Exercise{Name: "E"})
	assert.Equal(t, "Please select at least one phase", apperr.Message(err))
	_, err = l.CreateExercise(model.Exercise{Name: "T", Type: model.ExerciseTypeTimed})
	assert.Equal(t, "Duration must be greater than 0", apperr.Message(err))
	_, err = l.CreateExercise(model.Exercise{Name: "E", PhaseIDs: model.IDList{"ghost"}})
	assert.Equal(t, "Unknown phase ghost", apperr.Message(err))

	ex, err := l.CreateExercise(model.Exercise{Name: "E", PhaseIDs: model.IDList{p.ID}, Repetitions: 3})
	require.NoError(t, err)
	assert.Equal(t, model.ExerciseTypePhased, ex.Type)
	assert.False(t, ex.IsFavorite)

	timed, err := l.CreateExercise(model.Exercise{Name: "Hold", Type: model.ExerciseTypeTimed, Duration: 30})
	require.NoError(t, err)

	toggled, err := l.ToggleExerciseFavorite(ex.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsFavorite)

	favs := l.Exercises(true)
	require.Len(t, favs, 1)
	assert.Equal(t, ex.ID, favs[0].ID)
	assert.Len(t, l.Exercises(false), 2)

	updated, err := l.UpdateExercise(ex.ID, model.Exercise{Name: "E2", PhaseIDs: model.IDList{p.ID}, Repetitions: 1})
	require.NoError(t, err)
	assert.True(t, updated.IsFavorite)

	training, err := l.CreateTraining(model.Training{Name: "Day", ExerciseIDs: model.IDList{ex.ID, timed.ID, timed.ID}})
	require.NoError(t, err)
	assert.Equal(t, 60.0, l.EstimateDuration(training))
}

func TestTrainingValidation(t *testing.T) {
	l := newTestLibrary(t)

	_, err := l.CreateTraining(model.Training{ExerciseIDs: model.IDList{"x"}})
	assert.Equal(t, "Please enter a training name", apperr.Message(err))
	_, err = l.CreateTraining(model.Training{Name: "T"})
	assert.Equal(t, "Please select at least one exercise", apperr.Message(err))

	tr, err := l.CreateTraining(model.Training{Name: "T", ExerciseIDs: model.IDList{"x"}})
	require.NoError(t, err)
	toggled, err := l.ToggleTrainingFavorite(tr.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsFavorite)
	assert.Len(t, l.Trainings(true), 1)

	require.NoError(t, l.DeleteTraining(tr.ID))
	assert.ErrorIs(t, l.DeleteTraining(tr.ID), apperr.ErrNotFound)
}

func TestHistory(t *testing.T) {
	l := newTestLibrary(t)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, l.AppendHistory(&model.TrainingHistoryEntry{ID: "old", TrainingID: "t1", CompletedAt: base}))
	require.NoError(t, l.AppendHistory(&model.TrainingHistoryEntry{ID: "new", TrainingID: "t1", CompletedAt: base.Add(48 * time.Hour)}))
	require.NoError(t, l.AppendHistory(&model.TrainingHistoryEntry{TrainingID: "t2"}))

	history := l.History()
	require.Len(t, history, 3)
	assert.Equal(t, "new", history[0].ID)
	assert.NotEmpty(t, history[1].ID)
	assert.Equal(t, "t2", history[1].TrainingID)
	assert.Equal(t, "old", history[2].ID)

	assert.Equal(t, 1, l.DeleteHistoryBefore(base.Add(time.Hour)))
	assert.ErrorIs(t, l.DeleteHistory("old"), apperr.ErrNotFound)
	require.NoError(t, l.DeleteHistory("new"))
	assert.Len(t, l.History(), 1)
}

func TestClearRemovesEverything(t *testing.T) {
	l := newTestLibrary(t)
	a := capture(t, l, "a")
	_, err := l.CreatePhase(model.Phase{Name: "P", RecordingIDs: model.IDList{a.ID}})
	require.NoError(t, err)
	require.NoError(t, l.AppendHistory(&model.TrainingHistoryEntry{TrainingID: "t"}))

	var removed []string
	l.OnRecordingRemoved(func(id string) { removed = append(removed, id) })

	require.NoError(t, l.Clear(context.Background()))
	for name, n := range l.Counts() {
		assert.Zero(t, n, name)
	}
	assert.Equal(t, []string{a.ID}, removed)
}

func TestPersistenceIsOrdered(t *testing.T) {
	repo := &recordingRepo{}
	l := newTestLibrary(t, WithRepository(repo))

	a := capture(t, l, "a")
	_, err := l.CreatePhase(model.Phase{Name: "P", RecordingIDs: model.IDList{a.ID}})
	require.NoError(t, err)
	require.NoError(t, l.DeleteRecording(context.Background(), a.ID))
	l.Flush()

	assert.Equal(t, []string{"save recording Recording 1", "save phase P", "delete recording"}, repo.Calls())
}

func TestLoadReplacesState(t *testing.T) {
	repo := &recordingRepo{snap: &repository.LibrarySnapshot{
		Recordings: []*model.Recording{{ID: "r1", Name: "Stored"}},
		Phases:     []*model.Phase{{ID: "p1", Name: "Stored phase", RecordingIDs: model.IDList{"r1"}}},
	}}
	l := newTestLibrary(t)
	capture(t, l, "transient")

	require.NoError(t, l.Load(context.Background(), repo))
	recs := l.Recordings("")
	require.Len(t, recs, 1)
	assert.Equal(t, "Stored", recs[0].Name)
	_, ok := l.Phase("p1")
	assert.True(t, ok)

	assert.Error(t, l.Load(context.Background(), &recordingRepo{}))
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestLibrary(t)
	a := capture(t, src, "alpha-bytes")
	b, err := src.Capture(ctx, []byte{0, 1, 2, 255}, "audio/wav")
	require.NoError(t, err)
	_, err = src.AddLabel(a.ID, "left")
	require.NoError(t, err)
	p, err := src.CreatePhase(model.Phase{Name: "P", Type: model.PhaseTypeRoundRobin, RecordingIDs: model.IDList{a.ID, b.ID}, SoundRepetitions: 2})
	require.NoError(t, err)
	ex, err := src.CreateExercise(model.Exercise{Name: "E", PhaseIDs: model.IDList{p.ID}, Repetitions: 2, StartRecordingID: b.ID})
	require.NoError(t, err)
	tr, err := src.CreateTraining(model.Training{Name: "T", ExerciseIDs: model.IDList{ex.ID}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.WriteBundle(ctx, &buf))

	dst := newTestLibrary(t)
	capture(t, dst, "to be replaced")
	require.NoError(t, dst.Import(ctx, buf.Bytes()))

	recs := dst.Recordings("")
	require.Len(t, recs, 2)
	for _, want := range []*model.Recording{a, b} {
		got, ok := dst.Recording(want.ID)
		require.True(t, ok)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.MimeType, got.MimeType)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt))

		wantData, _, err := src.Audio(ctx, want.ID)
		require.NoError(t, err)
		gotData, _, err := dst.Audio(ctx, want.ID)
		require.NoError(t, err)
		assert.Equal(t, wantData, gotData)
	}
	gotA, _ := dst.Recording(a.ID)
	assert.Equal(t, model.LabelSet{"left"}, gotA.Labels)

	gotPhase, ok := dst.Phase(p.ID)
	require.True(t, ok)
	assert.Equal(t, p.RecordingIDs, gotPhase.RecordingIDs)
	assert.Equal(t, 2, gotPhase.SoundRepetitions)

	gotEx, ok := dst.Exercise(ex.ID)
	require.True(t, ok)
	assert.Equal(t, b.ID, gotEx.StartRecordingID)
	_, ok = dst.Training(tr.ID)
	assert.True(t, ok)
}

func TestImportRejectsInvalidBundleWithoutChanges(t *testing.T) {
	l := newTestLibrary(t)
	rec := capture(t, l, "keep me")

	bad := []string{
		`not json`,
		`{"recordings":[],"phases":[],"exercises":[]}`,
		`{"version":1,"phases":[],"exercises":[]}`,
		`{"version":1,"recordings":[],"phases":null,"exercises":[]}`,
		`{"version":2,"recordings":[],"phases":[],"exercises":[]}`,
		`{"version":1,"recordings":[{"id":"r","audioData":"data:audio/webm;base64,@@@"}],"phases":[],"exercises":[]}`,
	}
	for _, doc := range bad {
		err := l.Import(context.Background(), []byte(doc))
		assert.ErrorIs(t, err, apperr.ErrInvalidBundle, doc)
	}

	_, ok := l.Recording(rec.ID)
	assert.True(t, ok)
}

func TestImportAcceptsLegacyDocument(t *testing.T) {
	doc := map[string]any{
		"version":    1,
		"exportDate": "2024-01-02T03:04:05.000Z",
		"recordings": []map[string]any{{
			"id":        "r1",
			"name":      "Jab",
			"timestamp": 1704164645000,
			"audioData": EncodeDataURL("audio/webm;codecs=opus", []byte("opus")),
		}},
		"phases":    []map[string]any{{"id": "p1", "name": "P", "minDelay": 1, "maxDelay": 2, "recordingIds": []string{"r1"}}},
		"exercises": []map[string]any{{"id": "e1", "name": "E", "phaseIds": []string{"p1"}}},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	l := newTestLibrary(t)
	require.NoError(t, l.Import(context.Background(), raw))

	rec, ok := l.Recording("r1")
	require.True(t, ok)
	assert.Equal(t, "audio/webm", rec.MimeType)
	assert.Equal(t, time.UnixMilli(1704164645000).UTC(), rec.CreatedAt.UTC())

	p, ok := l.Phase("p1")
	require.True(t, ok)
	assert.Equal(t, model.PhaseTypeRandom, p.Type)
	ex, ok := l.Exercise("e1")
	require.True(t, ok)
	assert.Equal(t, model.ExerciseTypePhased, ex.Type)
	assert.Equal(t, 1, ex.Repetitions)
}

func TestDecodeDataURL(t *testing.T) {
	mime, data, err := DecodeDataURL("data:audio/wav;base64,AAEC")
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", mime)
	assert.Equal(t, []byte{0, 1, 2}, data)

	mime, data, err = DecodeDataURL("AAEC")
	require.NoError(t, err)
	assert.Empty(t, mime)
	assert.Equal(t, []byte{0, 1, 2}, data)

	_, _, err = DecodeDataURL("data:audio/wav,plain")
	assert.Error(t, err)
}
