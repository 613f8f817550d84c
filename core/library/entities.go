package library

import (
	"context"
	"strings"

	"cuetrainer/core/apperr"
	"cuetrainer/model"
	"cuetrainer/repository"

	"github.com/google/uuid"
)

// ========== 阶段 ==========

// CreatePhase validates in and stores it as a new phase.
func (l *Library) CreatePhase(in model.Phase) (*model.Phase, error) {
	l.mu.Lock()
	p, err := l.normalizePhaseLocked(in)
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	now := l.now()
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now
	l.phases.put(p.ID, p)
	out := p.Clone()
	l.mu.Unlock()

	l.savePhase(out)
	return out, nil
}

// UpdatePhase replaces every editable field of phase id.
func (l *Library) UpdatePhase(id string, in model.Phase) (*model.Phase, error) {
	l.mu.Lock()
	cur, ok := l.phases.get(id)
	if !ok {
		l.mu.Unlock()
		return nil, apperr.NotFound("phase", id)
	}
	p, err := l.normalizePhaseLocked(in)
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	p.ID = id
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = l.now()
	l.phases.put(id, p)
	out := p.Clone()
	l.mu.Unlock()

	l.savePhase(out)
	return out, nil
}

// DeletePhase 删除阶段，引用它的练习在播放时跳过
func (l *Library) DeletePhase(id string) error {
	l.mu.Lock()
	_, ok := l.phases.remove(id)
	l.mu.Unlock()
	if !ok {
		return apperr.NotFound("phase", id)
	}
	l.persist.enqueue("delete phase", func(ctx context.Context, repo repository.LibraryRepository) error {
		return repo.DeletePhase(ctx, id)
	})
	return nil
}

func (l *Library) normalizePhaseLocked(in model.Phase) (*model.Phase, error) {
	p := in.Clone()
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, apperr.Validation("Please enter a phase name")
	}
	if p.Type == "" {
		p.Type = model.PhaseTypeRandom
	}
	if !p.Type.Valid() {
		return nil, apperr.Validation("Unknown phase type " + string(p.Type))
	}
	if len(p.RecordingIDs) == 0 {
		return nil, apperr.Validation("Please select at least one recording")
	}
	for _, rid := range p.RecordingIDs {
		if _, ok := l.recordings.get(rid); !ok {
			return nil, apperr.Validation("Unknown recording " + rid)
		}
	}
	if p.MinDelay < 0 || p.MaxDelay < 0 {
		return nil, apperr.Validation("Delays must not be negative")
	}

	switch p.Type {
	case model.PhaseTypeRoundRobin:
		if p.SoundRepetitions < 0 {
			return nil, apperr.Validation("Sound repetitions must be at least 1")
		}
		p.SoundRepetitions = max(p.SoundRepetitions, 1)
		p.ExactTimings = nil
	case model.PhaseTypeExactTiming:
		timings := model.TimingMap{}
		for _, rid := range p.RecordingIDs {
			var valid []float64
			for _, v := range in.ExactTimings[rid] {
				if v >= 0 {
					valid = append(valid, v)
				}
			}
			if len(valid) == 0 {
				return nil, apperr.Validation("Please enter valid timings for every recording")
			}
			timings[rid] = valid
		}
		p.ExactTimings = timings
		p.SoundRepetitions = 1
	default:
		p.SoundRepetitions = 1
		p.ExactTimings = nil
	}
	return p, nil
}

func (l *Library) savePhase(p *model.Phase) {
	l.persist.enqueue("save phase", func(ctx context.Context, repo repository.LibraryRepository) error {
		return repo.SavePhase(ctx, p)
	})
}

// ========== 练习 ==========

// CreateExercise validates in and stores it as a new exercise.
func (l *Library) CreateExercise(in model.Exercise) (*model.Exercise, error) {
	l.mu.Lock()
	e, err := l.normalizeExerciseLocked(in)
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	now := l.now()
	e.ID = uuid.NewString()
	e.CreatedAt, e.UpdatedAt = now, now
	l.exercises.put(e.ID, e)
	out := e.Clone()
	l.mu.Unlock()

	l.saveExercise(out)
	return out, nil
}

// UpdateExercise replaces every editable field of exercise id. The favorite flag is kept.
func (l *Library) UpdateExercise(id string, in model.Exercise) (*model.Exercise, error) {
	l.mu.Lock()
	cur, ok := l.exercises.get(id)
	if !ok {
		l.mu.Unlock()
		return nil, apperr.NotFound("exercise", id)
	}
	e, err := l.normalizeExerciseLocked(in)
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	e.ID = id
	e.IsFavorite = cur.IsFavorite
	e.CreatedAt = cur.CreatedAt
	e.UpdatedAt = l.now()
	l.exercises.put(id, e)
	out := e.Clone()
	l.mu.Unlock()

	l.saveExercise(out)
	return out, nil
}

// ToggleExerciseFavorite 切换收藏
func (l *Library) ToggleExerciseFavorite(id string) (*model.Exercise, error) {
	l.mu.Lock()
	cur, ok := l.exercises.get(id)
	if !ok {
		l.mu.Unlock()
		return nil, apperr.NotFound("exercise", id)
	}
	e := cur.Clone()
	e.IsFavorite = !e.IsFavorite
	e.UpdatedAt = l.now()
	l.exercises.put(id, e)
	out := e.Clone()
	l.mu.Unlock()

	l.saveExercise(out)
	return out, nil
}

// DeleteExercise 删除练习，引用它的训练在播放时跳过
func (l *Library) DeleteExercise(id string) error {
	l.mu.Lock()
	_, ok := l.exercises.remove(id)
	l.mu.Unlock()
	if !ok {
		return apperr.NotFound("exercise", id)
	}
	l.persist.enqueue("delete exercise", func(ctx context.Context, repo repository.LibraryRepository) error {
		return repo.DeleteExercise(ctx, id)
	})
	return nil
}

func (l *Library) normalizeExerciseLocked(in model.Exercise) (*model.Exercise, error) {
	e := in.Clone()
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return nil, apperr.Validation("Please enter an exercise name")
	}
	if e.Type == "" {
		e.Type = model.ExerciseTypePhased
	}

	switch e.Type {
	case model.ExerciseTypePhased:
		if len(e.PhaseIDs) == 0 {
			return nil, apperr.Validation("Please select at least one phase")
		}
		for _, pid := range e.PhaseIDs {
			if _, ok := l.phases.get(pid); !ok {
				return nil, apperr.Validation("Unknown phase " + pid)
			}
		}
		if e.Repetitions < 1 {
			return nil, apperr.Validation("Repetitions must be at least 1")
		}
		e.Duration = 0
	case model.ExerciseTypeTimed:
		if e.Duration <= 0 {
			return nil, apperr.Validation("Duration must be greater than 0")
		}
		e.PhaseIDs = nil
		e.Repetitions = 1
	default:
		return nil, apperr.Validation("Unknown exercise type " + string(e.Type))
	}

	for _, rid := range []string{e.StartRecordingID, e.EndRecordingID} {
		if rid == "" {
			continue
		}
		if _, ok := l.recordings.get(rid); !ok {
			return nil, apperr.Validation("Unknown recording " + rid)
		}
	}
	return e, nil
}

func (l *Library) saveExercise(e *model.Exercise) {
	l.persist.enqueue("save exercise", func(ctx context.Context, repo repository.LibraryRepository) error {
		return repo.SaveExercise(ctx, e)
	})
}

// ========== 训练 ==========

// CreateTraining validates in and stores it as a new training.
func (l *Library) CreateTraining(in model.Training) (*model.Training, error) {
	t, err := normalizeTraining(in)
	if err != nil {
		return nil, err
	}

	now := l.now()
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = now, now

	l.mu.Lock()
	l.trainings.put(t.ID, t)
	out := t.Clone()
	l.mu.Unlock()

	l.saveTraining(out)
	return out, nil
}

// UpdateTraining replaces name and exercise list. The favorite flag is kept.
func (l *Library) UpdateTraining(id string, in model.Training) (*model.Training, error) {
	t, err := normalizeTraining(in)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	cur, ok := l.trainings.get(id)
	if !ok {
		l.mu.Unlock()
		return nil, apperr.NotFound("training", id)
	}
	t.ID = id
	t.IsFavorite = cur.IsFavorite
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = l.now()
	l.trainings.put(id, t)
	out := t.Clone()
	l.mu.Unlock()

	l.saveTraining(out)
	return out, nil
}

// ToggleTrainingFavorite 切换收藏
func (l *Library) ToggleTrainingFavorite(id string) (*model.Training, error) {
	l.mu.Lock()
	cur, ok := l.trainings.get(id)
	if !ok {
		l.mu.Unlock()
		return nil, apperr.NotFound("training", id)
	}
	t := cur.Clone()
	t.IsFavorite = !t.IsFavorite
	t.UpdatedAt = l.now()
	l.trainings.put(id, t)
	out := t.Clone()
	l.mu.Unlock()

	l.saveTraining(out)
	return out, nil
}

// DeleteTraining 删除训练，历史记录保留
func (l *Library) DeleteTraining(id string) error {
	l.mu.Lock()
	_, ok := l.trainings.remove(id)
	l.mu.Unlock()
	if !ok {
		return apperr.NotFound("training", id)
	}
	l.persist.enqueue("delete training", func(ctx context.Context, repo repository.LibraryRepository) error {
		return repo.DeleteTraining(ctx, id)
	})
	return nil
}

// Missing exercise ids are kept; they are skipped when the training runs.
func normalizeTraining(in model.Training) (*model.Training, error) {
	t := in.Clone()
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return nil, apperr.Validation("Please enter a training name")
	}
	if len(t.ExerciseIDs) == 0 {
		return nil, apperr.Validation("Please select at least one exercise")
	}
	return t, nil
}

func (l *Library) saveTraining(t *model.Training) {
	l.persist.enqueue("save training", func(ctx context.Context, repo repository.LibraryRepository) error {
		return repo.SaveTraining(ctx, t)
	})
}
