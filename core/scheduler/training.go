package scheduler

import (
	"errors"

	"cuetrainer/core/apperr"
	"cuetrainer/logger"
	"cuetrainer/model"
)

var errNoExercisePlayed = errors.New("no exercise could be played")

func (s *Scheduler) resolveExercises(t *model.Training) []*model.Exercise {
	out := make([]*model.Exercise, 0, len(t.ExerciseIDs))
	for _, id := range t.ExerciseIDs {
		if ex, ok := s.store.Exercise(id); ok {
			out = append(out, ex)
		}
	}
	return out
}

// anyPlannable reports whether at least one exercise resolves to something playable.
func (s *Scheduler) anyPlannable(exercises []*model.Exercise) bool {
	for _, ex := range exercises {
		if _, err := s.planExercise(ex); err == nil {
			return true
		}
	}
	return false
}

// playTraining runs the exercises back to back. An exercise that cannot be
// planned when its turn comes is skipped with a status message; a training
// where every exercise was skipped ends stopped.
func (s *Scheduler) playTraining(sess *session, exercises []*model.Exercise) error {
	played := 0
	for i, ex := range exercises {
		plan, err := s.planExercise(ex)
		if err != nil {
			logger.Warn("跳过无法播放的练习",
				logger.String("runId", sess.runID),
				logger.String("exerciseId", ex.ID),
				logger.ErrorField(err))
			s.post(model.StatusError, "Skipping "+ex.Name+": "+apperr.Message(err))
			if err := s.check(sess); err != nil {
				return err
			}
			continue
		}
		if err := s.playExercise(sess, plan, i+1, len(exercises)); err != nil {
			return err
		}
		played++
	}
	if played == 0 {
		return errNoExercisePlayed
	}
	return nil
}
