package scheduler

import (
	"fmt"
	"math"
	"time"

	"cuetrainer/core/apperr"
	"cuetrainer/logger"
	"cuetrainer/model"
)

// exercisePlan is an exercise resolved against the store at the moment it starts.
type exercisePlan struct {
	exercise *model.Exercise
	phases   []*model.Phase
	start    *model.Recording
	end      *model.Recording
}

func (s *Scheduler) planExercise(ex *model.Exercise) (*exercisePlan, error) {
	plan := &exercisePlan{exercise: ex}

	switch ex.Type {
	case model.ExerciseTypeTimed:
		if ex.Duration <= 0 {
			return nil, apperr.NothingToPlay("Exercise has no duration")
		}
	default:
		for _, id := range ex.PhaseIDs {
			if p, ok := s.store.Phase(id); ok {
				plan.phases = append(plan.phases, p)
			}
		}
		if len(plan.phases) == 0 {
			return nil, apperr.NothingToPlay("No valid phases found in exercise")
		}
	}

	if ex.StartRecordingID != "" {
		plan.start, _ = s.store.Recording(ex.StartRecordingID)
	}
	if ex.EndRecordingID != "" {
		plan.end, _ = s.store.Recording(ex.EndRecordingID)
	}
	return plan, nil
}

// playExercise runs one exercise. index and total are its position inside a
// training, zero when it runs on its own.
func (s *Scheduler) playExercise(sess *session, plan *exercisePlan, index, total int) error {
	ex := plan.exercise
	ok := s.update(sess, func(p *model.ProgressSnapshot) {
		p.ExerciseName = ex.Name
		p.ExerciseIndex = index
		p.TotalExercises = total
		p.CurrentPhaseName = ""
		p.CurrentRepetition = 0
		p.TotalRepetitions = 0
		p.CurrentPhaseIndex = 0
		p.TotalPhaseCount = 0
		p.RemainingSeconds = 0
		p.StatusLine = ex.Name
	})
	if !ok {
		return s.check(sess)
	}

	if plan.start != nil {
		if err := s.play(sess, plan.start, "Start sound"); err != nil {
			return err
		}
	}

	var err error
	if ex.Type == model.ExerciseTypeTimed {
		err = s.countdown(sess, seconds(ex.Duration))
	} else {
		err = s.playPhased(sess, plan)
	}
	if err != nil {
		return err
	}

	if plan.end != nil {
		if err := s.play(sess, plan.end, "End sound"); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) playPhased(sess *session, plan *exercisePlan) error {
	reps := max(plan.exercise.Repetitions, 1)
	for rep := 1; rep <= reps; rep++ {
		for i, phase := range plan.phases {
			ok := s.update(sess, func(p *model.ProgressSnapshot) {
				p.CurrentRepetition = rep
				p.TotalRepetitions = reps
				p.CurrentPhaseIndex = i + 1
				p.TotalPhaseCount = len(plan.phases)
				p.CurrentPhaseName = phase.Name
				p.StatusLine = fmt.Sprintf("Repetition %d/%d: %s", rep, reps, phase.Name)
			})
			if !ok {
				return s.check(sess)
			}
			if _, err := s.traverse(sess, phase.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// traverse plays one pass of a phase, looked up afresh. A phase that is gone
// or has no resolvable recordings is skipped and reports zero cues.
func (s *Scheduler) traverse(sess *session, phaseID string) (int, error) {
	phase, ok := s.store.Phase(phaseID)
	if !ok {
		logger.Debug("阶段不存在，跳过", logger.String("runId", sess.runID), logger.String("phaseId", phaseID))
		return 0, nil
	}
	recs := ResolveRecordings(phase, s.store.Recording)
	if len(recs) == 0 {
		logger.Debug("阶段没有可用录音，跳过", logger.String("runId", sess.runID), logger.String("phaseId", phaseID))
		return 0, nil
	}

	played := 0
	for cue := range Select(phase, recs, s.resolver) {
		if err := s.wait(sess, cue.Delay); err != nil {
			return played, err
		}
		if err := s.play(sess, cue.Recording, "Playing "+cue.Recording.Name); err != nil {
			return played, err
		}
		played++
	}
	return played, nil
}

// loopPhase repeats traversals of a standalone phase until the run is stopped.
func (s *Scheduler) loopPhase(sess *session, phaseID string) error {
	for n := 1; ; n++ {
		phase, ok := s.store.Phase(phaseID)
		if !ok {
			return errPhaseUnplayable
		}
		ok = s.update(sess, func(p *model.ProgressSnapshot) {
			p.CurrentPhaseName = phase.Name
			p.CurrentPhaseIndex = 1
			p.TotalPhaseCount = 1
			p.CurrentRepetition = n
			p.StatusLine = phase.Name
		})
		if !ok {
			return s.check(sess)
		}
		played, err := s.traverse(sess, phaseID)
		if err != nil {
			return err
		}
		if played == 0 {
			return errPhaseUnplayable
		}
	}
}

// countdown counts from total to zero, refreshing every tick and publishing
// whenever the visible whole-second value changes.
func (s *Scheduler) countdown(sess *session, total time.Duration) error {
	deadline := s.clock.Now().Add(total)
	shown := -1
	for {
		remaining := max(deadline.Sub(s.clock.Now()), 0)
		secs := int(math.Ceil(remaining.Seconds()))
		if secs != shown {
			shown = secs
			ok := s.update(sess, func(p *model.ProgressSnapshot) {
				p.RemainingSeconds = secs
				p.StatusLine = fmt.Sprintf("%ds remaining", secs)
			})
			if !ok {
				return s.check(sess)
			}
		}
		if remaining <= 0 {
			return nil
		}
		if err := s.clock.Sleep(sess.ctx, min(s.tick, remaining)); err != nil {
			return err
		}
		if err := s.check(sess); err != nil {
			return err
		}
	}
}
