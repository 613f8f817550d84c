package scheduler

import (
	"iter"

	"cuetrainer/model"
)

// Cue is one "wait, then play" step.
type Cue struct {
	Recording *model.Recording
	Delay     float64 // seconds
}

// ResolveRecordings maps the phase's recording ids through lookup in order,
// dropping ids that no longer resolve.
func ResolveRecordings(phase *model.Phase, lookup func(id string) (*model.Recording, bool)) []*model.Recording {
	recs := make([]*model.Recording, 0, len(phase.RecordingIDs))
	for _, id := range phase.RecordingIDs {
		if rec, ok := lookup(id); ok {
			recs = append(recs, rec)
		}
	}
	return recs
}

// Select yields the cues of one traversal of phase over recs. Draws happen
// lazily as the sequence is consumed, so every traversal is a fresh draw.
//
//	Random:      one cue, random recording, delay in the phase bounds
//	RoundRobin:  each recording soundRepetitions times in order, fresh delay each
//	ExactTiming: each recording once in order, delay from its timing list
func Select(phase *model.Phase, recs []*model.Recording, r *Resolver) iter.Seq[Cue] {
	return func(yield func(Cue) bool) {
		if len(recs) == 0 {
			return
		}
		switch phase.Type {
		case model.PhaseTypeRoundRobin:
			reps := max(phase.SoundRepetitions, 1)
			for _, rec := range recs {
				for range reps {
					if !yield(Cue{Recording: rec, Delay: r.ResolveDelay(phase.MinDelay, phase.MaxDelay)}) {
						return
					}
				}
			}
		case model.PhaseTypeExactTiming:
			for _, rec := range recs {
				if !yield(Cue{Recording: rec, Delay: r.ResolveExactDelay(phase.ExactTimings[rec.ID])}) {
					return
				}
			}
		default:
			rec := recs[r.Pick(len(recs))]
			yield(Cue{Recording: rec, Delay: r.ResolveDelay(phase.MinDelay, phase.MaxDelay)})
		}
	}
}
