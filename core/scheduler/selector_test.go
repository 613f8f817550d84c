package scheduler

import (
	"slices"
	"testing"

	"cuetrainer/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recs(ids ...string) []*model.Recording {
	out := make([]*model.Recording, len(ids))
	for i, id := range ids {
		out[i] = &model.Recording{ID: id, Name: id}
	}
	return out
}

func names(cues []Cue) []string {
	out := make([]string, len(cues))
	for i, c := range cues {
		out[i] = c.Recording.ID
	}
	return out
}

func TestResolveDelayBounds(t *testing.T) {
	r := NewResolver(seeded())
	for i := 0; i < 500; i++ {
		d := r.ResolveDelay(5, 2)
		assert.GreaterOrEqual(t, d, 2.0)
		assert.Less(t, d, 5.0)
	}
	assert.Equal(t, 3.0, r.ResolveDelay(3, 3))
	assert.Equal(t, 0.0, r.ResolveDelay(0, 0))
	assert.Equal(t, 0.0, r.ResolveDelay(-2, -1))
}

func TestResolveExactDelay(t *testing.T) {
	r := NewResolver(seeded())
	assert.Equal(t, ExactTimingFallback, r.ResolveExactDelay(nil))
	assert.Equal(t, 1.0, r.ResolveExactDelay([]float64{}))

	list := []float64{0, 2.5, 4}
	for i := 0; i < 100; i++ {
		assert.Contains(t, list, r.ResolveExactDelay(list))
	}
}

func TestSelectRoundRobin(t *testing.T) {
	phase := &model.Phase{Type: model.PhaseTypeRoundRobin, MinDelay: 1, MaxDelay: 3, SoundRepetitions: 2}
	cues := slices.Collect(Select(phase, recs("A", "B", "C"), NewResolver(seeded())))

	require.Len(t, cues, 6)
	assert.Equal(t, []string{"A", "A", "B", "B", "C", "C"}, names(cues))
	for _, c := range cues {
		assert.GreaterOrEqual(t, c.Delay, 1.0)
		assert.Less(t, c.Delay, 3.0)
	}
}

func TestSelectRoundRobinZeroRepetitionsCountsAsOne(t *testing.T) {
	phase := &model.Phase{Type: model.PhaseTypeRoundRobin}
	cues := slices.Collect(Select(phase, recs("A", "B"), NewResolver(seeded())))
	assert.Equal(t, []string{"A", "B"}, names(cues))
}

func TestSelectExactTiming(t *testing.T) {
	phase := &model.Phase{
		Type:         model.PhaseTypeExactTiming,
		ExactTimings: model.TimingMap{"A": {2, 4}, "B": {}},
	}
	r := NewResolver(seeded())
	for i := 0; i < 50; i++ {
		cues := slices.Collect(Select(phase, recs("A", "B", "C"), r))
		require.Len(t, cues, 3)
		assert.Equal(t, []string{"A", "B", "C"}, names(cues))
		assert.Contains(t, []float64{2, 4}, cues[0].Delay)
		assert.Equal(t, 1.0, cues[1].Delay)
		assert.Equal(t, 1.0, cues[2].Delay)
	}
}

func TestSelectRandom(t *testing.T) {
	phase := &model.Phase{Type: model.PhaseTypeRandom, MinDelay: 4, MaxDelay: 1}
	r := NewResolver(seeded())
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		cues := slices.Collect(Select(phase, recs("A", "B"), r))
		require.Len(t, cues, 1)
		assert.GreaterOrEqual(t, cues[0].Delay, 1.0)
		assert.Less(t, cues[0].Delay, 4.0)
		seen[cues[0].Recording.ID] = true
	}
	assert.True(t, seen["A"] && seen["B"])
}

func TestSelectEmpty(t *testing.T) {
	phase := &model.Phase{Type: model.PhaseTypeRandom}
	assert.Empty(t, slices.Collect(Select(phase, nil, NewResolver(seeded()))))
}

func TestSelectStopsEarly(t *testing.T) {
	phase := &model.Phase{Type: model.PhaseTypeRoundRobin, SoundRepetitions: 3}
	n := 0
	for range Select(phase, recs("A", "B"), NewResolver(seeded())) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestResolveRecordingsSkipsMissing(t *testing.T) {
	store := newFakeStore()
	store.rec("A", "C")
	phase := &model.Phase{RecordingIDs: model.IDList{"A", "B", "C"}}
	got := ResolveRecordings(phase, store.Recording)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].ID)
	assert.Equal(t, "C", got[1].ID)
}
