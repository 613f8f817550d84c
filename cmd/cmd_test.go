package cmd

import (
	"testing"

	"cuetrainer/config"
	"cuetrainer/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayTarget(t *testing.T) {
	reset := func() { playPhase, playExercise, playTraining = "", "", "" }
	t.Cleanup(reset)

	reset()
	_, _, err := playTarget()
	assert.Error(t, err)

	playExercise = "ex-1"
	kind, id, err := playTarget()
	require.NoError(t, err)
	assert.Equal(t, model.RunKindExercise, kind)
	assert.Equal(t, "ex-1", id)

	playTraining = "tr-1"
	_, _, err = playTarget()
	assert.Error(t, err)
}

func TestDescribeSnapshot(t *testing.T) {
	assert.Equal(t, "Playing: Cue", describeSnapshot(model.ProgressSnapshot{StatusLine: "Playing: Cue"}))
	assert.Equal(t, "[2/3 Warmup] Waiting (12s)", describeSnapshot(model.ProgressSnapshot{
		StatusLine:       "Waiting",
		ExerciseName:     "Warmup",
		ExerciseIndex:    2,
		TotalExercises:   3,
		RemainingSeconds: 12,
	}))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2*1024*1024))
}

func TestNewPlayerRejectsUnknownMode(t *testing.T) {
	_, err := newPlayer(&config.Config{PlaybackMode: "speaker"}, nil)
	assert.Error(t, err)
}

func TestNewAppInMemory(t *testing.T) {
	a, err := newApp(&config.Config{SpoolDir: t.TempDir(), PlaybackMode: "clock"}, appOptions{})
	require.NoError(t, err)
	defer a.close()

	assert.Nil(t, a.cache)
	assert.Nil(t, a.repo)
	assert.Equal(t, 0, a.lib.Counts()["recordings"])
	assert.Equal(t, model.RunStateIdle, a.sched.State())
}
