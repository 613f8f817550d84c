package cache

import (
	"context"
	"testing"
	"time"

	"cuetrainer/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestProgressRoundTrip(t *testing.T) {
	_, client := setupTestRedis(t)
	c := NewPlaybackCache(client)
	ctx := context.Background()

	snap, err := c.LoadProgress(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	want := model.ProgressSnapshot{
		RunID:             "run-1",
		Kind:              model.RunKindExercise,
		State:             model.RunStateRunning,
		CurrentPhaseName:  "Warmup",
		CurrentRepetition: 1,
		TotalRepetitions:  2,
	}
	require.NoError(t, c.MirrorProgress(ctx, want))

	got, err := c.LoadProgress(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestSubscribeProgress(t *testing.T) {
	_, client := setupTestRedis(t)
	c := NewPlaybackCache(client)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := c.SubscribeProgress(ctx)
	require.NoError(t, err)

	require.NoError(t, c.MirrorProgress(ctx, model.ProgressSnapshot{RunID: "r", State: model.RunStateStarting}))

	select {
	case snap := <-ch:
		assert.Equal(t, "r", snap.RunID)
		assert.Equal(t, model.RunStateStarting, snap.State)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
	}
}

func TestStatusExpires(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewPlaybackCache(client)
	ctx := context.Background()

	msg := model.StatusMessage{Text: "Playing Warmup", Kind: model.StatusInfo}
	require.NoError(t, c.MirrorStatus(ctx, msg, 3*time.Second))

	got, err := c.LoadStatus(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Playing Warmup", got.Text)

	mr.FastForward(4 * time.Second)
	got, err = c.LoadStatus(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClearStatus(t *testing.T) {
	_, client := setupTestRedis(t)
	c := NewPlaybackCache(client)
	ctx := context.Background()

	require.NoError(t, c.MirrorStatus(ctx, model.StatusMessage{Text: "x"}, time.Minute))
	require.NoError(t, c.ClearStatus(ctx))
	got, err := c.LoadStatus(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNilClient(t *testing.T) {
	c := NewPlaybackCache(nil)
	assert.Error(t, c.MirrorProgress(context.Background(), model.ProgressSnapshot{}))
	_, err := c.LoadStatus(context.Background())
	assert.Error(t, err)
}
