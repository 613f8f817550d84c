package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"testing"
	"time"

	"cuetrainer/model"
	"cuetrainer/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// silentWAV builds a 16-bit mono PCM file of the given length.
func silentWAV(t *testing.T, sampleRate int, length time.Duration) []byte {
	t.Helper()
	samples := int(float64(sampleRate) * length.Seconds())
	dataSize := samples * 2

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}

func newTestSpool(t *testing.T, recs map[string][]byte) (*Spool, map[string]*model.Recording) {
	t.Helper()
	store := storage.NewMemoryStore()
	out := make(map[string]*model.Recording)
	for id, data := range recs {
		rec := &model.Recording{ID: id, Name: id, AudioKey: storage.RecordingKey(id), MimeType: "audio/wav"}
		require.NoError(t, store.Put(context.Background(), rec.AudioKey, data, rec.MimeType))
		out[id] = rec
	}
	spool, err := NewSpool(t.TempDir(), store)
	require.NoError(t, err)
	return spool, out
}

func TestProberDecodesWAV(t *testing.T) {
	spool, recs := newTestSpool(t, map[string][]byte{"a": silentWAV(t, 8000, time.Second)})
	path, err := spool.Path(context.Background(), recs["a"])
	require.NoError(t, err)

	d, err := NewProber("ffprobe").Duration(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)
}

func TestSpoolRelease(t *testing.T) {
	spool, recs := newTestSpool(t, map[string][]byte{"a": silentWAV(t, 8000, 100*time.Millisecond)})
	path, err := spool.Path(context.Background(), recs["a"])
	require.NoError(t, err)
	assert.FileExists(t, path)

	again, err := spool.Path(context.Background(), recs["a"])
	require.NoError(t, err)
	assert.Equal(t, path, again)

	spool.Release("a")
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSpoolMissingPayload(t *testing.T) {
	spool, _ := newTestSpool(t, nil)
	_, err := spool.Path(context.Background(), &model.Recording{ID: "x", Name: "x", AudioKey: "recordings/x"})
	var audioErr *Error
	require.ErrorAs(t, err, &audioErr)
	assert.Equal(t, "spool", audioErr.Operation)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestClockPlayerCompletes(t *testing.T) {
	spool, recs := newTestSpool(t, map[string][]byte{"a": silentWAV(t, 8000, 150*time.Millisecond)})
	p := NewClockPlayer(spool, NewProber("ffprobe"))

	start := time.Now()
	h := p.Start(context.Background(), recs["a"])
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("playback did not finish")
	}
	assert.NoError(t, h.Err())
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestClockPlayerAbort(t *testing.T) {
	spool, recs := newTestSpool(t, map[string][]byte{"a": silentWAV(t, 8000, 5*time.Second)})
	p := NewClockPlayer(spool, NewProber("ffprobe"))

	h := p.Start(context.Background(), recs["a"])
	h.Abort()
	assertDone(t, h)
	h.Abort()
	assert.NoError(t, h.Err())
}

// assertDone fails unless h is already finished.
func assertDone(t *testing.T, h Handle) {
	t.Helper()
	select {
	case <-h.Done():
	default:
		t.Fatal("handle still playing after Abort returned")
	}
}

func TestClockPlayerMissingPayloadFails(t *testing.T) {
	spool, _ := newTestSpool(t, nil)
	p := NewClockPlayer(spool, NewProber("ffprobe"))

	h := p.Start(context.Background(), &model.Recording{ID: "gone", Name: "gone", AudioKey: "recordings/gone"})
	<-h.Done()
	assert.Error(t, h.Err())
}

func TestFinishedHandle(t *testing.T) {
	h := Finished(assert.AnError)
	<-h.Done()
	assert.Equal(t, assert.AnError, h.Err())
	h.Abort()
}
