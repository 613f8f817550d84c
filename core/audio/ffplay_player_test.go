//go:build !windows

package audio

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFFplay writes a script that records its pid, ignores SIGTERM and
// keeps "playing" for a long time.
func stubFFplay(t *testing.T) (bin, pidFile string) {
	t.Helper()
	dir := t.TempDir()
	pidFile = filepath.Join(dir, "ffplay.pid")
	bin = filepath.Join(dir, "ffplay")
	script := "#!/bin/sh\ntrap '' TERM\necho $$ > " + pidFile + "\nexec sleep 30\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0755))
	return bin, pidFile
}

func TestFFplayPlayerAbortKillsProcess(t *testing.T) {
	bin, pidFile := stubFFplay(t)
	spool, recs := newTestSpool(t, map[string][]byte{"a": silentWAV(t, 8000, 100*time.Millisecond)})
	p := NewFFplayPlayer(bin, spool)

	h := p.Start(context.Background(), recs["a"])
	var pid int
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(pidFile)
		if err != nil {
			return false
		}
		pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	h.Abort()
	assertDone(t, h)
	assert.NoError(t, h.Err())
	assert.ErrorIs(t, syscall.Kill(pid, 0), syscall.ESRCH)
}

func TestFFplayPlayerReportsFailure(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "ffplay")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nexit 3\n"), 0755))
	spool, recs := newTestSpool(t, map[string][]byte{"a": silentWAV(t, 8000, 100*time.Millisecond)})

	h := NewFFplayPlayer(bin, spool).Start(context.Background(), recs["a"])
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("playback did not finish")
	}
	var audioErr *Error
	require.ErrorAs(t, h.Err(), &audioErr)
	assert.Equal(t, "play", audioErr.Operation)
}
