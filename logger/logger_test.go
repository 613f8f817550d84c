package logger

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("warn"))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
}

func TestInitLoggerWritesJSONFile(t *testing.T) {
	// 未初始化时调用不应 panic
	Info("before init", String("k", "v"))
	Sync()

	path := filepath.Join(t.TempDir(), "logs", "cuetrainer.log")
	InitLogger(Config{Level: DebugLevel, OutputPath: path, MaxSize: 1})

	Info("播放完成", String("runId", "r1"), Int("count", 2), Duration("elapsed", 1500*time.Millisecond))
	Warn("ignored error", ErrorField(errors.New("boom")))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "info", first["level"])
	assert.Equal(t, "播放完成", first["msg"])
	assert.Equal(t, "r1", first["runId"])
	assert.Equal(t, float64(2), first["count"])
	assert.Equal(t, "1.5s", first["elapsed"])
	assert.Contains(t, lines[1], `"error":"boom"`)
}
