package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cuetrainer/logger"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Prober measures how long a spooled audio file plays.
type Prober struct {
	ffprobePath string
}

// NewProber 创建时长探测器，ffprobe 用于 beep 无法解码的格式（如 webm/opus）
func NewProber(ffprobePath string) *Prober {
	return &Prober{ffprobePath: ffprobePath}
}

// Duration decodes the file header with beep when the container is supported
// and falls back to ffprobe otherwise.
func (p *Prober) Duration(ctx context.Context, path string) (time.Duration, error) {
	d, err := decodeDuration(path)
	if err == nil {
		return d, nil
	}
	logger.Debug("beep 无法解析时长，回退到 ffprobe", logger.String("path", path), logger.ErrorField(err))
	return p.ffprobeDuration(ctx, path)
}

func decodeDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	default:
		f.Close()
		return 0, fmt.Errorf("unsupported container %s", filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return 0, err
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()), nil
}

// ffprobeOutput defines the structure for ffprobe JSON output.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (p *Prober) ffprobeDuration(ctx context.Context, path string) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	}
	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", path, err, stderr.String())
	}

	var probeData ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output for %s: %w", path, err)
	}
	// MediaRecorder webm output often has no duration header.
	if probeData.Format.Duration == "" || probeData.Format.Duration == "N/A" {
		return 0, fmt.Errorf("duration not found in ffprobe output for %s", path)
	}

	secs, err := strconv.ParseFloat(probeData.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration string %q for %s: %w", probeData.Format.Duration, path, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
