package audio

import (
	"bytes"
	"context"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
)

// ErrNoAudio is returned when ffprobe finds no playable audio stream
var ErrNoAudio = errors.New("file contains no audio")

// ProbeResult is what ffprobe reports about an uploaded track
type ProbeResult struct {
	Duration int // seconds, rounded
	Codec    string
}

// Probe copies r to a temp file and runs ffprobe on it for the duration and
// the codec of the first audio stream
func Probe(ctx context.Context, r io.Reader, ext string) (*ProbeResult, error) {
	tempDir, err := os.MkdirTemp("", "audio-probe-")
	if err != nil {
		return nil, errors.Wrap(err, "create temp dir")
	}
	defer os.RemoveAll(tempDir)

	inFile := filepath.Join(tempDir, "input"+ext)
	f, err := os.Create(inFile)
	if err != nil {
		return nil, errors.Wrap(err, "create temp file")
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "write temp file")
	}
	if err := f.Close(); err != nil {
		return nil, errors.Wrap(err, "close temp file")
	}

	codec, err := runCommand(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inFile)
	if err != nil {
		return nil, errors.Wrap(err, "probe codec")
	}
	codec = strings.TrimSpace(codec)
	if codec == "" {
		return nil, ErrNoAudio
	}

	result := &ProbeResult{Codec: codec}
	durationStr, err := runCommand(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inFile)
	if err != nil {
		log.WithError(err).Warn("failed to extract duration")
	} else if d, err := strconv.ParseFloat(strings.TrimSpace(durationStr), 64); err == nil {
		result.Duration = int(math.Round(d))
	}
	if result.Duration <= 0 {
		return nil, ErrNoAudio
	}

	log.WithFields(log.Fields{"codec": codec, "duration": result.Duration}).Debug("probed audio")
	return result, nil
}

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", errors.Wrapf(err, "%s: %s", name, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
