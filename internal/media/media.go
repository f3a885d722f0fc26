// Package media turns a video URL into audio the transcription providers can
// consume: yt-dlp downloads and extracts the best audio track, ffmpeg
// resamples it to 16 kHz mono 16-bit PCM WAV. Each extraction runs in its
// own temp directory which the caller releases with [Audio.Cleanup].
package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// audioExtensions lists the container extensions yt-dlp may produce,
// checked in order when locating the downloaded track.
var audioExtensions = []string{"mp3", "m4a", "wav", "webm", "opus"}

// Audio is one extracted audio track. Path points at a 16 kHz mono 16-bit
// PCM WAV inside a per-job temp directory.
type Audio struct {
	// Path is the absolute path of the converted WAV file.
	Path string

	// Duration is the audio length derived from the WAV data size.
	Duration time.Duration

	dir string
}

// Cleanup removes the job's temp directory, including the WAV file.
// Safe to call more than once.
func (a *Audio) Cleanup() error {
	if a.dir == "" {
		return nil
	}
	return os.RemoveAll(a.dir)
}

// Extractor downloads and converts video audio via external tools.
type Extractor struct {
	ytdlp   string
	ffmpeg  string
	workDir string
	logger  *slog.Logger
}

// Option is a functional option for configuring an [Extractor].
type Option func(*Extractor)

// WithYtdlpPath overrides the yt-dlp binary. Defaults to "yt-dlp" on PATH.
func WithYtdlpPath(path string) Option {
	return func(e *Extractor) { e.ytdlp = path }
}

// WithFFmpegPath overrides the ffmpeg binary. Defaults to "ffmpeg" on PATH.
func WithFFmpegPath(path string) Option {
	return func(e *Extractor) { e.ffmpeg = path }
}

// WithWorkDir sets the parent directory for per-job temp directories.
// Defaults to the system temp directory.
func WithWorkDir(dir string) Option {
	return func(e *Extractor) { e.workDir = dir }
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor builds an Extractor. The external tools are not checked
// until the first extraction.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		ytdlp:  "yt-dlp",
		ffmpeg: "ffmpeg",
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ExtractAudio downloads videoURL's audio track and converts it for
// transcription. The caller owns the returned [Audio] and must call
// Cleanup when done with it. Cancelling ctx kills the external process.
func (e *Extractor) ExtractAudio(ctx context.Context, videoURL string) (*Audio, error) {
	dir, err := os.MkdirTemp(e.workDir, "hantube-audio-*")
	if err != nil {
		return nil, fmt.Errorf("create job dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	e.logger.Info("downloading audio", "url", videoURL)
	if err := e.run(ctx, e.ytdlp,
		"-f", "bestaudio/best",
		"-x", "--audio-format", "mp3", "--audio-quality", "192K",
		"-o", filepath.Join(dir, "audio.%(ext)s"),
		"--quiet", "--no-warnings",
		videoURL,
	); err != nil {
		cleanup()
		return nil, fmt.Errorf("download %s: %w", videoURL, err)
	}

	src, err := findDownloadedAudio(dir)
	if err != nil {
		cleanup()
		return nil, err
	}

	wavPath := filepath.Join(dir, "audio-16k.wav")
	if err := e.run(ctx, e.ffmpeg,
		"-y", "-i", src,
		"-ar", "16000", "-ac", "1", "-acodec", "pcm_s16le",
		wavPath,
	); err != nil {
		cleanup()
		return nil, fmt.Errorf("convert %s: %w", filepath.Base(src), err)
	}

	duration, err := wavDuration(wavPath)
	if err != nil {
		cleanup()
		return nil, err
	}
	e.logger.Info("audio ready", "path", wavPath, "duration", duration)
	return &Audio{Path: wavPath, Duration: duration, dir: dir}, nil
}

// run executes one external tool, folding its stderr into the error so
// failures carry the tool's own diagnostics.
func (e *Extractor) run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// findDownloadedAudio locates the track yt-dlp wrote. The postprocessor
// normally yields audio.mp3, but some sources skip re-encoding and keep the
// container's native extension.
func findDownloadedAudio(dir string) (string, error) {
	for _, ext := range audioExtensions {
		path := filepath.Join(dir, "audio."+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no audio file produced in %s", dir)
}
