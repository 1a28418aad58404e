// Package ytdlp drives the yt-dlp binary to download one trimmed segment of
// a remote source. Trimming happens at download time through ffmpeg as the
// external downloader, so only the requested span ever hits disk.
package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"clipforge/internal/ports"
	"clipforge/internal/types"
)

const (
	audioFormat = "bestaudio[ext=m4a]"
	videoFormat = "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/best[height<=1080][ext=mp4]"
)

type Adapter struct {
	bin string
}

func New(binPath string) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Adapter{bin: binPath}
}

func (a *Adapter) Extract(ctx context.Context, sourceURL string, span types.TimeRange, kind ports.ExtractKind, dest string) error {
	format := audioFormat
	if kind == ports.ExtractAudioVideo {
		format = videoFormat
	}
	args := []string{
		"-f", format,
		"--external-downloader", "ffmpeg",
		"--external-downloader-args", fmt.Sprintf("ffmpeg_i:-ss %s -to %s",
			types.FormatClock(span.Start), types.FormatClock(span.End)),
		"--no-playlist",
		"-o", dest,
		sourceURL,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		diag := strings.TrimSpace(stderr.String())
		if ctx.Err() != nil {
			return fmt.Errorf("yt-dlp: %w", ctx.Err())
		}
		return &toolError{exit: exitCode(err), stderr: diag, err: err}
	}
	return nil
}

type toolError struct {
	exit   int
	stderr string
	err    error
}

func (e *toolError) Error() string {
	return fmt.Sprintf("yt-dlp exit %d: %s", e.exit, e.stderr)
}

func (e *toolError) Unwrap() error { return e.err }

// Transient reports whether stderr matches a recoverable network failure.
// Anything else (bad URL, removed video, format unavailable) is a hard
// failure the orchestrator must not retry.
func (e *toolError) Transient() bool {
	s := strings.ToLower(e.stderr)
	for _, m := range transientMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func exitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// transientMarkers match the stderr yt-dlp emits on recoverable network
// trouble.
var transientMarkers = []string{
	"connection reset",
	"timed out",
	"temporary failure",
	"http error 5",
	"unable to download webpage",
	"getaddrinfo failed",
}
