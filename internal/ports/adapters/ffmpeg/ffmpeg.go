// Package ffmpeg runs the composite transformation: foreground stacked over
// a background layer, captions burned in, music mixed under the speech, all
// clamped to an exact duration. The filter graph is declared with ffmpeg-go
// and executed through exec so the call honors context cancellation.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"clipforge/internal/ports"
)

// Frame geometry of the 1080x1920 vertical composite: foreground fills the
// upper 880 rows, background the lower 1040.
const (
	frameWidth       = "1080"
	foregroundHeight = "880"
	backgroundHeight = "1040"
	cropOffsetX      = "420"

	musicGain  = "0.2"
	speechGain = "1.5"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) Compose(ctx context.Context, spec ports.CompositionSpec) error {
	args := buildComposeArgs(spec)
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg compose: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg compose: %w\n%s", err, strings.TrimSpace(string(b)))
	}
	// A zero exit with no output file still counts as failure; nothing
	// partial may reach the caller.
	if info, err := os.Stat(spec.OutputPath); err != nil || info.Size() == 0 {
		return fmt.Errorf("ffmpeg compose: output file missing or empty: %s", spec.OutputPath)
	}
	return nil
}

// buildComposeArgs declares the composite graph and flattens it to an
// argument array. No shell is ever involved.
func buildComposeArgs(spec ports.CompositionSpec) []string {
	fg := ffmpeggo.Input(spec.ForegroundPath)
	bg := ffmpeggo.Input(spec.BackgroundPath)
	music := ffmpeggo.Input(spec.MusicPath)

	upper := fg.Get("v").
		Filter("scale", ffmpeggo.Args{"-2", foregroundHeight}).
		Filter("crop", ffmpeggo.Args{frameWidth, foregroundHeight, cropOffsetX, "0"})
	lower := bg.Get("v").
		Filter("crop", ffmpeggo.Args{frameWidth, backgroundHeight, cropOffsetX, "0"})
	stacked := ffmpeggo.Filter([]*ffmpeggo.Stream{upper, lower}, "vstack",
		ffmpeggo.Args{}, ffmpeggo.KwArgs{"inputs": 2}).
		Filter("ass", ffmpeggo.Args{escapeFilterPath(spec.CaptionPath)})

	speech := fg.Get("a").Filter("volume", ffmpeggo.Args{speechGain})
	bed := music.Get("a").Filter("volume", ffmpeggo.Args{musicGain})
	mixed := ffmpeggo.Filter([]*ffmpeggo.Stream{speech, bed}, "amix",
		ffmpeggo.Args{}, ffmpeggo.KwArgs{"inputs": 2})

	return ffmpeggo.Output([]*ffmpeggo.Stream{stacked, mixed}, spec.OutputPath, ffmpeggo.KwArgs{
		"c:v": "libx264",
		"c:a": "aac",
		"t":   fmtSeconds(spec.Duration),
	}).OverWriteOutput().GetArgs()
}

func (a *Adapter) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	return p
}
