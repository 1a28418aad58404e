package ports

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"clipforge/internal/types"
)

type ExtractKind int

const (
	ExtractAudioOnly ExtractKind = iota
	ExtractAudioVideo
)

// SegmentExtractor downloads one trimmed media segment into dest. It never
// retries on its own; transient failures are surfaced to the orchestrator.
type SegmentExtractor interface {
	Extract(ctx context.Context, sourceURL string, span types.TimeRange, kind ExtractKind, dest string) error
}

// DecodeOptions is the per-call tuning surface of the recognition backend.
// Temperatures is an ordered fallback ladder; a single entry means one-shot
// beam search.
type DecodeOptions struct {
	BeamSize      int
	BestOf        int
	Temperatures  []float64
	InitialPrompt string
}

func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{BeamSize: 5, BestOf: 5, Temperatures: []float64{0}}
}

// SpeechRecognizer produces coarse segments and, on demand, word-level
// forced alignment. Align must not alter transcribed text, only timestamps.
type SpeechRecognizer interface {
	Transcribe(ctx context.Context, audioPath string, opts DecodeOptions) (types.Transcript, error)
	Align(ctx context.Context, tr types.Transcript, audioPath string) (types.Transcript, error)
}

type CompositionSpec struct {
	ForegroundPath string
	BackgroundPath string
	MusicPath      string
	CaptionPath    string
	OutputPath     string
	Duration       time.Duration
}

// Compositor runs the single atomic composite transformation.
type Compositor interface {
	Compose(ctx context.Context, spec CompositionSpec) error
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

// IsTransient reports whether an extraction error advertises itself as a
// passing network failure worth a bounded retry. Extractor errors opt in by
// implementing `Transient() bool`.
func IsTransient(err error) bool {
	var t interface{ Transient() bool }
	if errors.As(err, &t) {
		return t.Transient()
	}
	return false
}

// audioContainers is the fixed allow-list of input formats the recognition
// backends accept.
var audioContainers = map[string]struct{}{
	".m4a":  {},
	".mp3":  {},
	".wav":  {},
	".webm": {},
	".ogg":  {},
	".flac": {},
}

// ValidateAudioContainer rejects audio files outside the allow-list before
// any backend is invoked.
func ValidateAudioContainer(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := audioContainers[ext]; !ok {
		return fmt.Errorf("unsupported audio container %q", ext)
	}
	return nil
}
