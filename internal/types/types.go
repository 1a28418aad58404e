package types

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TrimEpsilon compensates for the encoder lead-in that the ffmpeg section
// download introduces at the head of the segment.
const TrimEpsilon = 1500 * time.Millisecond

type Mode string

const (
	ModeTranscribeOnly  Mode = "TranscribeOnly"
	ModeExportComposite Mode = "ExportComposite"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeTranscribeOnly, ModeExportComposite:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

type ClipRequest struct {
	SourceURL          string `json:"sourceUrl"`
	StartTime          string `json:"startTime"`
	EndTime            string `json:"endTime"`
	Mode               string `json:"mode"`
	RawCaptionOverride string `json:"rawCaptionOverride,omitempty"`
}

// TimeRange is a validated start/end pair from a ClipRequest.
type TimeRange struct {
	Start time.Duration
	End   time.Duration
}

// ParseTimeRange parses "HH:MM:SS" bounds. Inverted ranges and spans too
// short to survive the trim lead-in are rejected; a TimeRange that parses
// always yields a non-negative ClipDuration.
func ParseTimeRange(start, end string) (TimeRange, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TimeRange{}, fmt.Errorf("startTime: %w", err)
	}
	e, err := ParseClock(end)
	if err != nil {
		return TimeRange{}, fmt.Errorf("endTime: %w", err)
	}
	if s >= e {
		return TimeRange{}, fmt.Errorf("startTime %s must be before endTime %s", start, end)
	}
	if e-s < TrimEpsilon {
		return TimeRange{}, fmt.Errorf("span %s..%s is shorter than the %s trim lead-in", start, end, TrimEpsilon)
	}
	return TimeRange{Start: s, End: e}, nil
}

// ClipDuration is the target length of the produced clip: the requested
// span minus TrimEpsilon. Non-negative for any range ParseTimeRange accepts.
func (r TimeRange) ClipDuration() time.Duration {
	return r.End - r.Start - TrimEpsilon
}

// ParseClock parses an "HH:MM:SS" timestamp.
func ParseClock(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("timestamp %q is not HH:MM:SS", s)
	}
	var units [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("timestamp %q is not HH:MM:SS", s)
		}
		units[i] = n
	}
	if units[1] > 59 || units[2] > 59 {
		return 0, fmt.Errorf("timestamp %q has out-of-range minutes or seconds", s)
	}
	return time.Duration(units[0])*time.Hour +
		time.Duration(units[1])*time.Minute +
		time.Duration(units[2])*time.Second, nil
}

// FormatClock renders a duration as "HH:MM:SS", truncating sub-second parts.
func FormatClock(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// TranscriptSegment is one coarse decoder segment. Fields mirror what the
// recognition backend emits; segments are immutable once produced.
type TranscriptSegment struct {
	ID               int     `json:"id"`
	Seek             int     `json:"seek"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Tokens           []int   `json:"tokens,omitempty"`
	Temperature      float64 `json:"temperature"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
}

// AlignedWord is a forced-alignment result: one token re-timed against the
// audio. Words are ordered by Start, non-overlapping with neighbors.
type AlignedWord struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Score float64 `json:"score"`
}

// NormalizeAlignedWords enforces the alignment ordering invariant: words
// sorted by start, non-overlapping with neighbors, empty or zero-width
// entries dropped.
func NormalizeAlignedWords(words []AlignedWord) []AlignedWord {
	out := make([]AlignedWord, 0, len(words))
	var prevEnd float64
	for _, w := range words {
		if w.Text == "" || w.End <= w.Start {
			continue
		}
		if w.Start < prevEnd {
			w.Start = prevEnd
			if w.End <= w.Start {
				continue
			}
		}
		prevEnd = w.End
		out = append(out, w)
	}
	return out
}

type Transcript struct {
	Language string              `json:"language"`
	Segments []TranscriptSegment `json:"segments"`
	Words    []AlignedWord       `json:"words,omitempty"`
}

// Artifact is the pipeline's terminal output, transport-encoded so it can
// cross a text-only response boundary.
type Artifact struct {
	MediaType string
	Data      []byte
}

func (a Artifact) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Data)
}

// DecodeArtifact reverses Base64; used by the CLI to write artifacts to disk.
func DecodeArtifact(mediaType, b64 string) (Artifact, error) {
	b, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return Artifact{}, fmt.Errorf("decode artifact: %w", err)
	}
	return Artifact{MediaType: mediaType, Data: b}, nil
}
