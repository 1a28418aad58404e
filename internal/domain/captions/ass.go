// Package captions compiles word-aligned transcripts into a styled ASS
// caption track. The visual style is fixed per deployment; only the timed
// events vary per request.
package captions

import (
	"fmt"
	"strings"
	"time"

	"clipforge/internal/types"
)

// Event is one renderable caption line.
type Event struct {
	Start time.Duration
	End   time.Duration
	Words []types.AlignedWord
}

// Compile builds the caption track for a clip of the given duration.
// Words are expected ordered and non-overlapping (the alignment contract).
// Events starting at or after the clip end are dropped; events spanning the
// boundary are truncated to it.
func Compile(words []types.AlignedWord, duration time.Duration) string {
	events := packEvents(clampWords(words, duration))
	return render(events)
}

// Events exposes the clamped, packed event list for validation and tests.
func Events(words []types.AlignedWord, duration time.Duration) []Event {
	return packEvents(clampWords(words, duration))
}

func clampWords(words []types.AlignedWord, duration time.Duration) []types.AlignedWord {
	limit := duration.Seconds()
	var out []types.AlignedWord
	for _, w := range words {
		if w.Start >= limit {
			break
		}
		if w.Start < 0 {
			w.Start = 0
		}
		if w.End > limit {
			w.End = limit
		}
		if w.End <= w.Start {
			continue
		}
		w.Text = sanitize(w.Text)
		if w.Text == "" {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Line budgets trade exact transcript grouping for consistently readable
// chunks on a vertical-video layout.
const (
	charBudget = 42
	wordBudget = 9
)

func packEvents(words []types.AlignedWord) []Event {
	if len(words) == 0 {
		return nil
	}
	var out []Event
	cur := Event{Start: dur(words[0].Start)}
	curLen := 0
	for i, w := range words {
		wl := len([]rune(w.Text))
		nextLen := curLen + wl
		if curLen > 0 {
			nextLen++
		}
		if len(cur.Words) >= wordBudget || (len(cur.Words) > 0 && nextLen > charBudget) {
			cur.End = dur(cur.Words[len(cur.Words)-1].End)
			out = append(out, cur)
			cur = Event{Start: dur(w.Start)}
			curLen = 0
		}
		cur.Words = append(cur.Words, w)
		if curLen > 0 {
			curLen++
		}
		curLen += wl
		if i == len(words)-1 {
			cur.End = dur(w.End)
			out = append(out, cur)
		}
	}
	return out
}

func render(events []Event) string {
	var b strings.Builder
	b.WriteString(header())
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, ev := range events {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(ev.Start))
		b.WriteString(",")
		b.WriteString(assTime(ev.End))
		b.WriteString(",Clip,,0,0,0,,")
		for _, w := range ev.Words {
			durCS := int((dur(w.End) - dur(w.Start)) / (10 * time.Millisecond))
			if durCS < 1 {
				durCS = 1
			}
			b.WriteString(fmt.Sprintf("{\\k%d}%s ", durCS, w.Text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// header carries the deployment-fixed style: bold, mid-screen anchor,
// heavy outline and shadow, 1920x1080 render resolution.
func header() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1920
PlayResY: 1080
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Clip, Mercadillo Bold, 80, &H00FFFFFF, &H00FFD200, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,6,6,5, 80,80,85,1
`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
