package fasterwhisper

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"clipforge/internal/fault"
	"clipforge/internal/ports"
)

func TestClassifyHelperFailure(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		stdout string
		stderr string
		want   fault.Kind
	}{
		{
			name:   "missing align model",
			stdout: `{"error":{"code":"no_align_model","message":"No default align-model for language: xx"}}`,
			want:   fault.KindAlignment,
		},
		{
			name:   "align crash",
			stdout: `{"error":{"code":"align_failed","message":"CUDA out of memory"}}`,
			want:   fault.KindAlignment,
		},
		{
			name:   "corrupt audio",
			stdout: `{"error":{"code":"unreadable_audio","message":"Invalid data found"}}`,
			want:   fault.KindTranscription,
		},
		{
			name:   "unstructured crash",
			stdout: "",
			stderr: "Traceback (most recent call last): ...",
			want:   fault.KindTranscription,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := classifyHelperFailure([]byte(tc.stdout), []byte(tc.stderr), errors.New("exit status 3"))
			if got := fault.KindOf(err); got != tc.want {
				t.Fatalf("kind = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestTranscribe_RejectsUnknownContainer(t *testing.T) {
	a := New("python3", "base", "cpu", "float32")
	_, err := a.Transcribe(context.Background(), "/tmp/audio.aiff", ports.DefaultDecodeOptions())
	if fault.KindOf(err) != fault.KindTranscription {
		t.Fatalf("expected transcription error, got %v", err)
	}
}

func TestEnsureScript_ProcessUniqueCopy(t *testing.T) {
	a := New("python3", "base", "cpu", "float32")
	b := New("python3", "base", "cpu", "float32")

	pa, err := a.ensureScript()
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	t.Cleanup(func() { os.Remove(pa) })
	pb, err := b.ensureScript()
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	t.Cleanup(func() { os.Remove(pb) })

	if pa == pb {
		t.Fatalf("helper path %s is shared; a stale copy could shadow this binary's helper", pa)
	}
	data, err := os.ReadFile(pa)
	if err != nil {
		t.Fatalf("read helper: %v", err)
	}
	if !bytes.Equal(data, helperScript) {
		t.Fatal("written helper does not match the embedded script")
	}

	// Stable across calls on the same adapter.
	again, err := a.ensureScript()
	if err != nil || again != pa {
		t.Fatalf("second ensure = %s, %v; want %s", again, err, pa)
	}
}

func TestJoinTemperatures(t *testing.T) {
	got := joinTemperatures([]float64{0, 0.2, 0.4})
	if got != "0,0.2,0.4" {
		t.Fatalf("joinTemperatures = %q", got)
	}
	if joinTemperatures(nil) != "0" {
		t.Fatal("empty ladder should default to 0")
	}
}
