// Package fasterwhisper runs local speech recognition and forced alignment
// through an embedded python helper (faster-whisper for decoding, whisperx
// for alignment), exchanging JSON over stdout.
package fasterwhisper

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"clipforge/internal/fault"
	"clipforge/internal/ports"
	"clipforge/internal/types"
)

//go:embed assets/helper.py
var helperScript []byte

type Adapter struct {
	python      string
	model       string
	device      string
	computeType string

	// The backend is a single stateful GPU resource; decode and align
	// calls are serialized across requests.
	mu sync.Mutex

	scriptOnce sync.Once
	scriptPath string
	scriptErr  error
}

func New(pythonPath, model, device, computeType string) *Adapter {
	if pythonPath == "" {
		pythonPath = "python3"
	}
	return &Adapter{python: pythonPath, model: model, device: device, computeType: computeType}
}

func (a *Adapter) Transcribe(ctx context.Context, audioPath string, opts ports.DecodeOptions) (types.Transcript, error) {
	if err := ports.ValidateAudioContainer(audioPath); err != nil {
		return types.Transcript{}, fault.Wrap(fault.KindTranscription, "transcribe", err)
	}
	if opts.BeamSize <= 0 {
		opts = ports.DefaultDecodeOptions()
	}

	args := []string{
		"--task", "transcribe",
		"--audio", audioPath,
		"--model", a.model,
		"--device", a.device,
		"--compute-type", a.computeType,
		"--beam-size", strconv.Itoa(opts.BeamSize),
		"--best-of", strconv.Itoa(opts.BestOf),
		"--temperatures", joinTemperatures(opts.Temperatures),
	}
	if opts.InitialPrompt != "" {
		args = append(args, "--initial-prompt", opts.InitialPrompt)
	}

	out, err := a.run(ctx, args)
	if err != nil {
		return types.Transcript{}, err
	}

	var parsed struct {
		Language string                    `json:"language"`
		Segments []types.TranscriptSegment `json:"segments"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return types.Transcript{}, fault.Wrap(fault.KindTranscription, "parse helper output", err)
	}
	for i := range parsed.Segments {
		parsed.Segments[i].Text = strings.TrimSpace(parsed.Segments[i].Text)
	}
	return types.Transcript{Language: parsed.Language, Segments: parsed.Segments}, nil
}

func (a *Adapter) Align(ctx context.Context, tr types.Transcript, audioPath string) (types.Transcript, error) {
	if tr.Language == "" {
		return types.Transcript{}, fault.New(fault.KindAlignment, "align", "transcript carries no detected language")
	}

	segPath := audioPath + ".segments.json"
	sb, err := json.Marshal(tr.Segments)
	if err != nil {
		return types.Transcript{}, fault.Wrap(fault.KindInternal, "marshal segments", err)
	}
	if err := os.WriteFile(segPath, sb, 0o644); err != nil {
		return types.Transcript{}, fault.Wrap(fault.KindInternal, "write segments", err)
	}
	defer os.Remove(segPath)

	out, err := a.run(ctx, []string{
		"--task", "align",
		"--audio", audioPath,
		"--segments", segPath,
		"--language", tr.Language,
		"--device", a.device,
	})
	if err != nil {
		return types.Transcript{}, err
	}

	var parsed struct {
		Words []types.AlignedWord `json:"words"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return types.Transcript{}, fault.Wrap(fault.KindAlignment, "parse helper output", err)
	}

	// Alignment attaches timestamps only; segments pass through untouched.
	aligned := tr
	aligned.Words = types.NormalizeAlignedWords(parsed.Words)
	return aligned, nil
}

func (a *Adapter) run(ctx context.Context, args []string) ([]byte, error) {
	script, err := a.ensureScript()
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "write helper script", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cmd := exec.CommandContext(ctx, a.python, append([]string{script}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fault.Wrap(fault.KindTimeout, "recognition helper", ctx.Err())
		}
		return nil, classifyHelperFailure(stdout.Bytes(), stderr.Bytes(), err)
	}
	return stdout.Bytes(), nil
}

// ensureScript materializes the embedded helper once per adapter, under a
// process-unique name so a stale copy from another binary or user can never
// be executed.
func (a *Adapter) ensureScript() (string, error) {
	a.scriptOnce.Do(func() {
		f, err := os.CreateTemp("", "clipforge-asr-*.py")
		if err != nil {
			a.scriptErr = err
			return
		}
		if _, err := f.Write(helperScript); err != nil {
			f.Close()
			os.Remove(f.Name())
			a.scriptErr = err
			return
		}
		if err := f.Close(); err != nil {
			os.Remove(f.Name())
			a.scriptErr = err
			return
		}
		a.scriptPath = f.Name()
	})
	return a.scriptPath, a.scriptErr
}

type helperError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// classifyHelperFailure maps the helper's structured error codes onto the
// failure taxonomy so alignment gaps, bad audio, and backend exhaustion stay
// distinguishable upstream.
func classifyHelperFailure(stdout, stderr []byte, runErr error) error {
	var he helperError
	if json.Unmarshal(stdout, &he) == nil && he.Error.Code != "" {
		kind := fault.KindTranscription
		if he.Error.Code == "no_align_model" || he.Error.Code == "align_failed" {
			kind = fault.KindAlignment
		}
		return fault.New(kind, "recognition helper", "%s: %s", he.Error.Code, he.Error.Message)
	}
	diag := strings.TrimSpace(string(stderr))
	return fault.New(fault.KindTranscription, "recognition helper", "%v: %s", runErr, diag)
}

func joinTemperatures(ts []float64) string {
	if len(ts) == 0 {
		return "0"
	}
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = strconv.FormatFloat(t, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
