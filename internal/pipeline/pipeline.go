// Package pipeline sequences one clip request through extraction,
// recognition, caption compilation, and composition, inside an isolated
// per-request workspace that is torn down on every exit path.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"clipforge/internal/assets"
	"clipforge/internal/domain/captions"
	"clipforge/internal/fault"
	"clipforge/internal/ports"
	"clipforge/internal/types"
	"clipforge/internal/workspace"
)

const (
	// MediaTypeCaptions is the artifact type of TranscribeOnly output.
	MediaTypeCaptions = "text/x-ssa"
	// MediaTypeComposite is the artifact type of ExportComposite output.
	MediaTypeComposite = "video/mp4"
)

type Config struct {
	WorkspaceRoot string

	ExtractTimeout    time.Duration
	TranscribeTimeout time.Duration
	ComposeTimeout    time.Duration

	// ExtractRetries bounds re-attempts after transient network failures
	// of the segment extractor. No other stage ever retries.
	ExtractRetries int

	Decode ports.DecodeOptions
}

type Deps struct {
	Extractor  ports.SegmentExtractor
	ASR        ports.SpeechRecognizer
	Compositor ports.Compositor

	// Backgrounds and Music are only required for ExportComposite.
	Backgrounds *assets.Pool
	Music       *assets.Pool
	Select      assets.Selector

	Logger *slog.Logger
}

type Pipeline struct {
	cfg Config
	d   Deps
}

func New(cfg Config, d Deps) *Pipeline {
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Select == nil {
		d.Select = assets.NewSeededSelector(time.Now().UnixNano())
	}
	if cfg.Decode.BeamSize <= 0 {
		cfg.Decode = ports.DefaultDecodeOptions()
	}
	// A misconfigured negative retry count must still leave one attempt.
	if cfg.ExtractRetries < 0 {
		cfg.ExtractRetries = 0
	}
	return &Pipeline{cfg: cfg, d: d}
}

// Run executes one request to completion. It returns a transport-encoded
// artifact or a fault-tagged error; no partial output ever escapes.
func (p *Pipeline) Run(ctx context.Context, req types.ClipRequest) (types.Artifact, error) {
	mode, span, err := validate(req)
	if err != nil {
		return types.Artifact{}, err
	}

	ws, err := workspace.New(p.cfg.WorkspaceRoot)
	if err != nil {
		return types.Artifact{}, fault.Wrap(fault.KindInternal, "workspace", err)
	}
	log := p.d.Logger.With("request", ws.ID(), "mode", string(mode))
	defer func() {
		if err := ws.Cleanup(); err != nil {
			log.Warn("workspace cleanup failed", "error", err)
		}
	}()

	switch mode {
	case types.ModeTranscribeOnly:
		return p.runTranscribe(ctx, log, ws, req, span)
	default:
		return p.runComposite(ctx, log, ws, req, span)
	}
}

func validate(req types.ClipRequest) (types.Mode, types.TimeRange, error) {
	if req.SourceURL == "" {
		return "", types.TimeRange{}, fault.New(fault.KindValidation, "", "sourceUrl is required")
	}
	mode, err := types.ParseMode(req.Mode)
	if err != nil {
		return "", types.TimeRange{}, fault.Wrap(fault.KindValidation, "", err)
	}
	span, err := types.ParseTimeRange(req.StartTime, req.EndTime)
	if err != nil {
		return "", types.TimeRange{}, fault.Wrap(fault.KindValidation, "", err)
	}
	if mode == types.ModeTranscribeOnly && req.RawCaptionOverride != "" {
		return "", types.TimeRange{}, fault.New(fault.KindValidation, "",
			"rawCaptionOverride is only valid for ExportComposite")
	}
	return mode, span, nil
}

func (p *Pipeline) runTranscribe(ctx context.Context, log *slog.Logger, ws *workspace.Workspace, req types.ClipRequest, span types.TimeRange) (types.Artifact, error) {
	track, err := p.captionTrack(ctx, log, ws, req.SourceURL, span)
	if err != nil {
		return types.Artifact{}, err
	}
	log.Info("caption track ready", "bytes", len(track))
	return types.Artifact{MediaType: MediaTypeCaptions, Data: track}, nil
}

func (p *Pipeline) runComposite(ctx context.Context, log *slog.Logger, ws *workspace.Workspace, req types.ClipRequest, span types.TimeRange) (types.Artifact, error) {
	if p.d.Backgrounds == nil || p.d.Music == nil {
		return types.Artifact{}, fault.New(fault.KindInternal, "compose", "asset pools are not configured")
	}

	videoPath := ws.Path("segment.mp4")
	if err := p.extract(ctx, log, req.SourceURL, span, ports.ExtractAudioVideo, videoPath); err != nil {
		return types.Artifact{}, err
	}
	log.Info("segment extracted", "stage", "SegmentExtracted", "path", videoPath)

	var track []byte
	if req.RawCaptionOverride != "" {
		// A caller-supplied caption payload bypasses recognition and
		// compilation entirely.
		track = []byte(req.RawCaptionOverride)
		log.Info("caption override adopted", "bytes", len(track))
	} else {
		var err error
		track, err = p.captionTrack(ctx, log, ws, req.SourceURL, span)
		if err != nil {
			return types.Artifact{}, err
		}
	}

	captionPath := ws.Path("captions.ass")
	if err := os.WriteFile(captionPath, track, 0o644); err != nil {
		return types.Artifact{}, fault.Wrap(fault.KindInternal, "write captions", err)
	}

	spec := ports.CompositionSpec{
		ForegroundPath: videoPath,
		BackgroundPath: p.d.Backgrounds.Pick(p.d.Select),
		MusicPath:      p.d.Music.Pick(p.d.Select),
		CaptionPath:    captionPath,
		OutputPath:     ws.Path("composite.mp4"),
		Duration:       span.ClipDuration(),
	}
	log.Info("composing", "stage", "Composed",
		"background", spec.BackgroundPath, "music", spec.MusicPath, "duration", spec.Duration)

	cctx, cancel := stageContext(ctx, p.cfg.ComposeTimeout)
	err := p.d.Compositor.Compose(cctx, spec)
	cancel()
	if err != nil {
		return types.Artifact{}, classify(fault.KindComposition, "compose", err)
	}

	data, err := os.ReadFile(spec.OutputPath)
	if err != nil {
		return types.Artifact{}, fault.Wrap(fault.KindComposition, "read composite", err)
	}
	if got, err := p.d.Compositor.ProbeDuration(ctx, spec.OutputPath); err == nil {
		log.Info("composite probed", "duration", got, "requested", spec.Duration)
	}
	log.Info("artifact encoded", "stage", "ArtifactEncoded", "bytes", len(data))
	return types.Artifact{MediaType: MediaTypeComposite, Data: data}, nil
}

// captionTrack runs extraction (audio only), recognition, alignment, and
// caption compilation for the requested span.
func (p *Pipeline) captionTrack(ctx context.Context, log *slog.Logger, ws *workspace.Workspace, sourceURL string, span types.TimeRange) ([]byte, error) {
	audioPath := ws.Path("segment.m4a")
	if err := p.extract(ctx, log, sourceURL, span, ports.ExtractAudioOnly, audioPath); err != nil {
		return nil, err
	}
	log.Info("audio segment extracted", "stage", "SegmentExtracted", "path", audioPath)

	tctx, cancel := stageContext(ctx, p.cfg.TranscribeTimeout)
	defer cancel()

	tr, err := p.d.ASR.Transcribe(tctx, audioPath, p.cfg.Decode)
	if err != nil {
		return nil, classify(fault.KindTranscription, "transcribe", err)
	}
	log.Info("transcript ready", "stage", "TranscriptReady",
		"language", tr.Language, "segments", len(tr.Segments))

	aligned, err := p.d.ASR.Align(tctx, tr, audioPath)
	if err != nil {
		return nil, classify(fault.KindAlignment, "align", err)
	}

	track := captions.Compile(aligned.Words, span.ClipDuration())
	log.Info("captions compiled", "stage", "CaptionsCompiled", "words", len(aligned.Words))
	return []byte(track), nil
}

func (p *Pipeline) extract(ctx context.Context, log *slog.Logger, sourceURL string, span types.TimeRange, kind ports.ExtractKind, dest string) error {
	attempts := 1 + p.cfg.ExtractRetries
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		ectx, cancel := stageContext(ctx, p.cfg.ExtractTimeout)
		err = p.d.Extractor.Extract(ectx, sourceURL, span, kind, dest)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !ports.IsTransient(err) {
			break
		}
		log.Warn("transient extraction failure, retrying",
			"attempt", attempt, "of", attempts, "error", err)
	}
	return classify(fault.KindExtraction, "extract segment", err)
}

func stageContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// classify tags a stage error, letting already-tagged kinds and timeouts
// through unchanged.
func classify(kind fault.Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = fault.KindTimeout
	}
	return fault.Wrap(kind, op, err)
}
