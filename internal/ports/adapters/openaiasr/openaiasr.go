// Package openaiasr is the hosted recognition backend: OpenAI's audio
// transcription API with verbose timestamps. It exists for deployments
// without a local GPU; the API performs its own alignment, so Align only
// requests word granularity when the first pass did not return words.
package openaiasr

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"clipforge/internal/fault"
	"clipforge/internal/ports"
	"clipforge/internal/types"
)

type Adapter struct {
	client *openai.Client
	model  string
}

func New(apiKey, model string) *Adapter {
	if model == "" {
		model = openai.Whisper1
	}
	return &Adapter{client: openai.NewClient(apiKey), model: model}
}

func (a *Adapter) Transcribe(ctx context.Context, audioPath string, opts ports.DecodeOptions) (types.Transcript, error) {
	if err := ports.ValidateAudioContainer(audioPath); err != nil {
		return types.Transcript{}, fault.Wrap(fault.KindTranscription, "transcribe", err)
	}

	req := openai.AudioRequest{
		Model:    a.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Prompt:   opts.InitialPrompt,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularitySegment,
			openai.TranscriptionTimestampGranularityWord,
		},
	}
	// The hosted API takes a single temperature; the head of the fallback
	// ladder is the primary decode temperature.
	if len(opts.Temperatures) > 0 {
		req.Temperature = float32(opts.Temperatures[0])
	}

	resp, err := a.client.CreateTranscription(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return types.Transcript{}, fault.Wrap(fault.KindTimeout, "openai transcription", ctx.Err())
		}
		return types.Transcript{}, fault.Wrap(fault.KindTranscription, "openai transcription", err)
	}

	tr := types.Transcript{Language: resp.Language}
	for _, s := range resp.Segments {
		tr.Segments = append(tr.Segments, types.TranscriptSegment{
			ID:               s.ID,
			Seek:             s.Seek,
			Start:            s.Start,
			End:              s.End,
			Text:             strings.TrimSpace(s.Text),
			Tokens:           s.Tokens,
			Temperature:      s.Temperature,
			CompressionRatio: s.CompressionRatio,
			NoSpeechProb:     s.NoSpeechProb,
		})
	}
	words := make([]types.AlignedWord, 0, len(resp.Words))
	for _, w := range resp.Words {
		words = append(words, types.AlignedWord{
			Text:  strings.TrimSpace(w.Word),
			Start: w.Start,
			End:   w.End,
		})
	}
	tr.Words = types.NormalizeAlignedWords(words)
	return tr, nil
}

func (a *Adapter) Align(ctx context.Context, tr types.Transcript, audioPath string) (types.Transcript, error) {
	if len(tr.Words) > 0 {
		return tr, nil
	}
	// Word timestamps were not requested or returned on the first pass;
	// run one word-granularity pass to attach them.
	fresh, err := a.Transcribe(ctx, audioPath, ports.DefaultDecodeOptions())
	if err != nil {
		return types.Transcript{}, fault.Wrap(fault.KindAlignment, "openai word pass", err)
	}
	if len(fresh.Words) == 0 {
		return types.Transcript{}, fault.New(fault.KindAlignment, "openai word pass",
			"backend returned no word timestamps for language %q", tr.Language)
	}
	aligned := tr
	aligned.Words = fresh.Words
	return aligned, nil
}
