package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/assets"
	"clipforge/internal/config"
	"clipforge/internal/pipeline"
	"clipforge/internal/ports"
	"clipforge/internal/ports/adapters/fasterwhisper"
	"clipforge/internal/ports/adapters/ffmpeg"
	"clipforge/internal/ports/adapters/openaiasr"
	"clipforge/internal/ports/adapters/ytdlp"
	"clipforge/internal/server"
	"clipforge/internal/types"
	"clipforge/internal/workspace"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the clip production HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

			pipe, err := buildPipeline(cfg, log, true)
			if err != nil {
				return err
			}

			go reapLoop(cmd.Context(), cfg, log)

			log.Info("listening", "port", cfg.Port, "asrBackend", cfg.ASRBackend)
			return server.New(pipe, log).Router().Run(":" + cfg.Port)
		},
	}
}

func clipCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clip <url>",
		Short: "Produce a single clip and write it to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			mode, _ := cmd.Flags().GetString("mode")
			out, _ := cmd.Flags().GetString("out")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := slog.New(slog.NewTextHandler(os.Stderr, nil))

			// Asset pools are only needed when composing.
			pipe, err := buildPipeline(cfg, log, mode != string(types.ModeTranscribeOnly))
			if err != nil {
				return err
			}

			art, err := pipe.Run(cmd.Context(), types.ClipRequest{
				SourceURL: args[0],
				StartTime: from,
				EndTime:   to,
				Mode:      mode,
			})
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, art.Data, 0o644); err != nil {
				return err
			}
			log.Info("wrote artifact", "path", out, "mediaType", art.MediaType, "bytes", len(art.Data))
			return nil
		},
	}
	cmd.Flags().String("from", "00:00:00", "Segment start (HH:MM:SS)")
	cmd.Flags().String("to", "", "Segment end (HH:MM:SS)")
	cmd.Flags().String("mode", string(types.ModeExportComposite), "TranscribeOnly or ExportComposite")
	cmd.Flags().String("out", "clip.mp4", "Output file")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func buildPipeline(cfg *config.Config, log *slog.Logger, withAssets bool) (*pipeline.Pipeline, error) {
	var asr ports.SpeechRecognizer
	switch cfg.ASRBackend {
	case config.BackendOpenAI:
		asr = openaiasr.New(cfg.OpenAIKey, "")
	default:
		asr = fasterwhisper.New(cfg.PythonPath, cfg.ModelName, cfg.Device, cfg.ComputeType)
	}

	deps := pipeline.Deps{
		Extractor:  ytdlp.New(cfg.YTDLPPath),
		ASR:        asr,
		Compositor: ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath),
		Logger:     log,
	}
	if withAssets {
		var err error
		if deps.Backgrounds, err = assets.LoadPool(cfg.BackgroundDir); err != nil {
			return nil, err
		}
		if deps.Music, err = assets.LoadPool(cfg.MusicDir); err != nil {
			return nil, err
		}
	}

	return pipeline.New(pipeline.Config{
		WorkspaceRoot:     cfg.WorkspaceRoot,
		ExtractTimeout:    cfg.ExtractTimeout,
		TranscribeTimeout: cfg.TranscribeTimeout,
		ComposeTimeout:    cfg.ComposeTimeout,
		ExtractRetries:    cfg.ExtractRetries,
	}, deps), nil
}

// reapLoop periodically removes orphaned workspaces left behind by crashed
// requests.
func reapLoop(ctx context.Context, cfg *config.Config, log *slog.Logger) {
	if cfg.ReapInterval <= 0 {
		return
	}
	t := time.NewTicker(cfg.ReapInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := workspace.Reap(cfg.WorkspaceRoot, cfg.ReapAge)
			if err != nil {
				log.Warn("workspace reap failed", "error", err)
			} else if n > 0 {
				log.Info("reaped orphaned workspaces", "count", n)
			}
		}
	}
}
