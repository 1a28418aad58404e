package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	BackendFasterWhisper = "faster-whisper"
	BackendOpenAI        = "openai"
)

type Config struct {
	Port string

	// Recognition backend selection. The model is loaded once at process
	// start; per-request options never touch these.
	ASRBackend  string
	ModelName   string
	Device      string
	ComputeType string
	OpenAIKey   string

	// External tool locations.
	YTDLPPath   string
	FFmpegPath  string
	FFprobePath string
	PythonPath  string

	// Shared read-only asset pools for composition.
	BackgroundDir string
	MusicDir      string

	WorkspaceRoot string

	ExtractTimeout    time.Duration
	TranscribeTimeout time.Duration
	ComposeTimeout    time.Duration
	ExtractRetries    int

	ReapAge      time.Duration
	ReapInterval time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		ASRBackend:  getEnv("ASR_BACKEND", BackendFasterWhisper),
		ModelName:   getEnv("MODEL_NAME", "base"),
		Device:      getEnv("WHISPER_DEVICE", "cuda"),
		ComputeType: getEnv("WHISPER_COMPUTE_TYPE", "float32"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),

		YTDLPPath:   getEnv("YTDLP_PATH", "yt-dlp"),
		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),
		PythonPath:  getEnv("PYTHON_PATH", "python3"),

		BackgroundDir: getEnv("BACKGROUND_DIR", "bottom_clips"),
		MusicDir:      getEnv("MUSIC_DIR", "audio"),

		WorkspaceRoot: getEnv("WORKSPACE_ROOT", os.TempDir()),

		ExtractTimeout:    getEnvDuration("EXTRACT_TIMEOUT", 5*time.Minute),
		TranscribeTimeout: getEnvDuration("TRANSCRIBE_TIMEOUT", 10*time.Minute),
		ComposeTimeout:    getEnvDuration("COMPOSE_TIMEOUT", 10*time.Minute),
		ExtractRetries:    getEnvInt("EXTRACT_RETRIES", 2),

		ReapAge:      getEnvDuration("WORKSPACE_REAP_AGE", time.Hour),
		ReapInterval: getEnvDuration("WORKSPACE_REAP_INTERVAL", 10*time.Minute),
	}

	switch cfg.ASRBackend {
	case BackendFasterWhisper:
		if cfg.ModelName == "" {
			return nil, fmt.Errorf("MODEL_NAME is required for the %s backend", BackendFasterWhisper)
		}
	case BackendOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the %s backend", BackendOpenAI)
		}
	default:
		return nil, fmt.Errorf("unsupported ASR_BACKEND: %s (supported: %s, %s)",
			cfg.ASRBackend, BackendFasterWhisper, BackendOpenAI)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
