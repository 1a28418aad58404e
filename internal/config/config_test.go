package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ASR_BACKEND", "")
	t.Setenv("MODEL_NAME", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ASRBackend != BackendFasterWhisper {
		t.Fatalf("default backend = %q", cfg.ASRBackend)
	}
	if cfg.ModelName != "base" {
		t.Fatalf("default model = %q", cfg.ModelName)
	}
	if cfg.ExtractTimeout != 5*time.Minute {
		t.Fatalf("default extract timeout = %s", cfg.ExtractTimeout)
	}
}

func TestLoad_OpenAIBackendRequiresKey(t *testing.T) {
	t.Setenv("ASR_BACKEND", BackendOpenAI)
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without OPENAI_API_KEY")
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OpenAIKey != "sk-test" {
		t.Fatalf("key = %q", cfg.OpenAIKey)
	}
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("ASR_BACKEND", "deepgram")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unsupported backend")
	}
}

func TestLoad_DurationOverride(t *testing.T) {
	t.Setenv("COMPOSE_TIMEOUT", "90s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ComposeTimeout != 90*time.Second {
		t.Fatalf("compose timeout = %s", cfg.ComposeTimeout)
	}
}
