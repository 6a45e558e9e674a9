package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/asherquest/asherquest/internal/config"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: info
  allowed_origins:
    - "http://localhost:5173"
providers:
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
    fallbacks:
      - name: ollama
        base_url: "http://localhost:11434"
        model: llama3
  stt:
    name: deepgram
    api_key: dg-test
    model: nova-2
  stt_batch:
    name: openai
    api_key: sk-test
    model: whisper-1
  tts:
    name: elevenlabs
    api_key: el-test
  image:
    name: openai
    api_key: sk-test
narration:
  voice_id: pirate-captain
  speed_factor: 0.9
story:
  pack_path: ""
session:
  idle_timeout: 15m
`

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}
	if len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("allowed_origins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Providers.LLM.Name != "openai" || cfg.Providers.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm = %+v", cfg.Providers.LLM)
	}
	if len(cfg.Providers.LLM.Fallbacks) != 1 || cfg.Providers.LLM.Fallbacks[0].Name != "ollama" {
		t.Errorf("llm fallbacks = %+v", cfg.Providers.LLM.Fallbacks)
	}
	if cfg.Providers.STT.Name != "deepgram" {
		t.Errorf("stt = %+v", cfg.Providers.STT)
	}
	if cfg.Providers.STTBatch.Model != "whisper-1" {
		t.Errorf("stt_batch = %+v", cfg.Providers.STTBatch)
	}
	if cfg.Narration.VoiceID != "pirate-captain" {
		t.Errorf("voice_id = %q", cfg.Narration.VoiceID)
	}
	if cfg.Session.IdleTimeout != config.Duration(15*time.Minute) {
		t.Errorf("idle_timeout = %s", cfg.Session.IdleTimeout)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	yaml := `
server:
  listen_addr: ":8080"
  banana: true
providers:
  stt_batch:
    name: openai
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantSub string
	}{
		{
			name:    "invalid log level",
			mutate:  func(c *config.Config) { c.Server.LogLevel = "bananas" },
			wantSub: "log_level",
		},
		{
			name: "no stt at all",
			mutate: func(c *config.Config) {
				c.Providers.STT = config.ProviderEntry{}
				c.Providers.STTBatch = config.ProviderEntry{}
			},
			wantSub: "providers.stt",
		},
		{
			name:    "speed factor out of range",
			mutate:  func(c *config.Config) { c.Narration.SpeedFactor = 3.5 },
			wantSub: "speed_factor",
		},
		{
			name:    "negative idle timeout",
			mutate:  func(c *config.Config) { c.Session.IdleTimeout = config.Duration(-time.Minute) },
			wantSub: "idle_timeout",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
			if err != nil {
				t.Fatalf("base config invalid: %v", err)
			}
			tc.mutate(cfg)
			err = config.Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestValidate_MultipleErrorsJoined(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.LogLevel = "verbose"
	cfg.Session.IdleTimeout = config.Duration(-time.Second)

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, sub := range []string{"log_level", "idle_timeout", "providers.stt"} {
		if !strings.Contains(err.Error(), sub) {
			t.Errorf("joined error missing %q: %v", sub, err)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
