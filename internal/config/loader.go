package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":       {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq"},
	"stt":       {"deepgram"},
	"stt_batch": {"openai", "whisper-native"},
	"tts":       {"elevenlabs", "coqui"},
	"image":     {"openai"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	validateProviderEntry("llm", cfg.Providers.LLM)
	validateProviderEntry("stt", cfg.Providers.STT)
	validateProviderEntry("stt_batch", cfg.Providers.STTBatch)
	validateProviderEntry("tts", cfg.Providers.TTS)
	validateProviderEntry("image", cfg.Providers.Image)

	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; hooks and continuation feedback will use canned fallbacks")
	}
	if cfg.Providers.STT.Name == "" && cfg.Providers.STTBatch.Name == "" {
		errs = append(errs, errors.New("at least one of providers.stt or providers.stt_batch must be configured"))
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("no TTS provider configured; narration will be silent")
	}
	if cfg.Providers.Image.Name == "" {
		slog.Warn("no image provider configured; adventure illustrations are disabled")
	}

	if cfg.Narration.SpeedFactor != 0 {
		if cfg.Narration.SpeedFactor < 0.5 || cfg.Narration.SpeedFactor > 2.0 {
			errs = append(errs, fmt.Errorf("narration.speed_factor %.2f is out of range [0.5, 2.0]", cfg.Narration.SpeedFactor))
		}
	}
	if cfg.Narration.VoiceID != "" && cfg.Providers.TTS.Name == "" {
		slog.Warn("narration.voice_id is set but providers.tts is not configured")
	}

	if cfg.Session.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("session.idle_timeout %s must not be negative", cfg.Session.IdleTimeout))
	}

	return errors.Join(errs...)
}

// validateProviderEntry logs a warning if the entry names a provider not
// found in [ValidProviderNames] for the given kind, then recurses into the
// entry's fallbacks.
func validateProviderEntry(kind string, entry ProviderEntry) {
	validateProviderName(kind, entry.Name)
	for _, fb := range entry.Fallbacks {
		validateProviderEntry(kind, fb)
	}
}

func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name; may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
