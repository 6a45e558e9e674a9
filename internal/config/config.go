// Package config provides the configuration schema, loader, and provider
// registry for the reading adventure server.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a [time.Duration] that decodes from YAML strings like "30m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Narration NarrationConfig `yaml:"narration"`
	Story     StoryConfig     `yaml:"story"`
	Session   SessionConfig   `yaml:"session"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// AllowedOrigins lists origins accepted for cross-origin browser
	// requests. Empty means any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation to use for each AI
// backend kind. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	// LLM powers hook generation, continuation validation, and the
	// adventure chat.
	LLM ProviderEntry `yaml:"llm"`

	// STT is the streaming speech-to-text backend used for live interim
	// transcripts while a learner is recording.
	STT ProviderEntry `yaml:"stt"`

	// STTBatch is the batch speech-to-text backend that transcribes the
	// full recording once it stops.
	STTBatch ProviderEntry `yaml:"stt_batch"`

	// TTS synthesises narration audio.
	TTS ProviderEntry `yaml:"tts"`

	// Image generates adventure illustrations.
	Image ProviderEntry `yaml:"image"`
}

// ProviderEntry is the common configuration block shared by all provider
// kinds. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation
	// (e.g., "openai", "deepgram", "elevenlabs").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider
	// (e.g., "gpt-4o-mini", "nova-2", "whisper-1").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`

	// Fallbacks lists secondary providers tried in order when this one is
	// failing. Each fallback must also be registered in the [Registry].
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// NarrationConfig specifies the voice used for narration playback.
type NarrationConfig struct {
	// VoiceID is the provider-specific voice identifier.
	VoiceID string `yaml:"voice_id"`

	// SpeedFactor adjusts speaking rate in the range [0.5, 2.0]. 0 means
	// the provider default.
	SpeedFactor float64 `yaml:"speed_factor"`
}

// StoryConfig selects the exercise content.
type StoryConfig struct {
	// PackPath is the path to a YAML story pack. Empty selects the
	// built-in Captain Asher pack.
	PackPath string `yaml:"pack_path"`
}

// SessionConfig holds learner session lifecycle settings.
type SessionConfig struct {
	// IdleTimeout is how long a session may sit untouched before it is
	// evicted. 0 means the default of 30 minutes.
	IdleTimeout Duration `yaml:"idle_timeout"`
}
