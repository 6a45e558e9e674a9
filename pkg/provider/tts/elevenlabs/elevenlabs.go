// Package elevenlabs provides an ElevenLabs-backed TTS provider using the
// HTTP synthesis API. It implements the tts.Provider interface.
//
// Child-facing narration is unforgiving of hard failures, so the provider
// layers three attempts before giving up: the full request with tuned voice
// settings, a minimal payload without voice settings, and finally the default
// narrator voice. Input text is sanitised (control characters and broken
// surrogate pairs stripped) and soft-capped because the API rejects payloads
// containing invalid UTF-16 sequences and very long texts.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf16"

	"github.com/asherquest/asherquest/pkg/provider/tts"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModelID = "eleven_turbo_v2_5"

	// DefaultVoiceID is the narrator voice used when no voice is requested
	// or when the requested voice fails.
	DefaultVoiceID = "cgSgspJ2msm6clMCkdW9"

	// maxTextRunes is the soft cap applied to synthesis input. Longer texts
	// are truncated at the last word boundary before the cap.
	maxTextRunes = 600

	defaultTimeout = 30 * time.Second
)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithBaseURL overrides the default API base URL. Useful for tests.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(url, "/")
	}
}

// WithModelID sets the synthesis model (e.g., "eleven_turbo_v2_5").
func WithModelID(modelID string) Option {
	return func(p *Provider) {
		p.modelID = modelID
	}
}

// WithDefaultVoice overrides the fallback voice ID.
func WithDefaultVoice(voiceID string) Option {
	return func(p *Provider) {
		p.defaultVoice = voiceID
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithSpeed sets the speaking rate in the range [0.5, 2.0]. Zero keeps the
// API default. Slower rates suit early readers.
func WithSpeed(speed float64) Option {
	return func(p *Provider) {
		p.speed = speed
	}
}

// Provider implements tts.Provider backed by the ElevenLabs synthesis API.
type Provider struct {
	apiKey       string
	baseURL      string
	modelID      string
	defaultVoice string
	speed        float64
	httpClient   *http.Client
}

// New creates a new ElevenLabs Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		modelID:      defaultModelID,
		defaultVoice: DefaultVoiceID,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// synthesisRequest is the JSON body sent to POST /v1/text-to-speech/{voice}.
type synthesisRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

// voiceSettings tunes narration for a steady, friendly storyteller read.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

// narratorSettings returns the tuned storyteller settings with the
// provider's speaking rate applied.
func (p *Provider) narratorSettings() *voiceSettings {
	return &voiceSettings{
		Stability:       0.6,
		SimilarityBoost: 0.75,
		Style:           0.3,
		UseSpeakerBoost: true,
		Speed:           p.speed,
	}
}

// Synthesize implements tts.Provider. The requested voice is tried with full
// voice settings first, then with a minimal payload, then the default voice.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) (*tts.Audio, error) {
	cleaned := CleanText(text)
	if cleaned == "" {
		return nil, errors.New("elevenlabs: text is empty after sanitisation")
	}

	voiceID := voice.ID
	if voiceID == "" {
		voiceID = p.defaultVoice
	}

	attempts := []struct {
		voiceID string
		body    synthesisRequest
	}{
		{voiceID, synthesisRequest{Text: cleaned, ModelID: p.modelID, VoiceSettings: p.narratorSettings()}},
		{voiceID, synthesisRequest{Text: cleaned, ModelID: p.modelID}},
	}
	if voiceID != p.defaultVoice {
		attempts = append(attempts, struct {
			voiceID string
			body    synthesisRequest
		}{p.defaultVoice, synthesisRequest{Text: cleaned, ModelID: p.modelID}})
	}

	var lastErr error
	for _, a := range attempts {
		audio, err := p.synthesizeOnce(ctx, a.voiceID, a.body)
		if err == nil {
			return audio, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("elevenlabs: synthesis failed: %w", lastErr)
}

// synthesizeOnce performs a single POST to the synthesis endpoint.
func (p *Provider) synthesizeOnce(ctx context.Context, voiceID string, body synthesisRequest) (*tts.Audio, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := p.baseURL + "/v1/text-to-speech/" + voiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("voice %s returned status %d: %s", voiceID, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio response: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("empty audio response")
	}

	return &tts.Audio{
		Data:     audio,
		MIMEType: "audio/mpeg",
		VoiceID:  voiceID,
	}, nil
}

// CleanText sanitises text for synthesis: control characters and unpaired
// UTF-16 surrogates are removed, whitespace is collapsed, and the result is
// truncated at the last word boundary before the length cap.
func CleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == unicode.ReplacementChar || utf16.IsSurrogate(r) {
			continue
		}
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}

	cleaned := strings.Join(strings.Fields(b.String()), " ")

	runes := []rune(cleaned)
	if len(runes) <= maxTextRunes {
		return cleaned
	}
	truncated := string(runes[:maxTextRunes])
	if idx := strings.LastIndex(truncated, " "); idx > 0 {
		truncated = truncated[:idx]
	}
	return truncated
}

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)
