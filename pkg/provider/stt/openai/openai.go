// Package openai provides a batch STT provider backed by the OpenAI audio
// transcription API (Whisper). It implements stt.BatchProvider and produces
// the authoritative transcript once a learner finishes a recording.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/asherquest/asherquest/pkg/audio"
	"github.com/asherquest/asherquest/pkg/provider/stt"
)

const defaultModel = "whisper-1"

// Provider implements stt.BatchProvider using the OpenAI transcription API.
type Provider struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
	model   string
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithModel overrides the default transcription model ("whisper-1").
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// New constructs a new OpenAI batch STT Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: cfg.model}, nil
}

// Transcribe implements stt.BatchProvider. Encoded containers (webm, mp4,
// wav, mp3, ogg) are uploaded as-is; raw PCM input is framed into a WAV
// container first, since the API only accepts self-describing files.
func (p *Provider) Transcribe(ctx context.Context, req stt.BatchRequest) (*stt.Transcript, error) {
	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("openai: audio must not be empty")
	}

	data, mimeType := uploadAudio(req)
	params := oai.AudioTranscriptionNewParams{
		Model: oai.AudioModel(p.model),
		File:  oai.File(bytes.NewReader(data), fileName(mimeType), mimeType),
	}
	if req.Language != "" {
		params.Language = oai.String(primaryLanguage(req.Language))
	}
	if prompt := keywordPrompt(req.Keywords); prompt != "" {
		// Whisper has no keyword boosting; vocabulary hints go into the
		// transcription prompt instead.
		params.Prompt = oai.String(prompt)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: transcribe: %w", err)
	}

	return &stt.Transcript{
		Text:    strings.TrimSpace(resp.Text),
		IsFinal: true,
	}, nil
}

// uploadAudio returns the bytes and MIME type to upload. Raw PCM (empty MIME
// type or "audio/l16") gets a WAV header describing its sample rate and
// channel count; anything else passes through unchanged.
func uploadAudio(req stt.BatchRequest) ([]byte, string) {
	base, _, _ := strings.Cut(req.MIMEType, ";")
	switch strings.TrimSpace(base) {
	case "", "audio/l16":
		rate := req.SampleRate
		if rate == 0 {
			rate = audio.STTSampleRate
		}
		channels := req.Channels
		if channels == 0 {
			channels = 1
		}
		return audio.EncodeWAV(req.Audio, rate, channels), "audio/wav"
	default:
		return req.Audio, req.MIMEType
	}
}

// fileName derives an upload filename with an extension matching the MIME
// type, since the API infers the container format from it.
func fileName(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	switch strings.TrimSpace(base) {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "audio.wav"
	case "audio/mpeg", "audio/mp3":
		return "audio.mp3"
	case "audio/mp4", "audio/m4a":
		return "audio.m4a"
	case "audio/ogg":
		return "audio.ogg"
	case "audio/flac":
		return "audio.flac"
	default:
		return "audio.webm"
	}
}

// primaryLanguage reduces a BCP-47 tag to the bare ISO-639-1 code Whisper
// expects ("en-US" -> "en").
func primaryLanguage(tag string) string {
	if idx := strings.Index(tag, "-"); idx > 0 {
		return tag[:idx]
	}
	return tag
}

// keywordPrompt joins keyword hints into a short vocabulary prompt.
func keywordPrompt(keywords []stt.KeywordBoost) string {
	if len(keywords) == 0 {
		return ""
	}
	words := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw.Keyword != "" {
			words = append(words, kw.Keyword)
		}
	}
	return strings.Join(words, ", ")
}

// Compile-time interface assertion.
var _ stt.BatchProvider = (*Provider)(nil)
