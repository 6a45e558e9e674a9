// Package whisper provides a local batch STT provider backed by the
// whisper.cpp CGO bindings. It implements stt.BatchProvider and serves as the
// on-host fallback when no transcription API is reachable.
//
// The whisper.cpp static library (libwhisper.a) and headers (whisper.h) must
// be available at link time via LIBRARY_PATH and C_INCLUDE_PATH environment
// variables.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/asherquest/asherquest/pkg/provider/stt"
)

// whisper.cpp only accepts 16 kHz mono float32 input.
const requiredSampleRate = 16000

const defaultLanguage = "en"

// Provider implements stt.BatchProvider using whisper.cpp Go bindings (CGO),
// eliminating network overhead entirely. The model is loaded once at startup
// and shared across all transcriptions.
type Provider struct {
	model    whisperlib.Model
	language string
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the ISO-639-1 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// New creates a Provider that loads the whisper.cpp model from the given file
// path. The model is loaded once and shared across all concurrent
// transcriptions. The caller must call Close when the provider is no longer
// needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &Provider{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model. Must be called when the provider is no
// longer needed.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe implements stt.BatchProvider. req.Audio must be raw 16-bit
// little-endian signed PCM at 16 kHz; encoded containers are rejected
// (decode and resample with pkg/audio first). Multi-channel input is
// downmixed to mono.
func (p *Provider) Transcribe(ctx context.Context, req stt.BatchRequest) (*stt.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context already cancelled: %w", err)
	}
	if len(req.Audio) == 0 {
		return nil, errors.New("whisper: audio must not be empty")
	}
	if req.MIMEType != "" && req.MIMEType != "audio/l16" {
		return nil, fmt.Errorf("whisper: unsupported input %q; raw PCM required", req.MIMEType)
	}
	if req.SampleRate != 0 && req.SampleRate != requiredSampleRate {
		return nil, fmt.Errorf("whisper: sample rate must be %d Hz, got %d", requiredSampleRate, req.SampleRate)
	}

	channels := req.Channels
	if channels <= 0 {
		channels = 1
	}
	samples := pcmToFloat32Mono(req.Audio, channels)

	lang := p.language
	if req.Language != "" {
		lang = req.Language
	}

	text, err := p.infer(samples, lang)
	if err != nil {
		return nil, err
	}

	return &stt.Transcript{
		Text:    text,
		IsFinal: true,
	}, nil
}

// infer runs whisper.cpp inference using a fresh context and returns the
// concatenated segment text. Each context is NOT thread-safe, but the model
// can be shared across goroutines.
func (p *Provider) infer(samples []float32, lang string) (string, error) {
	wctx, err := p.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(lang); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", lang, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}

// Compile-time interface assertion.
var _ stt.BatchProvider = (*Provider)(nil)
