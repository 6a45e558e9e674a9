// Package mock provides a test double for the tts.Provider interface.
//
// Use Provider to feed controlled Audio values and inspect which texts and
// voices the caller requested.
//
// Example:
//
//	p := &mock.Provider{
//	    Audio: &tts.Audio{Data: []byte("mp3"), MIMEType: "audio/mpeg"},
//	}
//	audio, _ := p.Synthesize(ctx, "Ahoy!", voice)
package mock

import (
	"context"
	"sync"

	"github.com/asherquest/asherquest/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Ctx is the context passed to Synthesize.
	Ctx context.Context
	// Text is the text passed to Synthesize.
	Text string
	// Voice is the voice profile passed to Synthesize.
	Voice tts.VoiceProfile
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Audio is returned by Synthesize when SynthesizeFunc is nil. A nil
	// Audio yields an empty audio/mpeg clip.
	Audio *tts.Audio

	// SynthesizeErr, if non-nil, is returned instead of audio.
	SynthesizeErr error

	// SynthesizeFunc, if non-nil, is invoked instead of the static fields.
	SynthesizeFunc func(ctx context.Context, text string, voice tts.VoiceProfile) (*tts.Audio, error)

	// SynthesizeCalls records every invocation of Synthesize in order.
	SynthesizeCalls []SynthesizeCall
}

// Synthesize records the call and returns the configured result.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) (*tts.Audio, error) {
	p.mu.Lock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Ctx: ctx, Text: text, Voice: voice})
	fn := p.SynthesizeFunc
	audio := p.Audio
	err := p.SynthesizeErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, voice)
	}
	if err != nil {
		return nil, err
	}
	if audio == nil {
		return &tts.Audio{MIMEType: "audio/mpeg", VoiceID: voice.ID}, nil
	}
	return audio, nil
}

// CallCount returns the number of Synthesize calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.SynthesizeCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = nil
}

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)
