package resilience

import (
	"context"

	"github.com/asherquest/asherquest/pkg/provider/tts"
)

// SpeechFallback implements [tts.Provider] with failover across synthesis
// backends: ElevenLabs as primary, a local Coqui server when it is down.
type SpeechFallback struct {
	group *FallbackGroup[tts.Provider]
}

var _ tts.Provider = (*SpeechFallback)(nil)

// NewSpeechFallback creates a [SpeechFallback] with primary as the
// preferred backend.
func NewSpeechFallback(primary tts.Provider, primaryName string, settings GroupSettings) *SpeechFallback {
	return &SpeechFallback{
		group: NewFallbackGroup(primary, primaryName, settings),
	}
}

// AddFallback registers an additional synthesis backend.
func (f *SpeechFallback) AddFallback(name string, provider tts.Provider) {
	f.group.AddFallback(name, provider)
}

// Degraded reports whether every backend's breaker is open.
func (f *SpeechFallback) Degraded() bool {
	return f.group.Degraded()
}

// Synthesize speaks text with the first healthy backend.
func (f *SpeechFallback) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) (*tts.Audio, error) {
	return DoResult(f.group, func(p tts.Provider) (*tts.Audio, error) {
		return p.Synthesize(ctx, text, voice)
	})
}
