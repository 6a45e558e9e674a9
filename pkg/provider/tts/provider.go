// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., ElevenLabs or a
// local Coqui server) and exposes a single-utterance interface: the narration
// layer hands over one cleaned text snippet and receives a complete encoded
// audio clip the browser can play. Narration snippets are short (a story
// paragraph at most), so there is no streaming seam here; preemption and the
// single playback slot live in internal/narrate.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// VoiceProfile describes a TTS voice configuration.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider identifies which TTS provider this voice belongs to.
	Provider string
}

// Audio is a complete synthesised utterance.
type Audio struct {
	// Data is the encoded audio ready for playback.
	Data []byte

	// MIMEType identifies the encoding of Data (e.g., "audio/mpeg",
	// "audio/wav").
	MIMEType string

	// VoiceID is the voice that actually produced the audio. It may differ
	// from the requested voice when the provider fell back to a default.
	VoiceID string
}

// Provider is the abstraction over any TTS backend.
//
// Implementations must be safe for concurrent use. Multiple Synthesize calls
// may run in parallel (one per active learner session).
type Provider interface {
	// Synthesize converts text into a complete audio clip using the given
	// voice. An empty voice.ID lets the provider pick its default voice.
	//
	// Returns an error if synthesis fails or ctx is cancelled first.
	// Callers treat narration synthesis as best effort and degrade to
	// silence on error.
	Synthesize(ctx context.Context, text string, voice VoiceProfile) (*Audio, error)
}
