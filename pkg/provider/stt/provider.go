// Package stt defines the provider interfaces for Speech-to-Text backends.
//
// Two capabilities are modelled separately because the reading flow uses them
// differently:
//
//   - StreamProvider wraps a real-time transcription service (e.g., Deepgram).
//     A SessionHandle accepts raw PCM audio frames and emits low-latency
//     interim Transcript values while the learner is still speaking. Live
//     recognition is best effort; losing it never fails a recording.
//
//   - BatchProvider wraps a whole-utterance transcription service (e.g., the
//     OpenAI Whisper API or a local whisper.cpp model). It receives the full
//     recorded audio after the learner stops and returns the authoritative
//     transcript.
//
// A deployment may configure both, either, or neither; the speech-capture
// layer degrades accordingly. Implementations must be safe for concurrent use.
package stt

import "context"

// StreamConfig describes the audio format and recognition hints for a new
// live STT session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. Common values: 16000
	// (STT-optimised mono), 48000 (browser Opus decode output).
	SampleRate int

	// Channels is the number of audio channels. 1 = mono (required by most
	// STT providers). Implementors may downmix stereo internally.
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g., "en-US").
	// An empty string lets the provider auto-detect, if supported.
	Language string

	// Keywords is a list of vocabulary hints that increase recognition
	// probability for uncommon words such as story proper nouns
	// ("Shracker") or the exercise's target words.
	Keywords []KeywordBoost
}

// BatchRequest carries a complete recorded utterance for transcription.
type BatchRequest struct {
	// Audio is the recorded audio. For API-backed providers this is the
	// encoded container as captured (e.g., audio/webm); for local providers
	// it is raw 16-bit little-endian signed PCM.
	Audio []byte

	// MIMEType identifies the encoding of Audio (e.g., "audio/webm",
	// "audio/wav"). Empty means raw PCM described by SampleRate/Channels.
	MIMEType string

	// SampleRate and Channels describe raw PCM input. Ignored when MIMEType
	// names a self-describing container.
	SampleRate int
	Channels   int

	// Language is the BCP-47 language tag for recognition. Empty means
	// provider default.
	Language string

	// Keywords carries the same vocabulary hints as StreamConfig.Keywords.
	// Providers without keyword support fold them into a recognition prompt
	// or ignore them.
	Keywords []KeywordBoost
}

// SessionHandle represents an open live STT session. It is an interface so
// that test code can provide mock implementations without a live provider
// connection.
//
// Callers must call Close when the session is no longer needed. Failing to do
// so may leak goroutines and network connections inside the provider
// implementation. All methods must be safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw PCM audio bytes to the provider for
	// transcription. The chunk should match the SampleRate, Channels, and
	// bit-depth agreed in StreamConfig. Calling SendAudio after Close
	// returns an error.
	SendAudio(chunk []byte) error

	// Partials returns a read-only channel that emits low-latency interim
	// Transcript values as the provider makes preliminary guesses. These
	// drive the live caption under the recording indicator and serve as the
	// fallback transcript when batch transcription fails. The channel is
	// closed when the session ends.
	Partials() <-chan Transcript

	// Finals returns a read-only channel that emits Transcript values once
	// the provider has committed to a recognition result. The channel is
	// closed when the session ends.
	Finals() <-chan Transcript

	// Close terminates the session, flushes any pending audio, and releases
	// all associated resources. After Close returns, the Partials and
	// Finals channels will be closed. Calling Close more than once is safe
	// and returns nil.
	Close() error
}

// StreamProvider is the abstraction over any live STT backend.
//
// Implementations must be safe for concurrent use. Multiple sessions may be
// open simultaneously (one per active learner session).
type StreamProvider interface {
	// StartStream opens a new streaming transcription session with the
	// given audio format and recognition configuration. The returned
	// SessionHandle is ready to accept audio immediately.
	//
	// Returns an error if the provider cannot establish the session (e.g.,
	// authentication failure, unsupported configuration, or ctx already
	// cancelled). The caller owns the SessionHandle and must call Close
	// when done.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}

// BatchProvider is the abstraction over any whole-utterance STT backend.
type BatchProvider interface {
	// Transcribe runs recognition over the complete utterance in req and
	// returns the authoritative transcript. A nil error with an empty
	// Transcript.Text means the provider heard no speech.
	Transcribe(ctx context.Context, req BatchRequest) (*Transcript, error)
}
