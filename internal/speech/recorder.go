// Package speech captures a learner's spoken answer. A Recorder buffers the
// raw microphone audio for authoritative batch transcription and, when a
// live STT provider is configured, streams it out simultaneously so interim
// captions appear while the learner is still speaking.
//
// Live recognition is best effort: if the stream cannot be established or
// dies mid-recording, the recording continues batch-only. Batch recognition
// is authoritative: its transcript replaces the accumulated live text, and
// only when batch fails does the live text stand as the result.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/asherquest/asherquest/pkg/audio"
	"github.com/asherquest/asherquest/pkg/provider/stt"
)

var (
	// ErrAlreadyRecording is returned by Start while a recording is active.
	ErrAlreadyRecording = errors.New("speech: recording already in progress")

	// ErrNotRecording is returned by Stop and Feed without an active
	// recording.
	ErrNotRecording = errors.New("speech: no recording in progress")

	// ErrPermissionDenied means the learner's browser refused microphone
	// access.
	ErrPermissionDenied = errors.New("speech: microphone permission denied")

	// ErrDeviceUnavailable means no usable microphone was found or the
	// device could not be opened.
	ErrDeviceUnavailable = errors.New("speech: microphone unavailable")

	// ErrNoSpeech is returned by Stop when neither batch nor live
	// recognition produced any text.
	ErrNoSpeech = errors.New("speech: no speech recognised")
)

// MapCaptureError converts a browser getUserMedia error name, reported by
// the client over the live socket, into one of the typed capture errors.
func MapCaptureError(name string) error {
	switch name {
	case "NotAllowedError", "PermissionDeniedError", "SecurityError":
		return ErrPermissionDenied
	case "NotFoundError", "NotReadableError", "OverconstrainedError", "AbortError":
		return ErrDeviceUnavailable
	default:
		return fmt.Errorf("speech: microphone capture failed: %s", name)
	}
}

// Source identifies which recognition path produced a result.
type Source string

const (
	// SourceBatch means the whole-utterance provider produced the text.
	SourceBatch Source = "batch"

	// SourceLive means batch failed or was absent and the accumulated live
	// text stands.
	SourceLive Source = "live"
)

// Result is a finished recording's transcript.
type Result struct {
	Text   string
	Source Source
}

// Option configures a [Recorder].
type Option func(*Recorder)

// WithLogger sets the recorder's logger. Default: [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(r *Recorder) {
		r.log = log
	}
}

// WithLanguage sets the recognition language tag. Default: "en-US".
func WithLanguage(lang string) Option {
	return func(r *Recorder) {
		r.language = lang
	}
}

// WithKeywords sets vocabulary hints passed to both recognition paths:
// story names and the step's target words.
func WithKeywords(kws []stt.KeywordBoost) Option {
	return func(r *Recorder) {
		r.keywords = kws
	}
}

// Recorder runs one recording at a time. Safe for concurrent use; a second
// Start while recording returns [ErrAlreadyRecording].
type Recorder struct {
	stream   stt.StreamProvider // nil means batch-only
	batch    stt.BatchProvider  // nil means live-only
	log      *slog.Logger
	language string
	keywords []stt.KeywordBoost

	mu       sync.Mutex
	active   bool
	sess     stt.SessionHandle // nil while degraded to batch-only
	drain    *errgroup.Group
	interims chan stt.Transcript
	finals   []string
	buf      bytes.Buffer
	format   audio.Format
}

// NewRecorder returns a Recorder over the given providers. Either provider
// may be nil; at least one must be set.
func NewRecorder(stream stt.StreamProvider, batch stt.BatchProvider, opts ...Option) (*Recorder, error) {
	if stream == nil && batch == nil {
		return nil, errors.New("speech: at least one STT provider is required")
	}
	r := &Recorder{
		stream:   stream,
		batch:    batch,
		log:      slog.Default(),
		language: "en-US",
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Start begins a recording for audio in the given source format. When a live
// provider is configured, a streaming session is opened; failure to open it
// degrades the recording to batch-only rather than failing Start.
func (r *Recorder) Start(ctx context.Context, format audio.Format) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return ErrAlreadyRecording
	}

	r.active = true
	r.format = format
	r.buf.Reset()
	r.finals = nil
	r.interims = make(chan stt.Transcript, 16)
	r.sess = nil
	r.drain = nil

	if r.stream == nil {
		return nil
	}

	sess, err := r.stream.StartStream(ctx, stt.StreamConfig{
		SampleRate: audio.STTSampleRate,
		Channels:   1,
		Language:   r.language,
		Keywords:   r.keywords,
	})
	if err != nil {
		r.log.Warn("live transcription unavailable, recording batch-only", "error", err)
		return nil
	}
	r.sess = sess

	g := &errgroup.Group{}
	interims := r.interims
	g.Go(func() error {
		for t := range sess.Partials() {
			select {
			case interims <- t:
			default: // caption consumer is behind; newer partials supersede
			}
		}
		return nil
	})
	g.Go(func() error {
		for t := range sess.Finals() {
			r.mu.Lock()
			if text := strings.TrimSpace(t.Text); text != "" {
				r.finals = append(r.finals, text)
			}
			r.mu.Unlock()
		}
		return nil
	})
	r.drain = g
	return nil
}

// Interims returns the channel of live interim transcripts for the current
// recording. The channel is closed when the recording ends. Nil if Start has
// not been called.
func (r *Recorder) Interims() <-chan stt.Transcript {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interims
}

// Feed delivers a chunk of raw PCM in the format given to Start. The chunk
// is converted for recognition, buffered for batch transcription, and
// forwarded to the live session if one is open. A failing live session is
// dropped; the recording continues.
func (r *Recorder) Feed(pcm []byte) error {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return ErrNotRecording
	}
	converted := audio.ToSTTFormat(pcm, r.format)
	r.buf.Write(converted)
	sess := r.sess
	r.mu.Unlock()

	if sess == nil {
		return nil
	}
	if err := sess.SendAudio(converted); err != nil {
		r.log.Warn("live session rejected audio, continuing batch-only", "error", err)
		r.mu.Lock()
		if r.sess == sess {
			r.sess = nil
		}
		r.mu.Unlock()
		sess.Close()
	}
	return nil
}

// Stop ends the recording and returns the transcript. The buffered audio is
// sent to the batch provider; its transcript wins. If batch transcription
// fails or is not configured, the accumulated live text is returned instead.
// [ErrNoSpeech] means both paths came up empty.
func (r *Recorder) Stop(ctx context.Context) (Result, error) {
	live, pcm, err := r.finish()
	if err != nil {
		return Result{}, err
	}

	if r.batch != nil && len(pcm) > 0 {
		// Raw PCM with an empty MIME type; each backend frames the
		// container it needs.
		tr, err := r.batch.Transcribe(ctx, stt.BatchRequest{
			Audio:      pcm,
			SampleRate: audio.STTSampleRate,
			Channels:   1,
			Language:   r.language,
			Keywords:   r.keywords,
		})
		if err != nil {
			r.log.Warn("batch transcription failed, keeping live transcript", "error", err)
		} else if text := strings.TrimSpace(tr.Text); text != "" {
			return Result{Text: text, Source: SourceBatch}, nil
		}
	}

	if live == "" {
		return Result{}, ErrNoSpeech
	}
	return Result{Text: live, Source: SourceLive}, nil
}

// Abort ends the recording and discards everything without transcribing.
func (r *Recorder) Abort() {
	r.finish()
}

// finish tears down the live session, waits for the drain goroutines, and
// returns the accumulated live text and buffered PCM.
func (r *Recorder) finish() (live string, pcm []byte, err error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return "", nil, ErrNotRecording
	}
	r.active = false
	sess := r.sess
	drain := r.drain
	interims := r.interims
	r.sess = nil
	r.drain = nil
	r.mu.Unlock()

	if sess != nil {
		if cerr := sess.Close(); cerr != nil {
			r.log.Warn("closing live session", "error", cerr)
		}
	}
	if drain != nil {
		drain.Wait()
	}
	if interims != nil {
		close(interims)
	}

	r.mu.Lock()
	live = strings.Join(r.finals, " ")
	pcm = append([]byte(nil), r.buf.Bytes()...)
	r.mu.Unlock()
	return live, pcm, nil
}
