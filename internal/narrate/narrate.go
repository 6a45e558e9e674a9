// Package narrate manages spoken narration for one learner session. A
// Player owns a single narration slot: starting a new line preempts
// whatever is playing, and toggling the line that is already active stops
// it instead of restarting it. Synthesized audio is cached per session so
// replaying an explanation or hook line costs no second TTS call.
//
// Narration is an enhancement, never a gate: when synthesis fails the
// player logs the failure, stays silent, and the exercise continues.
package narrate

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/asherquest/asherquest/pkg/provider/tts"
)

// Option configures a [Player].
type Option func(*Player)

// WithLogger sets the player's logger. Default: [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(p *Player) {
		p.log = log
	}
}

// Player is one session's narration slot. Safe for concurrent use.
type Player struct {
	provider tts.Provider
	voice    tts.VoiceProfile
	log      *slog.Logger

	mu      sync.Mutex
	cache   map[string]*tts.Audio
	current string // key of the active narration, "" when idle
}

// NewPlayer returns a Player that speaks with the given voice.
func NewPlayer(provider tts.Provider, voice tts.VoiceProfile, opts ...Option) *Player {
	p := &Player{
		provider: provider,
		voice:    voice,
		log:      slog.Default(),
		cache:    make(map[string]*tts.Audio),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Play synthesizes text and makes it the active narration, preempting any
// line already playing. The audio comes from the session cache when the
// same text was spoken before. On synthesis failure Play returns (nil, nil)
// and the player stays idle; narration never fails the exercise.
func (p *Player) Play(ctx context.Context, text string) (*tts.Audio, error) {
	key := narrationKey(text)
	if key == "" {
		return nil, nil
	}

	p.mu.Lock()
	if a, ok := p.cache[key]; ok {
		p.current = key
		p.mu.Unlock()
		return a, nil
	}
	p.mu.Unlock()

	a, err := p.provider.Synthesize(ctx, text, p.voice)
	if err != nil {
		p.log.Warn("narration synthesis failed, staying silent",
			"voice", p.voice.ID, "error", err)
		p.mu.Lock()
		p.current = ""
		p.mu.Unlock()
		return nil, nil
	}

	p.mu.Lock()
	p.cache[key] = a
	p.current = key
	p.mu.Unlock()
	return a, nil
}

// Toggle plays text, or stops it if that same text is already the active
// narration. The returned audio is nil when the call stopped playback;
// playing reports whether narration is active afterwards.
func (p *Player) Toggle(ctx context.Context, text string) (a *tts.Audio, playing bool, err error) {
	key := narrationKey(text)

	p.mu.Lock()
	if key != "" && p.current == key {
		p.current = ""
		p.mu.Unlock()
		return nil, false, nil
	}
	p.mu.Unlock()

	a, err = p.Play(ctx, text)
	if err != nil || a == nil {
		return nil, false, err
	}
	return a, true, nil
}

// Stop clears the active narration slot.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = ""
}

// Playing reports whether a narration is active and, if so, which text.
func (p *Player) Playing() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.current != ""
}

// narrationKey normalizes text for the cache and the same-line comparison:
// surrounding whitespace is dropped and internal runs collapse to one space.
func narrationKey(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
