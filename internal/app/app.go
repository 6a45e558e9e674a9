// Package app wires the session-scoped pieces together: each learner gets a
// bundle of exercise flow, narration player, adventure chat, and speech
// recorder, tracked by a Manager that evicts idle bundles.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/asherquest/asherquest/internal/adventure"
	"github.com/asherquest/asherquest/internal/flow"
	"github.com/asherquest/asherquest/internal/narrate"
	"github.com/asherquest/asherquest/internal/observe"
	"github.com/asherquest/asherquest/internal/speech"
	"github.com/asherquest/asherquest/internal/story"
	"github.com/asherquest/asherquest/pkg/provider/image"
	"github.com/asherquest/asherquest/pkg/provider/llm"
	"github.com/asherquest/asherquest/pkg/provider/stt"
	"github.com/asherquest/asherquest/pkg/provider/tts"
)

// ErrSessionNotFound is returned by Get for unknown or evicted session IDs.
var ErrSessionNotFound = errors.New("app: session not found")

// DefaultIdleTimeout is how long a session may sit untouched before the
// manager evicts it.
const DefaultIdleTimeout = 30 * time.Minute

// Providers bundles the AI backends sessions are built from. Any field may
// be nil; the affected features degrade rather than fail.
type Providers struct {
	LLM       llm.Provider
	STTStream stt.StreamProvider
	STTBatch  stt.BatchProvider
	TTS       tts.Provider
	Image     image.Provider
}

// Session is one learner's bundle of runtime state.
type Session struct {
	ID       string
	Flow     *flow.Session
	Narrator *narrate.Player   // nil when no TTS provider is configured
	Chat     *adventure.Chat
	Recorder *speech.Recorder // nil when no STT provider is configured

	lastSeen time.Time // guarded by the manager's mutex
}

// Option configures a [Manager].
type Option func(*Manager)

// WithLogger sets the manager's logger. Default: [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithIdleTimeout sets the idle eviction threshold.
// Default: [DefaultIdleTimeout].
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(met *observe.Metrics) Option {
	return func(m *Manager) {
		m.metrics = met
	}
}

// Manager owns all live learner sessions. Safe for concurrent use.
type Manager struct {
	pack    *story.Pack
	prov    Providers
	voice   tts.VoiceProfile
	ttl     time.Duration
	log     *slog.Logger
	metrics *observe.Metrics

	mu       sync.Mutex
	sessions map[string]*Session

	done     chan struct{}
	stopOnce sync.Once
}

// NewManager creates a session manager over the given pack and providers and
// starts the background eviction sweep.
func NewManager(pack *story.Pack, prov Providers, voice tts.VoiceProfile, opts ...Option) *Manager {
	m := &Manager{
		pack:     pack,
		prov:     prov,
		voice:    voice,
		ttl:      DefaultIdleTimeout,
		log:      slog.Default(),
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(m)
	}
	if m.metrics == nil {
		m.metrics = observe.DefaultMetrics()
	}

	go m.sweep()
	return m
}

// Create starts a fresh session at the pack's first step.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, fmt.Errorf("app: generate session id: %w", err)
	}

	provider := m.prov.LLM
	if provider == nil {
		provider = unavailableLLM{}
	}

	s := &Session{
		ID:       id,
		Flow:     flow.NewSession(m.pack, provider, flow.WithLogger(m.log)),
		Chat:     adventure.NewChat(provider, m.prov.Image, adventure.WithLogger(m.log)),
		lastSeen: time.Now(),
	}
	if m.prov.TTS != nil {
		s.Narrator = narrate.NewPlayer(m.prov.TTS, m.voice, narrate.WithLogger(m.log))
	}
	if m.prov.STTStream != nil || m.prov.STTBatch != nil {
		rec, err := speech.NewRecorder(m.prov.STTStream, m.prov.STTBatch,
			speech.WithLogger(m.log),
			speech.WithKeywords(packKeywords(m.pack)),
		)
		if err != nil {
			return nil, err
		}
		s.Recorder = rec
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.metrics.ActiveSessions.Add(ctx, 1)
	m.log.Info("session created", "session_id", id)
	return s, nil
}

// Get returns the session with the given ID and refreshes its idle clock.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.lastSeen = time.Now()
	return s, nil
}

// Remove ends a session immediately.
func (m *Manager) Remove(ctx context.Context, id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	m.release(ctx, s, "removed")
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops the eviction sweep and ends every session.
func (m *Manager) Close() {
	m.stopOnce.Do(func() {
		close(m.done)
	})

	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		m.release(context.Background(), s, "shutdown")
	}
}

// release tears down a session's live resources outside the manager lock.
func (m *Manager) release(ctx context.Context, s *Session, reason string) {
	if s.Recorder != nil {
		s.Recorder.Abort()
	}
	if s.Narrator != nil {
		s.Narrator.Stop()
	}
	m.metrics.ActiveSessions.Add(ctx, -1)
	m.log.Info("session ended", "session_id", s.ID, "reason", reason)
}

// sweep evicts sessions idle longer than the timeout. It runs until Close.
func (m *Manager) sweep() {
	interval := m.ttl / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictIdle(time.Now())
		}
	}
}

func (m *Manager) evictIdle(now time.Time) {
	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if now.Sub(s.lastSeen) > m.ttl {
			delete(m.sessions, id)
			expired = append(expired, s)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		m.release(context.Background(), s, "idle")
	}
}

func newSessionID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// packKeywords collects recognition hints from a pack: the cast's proper
// nouns plus every step's target vocabulary.
func packKeywords(p *story.Pack) []stt.KeywordBoost {
	seen := make(map[string]struct{})
	var kws []stt.KeywordBoost
	add := func(word string, boost float64) {
		word = strings.TrimSpace(word)
		if word == "" {
			return
		}
		key := strings.ToLower(word)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		kws = append(kws, stt.KeywordBoost{Keyword: word, Boost: boost})
	}

	add(p.Characters.Hero, 3)
	for _, s := range p.Characters.Sidekicks {
		add(s, 3)
	}
	for _, st := range p.Steps {
		switch step := st.(type) {
		case story.BlendingStep:
			add(step.Word, 2)
		case story.ComprehensionStep:
			for _, w := range step.ExpectedWords {
				add(w, 2)
			}
		case story.PhonicsStep:
			add(step.Word, 2)
		case story.SpellingStep:
			add(step.Word, 2)
			add(step.Answer, 2)
		}
	}
	return kws
}

// unavailableLLM stands in when no LLM provider is configured so the flow
// and chat layers hit their canned fallbacks instead of a nil interface.
type unavailableLLM struct{}

func (unavailableLLM) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return nil, errors.New("app: no llm provider configured")
}

var _ llm.Provider = unavailableLLM{}
