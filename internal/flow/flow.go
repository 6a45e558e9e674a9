// Package flow drives a learner's walk through a story pack: step
// navigation, answer judging, AI narrator hooks, and the continuation
// sentences that grow the adventure's story context.
//
// A [Session] serializes all access behind one mutex. Navigation resets
// per-step transient state (feedback, generated hook, pending continuation)
// but never discards the accumulated story context. Hook generation and
// continuation validation release the lock while the model call is in
// flight; an activation counter bumped on every navigation discards results
// that arrive for a step the learner has already left.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/asherquest/asherquest/internal/scoring"
	"github.com/asherquest/asherquest/internal/story"
	"github.com/asherquest/asherquest/pkg/provider/llm"
)

var (
	// ErrAtStart is returned by Retreat on the first step.
	ErrAtStart = errors.New("flow: already at first step")

	// ErrAtEnd is returned by Advance on the last step.
	ErrAtEnd = errors.New("flow: already at last step")

	// ErrWrongStep is returned when a submission does not match the current
	// step's kind.
	ErrWrongStep = errors.New("flow: submission does not match current step")

	// ErrNoHook is returned when the current step carries no narrator hook.
	ErrNoHook = errors.New("flow: current step has no hook")

	// ErrNotAwaitingContinuation is returned when a continuation arrives
	// before the step's question has been answered correctly.
	ErrNotAwaitingContinuation = errors.New("flow: not awaiting a continuation")

	// ErrStale is returned when a model result arrives for a step the
	// learner has already navigated away from.
	ErrStale = errors.New("flow: step changed while waiting for the model")
)

// Feedback is the verdict on a submitted answer.
type Feedback struct {
	Correct bool
	Text    string
}

// SessionOption configures a [Session].
type SessionOption func(*Session)

// WithLogger sets the session's logger. Default: [slog.Default].
func WithLogger(log *slog.Logger) SessionOption {
	return func(s *Session) {
		s.log = log
	}
}

// WithMatcher sets the comprehension matcher. Default: a matcher with
// standard thresholds.
func WithMatcher(m *scoring.Matcher) SessionOption {
	return func(s *Session) {
		s.matcher = m
	}
}

// Session is one learner's progress through a pack. Safe for concurrent use.
type Session struct {
	pack      *story.Pack
	hooks     *HookGenerator
	validator *Validator
	matcher   *scoring.Matcher
	log       *slog.Logger

	mu         sync.Mutex
	idx        int
	activation uint64

	// storyContext is the adventure so far: the read-aloud story text plus
	// every validated continuation, oldest first.
	storyContext          []string
	validatedContinuation string
	continuations         int

	hookLine             string
	hookGenerated        bool
	hookWait             chan struct{} // non-nil while a generation is in flight
	feedback             *Feedback
	awaitingContinuation bool
	continuationDone     bool
}

// NewSession starts a session at the pack's first step. The provider backs
// both hook generation and continuation validation. The story context is
// seeded with the pack's read-aloud story text.
func NewSession(pack *story.Pack, provider llm.Provider, opts ...SessionOption) *Session {
	s := &Session{
		pack:    pack,
		matcher: scoring.NewMatcher(),
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.hooks = NewHookGenerator(provider, s.log)
	s.validator = NewValidator(provider, s.log)

	if text := pack.ComprehensionText(); text != "" {
		s.storyContext = append(s.storyContext, text)
	}
	return s
}

// Pos returns the current step index and the step itself.
func (s *Session) Pos() (int, story.Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx, s.pack.Steps[s.idx]
}

// Len returns the number of steps in the pack.
func (s *Session) Len() int {
	return len(s.pack.Steps)
}

// Advance moves to the next step, resetting per-step state.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.pack.Steps)-1 {
		return ErrAtEnd
	}
	s.idx++
	s.resetStepLocked()
	return nil
}

// Retreat moves to the previous step, resetting per-step state. The story
// context keeps everything already validated.
func (s *Session) Retreat() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx == 0 {
		return ErrAtStart
	}
	s.idx--
	s.resetStepLocked()
	return nil
}

// resetStepLocked clears transient per-step state on every navigation and
// invalidates in-flight model calls for the departed step. The validated
// continuation belongs to the departed step's activation; it stays in the
// story context but is no longer poppable by a step retry.
func (s *Session) resetStepLocked() {
	s.activation++
	s.hookLine = ""
	s.hookGenerated = false
	s.feedback = nil
	s.awaitingContinuation = false
	s.continuationDone = false
	s.validatedContinuation = ""
}

// SubmitBlending completes a blending step. Blending has no correctness
// notion; the submission advances the flow.
func (s *Session) SubmitBlending() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pack.Steps[s.idx].(story.BlendingStep); !ok {
		return ErrWrongStep
	}
	if s.idx >= len(s.pack.Steps)-1 {
		return ErrAtEnd
	}
	s.idx++
	s.resetStepLocked()
	return nil
}

// SubmitPhonics judges a multiple-choice selection on a phonics step.
func (s *Session) SubmitPhonics(option int) (Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.pack.Steps[s.idx].(story.PhonicsStep)
	if !ok {
		return Feedback{}, ErrWrongStep
	}
	return s.recordAnswerLocked(scoring.Phonics(option, st.CorrectIndex), st.Hook), nil
}

// SubmitSpelling judges a typed answer on a spelling step.
func (s *Session) SubmitSpelling(text string) (Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.pack.Steps[s.idx].(story.SpellingStep)
	if !ok {
		return Feedback{}, ErrWrongStep
	}
	return s.recordAnswerLocked(scoring.Spelling(text, st.Answer), st.Hook), nil
}

// SubmitReading judges a read-aloud transcript on a comprehension step. The
// returned result details which expected words were heard.
func (s *Session) SubmitReading(transcript string) (Feedback, scoring.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.pack.Steps[s.idx].(story.ComprehensionStep)
	if !ok {
		return Feedback{}, scoring.Result{}, ErrWrongStep
	}
	res := s.matcher.Comprehension(transcript, st.ExpectedWords)
	fb := s.recordAnswerLocked(res.AllHeard(), nil)
	return fb, res, nil
}

func (s *Session) recordAnswerLocked(correct bool, hook *story.Hook) Feedback {
	fb := Feedback{Correct: correct, Text: feedbackIncorrect}
	if correct {
		fb.Text = feedbackCorrect
	}
	s.feedback = &fb
	if correct && hook != nil {
		s.awaitingContinuation = true
	}
	return fb
}

// RetryAnswer clears the feedback after a wrong answer so the learner can
// try the same question again.
func (s *Session) RetryAnswer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = nil
}

// RetryStep restarts the current step from scratch: the generated hook,
// feedback, and any validated continuation are discarded. If the most recent
// story-context entry is that continuation, it is removed too, so the
// redone step writes story history exactly once.
func (s *Session) RetryStep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.storyContext); n > 0 && s.validatedContinuation != "" &&
		s.storyContext[n-1] == s.validatedContinuation {
		s.storyContext = s.storyContext[:n-1]
		s.continuations--
	}
	s.resetStepLocked()
}

// Hook returns the narrator lead-in for the current step, generating it on
// first call. The model is asked at most once per step activation: concurrent
// callers wait for the in-flight generation and share its line. Generation
// failures fall back to a canned line; either way the line is cached until
// the learner leaves or restarts the step. Returns [ErrStale] if the step
// changed while the model call was in flight.
func (s *Session) Hook(ctx context.Context) (string, error) {
	s.mu.Lock()
	var h *story.Hook
	for {
		h = story.HookOf(s.pack.Steps[s.idx])
		if h == nil {
			s.mu.Unlock()
			return "", ErrNoHook
		}
		if s.hookGenerated {
			line := s.hookLine
			s.mu.Unlock()
			return line, nil
		}
		if s.hookWait == nil {
			break
		}
		wait := s.hookWait
		s.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		s.mu.Lock()
	}
	done := make(chan struct{})
	s.hookWait = done
	act := s.activation
	in := hookInput{
		hook:         h,
		storyContext: append([]string(nil), s.storyContext...),
		lastEvent:    s.lastEventLocked(),
	}
	s.mu.Unlock()

	line, err := s.hooks.Generate(ctx, in)
	if err != nil {
		s.log.Warn("hook generation failed, using canned line",
			"word", h.TargetWord, "error", err)
		line = fallbackHook(h)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hookWait == done {
		s.hookWait = nil
	}
	close(done)
	if s.activation != act {
		return "", ErrStale
	}
	s.hookLine = line
	s.hookGenerated = true
	return line, nil
}

// ContinuationPrompt returns the header line for the continuation box. The
// session's first continuation gets the longer introduction.
func (s *Session) ContinuationPrompt() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := story.HookOf(s.pack.Steps[s.idx])
	if h == nil {
		return "", ErrNoHook
	}
	return continuationPrompt(h.ValidationWord, s.continuations == 0), nil
}

// SubmitContinuation validates the learner's continuation sentence. A valid
// sentence is appended to the story context; invalid and help verdicts leave
// the session unchanged. Returns [ErrStale] if the step changed while the
// validation call was in flight.
func (s *Session) SubmitContinuation(ctx context.Context, text string) (Validation, error) {
	s.mu.Lock()
	h := story.HookOf(s.pack.Steps[s.idx])
	if h == nil {
		s.mu.Unlock()
		return Validation{}, ErrNoHook
	}
	if !s.awaitingContinuation {
		s.mu.Unlock()
		return Validation{}, ErrNotAwaitingContinuation
	}
	act := s.activation
	word := h.ValidationWord
	storyContext := append([]string(nil), s.storyContext...)
	s.mu.Unlock()

	val := s.validator.Validate(ctx, text, word, storyContext)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activation != act {
		return Validation{}, ErrStale
	}
	if val.Status == StatusValid {
		s.storyContext = append(s.storyContext, text)
		s.validatedContinuation = text
		s.continuations++
		s.awaitingContinuation = false
		s.continuationDone = true
	}
	return val, nil
}

// lastEventLocked returns the most recent story event: the last validated
// continuation if one exists, else the newest story-context entry.
func (s *Session) lastEventLocked() string {
	if s.validatedContinuation != "" {
		return s.validatedContinuation
	}
	if n := len(s.storyContext); n > 0 {
		return s.storyContext[n-1]
	}
	return ""
}

// State is a point-in-time snapshot of a session for the API layer.
type State struct {
	StepIndex            int
	StepCount            int
	Kind                 story.Kind
	Feedback             *Feedback
	AwaitingContinuation bool
	ContinuationDone     bool
	StoryContext         []string
}

// Snapshot returns the session's current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		StepIndex:            s.idx,
		StepCount:            len(s.pack.Steps),
		Kind:                 s.pack.Steps[s.idx].Kind(),
		AwaitingContinuation: s.awaitingContinuation,
		ContinuationDone:     s.continuationDone,
		StoryContext:         append([]string(nil), s.storyContext...),
	}
	if s.feedback != nil {
		fb := *s.feedback
		st.Feedback = &fb
	}
	return st
}
