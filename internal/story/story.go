// Package story defines the static exercise content model: an ordered
// sequence of steps the learner walks through, one Go type per step kind.
// Packs are constructed once at startup (built-in or loaded from YAML) and
// never mutated; all session-mutable state lives in internal/flow.
package story

// Kind identifies what a step asks of the learner.
type Kind string

const (
	KindAdventureIntro  Kind = "adventure-intro"
	KindBlending        Kind = "blending"
	KindComprehension   Kind = "comprehension-speech"
	KindAdventureBridge Kind = "adventure-bridge"
	KindPhonics         Kind = "phonics"
	KindSpelling        Kind = "spelling"
	KindAdventureCloser Kind = "adventure-closer"
)

// IsValid reports whether k is a recognised step kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindAdventureIntro, KindBlending, KindComprehension,
		KindAdventureBridge, KindPhonics, KindSpelling, KindAdventureCloser:
		return true
	}
	return false
}

// HookIntent classifies what an AI hook leads into.
type HookIntent string

const (
	IntentSound    HookIntent = "sound"
	IntentSpelling HookIntent = "spelling"
	IntentStory    HookIntent = "story"
)

// Hook configures the AI narrator lead-in attached to some phonics and
// spelling steps. The validation word is matched case-insensitively as a
// whole word in the learner's continuation, never as a substring.
type Hook struct {
	// TargetWord is the word the step teaches.
	TargetWord string

	// Intent describes the kind of question the hook leads into.
	Intent HookIntent

	// BaseLine is the hand-authored narrative line the model adapts.
	BaseLine string

	// QuestionLine is the task phrasing, given to the model for reference
	// only; it must not be narrated verbatim.
	QuestionLine string

	// ValidationWord is the word a learner's continuation must contain.
	ValidationWord string

	// FallbackLine, if set, overrides the intent-keyed canned hook used
	// when generation fails.
	FallbackLine string
}

// Step is the tagged union over all step kinds. Each concrete step type
// carries only the fields relevant to its kind.
type Step interface {
	Kind() Kind
}

// AdventureStep is a free-chat checkpoint (intro, bridge, or closer).
type AdventureStep struct {
	Role Kind // KindAdventureIntro, KindAdventureBridge, or KindAdventureCloser
}

func (s AdventureStep) Kind() Kind { return s.Role }

// BlendingStep asks the learner to blend phonemes into a word aloud.
// There is no correctness notion; submission advances the flow.
type BlendingStep struct {
	Word        string
	Image       string
	Phonemes    []string
	Explanation string
}

func (s BlendingStep) Kind() Kind { return KindBlending }

// ComprehensionStep asks the learner to read a short story aloud; the
// transcript is checked for the expected words.
type ComprehensionStep struct {
	Text          string
	Image         string
	ExpectedWords []string
	Explanation   string
}

func (s ComprehensionStep) Kind() Kind { return KindComprehension }

// PhonicsStep is a multiple-choice sound question.
type PhonicsStep struct {
	Word         string
	Image        string
	Options      []string
	CorrectIndex int
	Explanation  string
	Hook         *Hook
}

func (s PhonicsStep) Kind() Kind { return KindPhonics }

// SpellingStep asks the learner to type the target word.
type SpellingStep struct {
	Word        string
	Image       string
	Answer      string
	Explanation string
	Hook        *Hook
}

func (s SpellingStep) Kind() Kind { return KindSpelling }

// HookOf returns the AI hook configuration of a step, or nil if the step
// kind cannot carry one or none is configured.
func HookOf(s Step) *Hook {
	switch st := s.(type) {
	case PhonicsStep:
		return st.Hook
	case SpellingStep:
		return st.Hook
	}
	return nil
}

// Pack is a complete ordered exercise sequence plus the cast metadata the
// narrator prompts reference.
type Pack struct {
	// Name is the pack's display name.
	Name string

	// Steps is the fixed ordered sequence. Indices are 0-based and
	// contiguous; the slice is never mutated after construction.
	Steps []Step

	// Characters lists the story cast by role. Narrator prompt rules use
	// these to keep a target character from speaking its own name.
	Characters Characters
}

// Characters names the story cast.
type Characters struct {
	// Hero is the learner's avatar (spoken to, never speaks the clue).
	Hero string

	// Sidekicks are the clue-giving companions.
	Sidekicks []string
}

// ComprehensionText returns the text of the first comprehension step, used
// to seed a session's story context. Empty if the pack has none.
func (p *Pack) ComprehensionText() string {
	for _, s := range p.Steps {
		if cs, ok := s.(ComprehensionStep); ok {
			return cs.Text
		}
	}
	return ""
}
