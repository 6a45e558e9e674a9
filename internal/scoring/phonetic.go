package scoring

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultExactThreshold    = 0.92
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score a transcript
// token needs, once it phonetically aligns with an expected word, to count
// as heard. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithExactThreshold sets the Jaro-Winkler score above which a token counts
// as heard even without phonetic code overlap. Default: 0.92.
func WithExactThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.exactThreshold = threshold
	}
}

// Matcher checks read-aloud transcripts for expected story words. Speech
// recognition of young readers is noisy ("gait" for "gate", "mapp" for
// "map"), so a word counts as heard when a transcript token either shares a
// Double Metaphone code with it and scores above the phonetic threshold, or
// scores above the stricter exact threshold on Jaro-Winkler similarity alone.
//
// A Matcher is read-only after construction and safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	exactThreshold    float64
}

// NewMatcher returns a [Matcher] configured with the supplied options.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		exactThreshold:    defaultExactThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// WordResult records how one expected word fared against the transcript.
type WordResult struct {
	// Word is the expected word as configured on the step.
	Word string

	// Heard reports whether any transcript token matched.
	Heard bool

	// Token is the transcript token that matched, lowercased. Empty when
	// Heard is false.
	Token string

	// Confidence is the Jaro-Winkler similarity of the matching token.
	Confidence float64
}

// Result is the outcome of checking a transcript against expected words.
type Result struct {
	Words []WordResult

	// HeardCount is the number of expected words found in the transcript.
	HeardCount int
}

// AllHeard reports whether every expected word was found.
func (r Result) AllHeard() bool {
	return r.HeardCount == len(r.Words)
}

// Comprehension checks which expected words occur in the transcript. An
// empty transcript or empty expected list yields a Result with no words
// heard.
func (m *Matcher) Comprehension(transcript string, expected []string) Result {
	tokens := tokenize(transcript)

	res := Result{Words: make([]WordResult, 0, len(expected))}
	for _, want := range expected {
		wr := m.matchWord(want, tokens)
		if wr.Heard {
			res.HeardCount++
		}
		res.Words = append(res.Words, wr)
	}
	return res
}

func (m *Matcher) matchWord(want string, tokens []string) WordResult {
	wr := WordResult{Word: want}
	wantLower := strings.ToLower(strings.TrimSpace(want))
	if wantLower == "" || len(tokens) == 0 {
		return wr
	}

	wantPrimary, wantSecondary := matchr.DoubleMetaphone(wantLower)

	for _, tok := range tokens {
		if tok == wantLower {
			return WordResult{Word: want, Heard: true, Token: tok, Confidence: 1}
		}

		score := matchr.JaroWinkler(tok, wantLower, false)
		phonetic := codesOverlap(tok, wantPrimary, wantSecondary)

		heard := (phonetic && score >= m.phoneticThreshold) || score >= m.exactThreshold
		if heard && score > wr.Confidence {
			wr = WordResult{Word: want, Heard: true, Token: tok, Confidence: score}
		}
	}
	return wr
}

// codesOverlap reports whether the token shares a Double Metaphone code with
// the expected word's codes. Empty codes never overlap.
func codesOverlap(token, primary, secondary string) bool {
	p, s := matchr.DoubleMetaphone(token)
	if p != "" && (p == primary || p == secondary) {
		return true
	}
	if s != "" && (s == primary || s == secondary) {
		return true
	}
	return false
}

// tokenize lowercases the transcript and splits it into word tokens,
// stripping anything that is not a letter, digit, or apostrophe.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= '0' && r <= '9':
			return false
		case r == '\'':
			return false
		}
		return true
	})
}
