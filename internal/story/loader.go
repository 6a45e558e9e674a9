package story

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// packFile is the top-level structure of a story pack YAML file.
//
// Example:
//
//	name: "Captain Asher's Moon Jungle"
//	characters:
//	  hero: Asher
//	  sidekicks: [Clay, Shracker]
//	steps:
//	  - kind: adventure-intro
//	  - kind: phonics
//	    word: ship
//	    options: [th, ch, sh]
//	    correct_index: 2
type packFile struct {
	Name       string         `yaml:"name"`
	Characters charactersFile `yaml:"characters"`
	Steps      []stepFile     `yaml:"steps"`
}

type charactersFile struct {
	Hero      string   `yaml:"hero"`
	Sidekicks []string `yaml:"sidekicks"`
}

// stepFile is the flat YAML form of a step; Kind selects which fields apply.
type stepFile struct {
	Kind          Kind      `yaml:"kind"`
	Word          string    `yaml:"word"`
	Image         string    `yaml:"image"`
	Explanation   string    `yaml:"explanation"`
	Phonemes      []string  `yaml:"phonemes"`
	Text          string    `yaml:"text"`
	ExpectedWords []string  `yaml:"expected_words"`
	Options       []string  `yaml:"options"`
	CorrectIndex  int       `yaml:"correct_index"`
	Answer        string    `yaml:"answer"`
	Hook          *hookFile `yaml:"hook"`
}

type hookFile struct {
	TargetWord     string     `yaml:"target_word"`
	Intent         HookIntent `yaml:"intent"`
	BaseLine       string     `yaml:"base_line"`
	QuestionLine   string     `yaml:"question_line"`
	ValidationWord string     `yaml:"validation_word"`
	FallbackLine   string     `yaml:"fallback_line"`
}

// Load reads and parses a story pack YAML file from disk.
func Load(path string) (*Pack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("story: open pack file %q: %w", path, err)
	}
	defer f.Close()

	p, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("story: parse pack file %q: %w", path, err)
	}
	return p, nil
}

// LoadFromReader parses story pack YAML from an [io.Reader], then validates
// the result. The reader is consumed entirely; the caller closes it.
func LoadFromReader(r io.Reader) (*Pack, error) {
	var pf packFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("story: decode pack yaml: %w", err)
	}

	pack := &Pack{
		Name: pf.Name,
		Characters: Characters{
			Hero:      pf.Characters.Hero,
			Sidekicks: pf.Characters.Sidekicks,
		},
		Steps: make([]Step, 0, len(pf.Steps)),
	}
	for _, sf := range pf.Steps {
		pack.Steps = append(pack.Steps, sf.toStep())
	}

	if err := Validate(pack); err != nil {
		return nil, fmt.Errorf("story: invalid pack %q: %w", pf.Name, err)
	}
	return pack, nil
}

// toStep converts the flat YAML form into the step union.
func (sf stepFile) toStep() Step {
	switch sf.Kind {
	case KindBlending:
		return BlendingStep{
			Word:        sf.Word,
			Image:       sf.Image,
			Phonemes:    sf.Phonemes,
			Explanation: sf.Explanation,
		}
	case KindComprehension:
		return ComprehensionStep{
			Text:          sf.Text,
			Image:         sf.Image,
			ExpectedWords: sf.ExpectedWords,
			Explanation:   sf.Explanation,
		}
	case KindPhonics:
		return PhonicsStep{
			Word:         sf.Word,
			Image:        sf.Image,
			Options:      sf.Options,
			CorrectIndex: sf.CorrectIndex,
			Explanation:  sf.Explanation,
			Hook:         sf.Hook.toHook(),
		}
	case KindSpelling:
		return SpellingStep{
			Word:        sf.Word,
			Image:       sf.Image,
			Answer:      sf.Answer,
			Explanation: sf.Explanation,
			Hook:        sf.Hook.toHook(),
		}
	default:
		// Adventure checkpoints and unknown kinds; Validate rejects the
		// latter.
		return AdventureStep{Role: sf.Kind}
	}
}

func (hf *hookFile) toHook() *Hook {
	if hf == nil {
		return nil
	}
	return &Hook{
		TargetWord:     hf.TargetWord,
		Intent:         hf.Intent,
		BaseLine:       hf.BaseLine,
		QuestionLine:   hf.QuestionLine,
		ValidationWord: hf.ValidationWord,
		FallbackLine:   hf.FallbackLine,
	}
}

// Validate checks a Pack for structural problems.
//
// Rules:
//   - Steps must be non-empty and every kind recognised.
//   - Blending steps need a word and at least one phoneme.
//   - Comprehension steps need text and at least one expected word.
//   - Phonics steps need at least two options and an in-range correct index.
//   - Spelling steps need a non-empty answer.
//   - Hooks need a target word and a validation word, and a valid intent.
func Validate(p *Pack) error {
	var errs []error

	if len(p.Steps) == 0 {
		errs = append(errs, errors.New("pack must contain at least one step"))
	}

	for i, s := range p.Steps {
		if !s.Kind().IsValid() {
			errs = append(errs, fmt.Errorf("step[%d]: kind %q is not recognised", i, s.Kind()))
			continue
		}
		switch st := s.(type) {
		case BlendingStep:
			if st.Word == "" {
				errs = append(errs, fmt.Errorf("step[%d]: blending word must not be empty", i))
			}
			if len(st.Phonemes) == 0 {
				errs = append(errs, fmt.Errorf("step[%d]: blending step needs phonemes", i))
			}
		case ComprehensionStep:
			if st.Text == "" {
				errs = append(errs, fmt.Errorf("step[%d]: comprehension text must not be empty", i))
			}
			if len(st.ExpectedWords) == 0 {
				errs = append(errs, fmt.Errorf("step[%d]: comprehension step needs expected words", i))
			}
		case PhonicsStep:
			if len(st.Options) < 2 {
				errs = append(errs, fmt.Errorf("step[%d]: phonics step needs at least two options", i))
			}
			if st.CorrectIndex < 0 || st.CorrectIndex >= len(st.Options) {
				errs = append(errs, fmt.Errorf("step[%d]: correct index %d out of range", i, st.CorrectIndex))
			}
			errs = appendHookErrs(errs, i, st.Hook)
		case SpellingStep:
			if st.Answer == "" {
				errs = append(errs, fmt.Errorf("step[%d]: spelling answer must not be empty", i))
			}
			errs = appendHookErrs(errs, i, st.Hook)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

func appendHookErrs(errs []error, i int, h *Hook) []error {
	if h == nil {
		return errs
	}
	if h.TargetWord == "" {
		errs = append(errs, fmt.Errorf("step[%d]: hook target word must not be empty", i))
	}
	if h.ValidationWord == "" {
		errs = append(errs, fmt.Errorf("step[%d]: hook validation word must not be empty", i))
	}
	switch h.Intent {
	case IntentSound, IntentSpelling, IntentStory:
	default:
		errs = append(errs, fmt.Errorf("step[%d]: hook intent %q is not recognised", i, h.Intent))
	}
	return errs
}
