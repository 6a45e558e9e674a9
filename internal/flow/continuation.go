package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/asherquest/asherquest/pkg/provider/llm"
)

// Status classifies a continuation attempt.
type Status string

const (
	// StatusValid means the sentence uses the target word and joins the
	// story.
	StatusValid Status = "valid"

	// StatusInvalid means the sentence does not use the target word.
	StatusInvalid Status = "invalid"

	// StatusHelp means the learner asked for help or seems stuck.
	StatusHelp Status = "help"
)

// Validation is the narrator's verdict on a continuation sentence.
type Validation struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Validator checks continuation sentences for the target word. The primary
// path asks the model for a conversational verdict; when the model is
// unreachable or replies with something unparseable, a local heuristic
// produces the verdict instead. Either way the valid status is only granted
// when the target word actually appears as a standalone word, so "shipment"
// never passes for "ship".
type Validator struct {
	provider llm.Provider
	log      *slog.Logger
}

// NewValidator returns a Validator backed by the given completion provider.
func NewValidator(provider llm.Provider, log *slog.Logger) *Validator {
	if log == nil {
		log = slog.Default()
	}
	return &Validator{provider: provider, log: log}
}

// Validate judges text as a continuation that must use word. storyContext is
// the adventure so far, oldest first.
func (v *Validator) Validate(ctx context.Context, text, word string, storyContext []string) Validation {
	resp, err := v.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: validationSystemPrompt(word),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: validationUserPrompt(text, word, storyContext)},
		},
		Temperature: 0.7,
		MaxTokens:   100,
	})
	if err != nil {
		v.log.Warn("continuation validation request failed, using heuristic",
			"word", word, "error", err)
		val := heuristicValidation(text, word)
		if val.Status == StatusHelp {
			val.Message = errorHelpMessage(word)
		}
		return val
	}

	val, err := parseValidation(resp.Content)
	if err != nil {
		v.log.Warn("continuation validation reply unparseable, using heuristic",
			"word", word, "error", err)
		return heuristicValidation(text, word)
	}

	// The model occasionally accepts near-misses; the standalone-word rule
	// is non-negotiable.
	if val.Status == StatusValid && !ContainsWord(text, word) {
		return Validation{Status: StatusInvalid, Message: invalidMessage(word)}
	}
	return val
}

func validationSystemPrompt(word string) string {
	return fmt.Sprintf(`You are Captain Asher's fun AI companion helping kids write their adventure story. Your job is to check if they used the target word %q in their sentence and respond naturally like a friendly narrator.

Respond as minified JSON: {"status":"valid|invalid|help","message":"<your response>"}

RULES:
- valid: the sentence contains the exact standalone word (case-insensitive). Celebrate and react to what they wrote.
- invalid: the word is missing or altered. Point out what they actually wrote and nudge them to use the word.
- help: they asked for help or seem stuck. Give a creative prompt that sparks an idea.

Be conversational, not scripted. Acknowledge what they actually wrote. Keep responses under 25 words.`, word)
}

func validationUserPrompt(text, word string, storyContext []string) string {
	return fmt.Sprintf("Sentence: %s\n\nCurrent story context: %s\n\nHelp the child continue Captain Asher's adventure using the word %q.",
		text, strings.Join(storyContext, " "), word)
}

// parseValidation decodes the model's JSON verdict, tolerating surrounding
// prose or a Markdown code fence.
func parseValidation(content string) (Validation, error) {
	raw := strings.TrimSpace(content)
	if start := strings.IndexByte(raw, '{'); start >= 0 {
		if end := strings.LastIndexByte(raw, '}'); end > start {
			raw = raw[start : end+1]
		}
	}

	var val Validation
	if err := json.Unmarshal([]byte(raw), &val); err != nil {
		return Validation{}, fmt.Errorf("flow: decode validation reply: %w", err)
	}
	switch val.Status {
	case StatusValid, StatusInvalid, StatusHelp:
	default:
		return Validation{}, fmt.Errorf("flow: validation reply has unknown status %q", val.Status)
	}
	if val.Message == "" {
		return Validation{}, fmt.Errorf("flow: validation reply has empty message")
	}
	return val, nil
}

var helpPattern = regexp.MustCompile(`(?i)\b(help|hint|example|idk|don'?t know)\b`)

// heuristicValidation is the local verdict used when the model cannot be
// consulted.
func heuristicValidation(text, word string) Validation {
	switch {
	case ContainsWord(text, word):
		return Validation{Status: StatusValid, Message: validMessage()}
	case helpPattern.MatchString(text):
		return Validation{Status: StatusHelp, Message: helpMessage(word)}
	default:
		return Validation{Status: StatusInvalid, Message: invalidMessage(word)}
	}
}

// ContainsWord reports whether word occurs in text as a standalone word,
// case-insensitively. Substring hits like "shipment" for "ship" do not
// count.
func ContainsWord(text, word string) bool {
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(strings.TrimSpace(word)) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}
