package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/asherquest/asherquest/internal/story"
	"github.com/asherquest/asherquest/pkg/provider/llm"
)

// hookSystemPrompt steers the model toward short, spoken narrator lines and
// keeps it from leaking the answer or letting the target character announce
// itself.
const hookSystemPrompt = `You are a playful kids narrator for early readers. Make it fun and spoken to Asher (the player). Write 1–2 VERY SHORT sentences using simple K–2 words. CRITICAL RULE: If the target word is a character name (Clay, Shracker), do NOT have that character speak or introduce themselves. Use the OTHER character instead. Pattern: 1) A character notices the action. 2) Shracker gives Asher a friendly clue. If this step corresponds to "What is that word?", BEGIN with a tiny bridge (3–6 words). IMPORTANT: Do NOT include the provided question line; fold the task into Shracker's instruction to Asher. The UNSEEN target must matter next. STRICT RULES: Do NOT name, spell, rhyme, define, hint letters for, or use synonyms/descriptions of the target. If target is "clay", have Shracker speak, not Clay. If target is "shracker", have Clay speak, not Shracker. Return only the message.`

// HookGenerator produces the AI narrator lead-in for hook-bearing steps.
type HookGenerator struct {
	provider llm.Provider
	log      *slog.Logger
}

// NewHookGenerator returns a generator backed by the given completion
// provider.
func NewHookGenerator(provider llm.Provider, log *slog.Logger) *HookGenerator {
	if log == nil {
		log = slog.Default()
	}
	return &HookGenerator{provider: provider, log: log}
}

// hookInput carries the session context a hook prompt is built from.
type hookInput struct {
	hook         *story.Hook
	storyContext []string
	lastEvent    string
}

// Generate asks the model for a narrator line adapted to the session's story
// so far. The returned line is trimmed; an empty completion is an error so
// the caller can fall back to canned text.
func (g *HookGenerator) Generate(ctx context.Context, in hookInput) (string, error) {
	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: hookSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: hookUserPrompt(in)},
		},
		Temperature: 0.8,
		MaxTokens:   120,
	})
	if err != nil {
		return "", fmt.Errorf("flow: generate hook for %q: %w", in.hook.TargetWord, err)
	}

	line := strings.TrimSpace(resp.Content)
	if line == "" {
		return "", fmt.Errorf("flow: generate hook for %q: empty completion", in.hook.TargetWord)
	}
	return line, nil
}

func hookUserPrompt(in hookInput) string {
	h := in.hook
	return fmt.Sprintf(
		"Current adventure history (most recent last):\n%s\n\n"+
			"Most recent event to bridge from:\n%s\n\n"+
			"Target word for the next question: %s\n\n"+
			"Base line to adapt: %s\n\n"+
			"CRITICAL: If target word is %q and it's a character name, do NOT have that character speak! If target is \"clay\", only Shracker speaks. If target is \"shracker\", only Clay speaks.\n\n"+
			"Question line (for reference only, do NOT output it verbatim): %s\n\n"+
			"Instruction mapping: Always have the NON-TARGET character give the clue to Asher.",
		strings.Join(in.storyContext, "\n"),
		in.lastEvent,
		h.TargetWord,
		h.BaseLine,
		h.TargetWord,
		h.QuestionLine,
	)
}
