package flow

import (
	"fmt"

	"github.com/asherquest/asherquest/internal/story"
)

// All learner-facing canned text lives here so narration, the web client,
// and tests agree on the exact wording.
const (
	feedbackCorrect   = "Great!"
	feedbackIncorrect = "Not quite. Try again."

	hookFallbackSound    = `"Oh look! Something big glides over the waves," says Clay. "Here's a clue, Asher: spot it and select the sound it starts with," says Shracker.`
	hookFallbackSpelling = `"Listen! A steady cutting sound comes from the vines," says Clay. "Here's a clue, Asher: name it and type the word," says Shracker.`
)

// fallbackHook returns the canned narrator line used when hook generation
// fails. A per-step override wins; otherwise the line is keyed on intent.
func fallbackHook(h *story.Hook) string {
	if h.FallbackLine != "" {
		return h.FallbackLine
	}
	if h.Intent == story.IntentSpelling {
		return hookFallbackSpelling
	}
	return hookFallbackSound
}

// continuationPrompt returns the header line shown above the continuation
// box. The first hook step of a session gets the longer introduction.
func continuationPrompt(word string, first bool) string {
	if first {
		return fmt.Sprintf(`Yay, "%s" it is. What will you do with this %s? Let's include it in your story`, word, word)
	}
	return fmt.Sprintf(`Awesome, let's keep the story going. Include the word "%s" in what happens next!`, word)
}

func validMessage() string {
	return "Great!"
}

func helpMessage(word string) string {
	return fmt.Sprintf("No worries! What if Captain Asher's %s could take him somewhere amazing? Where might it go?", word)
}

func invalidMessage(word string) string {
	return fmt.Sprintf("Use the word %q in your sentence.", word)
}

func errorHelpMessage(word string) string {
	return fmt.Sprintf("Try using the word %q.", word)
}
