// Package adventure implements the free-form story chat a learner unlocks
// after finishing the reading steps. The narrator keeps replies short and
// playful; asking for an image swaps the text reply for a generated
// illustration. Every reply replaces its in-place loading placeholder, so
// the transcript a client renders never jumps around.
package adventure

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/asherquest/asherquest/pkg/provider/image"
	"github.com/asherquest/asherquest/pkg/provider/llm"
)

const greeting = "🎉 Amazing reading, brave explorer! Captain Asher needs your help planning his next moon jungle adventure. What exciting mission should he go on next? 🚀🌙"

const systemPrompt = `You are Captain Asher's AI companion helping young students (ages 5-8) create exciting reading adventures. You should:

1. Respond with enthusiasm and encouragement
2. Ask follow-up questions to keep the conversation going
3. Suggest creative adventure plots
4. Keep everything age-appropriate and positive
5. Encourage imagination and creativity
6. Reference Captain Asher (a brave space explorer), Clay (his dragon sidekick), Shracker (a robot bird), and the moon jungle setting
7. Keep responses to 1-2 sentences max
8. Use emojis and simple vocabulary
9. Build on what the student says
10. Respond directly to the student, don't repeat their words back

The student just completed reading a story about Captain Asher in the moon jungle and is now creating their next adventure.`

const (
	thinkingPlaceholder = "Thinking about your adventure..."
	imagePlaceholder    = "Creating your adventure image..."

	emptyReplyFallback = "That sounds like an amazing adventure! What happens next?"
	chatErrorFallback  = "Wow, that sounds like an exciting adventure! 🚀 Tell me more about what Captain Asher should do next!"

	imageSuccessText = "Here's your adventure image! 🌄✨"
	imageErrorText   = "Sorry, I couldn't create that image. Please try again with a different description! 🌄"

	defaultImagePrompt = "Captain Asher on an exciting space adventure"
)

// historyWindow is how many prior messages accompany each completion.
const historyWindow = 4

// Role identifies who wrote a chat message.
type Role string

const (
	RoleAI      Role = "ai"
	RoleStudent Role = "student"
)

// Message is one entry in the adventure transcript.
type Message struct {
	Role     Role
	Text     string
	ImageURL string
	Loading  bool
}

// Option configures a [Chat].
type Option func(*Chat)

// WithLogger sets the chat's logger. Default: [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(c *Chat) {
		c.log = log
	}
}

// Chat is one learner's adventure conversation. Safe for concurrent use;
// Send serializes turns.
type Chat struct {
	llm    llm.Provider
	images image.Provider // nil disables image generation
	log    *slog.Logger

	mu       sync.Mutex
	messages []Message
}

// NewChat returns a Chat seeded with the narrator's greeting.
func NewChat(provider llm.Provider, images image.Provider, opts ...Option) *Chat {
	c := &Chat{
		llm:    provider,
		images: images,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.messages = []Message{{Role: RoleAI, Text: greeting}}
	return c
}

// Messages returns a snapshot of the transcript.
func (c *Chat) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// Send records the learner's message and produces the narrator's reply,
// which is also returned. An image request yields an illustration message;
// anything else yields a short chat reply. Failures turn into friendly
// fallback text, never an error.
func (c *Chat) Send(ctx context.Context, text string) Message {
	text = strings.TrimSpace(text)

	if prompt, ok := imageIntent(text); ok && c.images != nil {
		return c.sendImage(ctx, text, prompt)
	}
	return c.sendChat(ctx, text)
}

func (c *Chat) sendChat(ctx context.Context, text string) Message {
	c.mu.Lock()
	c.messages = append(c.messages,
		Message{Role: RoleStudent, Text: text},
		Message{Role: RoleAI, Text: thinkingPlaceholder, Loading: true},
	)
	slot := len(c.messages) - 1
	history := c.historyLocked(slot)
	c.mu.Unlock()

	reply := chatErrorFallback
	resp, err := c.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     history,
		Temperature:  0.9,
		MaxTokens:    150,
	})
	if err != nil {
		c.log.Warn("adventure reply failed", "error", err)
	} else if trimmed := strings.TrimSpace(resp.Content); trimmed == "" {
		reply = emptyReplyFallback
	} else {
		reply = trimmed
	}

	return c.resolve(slot, Message{Role: RoleAI, Text: reply})
}

func (c *Chat) sendImage(ctx context.Context, text, prompt string) Message {
	c.mu.Lock()
	c.messages = append(c.messages,
		Message{Role: RoleStudent, Text: text},
		Message{Role: RoleAI, Text: imagePlaceholder, Loading: true},
	)
	slot := len(c.messages) - 1
	c.mu.Unlock()

	res, err := c.images.Generate(ctx, image.Request{Prompt: prompt})
	if err != nil {
		switch {
		case errors.Is(err, image.ErrContentPolicy):
			c.log.Warn("adventure image blocked by content policy", "prompt", prompt)
		case errors.Is(err, image.ErrRateLimited):
			c.log.Warn("adventure image rate limited", "prompt", prompt)
		default:
			c.log.Warn("adventure image failed", "prompt", prompt, "error", err)
		}
		return c.resolve(slot, Message{Role: RoleAI, Text: imageErrorText})
	}

	return c.resolve(slot, Message{Role: RoleAI, Text: imageSuccessText, ImageURL: res.URL})
}

// resolve replaces the loading placeholder at slot with the final message.
func (c *Chat) resolve(slot int, m Message) Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[slot] = m
	return m
}

// historyLocked maps the last messages before slot into completion form,
// skipping placeholders and image messages.
func (c *Chat) historyLocked(slot int) []llm.Message {
	var history []llm.Message
	for _, m := range c.messages[:slot] {
		if m.Loading || m.ImageURL != "" {
			continue
		}
		role := llm.RoleUser
		if m.Role == RoleAI {
			role = llm.RoleAssistant
		}
		history = append(history, llm.Message{Role: role, Content: m.Text})
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	return history
}

// imageIntent reports whether text asks for an illustration and extracts
// the prompt. Bare "image" or "create image" uses a stock prompt; "create
// image <description>" uses the description.
func imageIntent(text string) (prompt string, ok bool) {
	lower := strings.ToLower(text)
	switch lower {
	case "image", "create image":
		return defaultImagePrompt, true
	}
	if strings.HasPrefix(lower, "create image") {
		desc := strings.TrimSpace(text[len("create image"):])
		if desc == "" {
			return defaultImagePrompt, true
		}
		return desc, true
	}
	return "", false
}
