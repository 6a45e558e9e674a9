package adventure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/asherquest/asherquest/pkg/provider/image"
	imgmock "github.com/asherquest/asherquest/pkg/provider/image/mock"
	"github.com/asherquest/asherquest/pkg/provider/llm"
	llmmock "github.com/asherquest/asherquest/pkg/provider/llm/mock"
)

func TestNewChatSeedsGreeting(t *testing.T) {
	c := NewChat(&llmmock.Provider{}, nil)

	msgs := c.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected only the greeting, got %d messages", len(msgs))
	}
	if msgs[0].Role != RoleAI || !strings.Contains(msgs[0].Text, "brave explorer") {
		t.Errorf("greeting = %+v", msgs[0])
	}
}

func TestSendChatReply(t *testing.T) {
	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Clay roars with joy! 🐉 Where should they fly first?"},
	}
	c := NewChat(p, nil)

	reply := c.Send(context.Background(), "Asher should find a treasure!")
	if reply.Role != RoleAI || reply.Loading {
		t.Errorf("reply = %+v", reply)
	}
	if reply.Text != "Clay roars with joy! 🐉 Where should they fly first?" {
		t.Errorf("reply text = %q", reply.Text)
	}

	msgs := c.Messages()
	if len(msgs) != 3 {
		t.Fatalf("transcript has %d messages, want greeting + student + reply", len(msgs))
	}
	if msgs[1].Role != RoleStudent || msgs[1].Text != "Asher should find a treasure!" {
		t.Errorf("student message = %+v", msgs[1])
	}
	if msgs[2] != reply {
		t.Error("placeholder was not replaced in place")
	}

	req := p.Calls()[0].Req
	if !strings.Contains(req.SystemPrompt, "Captain Asher's AI companion") {
		t.Error("missing narrator system prompt")
	}
	if last := req.Messages[len(req.Messages)-1]; last.Role != llm.RoleUser || last.Content == "" {
		t.Errorf("last history message = %+v", last)
	}
}

func TestSendHistoryWindow(t *testing.T) {
	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Onward! 🚀"},
	}
	c := NewChat(p, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		c.Send(ctx, fmt.Sprintf("idea number %d", i))
	}

	calls := p.Calls()
	last := calls[len(calls)-1].Req.Messages
	if len(last) != 4 {
		t.Fatalf("history window = %d messages, want 4", len(last))
	}
	if last[0].Role != llm.RoleAssistant || last[0].Content != "Onward! 🚀" {
		t.Errorf("oldest window entry = %+v", last[0])
	}
	if last[1].Role != llm.RoleUser || last[1].Content != "idea number 2" {
		t.Errorf("window entry = %+v", last[1])
	}
	if last[3].Role != llm.RoleUser || last[3].Content != "idea number 3" {
		t.Errorf("newest window entry = %+v", last[3])
	}
}

func TestSendEmptyReplyFallback(t *testing.T) {
	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "   "},
	}
	c := NewChat(p, nil)

	reply := c.Send(context.Background(), "hmm")
	if reply.Text != emptyReplyFallback {
		t.Errorf("reply = %q, want empty-reply fallback", reply.Text)
	}
}

func TestSendErrorFallback(t *testing.T) {
	p := &llmmock.Provider{CompleteErr: errors.New("timeout")}
	c := NewChat(p, nil)

	reply := c.Send(context.Background(), "Asher finds a cave")
	if reply.Text != chatErrorFallback {
		t.Errorf("reply = %q, want error fallback", reply.Text)
	}
	for _, m := range c.Messages() {
		if m.Loading {
			t.Error("loading placeholder survived a failed turn")
		}
	}
}

func TestImageIntent(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantOK     bool
		wantPrompt string
	}{
		{"bare image", "image", true, defaultImagePrompt},
		{"bare create image", "create image", true, defaultImagePrompt},
		{"uppercase", "Create Image", true, defaultImagePrompt},
		{"with description", "create image Asher riding Clay over lava", true, "Asher riding Clay over lava"},
		{"plain chat", "Asher should make an image of himself", false, ""},
		{"image mid-sentence", "draw an image", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, ok := imageIntent(tt.text)
			if ok != tt.wantOK || prompt != tt.wantPrompt {
				t.Errorf("imageIntent(%q) = %q, %v; want %q, %v", tt.text, prompt, ok, tt.wantPrompt, tt.wantOK)
			}
		})
	}
}

func TestSendImageSuccess(t *testing.T) {
	img := &imgmock.Provider{
		Result: &image.Result{URL: "https://img.example/adventure.png"},
	}
	c := NewChat(&llmmock.Provider{}, img)

	reply := c.Send(context.Background(), "create image Asher surfing a moon river")
	if reply.Text != imageSuccessText {
		t.Errorf("reply text = %q", reply.Text)
	}
	if reply.ImageURL != "https://img.example/adventure.png" {
		t.Errorf("reply image = %q", reply.ImageURL)
	}
	if got := img.GenerateCalls[0].Req.Prompt; got != "Asher surfing a moon river" {
		t.Errorf("image prompt = %q", got)
	}
}

func TestSendImageFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"content policy", fmt.Errorf("blocked: %w", image.ErrContentPolicy)},
		{"rate limited", fmt.Errorf("slow down: %w", image.ErrRateLimited)},
		{"generic", errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := &imgmock.Provider{GenerateErr: tt.err}
			c := NewChat(&llmmock.Provider{}, img)

			reply := c.Send(context.Background(), "create image something")
			if reply.Text != imageErrorText {
				t.Errorf("reply = %q, want image error text", reply.Text)
			}
			if reply.ImageURL != "" {
				t.Errorf("failed generation produced image URL %q", reply.ImageURL)
			}
		})
	}
}

func TestImageIntentWithoutProviderFallsBackToChat(t *testing.T) {
	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Let's imagine it together! 🌙"},
	}
	c := NewChat(p, nil)

	reply := c.Send(context.Background(), "create image a glowing gate")
	if reply.Text != "Let's imagine it together! 🌙" {
		t.Errorf("reply = %q, want a chat reply when images are disabled", reply.Text)
	}
}
