package narrate

import (
	"context"
	"errors"
	"testing"

	"github.com/asherquest/asherquest/pkg/provider/tts"
	ttsmock "github.com/asherquest/asherquest/pkg/provider/tts/mock"
)

var testVoice = tts.VoiceProfile{ID: "voice-1", Name: "Narrator", Provider: "elevenlabs"}

func TestPlayReturnsAudioAndActivates(t *testing.T) {
	p := &ttsmock.Provider{
		Audio: &tts.Audio{Data: []byte("mp3"), MIMEType: "audio/mpeg", VoiceID: "voice-1"},
	}
	pl := NewPlayer(p, testVoice)

	a, err := pl.Play(context.Background(), "Great!")
	if err != nil {
		t.Fatal(err)
	}
	if a == nil || string(a.Data) != "mp3" {
		t.Fatalf("audio = %+v", a)
	}
	if text, ok := pl.Playing(); !ok || text != "Great!" {
		t.Errorf("Playing() = %q, %v", text, ok)
	}
	if got := p.SynthesizeCalls[0].Voice; got != testVoice {
		t.Errorf("voice = %+v", got)
	}
}

func TestPlayCachesPerText(t *testing.T) {
	p := &ttsmock.Provider{}
	pl := NewPlayer(p, testVoice)
	ctx := context.Background()

	if _, err := pl.Play(ctx, "Not quite. Try again."); err != nil {
		t.Fatal(err)
	}
	// Whitespace variations hit the same cache entry.
	if _, err := pl.Play(ctx, "  Not quite.   Try again. "); err != nil {
		t.Fatal(err)
	}
	if p.CallCount() != 1 {
		t.Errorf("Synthesize called %d times, want 1", p.CallCount())
	}

	if _, err := pl.Play(ctx, "Great!"); err != nil {
		t.Fatal(err)
	}
	if p.CallCount() != 2 {
		t.Errorf("distinct text should synthesize again, got %d calls", p.CallCount())
	}
}

func TestPlayPreemptsPrevious(t *testing.T) {
	pl := NewPlayer(&ttsmock.Provider{}, testVoice)
	ctx := context.Background()

	if _, err := pl.Play(ctx, "first line"); err != nil {
		t.Fatal(err)
	}
	if _, err := pl.Play(ctx, "second line"); err != nil {
		t.Fatal(err)
	}
	if text, _ := pl.Playing(); text != "second line" {
		t.Errorf("active narration = %q, want the newer line", text)
	}
}

func TestPlayFailureStaysSilent(t *testing.T) {
	p := &ttsmock.Provider{SynthesizeErr: errors.New("quota exceeded")}
	pl := NewPlayer(p, testVoice)

	a, err := pl.Play(context.Background(), "Great!")
	if err != nil {
		t.Fatalf("synthesis failure must not surface: %v", err)
	}
	if a != nil {
		t.Errorf("audio = %+v, want nil", a)
	}
	if _, ok := pl.Playing(); ok {
		t.Error("player should be idle after a failed synthesis")
	}
}

func TestPlayEmptyText(t *testing.T) {
	p := &ttsmock.Provider{}
	pl := NewPlayer(p, testVoice)

	a, err := pl.Play(context.Background(), "   ")
	if err != nil || a != nil {
		t.Errorf("Play(blank) = %+v, %v", a, err)
	}
	if p.CallCount() != 0 {
		t.Error("blank text must not reach the provider")
	}
}

func TestToggleSameTextStops(t *testing.T) {
	pl := NewPlayer(&ttsmock.Provider{}, testVoice)
	ctx := context.Background()

	a, playing, err := pl.Toggle(ctx, "Great!")
	if err != nil {
		t.Fatal(err)
	}
	if a == nil || !playing {
		t.Fatalf("first toggle should start playback, got audio=%v playing=%v", a, playing)
	}

	a, playing, err = pl.Toggle(ctx, "Great!")
	if err != nil {
		t.Fatal(err)
	}
	if a != nil || playing {
		t.Errorf("second toggle of the same line should stop, got audio=%v playing=%v", a, playing)
	}
	if _, ok := pl.Playing(); ok {
		t.Error("player should be idle after toggling off")
	}
}

func TestToggleDifferentTextSwitches(t *testing.T) {
	p := &ttsmock.Provider{}
	pl := NewPlayer(p, testVoice)
	ctx := context.Background()

	if _, _, err := pl.Toggle(ctx, "first line"); err != nil {
		t.Fatal(err)
	}
	a, playing, err := pl.Toggle(ctx, "second line")
	if err != nil {
		t.Fatal(err)
	}
	if a == nil || !playing {
		t.Fatal("toggling a different line should start it")
	}
	if text, _ := pl.Playing(); text != "second line" {
		t.Errorf("active narration = %q", text)
	}
}

func TestStop(t *testing.T) {
	pl := NewPlayer(&ttsmock.Provider{}, testVoice)

	if _, err := pl.Play(context.Background(), "Great!"); err != nil {
		t.Fatal(err)
	}
	pl.Stop()
	if _, ok := pl.Playing(); ok {
		t.Error("player should be idle after Stop")
	}
}
