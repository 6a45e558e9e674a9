package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/asherquest/asherquest/pkg/provider/tts"
	ttsmock "github.com/asherquest/asherquest/pkg/provider/tts/mock"
)

func TestSpeechFallback(t *testing.T) {
	primary := &ttsmock.Provider{SynthesizeErr: errors.New("quota exceeded")}
	backup := &ttsmock.Provider{
		Audio: &tts.Audio{Data: []byte("wav"), MIMEType: "audio/wav"},
	}
	f := NewSpeechFallback(primary, "elevenlabs", GroupSettings{})
	f.AddFallback("coqui", backup)

	a, err := f.Synthesize(context.Background(), "Great!", tts.VoiceProfile{ID: "v1"})
	if err != nil {
		t.Fatal(err)
	}
	if a.MIMEType != "audio/wav" {
		t.Errorf("audio = %+v", a)
	}
	if primary.CallCount() != 1 || backup.CallCount() != 1 {
		t.Errorf("calls: primary=%d backup=%d", primary.CallCount(), backup.CallCount())
	}
}
