package elevenlabs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/asherquest/asherquest/pkg/provider/tts"
)

func TestNew_EmptyAPIKey(t *testing.T) {
	_, err := New("")
	if err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Hello Captain Asher!", "Hello Captain Asher!"},
		{"control chars stripped", "Hel\x00lo\x07 world", "Hello world"},
		{"whitespace collapsed", "  a \n\n b\t c  ", "a b c"},
		{"replacement char stripped", "abc�def", "abcdef"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.in); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanText_CapsAtWordBoundary(t *testing.T) {
	long := strings.Repeat("word ", 200) // 1000 runes
	got := CleanText(long)
	if len([]rune(got)) > maxTextRunes {
		t.Errorf("expected at most %d runes, got %d", maxTextRunes, len([]rune(got)))
	}
	if strings.HasSuffix(got, " ") || strings.HasSuffix(got, "wor") {
		t.Errorf("expected truncation at a word boundary, got tail %q", got[len(got)-10:])
	}
}

func TestSynthesize_Success(t *testing.T) {
	var gotPath, gotKey string
	var gotBody synthesisRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	p, err := New("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	audio, err := p.Synthesize(context.Background(), "Ahoy there!", tts.VoiceProfile{ID: "voice-1"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if gotPath != "/v1/text-to-speech/voice-1" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("expected api key header, got %q", gotKey)
	}
	if gotBody.ModelID != defaultModelID {
		t.Errorf("expected model %q, got %q", defaultModelID, gotBody.ModelID)
	}
	if gotBody.VoiceSettings == nil || gotBody.VoiceSettings.Stability != 0.6 {
		t.Errorf("expected tuned voice settings on first attempt, got %+v", gotBody.VoiceSettings)
	}
	if string(audio.Data) != "mp3-bytes" {
		t.Errorf("unexpected audio data %q", audio.Data)
	}
	if audio.MIMEType != "audio/mpeg" {
		t.Errorf("unexpected MIME type %q", audio.MIMEType)
	}
	if audio.VoiceID != "voice-1" {
		t.Errorf("unexpected voice ID %q", audio.VoiceID)
	}
}

func TestSynthesize_MinimalPayloadRetry(t *testing.T) {
	var bodies []synthesisRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body synthesisRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		if len(bodies) == 1 {
			http.Error(w, "bad settings", http.StatusUnprocessableEntity)
			return
		}
		_, _ = w.Write([]byte("audio"))
	}))
	defer srv.Close()

	p, _ := New("key", WithBaseURL(srv.URL))
	audio, err := p.Synthesize(context.Background(), "hello", tts.VoiceProfile{ID: "voice-1"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if len(bodies) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(bodies))
	}
	if bodies[0].VoiceSettings == nil {
		t.Error("first attempt should carry voice settings")
	}
	if bodies[1].VoiceSettings != nil {
		t.Error("second attempt should be the minimal payload")
	}
	if audio.VoiceID != "voice-1" {
		t.Errorf("unexpected voice ID %q", audio.VoiceID)
	}
}

func TestSynthesize_DefaultVoiceFallback(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/bad-voice") {
			http.Error(w, "voice not found", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("audio"))
	}))
	defer srv.Close()

	p, _ := New("key", WithBaseURL(srv.URL))
	audio, err := p.Synthesize(context.Background(), "hello", tts.VoiceProfile{ID: "bad-voice"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if len(paths) != 3 {
		t.Fatalf("expected 3 attempts (full, minimal, default voice), got %d: %v", len(paths), paths)
	}
	if !strings.HasSuffix(paths[2], "/"+DefaultVoiceID) {
		t.Errorf("final attempt should target the default voice, got %q", paths[2])
	}
	if audio.VoiceID != DefaultVoiceID {
		t.Errorf("expected fallback voice ID %q, got %q", DefaultVoiceID, audio.VoiceID)
	}
}

func TestSynthesize_AllAttemptsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, _ := New("key", WithBaseURL(srv.URL))
	_, err := p.Synthesize(context.Background(), "hello", tts.VoiceProfile{ID: "voice-1"})
	if err == nil {
		t.Fatal("expected error when all attempts fail")
	}
}

func TestSynthesize_EmptyTextRejected(t *testing.T) {
	p, _ := New("key")
	_, err := p.Synthesize(context.Background(), " \x00 ", tts.VoiceProfile{})
	if err == nil {
		t.Error("expected error for text that is empty after sanitisation")
	}
}

func TestSynthesize_EmptyVoiceUsesDefault(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte("audio"))
	}))
	defer srv.Close()

	p, _ := New("key", WithBaseURL(srv.URL))
	audio, err := p.Synthesize(context.Background(), "hello", tts.VoiceProfile{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.HasSuffix(paths[0], "/"+DefaultVoiceID) {
		t.Errorf("expected default voice in path, got %q", paths[0])
	}
	if audio.VoiceID != DefaultVoiceID {
		t.Errorf("unexpected voice ID %q", audio.VoiceID)
	}
}
