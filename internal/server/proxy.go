package server

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/asherquest/asherquest/pkg/provider/image"
	"github.com/asherquest/asherquest/pkg/provider/llm"
	"github.com/asherquest/asherquest/pkg/provider/stt"
)

// maxAudioUpload caps the speech-to-text upload size.
const maxAudioUpload = 25 << 20

type proxyChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type proxyChatRequest struct {
	Messages     []proxyChatMessage `json:"messages"`
	SystemPrompt string             `json:"system_prompt,omitempty"`
}

type proxyChatResponse struct {
	Reply string `json:"reply"`
}

// handleChatProxy forwards a raw conversation to the chat model. Unlike the
// session chat it keeps no history; the client sends the full conversation
// each time.
func (s *Server) handleChatProxy(w http.ResponseWriter, r *http.Request) {
	if s.prov.LLM == nil {
		writeError(w, http.StatusServiceUnavailable, "chat model is not configured")
		return
	}
	var req proxyChatRequest
	if !readJSON(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	msgs := make([]llm.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}

	start := time.Now()
	resp, err := s.prov.LLM.Complete(r.Context(), llm.CompletionRequest{
		Messages:     msgs,
		SystemPrompt: req.SystemPrompt,
	})
	if err != nil {
		s.metrics.RecordProviderRequest(r.Context(), "proxy", "llm", "error", time.Since(start))
		s.log.Error("chat proxy failed", "error", err)
		writeError(w, http.StatusBadGateway, "chat model request failed")
		return
	}
	s.metrics.RecordProviderRequest(r.Context(), "proxy", "llm", "ok", time.Since(start))

	writeJSON(w, http.StatusOK, proxyChatResponse{Reply: resp.Content})
}

type ttsProxyRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id,omitempty"`
}

type ttsProxyResponse struct {
	AudioData string `json:"audioData"`
	AudioURL  string `json:"audioUrl"`
	MIMEType  string `json:"mimeType"`
	VoiceID   string `json:"voice_id"`
}

func (s *Server) handleTTSProxy(w http.ResponseWriter, r *http.Request) {
	if s.prov.TTS == nil {
		writeError(w, http.StatusServiceUnavailable, "text-to-speech is not configured")
		return
	}
	var req ttsProxyRequest
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	voice := s.voice
	if req.VoiceID != "" {
		voice.ID = req.VoiceID
	}

	start := time.Now()
	audio, err := s.prov.TTS.Synthesize(r.Context(), req.Text, voice)
	if err != nil {
		s.metrics.RecordProviderRequest(r.Context(), "proxy", "tts", "error", time.Since(start))
		s.log.Error("tts proxy failed", "error", err)
		writeError(w, http.StatusBadGateway, "speech synthesis failed")
		return
	}
	s.metrics.RecordProviderRequest(r.Context(), "proxy", "tts", "ok", time.Since(start))

	encoded := base64.StdEncoding.EncodeToString(audio.Data)
	writeJSON(w, http.StatusOK, ttsProxyResponse{
		AudioData: encoded,
		AudioURL:  "data:" + audio.MIMEType + ";base64," + encoded,
		MIMEType:  audio.MIMEType,
		VoiceID:   audio.VoiceID,
	})
}

type sttProxyResponse struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// handleSTTProxy transcribes one uploaded audio file. The multipart form must
// carry the recording under the "audio" field.
func (s *Server) handleSTTProxy(w http.ResponseWriter, r *http.Request) {
	if s.prov.STTBatch == nil {
		writeError(w, http.StatusServiceUnavailable, "speech-to-text is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUpload)
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing audio file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading audio file: "+err.Error())
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	start := time.Now()
	tr, err := s.prov.STTBatch.Transcribe(r.Context(), stt.BatchRequest{
		Audio:    data,
		MIMEType: mimeType,
	})
	if err != nil {
		s.metrics.RecordProviderRequest(r.Context(), "proxy", "stt", "error", time.Since(start))
		s.log.Error("stt proxy failed", "error", err)
		writeError(w, http.StatusBadGateway, "transcription failed")
		return
	}
	s.metrics.RecordProviderRequest(r.Context(), "proxy", "stt", "ok", time.Since(start))

	writeJSON(w, http.StatusOK, sttProxyResponse{
		Transcript: tr.Text,
		Confidence: tr.Confidence,
	})
}

type imageProxyRequest struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style,omitempty"`
}

type imageProxyResponse struct {
	ImageURL       string `json:"imageUrl"`
	Prompt         string `json:"prompt"`
	OriginalPrompt string `json:"originalPrompt"`
}

func (s *Server) handleImageProxy(w http.ResponseWriter, r *http.Request) {
	if s.prov.Image == nil {
		writeError(w, http.StatusServiceUnavailable, "image generation is not configured")
		return
	}
	var req imageProxyRequest
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	start := time.Now()
	res, err := s.prov.Image.Generate(r.Context(), image.Request{
		Prompt: req.Prompt,
		Style:  req.Style,
	})
	if err != nil {
		s.metrics.RecordProviderRequest(r.Context(), "proxy", "image", "error", time.Since(start))
		switch {
		case errors.Is(err, image.ErrContentPolicy):
			writeError(w, http.StatusBadRequest, "that idea cannot be drawn, try a different one")
		case errors.Is(err, image.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "too many pictures right now, wait a moment")
		default:
			s.log.Error("image proxy failed", "error", err)
			writeError(w, http.StatusBadGateway, "image generation failed")
		}
		return
	}
	s.metrics.RecordProviderRequest(r.Context(), "proxy", "image", "ok", time.Since(start))

	writeJSON(w, http.StatusOK, imageProxyResponse{
		ImageURL:       res.URL,
		Prompt:         res.Prompt,
		OriginalPrompt: res.OriginalPrompt,
	})
}
