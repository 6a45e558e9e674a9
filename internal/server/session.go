package server

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/asherquest/asherquest/internal/app"
	"github.com/asherquest/asherquest/internal/flow"
	"github.com/asherquest/asherquest/internal/scoring"
	"github.com/asherquest/asherquest/internal/story"
)

type stepPayload struct {
	Kind          string   `json:"kind"`
	Word          string   `json:"word,omitempty"`
	Image         string   `json:"image,omitempty"`
	Phonemes      []string `json:"phonemes,omitempty"`
	Text          string   `json:"text,omitempty"`
	ExpectedWords []string `json:"expected_words,omitempty"`
	Options       []string `json:"options,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	HasHook       bool     `json:"has_hook"`
}

type feedbackPayload struct {
	Correct bool   `json:"correct"`
	Text    string `json:"text"`
}

type statePayload struct {
	SessionID            string           `json:"session_id,omitempty"`
	StepIndex            int              `json:"step_index"`
	StepCount            int              `json:"step_count"`
	Step                 stepPayload      `json:"step"`
	Feedback             *feedbackPayload `json:"feedback,omitempty"`
	AwaitingContinuation bool             `json:"awaiting_continuation"`
	ContinuationDone     bool             `json:"continuation_done"`
	StoryContext         []string         `json:"story_context"`
}

// renderStep maps a step onto its client payload. Answers (the phonics
// correct index, the spelling answer) are never sent to the client.
func renderStep(s story.Step) stepPayload {
	p := stepPayload{Kind: string(s.Kind()), HasHook: story.HookOf(s) != nil}
	switch st := s.(type) {
	case story.BlendingStep:
		p.Word = st.Word
		p.Image = st.Image
		p.Phonemes = st.Phonemes
		p.Explanation = st.Explanation
	case story.ComprehensionStep:
		p.Text = st.Text
		p.Image = st.Image
		p.ExpectedWords = st.ExpectedWords
		p.Explanation = st.Explanation
	case story.PhonicsStep:
		p.Word = st.Word
		p.Image = st.Image
		p.Options = st.Options
		p.Explanation = st.Explanation
	case story.SpellingStep:
		p.Word = st.Word
		p.Image = st.Image
		p.Explanation = st.Explanation
	}
	return p
}

func renderState(sess *app.Session) statePayload {
	st := sess.Flow.Snapshot()
	_, step := sess.Flow.Pos()
	p := statePayload{
		StepIndex:            st.StepIndex,
		StepCount:            st.StepCount,
		Step:                 renderStep(step),
		AwaitingContinuation: st.AwaitingContinuation,
		ContinuationDone:     st.ContinuationDone,
		StoryContext:         st.StoryContext,
	}
	if st.Feedback != nil {
		p.Feedback = &feedbackPayload{Correct: st.Feedback.Correct, Text: st.Feedback.Text}
	}
	return p
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.mgr.Create(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	p := renderState(sess)
	p.SessionID = sess.ID
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, renderState(sess))
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	s.mgr.Remove(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// abortRecording force-stops any in-flight recording. Leaving a step
// abandons the audio captured on it.
func abortRecording(sess *app.Session) {
	if sess.Recorder != nil {
		sess.Recorder.Abort()
	}
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	if err := sess.Flow.Advance(); err != nil {
		writeFlowError(w, err)
		return
	}
	abortRecording(sess)
	writeJSON(w, http.StatusOK, renderState(sess))
}

func (s *Server) handleRetreat(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	if err := sess.Flow.Retreat(); err != nil {
		writeFlowError(w, err)
		return
	}
	abortRecording(sess)
	writeJSON(w, http.StatusOK, renderState(sess))
}

type answerRequest struct {
	// Option is the selected index on a phonics step.
	Option *int `json:"option,omitempty"`

	// Text is the typed answer on a spelling step.
	Text string `json:"text,omitempty"`

	// Transcript is the read-aloud transcript on a comprehension step.
	Transcript string `json:"transcript,omitempty"`
}

type wordPayload struct {
	Word       string  `json:"word"`
	Heard      bool    `json:"heard"`
	Confidence float64 `json:"confidence"`
}

type answerResponse struct {
	Feedback feedbackPayload `json:"feedback"`
	Words    []wordPayload   `json:"words,omitempty"`
	State    statePayload    `json:"state"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req answerRequest
	if !readJSON(w, r, &req) {
		return
	}

	_, step := sess.Flow.Pos()
	var (
		fb    flow.Feedback
		words []wordPayload
		err   error
	)
	switch step.Kind() {
	case story.KindBlending:
		if err = sess.Flow.SubmitBlending(); err == nil {
			fb = flow.Feedback{Correct: true, Text: ""}
		}
	case story.KindPhonics:
		if req.Option == nil {
			writeError(w, http.StatusBadRequest, "option is required on a phonics step")
			return
		}
		fb, err = sess.Flow.SubmitPhonics(*req.Option)
	case story.KindSpelling:
		fb, err = sess.Flow.SubmitSpelling(req.Text)
	case story.KindComprehension:
		var res scoring.Result
		fb, res, err = sess.Flow.SubmitReading(req.Transcript)
		for _, wr := range res.Words {
			words = append(words, wordPayload{Word: wr.Word, Heard: wr.Heard, Confidence: wr.Confidence})
		}
	default:
		writeError(w, http.StatusConflict, "current step takes no answer")
		return
	}
	if err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answerResponse{
		Feedback: feedbackPayload{Correct: fb.Correct, Text: fb.Text},
		Words:    words,
		State:    renderState(sess),
	})
}

func (s *Server) handleRetryAnswer(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	sess.Flow.RetryAnswer()
	abortRecording(sess)
	writeJSON(w, http.StatusOK, renderState(sess))
}

func (s *Server) handleRetryStep(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	sess.Flow.RetryStep()
	abortRecording(sess)
	writeJSON(w, http.StatusOK, renderState(sess))
}

func (s *Server) handleHook(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	line, err := sess.Flow.Hook(r.Context())
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"line": line})
}

func (s *Server) handleContinuationPrompt(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	prompt, err := sess.Flow.ContinuationPrompt()
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"prompt": prompt})
}

type continuationRequest struct {
	Text string `json:"text"`
}

type continuationResponse struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	State   statePayload `json:"state"`
}

func (s *Server) handleContinuation(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req continuationRequest
	if !readJSON(w, r, &req) {
		return
	}
	val, err := sess.Flow.SubmitContinuation(r.Context(), strings.TrimSpace(req.Text))
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, continuationResponse{
		Status:  string(val.Status),
		Message: val.Message,
		State:   renderState(sess),
	})
}

type narrateRequest struct {
	Text string `json:"text"`
}

type narrateResponse struct {
	Playing  bool   `json:"playing"`
	AudioURL string `json:"audioUrl,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
}

// handleNarrate toggles narration of the given text: starting it if idle or
// different, stopping it if the same line is already active. A synthesis
// failure answers with playing=false and no audio; narration never blocks
// the exercise.
func (s *Server) handleNarrate(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	if sess.Narrator == nil {
		writeError(w, http.StatusServiceUnavailable, "narration is not configured")
		return
	}
	var req narrateRequest
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	audio, playing, err := sess.Narrator.Toggle(r.Context(), req.Text)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := narrateResponse{Playing: playing}
	if playing && audio != nil {
		resp.AudioURL = dataURI(audio.MIMEType, audio.Data)
		resp.MIMEType = audio.MIMEType
	}
	writeJSON(w, http.StatusOK, resp)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatMessagePayload struct {
	Role     string `json:"role"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type chatResponse struct {
	Reply    chatMessagePayload   `json:"reply"`
	Messages []chatMessagePayload `json:"messages"`
}

func (s *Server) handleSessionChat(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req chatRequest
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply := sess.Chat.Send(r.Context(), req.Message)

	var transcript []chatMessagePayload
	for _, m := range sess.Chat.Messages() {
		transcript = append(transcript, chatMessagePayload{
			Role:     string(m.Role),
			Text:     m.Text,
			ImageURL: m.ImageURL,
		})
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Reply:    chatMessagePayload{Role: string(reply.Role), Text: reply.Text, ImageURL: reply.ImageURL},
		Messages: transcript,
	})
}

func dataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
