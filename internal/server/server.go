// Package server exposes the reading adventure over HTTP: a session API
// driving the exercise flow, stateless AI proxy endpoints for the browser
// client, a WebSocket for live speech capture, and the operational
// endpoints (health, readiness, Prometheus metrics).
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/asherquest/asherquest/internal/app"
	"github.com/asherquest/asherquest/internal/flow"
	"github.com/asherquest/asherquest/internal/health"
	"github.com/asherquest/asherquest/internal/observe"
	"github.com/asherquest/asherquest/internal/speech"
	"github.com/asherquest/asherquest/pkg/provider/tts"
)

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the server's logger. Default: [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(met *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = met
	}
}

// WithHealth sets the health handler mounted at /healthz and /readyz.
// Default: a handler with no readiness checks.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) {
		s.health = h
	}
}

// WithAllowedOrigins restricts cross-origin browser access to the given
// origins. Default: any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// Server holds the HTTP handler state. Construct with [New], mount via
// [Server.Handler].
type Server struct {
	mgr     *app.Manager
	prov    app.Providers
	voice   tts.VoiceProfile
	log     *slog.Logger
	metrics *observe.Metrics
	health  *health.Handler
	origins []string
}

// New creates a Server over the given session manager. The providers back
// the stateless proxy endpoints; the voice is the default for text-to-speech
// requests that name none.
func New(mgr *app.Manager, prov app.Providers, voice tts.VoiceProfile, opts ...Option) *Server {
	s := &Server{
		mgr:    mgr,
		prov:   prov,
		voice:  voice,
		log:    slog.Default(),
		health: health.New(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Handler returns the complete route tree wrapped in the CORS and
// observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Session lifecycle and exercise flow.
	mux.HandleFunc("POST /api/session", s.handleCreateSession)
	mux.HandleFunc("GET /api/session/{id}", s.handleSessionState)
	mux.HandleFunc("DELETE /api/session/{id}", s.handleEndSession)
	mux.HandleFunc("POST /api/session/{id}/advance", s.handleAdvance)
	mux.HandleFunc("POST /api/session/{id}/retreat", s.handleRetreat)
	mux.HandleFunc("POST /api/session/{id}/answer", s.handleAnswer)
	mux.HandleFunc("POST /api/session/{id}/retry-answer", s.handleRetryAnswer)
	mux.HandleFunc("POST /api/session/{id}/retry-step", s.handleRetryStep)
	mux.HandleFunc("GET /api/session/{id}/hook", s.handleHook)
	mux.HandleFunc("GET /api/session/{id}/continuation-prompt", s.handleContinuationPrompt)
	mux.HandleFunc("POST /api/session/{id}/continuation", s.handleContinuation)
	mux.HandleFunc("POST /api/session/{id}/narrate", s.handleNarrate)
	mux.HandleFunc("POST /api/session/{id}/chat", s.handleSessionChat)

	// Live speech capture.
	mux.HandleFunc("GET /api/session/{id}/live", s.handleLive)

	// Stateless AI proxies.
	mux.HandleFunc("POST /api/chat", s.handleChatProxy)
	mux.HandleFunc("POST /api/text-to-speech", s.handleTTSProxy)
	mux.HandleFunc("POST /api/speech-to-text", s.handleSTTProxy)
	mux.HandleFunc("POST /api/image", s.handleImageProxy)

	// Operational endpoints.
	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = mux
	h = observe.Middleware(s.metrics)(h)
	h = corsMiddleware(s.origins)(h)
	return h
}

// session resolves the path's session ID. A nil return means the response
// has already been written.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *app.Session {
	sess, err := s.mgr.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil
	}
	return sess
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

// writeError sends the JSON error envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// readJSON decodes the request body into v. A false return means the
// response has already been written.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeFlowError maps domain errors onto HTTP statuses.
func writeFlowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, flow.ErrAtStart), errors.Is(err, flow.ErrAtEnd),
		errors.Is(err, flow.ErrWrongStep), errors.Is(err, flow.ErrNotAwaitingContinuation),
		errors.Is(err, flow.ErrStale):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, flow.ErrNoHook):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, speech.ErrNoSpeech):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, speech.ErrAlreadyRecording), errors.Is(err, speech.ErrNotRecording):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
