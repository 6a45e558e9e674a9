package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"github.com/coder/websocket"

	"github.com/asherquest/asherquest/internal/app"
	"github.com/asherquest/asherquest/internal/speech"
	"github.com/asherquest/asherquest/pkg/audio"
	"github.com/asherquest/asherquest/pkg/provider/stt"
)

// liveCommand is a control message from the browser. Audio itself arrives as
// binary frames between "start" and "stop". Codec selects the frame payload:
// "" or "pcm" for raw 16-bit samples, "opus" for Opus packets decoded
// server-side.
type liveCommand struct {
	Type       string `json:"type"`
	Codec      string `json:"codec,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	Name       string `json:"name,omitempty"`
}

// liveEvent is a message to the browser: live captions while the learner
// speaks, the authoritative transcript once they stop, or an error.
type liveEvent struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Source string `json:"source,omitempty"`
	Error  string `json:"error,omitempty"`
}

// liveConn serialises writes: the caption forwarder and the command loop
// both send events.
type liveConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *liveConn) send(ctx context.Context, ev liveEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// handleLive runs the speech-capture socket for one session. The client opens
// a recording with a "start" command, streams binary audio frames (raw PCM,
// or Opus packets when the start command selects the opus codec), and closes
// it with "stop"; interim captions flow back while the authoritative transcript
// is produced at the end. A "error" command reports a browser microphone
// failure and aborts the recording.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	if sess.Recorder == nil {
		writeError(w, http.StatusServiceUnavailable, "speech recognition is not configured")
		return
	}

	conn, err := websocket.Accept(w, r, s.acceptOptions())
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	lc := &liveConn{conn: conn}
	ctx := r.Context()
	if err := s.runLive(ctx, lc, sess); err != nil {
		s.log.Debug("live socket closed", "session_id", sess.ID, "error", err)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) runLive(ctx context.Context, lc *liveConn, sess *app.Session) error {
	rec := sess.Recorder
	recording := false

	// Set while the active recording carries Opus frames; binary payloads
	// are decoded to PCM before they reach the recorder.
	var decoder *audio.OpusDecoder

	// A dangling recording must not outlive the socket.
	defer func() {
		if recording {
			rec.Abort()
			s.metrics.ActiveRecordings.Add(ctx, -1)
		}
	}()

	for {
		typ, data, err := lc.conn.Read(ctx)
		if err != nil {
			return err
		}

		if typ == websocket.MessageBinary {
			pcm := data
			if decoder != nil {
				pcm, err = decoder.Decode(data)
				if err != nil {
					if sendErr := lc.send(ctx, liveEvent{Type: "error", Error: err.Error()}); sendErr != nil {
						return sendErr
					}
					continue
				}
			}
			if err := rec.Feed(pcm); err != nil {
				if sendErr := lc.send(ctx, liveEvent{Type: "error", Error: err.Error()}); sendErr != nil {
					return sendErr
				}
			}
			continue
		}

		var cmd liveCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			if sendErr := lc.send(ctx, liveEvent{Type: "error", Error: "invalid command"}); sendErr != nil {
				return sendErr
			}
			continue
		}

		switch cmd.Type {
		case "start":
			format := audio.Format{SampleRate: cmd.SampleRate, Channels: cmd.Channels}
			if format.Channels == 0 {
				format.Channels = 1
			}
			decoder = nil
			switch cmd.Codec {
			case "", "pcm":
				if format.SampleRate == 0 {
					format.SampleRate = audio.STTSampleRate
				}
			case "opus":
				dec, err := audio.NewOpusDecoder(format.Channels)
				if err != nil {
					if sendErr := lc.send(ctx, liveEvent{Type: "error", Error: err.Error()}); sendErr != nil {
						return sendErr
					}
					continue
				}
				decoder = dec
				format = dec.Format()
			default:
				if sendErr := lc.send(ctx, liveEvent{Type: "error", Error: "unsupported codec: " + cmd.Codec}); sendErr != nil {
					return sendErr
				}
				continue
			}
			if err := rec.Start(ctx, format); err != nil {
				decoder = nil
				if sendErr := lc.send(ctx, liveEvent{Type: "error", Error: err.Error()}); sendErr != nil {
					return sendErr
				}
				continue
			}
			recording = true
			s.metrics.ActiveRecordings.Add(ctx, 1)
			go s.forwardInterims(ctx, lc, rec.Interims())

		case "stop":
			res, err := rec.Stop(ctx)
			decoder = nil
			if recording {
				recording = false
				s.metrics.ActiveRecordings.Add(ctx, -1)
			}
			if err != nil {
				ev := liveEvent{Type: "error", Error: err.Error()}
				if errors.Is(err, speech.ErrNoSpeech) {
					ev.Error = "no speech recognised"
				}
				if sendErr := lc.send(ctx, ev); sendErr != nil {
					return sendErr
				}
				continue
			}
			if sendErr := lc.send(ctx, liveEvent{Type: "final", Text: res.Text, Source: string(res.Source)}); sendErr != nil {
				return sendErr
			}

		case "error":
			captureErr := speech.MapCaptureError(cmd.Name)
			s.log.Warn("microphone capture failed", "session_id", sess.ID, "error", captureErr)
			decoder = nil
			if recording {
				rec.Abort()
				recording = false
				s.metrics.ActiveRecordings.Add(ctx, -1)
			}
			if sendErr := lc.send(ctx, liveEvent{Type: "error", Error: captureErr.Error()}); sendErr != nil {
				return sendErr
			}

		default:
			if sendErr := lc.send(ctx, liveEvent{Type: "error", Error: "unknown command: " + cmd.Type}); sendErr != nil {
				return sendErr
			}
		}
	}
}

// forwardInterims relays live captions until the recording ends and the
// recorder closes the channel.
func (s *Server) forwardInterims(ctx context.Context, lc *liveConn, interims <-chan stt.Transcript) {
	for t := range interims {
		if err := lc.send(ctx, liveEvent{Type: "interim", Text: t.Text}); err != nil {
			return
		}
	}
}

// acceptOptions derives the websocket origin patterns from the configured
// CORS origins. Patterns are host-only; scheme and port are stripped.
func (s *Server) acceptOptions() *websocket.AcceptOptions {
	if len(s.origins) == 0 {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	patterns := make([]string, 0, len(s.origins))
	for _, o := range s.origins {
		if u, err := url.Parse(o); err == nil && u.Hostname() != "" {
			patterns = append(patterns, u.Hostname())
			continue
		}
		patterns = append(patterns, o)
	}
	return &websocket.AcceptOptions{OriginPatterns: patterns}
}
