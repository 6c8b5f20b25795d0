package realtime

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/audio"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// Session states.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateEnded      State = "ended"
	StateError      State = "error"
)

// Transcript is the incrementally materialized output of a live session.
// FinalText is append-only; PartialText is replaced wholesale on each partial
// update and cleared whenever a final lands.
type Transcript struct {
	FinalText   string          `json:"final_text"`
	PartialText string          `json:"partial_text"`
	Segments    []types.Segment `json:"segments"`
	IsListening bool            `json:"is_listening"`
}

// Session manages one live microphone-to-transcript stream: resample, encode,
// send, and fold incoming partial/final updates into an observable transcript.
type Session struct {
	endpoint   string
	apiKey     string
	targetRate int

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu         sync.Mutex
	state      State
	sessionID  string
	transcript Transcript
	updates    chan Transcript
}

// NewSession prepares a session against the streaming endpoint. targetRate is
// the protocol's required sample rate (typically 16000).
func NewSession(endpoint, apiKey string, targetRate int) *Session {
	if targetRate <= 0 {
		targetRate = 16000
	}
	return &Session{
		endpoint:   endpoint,
		apiKey:     apiKey,
		targetRate: targetRate,
		state:      StateIdle,
		updates:    make(chan Transcript, 16),
	}
}

// Connect dials the streaming endpoint and starts the read loop.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return fmt.Errorf("session already %s", s.state)
	}
	s.state = StateConnecting
	s.mu.Unlock()

	header := http.Header{}
	if s.apiKey != "" {
		header.Set("xi-api-key", s.apiKey)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.endpoint, header)
	if err != nil {
		s.mu.Lock()
		s.state = StateError
		s.mu.Unlock()
		return fmt.Errorf("connect streaming endpoint: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.state = StateConnected
	s.transcript.IsListening = true
	s.mu.Unlock()
	s.publish()

	go s.readLoop(conn)
	return nil
}

// SendAudio resamples captured float samples to the protocol rate, quantizes
// them to 16-bit PCM, and ships them base64-encoded.
func (s *Session) SendAudio(samples []float64, sourceRate int) error {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return fmt.Errorf("session not connected")
	}
	s.mu.Unlock()

	resampled := audio.Resample(samples, sourceRate, s.targetRate)
	payload := base64.StdEncoding.EncodeToString(audio.EncodePCM16LE(resampled))
	return s.write(outboundMessage{Type: msgAudio, Audio: payload})
}

// Flush asks the endpoint to finalize whatever partial audio it is holding.
func (s *Session) Flush() error {
	return s.write(outboundMessage{Type: msgFlush})
}

// Disconnect sends a best-effort close message, then tears the stream down
// unconditionally. Safe to call from any state, repeatedly.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	if s.state == StateConnected || s.state == StateConnecting {
		s.state = StateEnded
	}
	s.transcript.IsListening = false
	s.mu.Unlock()

	if conn != nil {
		s.writeMu.Lock()
		_ = conn.WriteJSON(outboundMessage{Type: msgClose})
		s.writeMu.Unlock()
		_ = conn.Close()
	}
	s.publish()
	return nil
}

// Snapshot returns a copy of the current transcript.
func (s *Session) Snapshot() Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyTranscriptLocked()
}

// Updates yields a transcript snapshot after every state change. The channel
// is buffered and lossy: slow consumers miss intermediates, never block.
func (s *Session) Updates() <-chan Transcript {
	return s.updates
}

// State returns the session's lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) write(msg outboundMessage) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("session not connected")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			s.mu.Lock()
			if s.state == StateConnected {
				s.state = StateEnded
			}
			s.transcript.IsListening = false
			s.mu.Unlock()
			s.publish()
			return
		}
		s.handle(msg)
	}
}

// handle folds one protocol message into the transcript.
func (s *Session) handle(msg inboundMessage) {
	s.mu.Lock()
	switch msg.Type {
	case msgSessionStarted:
		s.sessionID = msg.SessionID
		log.WithField("session_id", msg.SessionID).Info("realtime session started")

	case msgTranscript:
		switch msg.Channel {
		case channelFinal:
			if msg.Text != "" {
				if s.transcript.FinalText != "" {
					s.transcript.FinalText += " "
				}
				s.transcript.FinalText += msg.Text
				// The streaming protocol does not diarize live, so every
				// segment carries one synthetic speaker.
				s.transcript.Segments = append(s.transcript.Segments, types.Segment{
					ID:      len(s.transcript.Segments),
					Speaker: "speaker_0",
					Text:    msg.Text,
					Start:   msg.Start,
					End:     msg.End,
				})
			}
			s.transcript.PartialText = ""
		case channelPartial:
			s.transcript.PartialText = msg.Text
		}

	case msgVAD:
		log.WithField("status", msg.Status).Debug("vad update")

	case msgSessionEnded:
		s.state = StateEnded
		s.transcript.IsListening = false

	case msgError:
		log.WithField("message", msg.Message).Warn("realtime endpoint error")
		if s.state == StateConnected || s.state == StateConnecting {
			s.state = StateError
		}
		s.transcript.IsListening = false
	}
	s.mu.Unlock()
	s.publish()
}

func (s *Session) publish() {
	s.mu.Lock()
	snapshot := s.copyTranscriptLocked()
	s.mu.Unlock()
	select {
	case s.updates <- snapshot:
	default:
	}
}

func (s *Session) copyTranscriptLocked() Transcript {
	out := s.transcript
	out.Segments = make([]types.Segment, len(s.transcript.Segments))
	copy(out.Segments, s.transcript.Segments)
	return out
}
