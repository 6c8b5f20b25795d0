package handlers

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"sync"

	"github.com/gofiber/websocket/v2"
	log "github.com/sirupsen/logrus"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/realtime"
)

// streamControl is an inbound text frame on the browser-facing socket.
type streamControl struct {
	Type       string `json:"type"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// streamEvent is an outbound frame: either a transcript snapshot or an error.
type streamEvent struct {
	Type       string               `json:"type"`
	Transcript *realtime.Transcript `json:"transcript,omitempty"`
	Error      string               `json:"error,omitempty"`
}

type jsonWriter interface {
	WriteJSON(v interface{}) error
}

// syncConn serializes outbound frames. The read loop and the snapshot
// forwarder both write to the browser socket, and the socket allows only one
// writer at a time.
type syncConn struct {
	mu sync.Mutex
	w  jsonWriter
}

func (s *syncConn) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.WriteJSON(v)
}

// StreamHandler bridges a browser websocket to the live transcription session.
// Text frames carry JSON control messages; binary frames carry little-endian
// float32 mono samples at the rate declared in the start message.
type StreamHandler struct {
	endpoint   string
	apiKey     string
	targetRate int
}

// NewStreamHandler creates the realtime handler.
func NewStreamHandler(endpoint, apiKey string, targetRate int) *StreamHandler {
	return &StreamHandler{endpoint: endpoint, apiKey: apiKey, targetRate: targetRate}
}

// Handle runs one realtime session for the lifetime of the connection.
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()
	conn := &syncConn{w: c}

	if h.endpoint == "" || h.apiKey == "" {
		h.sendEvent(conn, streamEvent{Type: "error", Error: "Realtime transcription is not configured"})
		return
	}

	session := realtime.NewSession(h.endpoint, h.apiKey, h.targetRate)
	defer session.Disconnect()

	sampleRate := h.targetRate
	started := false
	done := make(chan struct{})

	// Forward transcript snapshots down the browser socket as they arrive.
	go func() {
		for {
			select {
			case snapshot := <-session.Updates():
				h.sendEvent(conn, streamEvent{Type: "transcript", Transcript: &snapshot})
			case <-done:
				return
			}
		}
	}()
	defer close(done)

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			log.WithError(err).Debug("realtime socket closed")
			return
		}

		switch messageType {
		case websocket.TextMessage:
			var ctl streamControl
			if err := json.Unmarshal(message, &ctl); err != nil {
				h.sendEvent(conn, streamEvent{Type: "error", Error: "Malformed control message"})
				continue
			}
			switch ctl.Type {
			case "start":
				if started {
					continue
				}
				if ctl.SampleRate > 0 {
					sampleRate = ctl.SampleRate
				}
				if err := session.Connect(context.Background()); err != nil {
					log.WithError(err).Warn("realtime connect failed")
					h.sendEvent(conn, streamEvent{Type: "error", Error: "Could not reach the streaming provider"})
					return
				}
				started = true
			case "flush":
				if started {
					_ = session.Flush()
				}
			case "stop":
				_ = session.Disconnect()
				snapshot := session.Snapshot()
				h.sendEvent(conn, streamEvent{Type: "transcript", Transcript: &snapshot})
				return
			}

		case websocket.BinaryMessage:
			if !started {
				continue
			}
			samples := decodeFloat32LE(message)
			if len(samples) == 0 {
				continue
			}
			if err := session.SendAudio(samples, sampleRate); err != nil {
				log.WithError(err).Debug("send audio failed")
			}
		}
	}
}

func (h *StreamHandler) sendEvent(conn *syncConn, ev streamEvent) {
	if err := conn.WriteJSON(ev); err != nil {
		log.WithError(err).Debug("realtime socket write failed")
	}
}

// decodeFloat32LE unpacks a binary frame of little-endian float32 samples.
// A trailing partial sample is dropped.
func decodeFloat32LE(data []byte) []float64 {
	n := len(data) / 4
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = float64(math.Float32frombits(bits))
	}
	return samples
}
