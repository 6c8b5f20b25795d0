package realtime

// Outbound message kinds on the streaming socket.
const (
	msgAudio = "audio"
	msgFlush = "flush"
	msgClose = "close"
)

// Inbound message kinds.
const (
	msgSessionStarted = "session_started"
	msgSessionEnded   = "session_ended"
	msgTranscript     = "transcript"
	msgVAD            = "vad"
	msgError          = "error"
)

// Transcript channels.
const (
	channelFinal   = "final"
	channelPartial = "partial"
)

// outboundMessage is what the session sends upstream. Audio carries base64 of
// little-endian 16-bit PCM at the protocol sample rate.
type outboundMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio,omitempty"`
}

// inboundMessage is every message shape the streaming endpoint emits, merged
// into one struct the way the fields arrive on the wire.
type inboundMessage struct {
	Type      string  `json:"type"`
	SessionID string  `json:"session_id,omitempty"`
	Channel   string  `json:"channel,omitempty"`
	Text      string  `json:"text,omitempty"`
	Start     float64 `json:"start,omitempty"`
	End       float64 `json:"end,omitempty"`
	Status    string  `json:"status,omitempty"`
	Message   string  `json:"message,omitempty"`
}
