package types

import "time"

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Source type constants
const (
	SourceUpload   = "upload"
	SourceRealtime = "realtime"
)

// Provider identifiers. Credentials and routing are keyed by these.
const (
	ProviderOpenAI     = "openai"
	ProviderElevenLabs = "elevenlabs"
)

// PaletteSize is the number of distinct speaker colors. The k-th distinct
// speaker (first-seen order) gets color k mod PaletteSize.
const PaletteSize = 8

// AudioSource is an immutable audio payload with its declared MIME type.
type AudioSource struct {
	Data     []byte
	MimeType string
	FileName string
}

// Size returns the payload size in bytes.
func (s AudioSource) Size() int64 { return int64(len(s.Data)) }

// Word is a single word with timing, when the provider reports word level.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is a speaker-attributed, timestamped piece of transcript.
// Start <= End always. Speaker is a stable opaque id ("speaker_0"), not a
// display name.
type Segment struct {
	ID      int     `json:"id"`
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Transcript is the durable output of a completed transcription run.
// Invariant: Duration >= max(Segments[].End) when Segments is non-empty, and
// SpeakerColors contains every speaker id that appears in Segments.
type Transcript struct {
	ID            string            `json:"id"`
	Text          string            `json:"text"`
	Segments      []Segment         `json:"segments"`
	Words         []Word            `json:"words,omitempty"`
	Duration      float64           `json:"duration"`
	Language      string            `json:"language,omitempty"`
	Model         string            `json:"model"`
	CreatedAt     time.Time         `json:"created_at"`
	FileName      string            `json:"file_name"`
	SpeakerColors map[string]int    `json:"speaker_colors"`
	SpeakerNames  map[string]string `json:"speaker_names"`
}

// AssignSpeakerColors maps every speaker id appearing in segments to a color
// index, round-robin in first-seen order.
func AssignSpeakerColors(segments []Segment) map[string]int {
	colors := make(map[string]int)
	for _, seg := range segments {
		if _, ok := colors[seg.Speaker]; !ok {
			colors[seg.Speaker] = len(colors) % PaletteSize
		}
	}
	return colors
}

// ChunkDescriptor is one provider-sized piece of a larger recording.
// Ephemeral: produced by a chunker, consumed by a transcription client.
type ChunkDescriptor struct {
	Index    int    `json:"index"`
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type"`
}

// Pipeline phases reported through the progress sink.
const (
	PhaseAnalyzing    = "analyzing"
	PhaseChunking     = "chunking"
	PhaseTranscribing = "transcribing"
	PhaseQuality      = "quality"
	PhaseDiarization  = "diarization"
	PhaseMerging      = "merging"
	PhaseComplete     = "complete"
	PhaseError        = "error"
)

// ChunkProgress is an ephemeral progress event. OverallProgress is 0..100 and
// monotonically non-decreasing over a run.
type ChunkProgress struct {
	Phase           string `json:"phase"`
	OverallProgress int    `json:"overall_progress"`
	CurrentChunk    int    `json:"current_chunk,omitempty"`
	TotalChunks     int    `json:"total_chunks,omitempty"`
	Message         string `json:"message,omitempty"`
}

// ProgressSink receives progress events. Implementations must not block; the
// pipeline never waits on the sink.
type ProgressSink interface {
	Report(p ChunkProgress)
}

// ProgressFunc adapts a function to ProgressSink. A nil func is a no-op sink.
type ProgressFunc func(p ChunkProgress)

func (f ProgressFunc) Report(p ChunkProgress) {
	if f != nil {
		f(p)
	}
}

// Options selects the model and mode for one transcription run.
type Options struct {
	Model     string `json:"model"`
	Language  string `json:"language,omitempty"`
	DualModel bool   `json:"dual_model,omitempty"`

	// QualityModel and DiarizeModel override the two passes in dual-model
	// mode. Empty values fall back to configured defaults.
	QualityModel string `json:"quality_model,omitempty"`
	DiarizeModel string `json:"diarize_model,omitempty"`
}
