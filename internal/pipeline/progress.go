package pipeline

import (
	"sync"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// tracker enforces the monotone progress contract: OverallProgress never goes
// backwards within one run, whatever the per-phase sub-reporters emit.
type tracker struct {
	sink types.ProgressSink

	mu   sync.Mutex
	last int
}

func newTracker(sink types.ProgressSink) *tracker {
	return &tracker{sink: sink}
}

func (t *tracker) report(phase string, percent, currentChunk, totalChunks int, message string) {
	if t.sink == nil {
		return
	}
	t.mu.Lock()
	if percent < t.last {
		percent = t.last
	}
	if percent > 100 {
		percent = 100
	}
	t.last = percent
	t.mu.Unlock()

	t.sink.Report(types.ChunkProgress{
		Phase:           phase,
		OverallProgress: percent,
		CurrentChunk:    currentChunk,
		TotalChunks:     totalChunks,
		Message:         message,
	})
}

// band maps a sub-operation's local 0..100 progress into the [lo, hi] slice of
// the overall run. Transcription clients and the chunker report on their own
// scale; the orchestrator weights them by phase.
type band struct {
	t            *tracker
	phase        string
	lo, hi       int
	currentChunk int
	totalChunks  int
}

func (b band) Report(p types.ChunkProgress) {
	scaled := b.lo + (b.hi-b.lo)*p.OverallProgress/100
	b.t.report(b.phase, scaled, b.currentChunk, b.totalChunks, p.Message)
}
