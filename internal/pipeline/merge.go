package pipeline

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// Merge concatenates per-chunk transcripts into one global timeline. Each
// chunk's segments are shifted by a running time offset; the offset advances
// by at least chunkDuration per chunk so a chunk whose speech ends early never
// compresses the next chunk's timestamps into an overlap.
//
// Speaker ids are carried over as-is: "speaker_0" in chunk 2 is not known to
// be the same person as "speaker_0" in chunk 1, so per-chunk speaker names are
// not preserved and the merged SpeakerNames starts empty.
func Merge(transcripts []*types.Transcript, fileName string, chunkDuration float64) (*types.Transcript, error) {
	if len(transcripts) == 0 {
		return nil, fmt.Errorf("merge requires at least one transcript")
	}
	if len(transcripts) == 1 {
		return transcripts[0], nil
	}

	var (
		segments   []types.Segment
		textParts  []string
		timeOffset float64
		duration   float64
	)

	for i, t := range transcripts {
		var lastEnd float64
		for _, seg := range t.Segments {
			shifted := seg
			shifted.ID = len(segments)
			shifted.Start += timeOffset
			shifted.End += timeOffset
			segments = append(segments, shifted)
			if seg.End > lastEnd {
				lastEnd = seg.End
			}
		}
		if text := strings.TrimSpace(t.Text); text != "" {
			textParts = append(textParts, text)
		}

		if i == len(transcripts)-1 {
			duration = timeOffset + math.Max(t.Duration, lastEnd)
		}
		timeOffset += math.Max(lastEnd, chunkDuration)
	}

	return &types.Transcript{
		ID:            uuid.New().String(),
		Text:          strings.Join(textParts, " "),
		Segments:      segments,
		Duration:      duration,
		Language:      transcripts[0].Language,
		Model:         transcripts[0].Model,
		CreatedAt:     time.Now(),
		FileName:      fileName,
		SpeakerColors: types.AssignSpeakerColors(segments),
		SpeakerNames:  map[string]string{},
	}, nil
}
