package audio

import (
	"context"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// Chunker slices a decoded recording into fixed-duration, self-contained WAV
// chunks without any external media tool. Decode failure surfaces as
// ErrDecode so the orchestrator can fall back to server-side chunking.
type Chunker struct {
	decoder Decoder
}

// NewChunker builds a chunker over the given decoder.
func NewChunker(decoder Decoder) *Chunker {
	if decoder == nil {
		decoder = BeepDecoder{}
	}
	return &Chunker{decoder: decoder}
}

// Split decodes the whole source and cuts it into ceil(duration/chunkDuration)
// chunks. Each chunk is re-encoded as 16-bit PCM WAV at the source's rate and
// channel count. Progress: 15% after decode, then proportional up to 95%.
func (c *Chunker) Split(ctx context.Context, source types.AudioSource, chunkDuration float64, sink types.ProgressSink) ([]types.ChunkDescriptor, error) {
	if chunkDuration <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive, got %v", chunkDuration)
	}

	pcm, err := c.decoder.Decode(source)
	if err != nil {
		return nil, err
	}
	report(sink, types.PhaseChunking, 15, "Audio decoded")

	total := pcm.Duration()
	numChunks := int(math.Ceil(total / chunkDuration))
	if numChunks < 1 {
		numChunks = 1
	}

	log.WithFields(log.Fields{
		"duration":    total,
		"chunks":      numChunks,
		"sample_rate": pcm.SampleRate,
		"channels":    pcm.Channels,
	}).Info("splitting audio in-process")

	rate := float64(pcm.SampleRate)
	frames := len(pcm.Samples[0])
	chunks := make([]types.ChunkDescriptor, 0, numChunks)

	for i := 0; i < numChunks; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		startSec := float64(i) * chunkDuration
		endSec := math.Min(float64(i+1)*chunkDuration, total)
		startIdx := int(math.Floor(startSec * rate))
		endIdx := int(math.Floor(endSec * rate))
		if endIdx > frames {
			endIdx = frames
		}
		if startIdx >= endIdx {
			break
		}

		slice := make([][]float64, pcm.Channels)
		for ch := 0; ch < pcm.Channels; ch++ {
			slice[ch] = pcm.Samples[ch][startIdx:endIdx]
		}

		chunks = append(chunks, types.ChunkDescriptor{
			Index:    i,
			Data:     EncodeWAV(pcm.SampleRate, pcm.Channels, slice),
			MimeType: "audio/wav",
		})

		report(sink, types.PhaseChunking, 15+(i+1)*80/numChunks,
			fmt.Sprintf("Built chunk %d/%d", i+1, numChunks))
	}

	return chunks, nil
}

func report(sink types.ProgressSink, phase string, percent int, message string) {
	if sink != nil {
		sink.Report(types.ChunkProgress{Phase: phase, OverallProgress: percent, Message: message})
	}
}
