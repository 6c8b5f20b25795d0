package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// FFmpeg drives the external media toolchain for the server-side chunking
// fallback. It is a degraded-availability dependency: construction fails when
// the binary is missing and callers must treat that as "endpoint unavailable".
type FFmpeg struct {
	binPath string
	tempDir string
}

// NewFFmpeg locates the ffmpeg binary and prepares the temp spill directory.
func NewFFmpeg(tempDir string) (*FFmpeg, error) {
	binPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not available: %w", err)
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &FFmpeg{binPath: binPath, tempDir: tempDir}, nil
}

// SplitResult is the server-side chunking response shape.
type SplitResult struct {
	NeedsChunking bool                    `json:"needs_chunking"`
	Duration      float64                 `json:"duration"`
	Chunks        []types.ChunkDescriptor `json:"chunks"`
}

// Split writes the payload to disk, probes its duration, and cuts it into
// chunkDuration-second 16kHz mono PCM WAV pieces. A source at or under one
// chunk comes back whole with NeedsChunking=false.
func (f *FFmpeg) Split(ctx context.Context, source types.AudioSource, chunkDuration float64) (*SplitResult, error) {
	inPath := filepath.Join(f.tempDir, fmt.Sprintf("split_%s%s", uuid.New().String(), extOrWav(source.FileName)))
	if err := os.WriteFile(inPath, source.Data, 0644); err != nil {
		return nil, fmt.Errorf("write temp input: %w", err)
	}
	defer os.Remove(inPath)

	duration, err := f.ProbeDuration(ctx, inPath)
	if err != nil {
		return nil, err
	}

	if duration <= chunkDuration {
		return &SplitResult{NeedsChunking: false, Duration: duration}, nil
	}

	numChunks := int(math.Ceil(duration / chunkDuration))
	log.WithFields(log.Fields{"duration": duration, "chunks": numChunks}).Info("splitting audio with ffmpeg")

	chunks := make([]types.ChunkDescriptor, 0, numChunks)
	for i := 0; i < numChunks; i++ {
		outPath := filepath.Join(f.tempDir, fmt.Sprintf("chunk_%s_%03d.wav", uuid.New().String(), i))
		data, err := f.extract(ctx, inPath, outPath, float64(i)*chunkDuration, chunkDuration)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, types.ChunkDescriptor{Index: i, Data: data, MimeType: "audio/wav"})
	}

	return &SplitResult{NeedsChunking: true, Duration: duration, Chunks: chunks}, nil
}

// extract cuts one piece and returns its bytes, removing the spill file.
func (f *FFmpeg) extract(ctx context.Context, inPath, outPath string, start, length float64) ([]byte, error) {
	cmd := exec.CommandContext(ctx, f.binPath,
		"-ss", strconv.FormatFloat(start, 'f', 3, 64),
		"-t", strconv.FormatFloat(length, 'f', 3, 64),
		"-i", inPath,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y",
		outPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg chunk extraction failed: %v\nOutput: %s", err, string(output))
	}
	defer os.Remove(outPath)

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read chunk output: %w", err)
	}
	return data, nil
}

// durationRe matches "Duration: HH:MM:SS.cc" in ffmpeg's stderr banner.
var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)

// ProbeDuration parses the duration from ffmpeg's file info output. ffmpeg
// exits non-zero for a null output target, so the output is parsed regardless.
func (f *FFmpeg) ProbeDuration(ctx context.Context, inPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, f.binPath, "-i", inPath, "-f", "null", "-")
	output, err := cmd.CombinedOutput()
	if err != nil && len(output) == 0 {
		return 0, fmt.Errorf("ffmpeg probe failed: %w", err)
	}
	return ParseDuration(string(output))
}

// ParseDuration extracts a duration in seconds from ffmpeg stderr text.
func ParseDuration(output string) (float64, error) {
	matches := durationRe.FindStringSubmatch(output)
	if matches == nil {
		return 0, fmt.Errorf("no duration in ffmpeg output")
	}
	h, _ := strconv.Atoi(matches[1])
	m, _ := strconv.Atoi(matches[2])
	s, _ := strconv.Atoi(matches[3])
	frac, _ := strconv.Atoi(matches[4])

	fracSeconds := float64(frac) / math.Pow10(len(matches[4]))
	return float64(h*3600+m*60+s) + fracSeconds, nil
}

func extOrWav(name string) string {
	if ext := filepath.Ext(name); ext != "" {
		return ext
	}
	return ".wav"
}
