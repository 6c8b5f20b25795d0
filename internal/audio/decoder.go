package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// ErrDecode marks an in-process decode failure (corrupt or unsupported
// container). The orchestrator falls back to server-side chunking on it.
var ErrDecode = errors.New("audio decode failed")

// PCM holds decoded audio as per-channel float sample buffers in [-1, 1] at
// the container's native sample rate.
type PCM struct {
	SampleRate int
	Channels   int
	Samples    [][]float64
}

// Duration returns the total length in seconds.
func (p *PCM) Duration() float64 {
	if p.SampleRate == 0 || len(p.Samples) == 0 {
		return 0
	}
	return float64(len(p.Samples[0])) / float64(p.SampleRate)
}

// Decoder turns container bytes into raw samples. Injected wherever decode is
// needed so tests can substitute fixed buffers.
type Decoder interface {
	Decode(source types.AudioSource) (*PCM, error)
}

// BeepDecoder decodes WAV, MP3, FLAC and Ogg Vorbis containers in-process.
type BeepDecoder struct{}

// Decode reads the whole source into per-channel sample buffers.
func (BeepDecoder) Decode(source types.AudioSource) (*PCM, error) {
	streamer, format, err := openStream(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer streamer.Close()

	channels := format.NumChannels
	if channels > 2 {
		channels = 2
	}
	if channels < 1 {
		channels = 1
	}

	pcm := &PCM{
		SampleRate: int(format.SampleRate),
		Channels:   channels,
		Samples:    make([][]float64, channels),
	}

	buf := make([][2]float64, 2048)
	for {
		n, ok := streamer.Stream(buf)
		for i := 0; i < n; i++ {
			pcm.Samples[0] = append(pcm.Samples[0], buf[i][0])
			if channels == 2 {
				pcm.Samples[1] = append(pcm.Samples[1], buf[i][1])
			}
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(pcm.Samples[0]) == 0 {
		return nil, fmt.Errorf("%w: no samples in container", ErrDecode)
	}
	return pcm, nil
}

// streamLength returns the container's total sample count and rate without
// buffering all samples, when the decoder can seek. A non-positive length
// means the container does not report one.
func streamLength(source types.AudioSource) (samples int, rate int, err error) {
	streamer, format, err := openStream(source)
	if err != nil {
		return 0, 0, err
	}
	defer streamer.Close()
	return streamer.Len(), int(format.SampleRate), nil
}

func openStream(source types.AudioSource) (beep.StreamSeekCloser, beep.Format, error) {
	rc := io.NopCloser(bytes.NewReader(source.Data))
	switch detectContainer(source) {
	case "wav":
		return wav.Decode(rc)
	case "mp3":
		return mp3.Decode(rc)
	case "flac":
		return flac.Decode(rc)
	case "ogg":
		return vorbis.Decode(rc)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported container (mime %q, file %q)", source.MimeType, source.FileName)
	}
}

// detectContainer picks a decoder from magic bytes first, since browser
// recorders frequently mislabel MIME types, then the declared type, then the
// filename extension.
func detectContainer(source types.AudioSource) string {
	data := source.Data
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return "wav"
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("fLaC")):
		return "flac"
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("OggS")):
		return "ogg"
	case len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")):
		return "mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "mp3"
	}

	switch strings.ToLower(source.MimeType) {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/flac", "audio/x-flac":
		return "flac"
	case "audio/ogg", "application/ogg":
		return "ogg"
	}

	switch strings.ToLower(filepath.Ext(source.FileName)) {
	case ".wav":
		return "wav"
	case ".mp3":
		return "mp3"
	case ".flac":
		return "flac"
	case ".ogg", ".oga":
		return "ogg"
	}
	return ""
}

// ValidateFormat checks the filename against the supported container list.
func ValidateFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, supported := range []string{".mp3", ".wav", ".ogg", ".oga", ".flac", ".m4a", ".webm", ".aac"} {
		if ext == supported {
			return true
		}
	}
	return false
}
