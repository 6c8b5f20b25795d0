package audio

import (
	"context"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// ProbeResult is the duration prober's answer. Confident is false when the
// duration is a byte-size estimate rather than a decoded value.
type ProbeResult struct {
	DurationSeconds float64
	Confident       bool
}

// Prober determines audio duration by in-process decode, degrading to a
// size-based estimate on timeout or decode failure. Probing never blocks the
// pipeline: there is always an answer.
type Prober struct {
	timeout        time.Duration
	bytesPerSecond int64
	decoder        Decoder
}

// NewProber builds a prober. bytesPerSecond is the conservative low-bitrate
// constant used for the fallback estimate.
func NewProber(timeout time.Duration, bytesPerSecond int64, decoder Decoder) *Prober {
	if bytesPerSecond <= 0 {
		bytesPerSecond = 3000
	}
	if decoder == nil {
		decoder = BeepDecoder{}
	}
	return &Prober{timeout: timeout, bytesPerSecond: bytesPerSecond, decoder: decoder}
}

// Probe returns the source duration. The decode attempt is bounded by the
// configured timeout; a decode still running after that is abandoned and the
// estimate used instead.
func (p *Prober) Probe(ctx context.Context, source types.AudioSource) ProbeResult {
	type answer struct {
		duration float64
		err      error
	}
	ch := make(chan answer, 1)
	go func() {
		d, err := p.decodedDuration(source)
		ch <- answer{d, err}
	}()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case a := <-ch:
		if a.err == nil && a.duration > 0 && !math.IsInf(a.duration, 0) && !math.IsNaN(a.duration) {
			return ProbeResult{DurationSeconds: a.duration, Confident: true}
		}
		if a.err != nil {
			log.WithError(a.err).Debug("duration decode failed, using size estimate")
		}
	case <-timer.C:
		log.WithField("timeout", p.timeout).Warn("duration probe timed out, using size estimate")
	case <-ctx.Done():
	}

	return ProbeResult{
		DurationSeconds: float64(source.Size()) / float64(p.bytesPerSecond),
		Confident:       false,
	}
}

// decodedDuration prefers the container-reported length over a full decode.
func (p *Prober) decodedDuration(source types.AudioSource) (float64, error) {
	if samples, rate, err := streamLength(source); err == nil && samples > 0 && rate > 0 {
		return float64(samples) / float64(rate), nil
	}
	pcm, err := p.decoder.Decode(source)
	if err != nil {
		return 0, err
	}
	return pcm.Duration(), nil
}

// NeedsChunking decides whether the source must be split before submission.
// With a confident duration the threshold is maxDirectSeconds; without one,
// raw byte size against sizeThreshold is the signal, since size is more
// reliable than a rough estimate for the binary decision.
func NeedsChunking(r ProbeResult, sizeBytes int64, maxDirectSeconds float64, sizeThreshold int64) bool {
	if r.Confident {
		return r.DurationSeconds > maxDirectSeconds
	}
	return sizeBytes > sizeThreshold
}
