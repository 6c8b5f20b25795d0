package pipeline

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/audio"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/transcribe"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// Config consolidates the pipeline's tunable constants.
type Config struct {
	// MaxDirectSeconds is the longest recording submitted without chunking
	// when the duration is known.
	MaxDirectSeconds float64
	// ChunkSeconds is the nominal duration of each chunk.
	ChunkSeconds float64
	// SizeThresholdBytes is the chunking-necessity signal when duration
	// probing was not confident.
	SizeThresholdBytes int64
}

// ClientResolver routes a model id to its provider client.
type ClientResolver interface {
	ForModel(model string) (transcribe.Client, error)
}

// DurationProber answers how long a recording is.
type DurationProber interface {
	Probe(ctx context.Context, source types.AudioSource) audio.ProbeResult
}

// Splitter is the in-process chunker.
type Splitter interface {
	Split(ctx context.Context, source types.AudioSource, chunkDuration float64, sink types.ProgressSink) ([]types.ChunkDescriptor, error)
}

// FallbackSplitter is the server-side chunking degradation path.
type FallbackSplitter interface {
	Split(ctx context.Context, source types.AudioSource, chunkDuration float64) ([]types.ChunkDescriptor, error)
}

// Orchestrator drives one transcription run end to end: route, probe, chunk,
// transcribe, merge. A run either completes or fails as a whole; there are no
// partial results and no automatic retries.
type Orchestrator struct {
	cfg        Config
	clients    ClientResolver
	prober     DurationProber
	chunker    Splitter
	fallback   FallbackSplitter // nil when no server-side endpoint is configured
	reconciler *Reconciler
}

// NewOrchestrator wires the pipeline. fallback may be nil.
func NewOrchestrator(cfg Config, clients ClientResolver, prober DurationProber, chunker Splitter, fallback FallbackSplitter, reconciler *Reconciler) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		clients:    clients,
		prober:     prober,
		chunker:    chunker,
		fallback:   fallback,
		reconciler: reconciler,
	}
}

// Run executes the routing rules in priority order: long-form-native provider
// goes straight to a single client call; dual-model mode delegates to the
// reconciler; otherwise the duration probe decides between the direct path and
// the chunked pipeline.
func (o *Orchestrator) Run(ctx context.Context, source types.AudioSource, opts types.Options, sink types.ProgressSink) (*types.Transcript, error) {
	t := newTracker(sink)

	result, err := o.run(ctx, t, source, opts)
	if err != nil {
		t.report(types.PhaseError, 100, 0, 0, transcribe.AsError(err).Message)
		return nil, err
	}
	t.report(types.PhaseComplete, 100, 0, 0, "Transcription complete")
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, t *tracker, source types.AudioSource, opts types.Options) (*types.Transcript, error) {
	t.report(types.PhaseAnalyzing, 0, 0, 0, "Analyzing audio...")

	// Chunking is provider-specific, not universal: a long-form-native API
	// takes the whole file regardless of duration, and that rule outranks
	// dual-model mode.
	provider, perr := transcribe.ProviderFor(opts.Model)
	if perr == nil && transcribe.SupportsLongForm(provider) {
		client, err := o.clients.ForModel(opts.Model)
		if err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{"model": opts.Model, "provider": provider}).Info("long-form provider, direct transcription")
		return client.Transcribe(ctx, source, opts, band{t: t, phase: types.PhaseTranscribing, lo: 10, hi: 95})
	}

	if opts.DualModel {
		if o.reconciler == nil {
			return nil, fmt.Errorf("dual-model mode requested but no reconciler configured")
		}
		return o.reconciler.run(ctx, t, source, opts)
	}

	if perr != nil {
		return nil, perr
	}
	client, err := o.clients.ForModel(opts.Model)
	if err != nil {
		return nil, err
	}

	probe := o.prober.Probe(ctx, source)
	t.report(types.PhaseAnalyzing, 10, 0, 0, fmt.Sprintf("Audio is %.0fs long", probe.DurationSeconds))

	if !audio.NeedsChunking(probe, source.Size(), o.cfg.MaxDirectSeconds, o.cfg.SizeThresholdBytes) {
		log.WithFields(log.Fields{"duration": probe.DurationSeconds, "confident": probe.Confident}).Info("direct transcription")
		return client.Transcribe(ctx, source, opts, band{t: t, phase: types.PhaseTranscribing, lo: 10, hi: 95})
	}

	chunks, err := o.split(ctx, t, source)
	if err != nil {
		return nil, err
	}
	t.report(types.PhaseChunking, 30, 0, len(chunks), fmt.Sprintf("Split into %d chunks", len(chunks)))

	// Strictly sequential: provider rate limits and the progress model both
	// assume in-order completion.
	transcripts := make([]*types.Transcript, 0, len(chunks))
	for i, chunk := range chunks {
		chunkSource := types.AudioSource{
			Data:     chunk.Data,
			MimeType: chunk.MimeType,
			FileName: fmt.Sprintf("%s.chunk%03d.wav", source.FileName, chunk.Index),
		}
		sub := band{
			t:            t,
			phase:        types.PhaseTranscribing,
			lo:           30 + 60*i/len(chunks),
			hi:           30 + 60*(i+1)/len(chunks),
			currentChunk: i + 1,
			totalChunks:  len(chunks),
		}
		tr, err := client.Transcribe(ctx, chunkSource, opts, sub)
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d failed: %w", i+1, len(chunks), err)
		}
		transcripts = append(transcripts, tr)
	}

	t.report(types.PhaseMerging, 90, 0, len(chunks), "Merging chunk transcripts...")
	merged, err := Merge(transcripts, source.FileName, o.cfg.ChunkSeconds)
	if err != nil {
		return nil, err
	}
	t.report(types.PhaseMerging, 95, 0, len(chunks), "Merge complete")
	return merged, nil
}

// split runs the in-process chunker and degrades to the server-side endpoint
// on decode failure. When both strategies fail the error carries both causes
// so the operator can tell which layer broke.
func (o *Orchestrator) split(ctx context.Context, t *tracker, source types.AudioSource) ([]types.ChunkDescriptor, error) {
	chunks, inErr := o.chunker.Split(ctx, source, o.cfg.ChunkSeconds,
		band{t: t, phase: types.PhaseChunking, lo: 10, hi: 30})
	if inErr == nil {
		return chunks, nil
	}
	if !errors.Is(inErr, audio.ErrDecode) {
		return nil, inErr
	}

	log.WithError(inErr).Warn("in-process chunking failed, trying server-side fallback")
	if o.fallback == nil {
		return nil, fmt.Errorf("chunking failed: in-process: %v; server-side chunking not configured", inErr)
	}

	chunks, srvErr := o.fallback.Split(ctx, source, o.cfg.ChunkSeconds)
	if srvErr != nil {
		return nil, fmt.Errorf("chunking failed: in-process: %v; server-side: %v", inErr, srvErr)
	}
	t.report(types.PhaseChunking, 30, 0, len(chunks), "Chunked via server-side fallback")
	return chunks, nil
}
