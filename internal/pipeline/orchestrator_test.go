package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/audio"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/transcribe"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// mockClient returns a canned transcript per call and counts invocations.
type mockClient struct {
	mu         sync.Mutex
	calls      int
	failCall   int // 1-based call number that errors; 0 means never
	transcript func(call int, source types.AudioSource) *types.Transcript
}

func (m *mockClient) Transcribe(ctx context.Context, source types.AudioSource, opts types.Options, sink types.ProgressSink) (*types.Transcript, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()

	if sink != nil {
		sink.Report(types.ChunkProgress{Phase: types.PhaseTranscribing, OverallProgress: 50})
		sink.Report(types.ChunkProgress{Phase: types.PhaseTranscribing, OverallProgress: 100})
	}
	if m.failCall != 0 && call == m.failCall {
		return nil, transcribe.NewError(transcribe.CodeRateLimited, "slow down")
	}
	if m.transcript != nil {
		return m.transcript(call, source), nil
	}
	return &types.Transcript{
		Text:          fmt.Sprintf("part %d", call),
		Segments:      []types.Segment{{Speaker: "speaker_0", Text: fmt.Sprintf("part %d", call), Start: 0, End: 500}},
		Duration:      500,
		Model:         opts.Model,
		SpeakerColors: map[string]int{"speaker_0": 0},
		SpeakerNames:  map[string]string{},
	}, nil
}

// mockResolver maps every model to one client, or per-model when byModel is set.
type mockResolver struct {
	client  *mockClient
	byModel map[string]transcribe.Client
}

func (m *mockResolver) ForModel(model string) (transcribe.Client, error) {
	if m.byModel != nil {
		c, ok := m.byModel[model]
		if !ok {
			return nil, fmt.Errorf("no client for %q", model)
		}
		return c, nil
	}
	return m.client, nil
}

type mockProber struct {
	result audio.ProbeResult
	called bool
}

func (m *mockProber) Probe(ctx context.Context, source types.AudioSource) audio.ProbeResult {
	m.called = true
	return m.result
}

type mockSplitter struct {
	chunks int
	err    error
	called bool
}

func (m *mockSplitter) Split(ctx context.Context, source types.AudioSource, chunkDuration float64, sink types.ProgressSink) ([]types.ChunkDescriptor, error) {
	m.called = true
	if m.err != nil {
		return nil, m.err
	}
	return makeChunks(m.chunks), nil
}

type mockFallback struct {
	chunks int
	err    error
	called bool
}

func (m *mockFallback) Split(ctx context.Context, source types.AudioSource, chunkDuration float64) ([]types.ChunkDescriptor, error) {
	m.called = true
	if m.err != nil {
		return nil, m.err
	}
	return makeChunks(m.chunks), nil
}

func makeChunks(n int) []types.ChunkDescriptor {
	chunks := make([]types.ChunkDescriptor, n)
	for i := range chunks {
		chunks[i] = types.ChunkDescriptor{Index: i, Data: []byte{0}, MimeType: "audio/wav"}
	}
	return chunks
}

// progressRecorder captures every event for monotonicity checks.
type progressRecorder struct {
	mu     sync.Mutex
	events []types.ChunkProgress
}

func (r *progressRecorder) Report(p types.ChunkProgress) {
	r.mu.Lock()
	r.events = append(r.events, p)
	r.mu.Unlock()
}

func (r *progressRecorder) assertMonotone(t *testing.T) {
	t.Helper()
	last := -1
	for i, ev := range r.events {
		if ev.OverallProgress < last {
			t.Errorf("progress went backwards at event %d: %d -> %d", i, last, ev.OverallProgress)
		}
		last = ev.OverallProgress
	}
}

func testConfig() Config {
	return Config{MaxDirectSeconds: 1200, ChunkSeconds: 600, SizeThresholdBytes: 5 * 1024 * 1024}
}

func TestRunDirectWhenShort(t *testing.T) {
	client := &mockClient{}
	prober := &mockProber{result: audio.ProbeResult{DurationSeconds: 300, Confident: true}}
	splitter := &mockSplitter{}
	rec := &progressRecorder{}

	o := NewOrchestrator(testConfig(), &mockResolver{client: client}, prober, splitter, nil, nil)
	out, err := o.Run(context.Background(), types.AudioSource{Data: []byte("x"), FileName: "a.wav"},
		types.Options{Model: "whisper-1"}, rec)
	if err != nil {
		t.Fatal(err)
	}
	if client.calls != 1 {
		t.Errorf("expected exactly one provider call, got %d", client.calls)
	}
	if splitter.called {
		t.Error("short audio must not be chunked")
	}
	if out == nil || out.Text == "" {
		t.Error("missing transcript")
	}
	rec.assertMonotone(t)

	last := rec.events[len(rec.events)-1]
	if last.Phase != types.PhaseComplete || last.OverallProgress != 100 {
		t.Errorf("final event = %+v, want complete at 100", last)
	}
}

func TestRunLongFormSkipsProbing(t *testing.T) {
	client := &mockClient{}
	prober := &mockProber{result: audio.ProbeResult{DurationSeconds: 7200, Confident: true}}
	splitter := &mockSplitter{}

	o := NewOrchestrator(testConfig(), &mockResolver{client: client}, prober, splitter, nil, nil)
	_, err := o.Run(context.Background(), types.AudioSource{Data: []byte("x")},
		types.Options{Model: "scribe_v1"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if client.calls != 1 {
		t.Errorf("expected one direct call, got %d", client.calls)
	}
	if prober.called || splitter.called {
		t.Error("long-form provider must bypass probing and chunking")
	}
}

func TestRunChunkedPipeline(t *testing.T) {
	client := &mockClient{}
	prober := &mockProber{result: audio.ProbeResult{DurationSeconds: 3000, Confident: true}}
	splitter := &mockSplitter{chunks: 5}
	rec := &progressRecorder{}

	o := NewOrchestrator(testConfig(), &mockResolver{client: client}, prober, splitter, nil, nil)
	out, err := o.Run(context.Background(), types.AudioSource{Data: []byte("x"), FileName: "long.mp3"},
		types.Options{Model: "whisper-1"}, rec)
	if err != nil {
		t.Fatal(err)
	}
	if client.calls != 5 {
		t.Errorf("expected 5 provider calls, got %d", client.calls)
	}
	if len(out.Segments) != 5 {
		t.Errorf("expected 5 merged segments, got %d", len(out.Segments))
	}
	if out.FileName != "long.mp3" {
		t.Errorf("file name = %q", out.FileName)
	}
	rec.assertMonotone(t)
}

func TestRunChunkFailureAbortsWhole(t *testing.T) {
	client := &mockClient{failCall: 3}
	prober := &mockProber{result: audio.ProbeResult{DurationSeconds: 3000, Confident: true}}
	splitter := &mockSplitter{chunks: 5}
	rec := &progressRecorder{}

	o := NewOrchestrator(testConfig(), &mockResolver{client: client}, prober, splitter, nil, nil)
	_, err := o.Run(context.Background(), types.AudioSource{Data: []byte("x")},
		types.Options{Model: "whisper-1"}, rec)
	if err == nil {
		t.Fatal("expected failure when a chunk fails")
	}
	if client.calls != 3 {
		t.Errorf("expected processing to stop at the failing chunk, got %d calls", client.calls)
	}
	last := rec.events[len(rec.events)-1]
	if last.Phase != types.PhaseError {
		t.Errorf("final phase = %q, want error", last.Phase)
	}
}

func TestRunSizeSignalWhenProbeUnconfident(t *testing.T) {
	client := &mockClient{}
	prober := &mockProber{result: audio.ProbeResult{DurationSeconds: 2000, Confident: false}}
	splitter := &mockSplitter{chunks: 2}

	// Unconfident probe: the 2000s estimate is ignored, the small byte size
	// keeps the file on the direct path.
	o := NewOrchestrator(testConfig(), &mockResolver{client: client}, prober, splitter, nil, nil)
	_, err := o.Run(context.Background(), types.AudioSource{Data: []byte("small")},
		types.Options{Model: "whisper-1"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if splitter.called {
		t.Error("small unconfident source must not be chunked")
	}
}

func TestRunFallbackOnDecodeFailure(t *testing.T) {
	client := &mockClient{}
	prober := &mockProber{result: audio.ProbeResult{DurationSeconds: 3000, Confident: true}}
	splitter := &mockSplitter{err: fmt.Errorf("%w: bad container", audio.ErrDecode)}
	fallback := &mockFallback{chunks: 3}

	o := NewOrchestrator(testConfig(), &mockResolver{client: client}, prober, splitter, fallback, nil)
	out, err := o.Run(context.Background(), types.AudioSource{Data: []byte("x")},
		types.Options{Model: "whisper-1"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !fallback.called {
		t.Error("fallback splitter not used")
	}
	if client.calls != 3 {
		t.Errorf("expected 3 calls via fallback chunks, got %d", client.calls)
	}
	if len(out.Segments) != 3 {
		t.Errorf("expected 3 segments, got %d", len(out.Segments))
	}
}

func TestRunBothSplitStrategiesFail(t *testing.T) {
	client := &mockClient{}
	prober := &mockProber{result: audio.ProbeResult{DurationSeconds: 3000, Confident: true}}
	splitter := &mockSplitter{err: fmt.Errorf("%w: bad container", audio.ErrDecode)}
	fallback := &mockFallback{err: fmt.Errorf("endpoint down")}

	o := NewOrchestrator(testConfig(), &mockResolver{client: client}, prober, splitter, fallback, nil)
	_, err := o.Run(context.Background(), types.AudioSource{Data: []byte("x")},
		types.Options{Model: "whisper-1"}, nil)
	if err == nil {
		t.Fatal("expected combined failure")
	}
	if client.calls != 0 {
		t.Error("no provider call should happen when chunking fails")
	}
}

func TestRunDualModel(t *testing.T) {
	quality := &mockClient{transcript: func(call int, source types.AudioSource) *types.Transcript {
		return &types.Transcript{Text: "the quality wording of everything", Duration: 10}
	}}
	diarize := &mockClient{transcript: func(call int, source types.AudioSource) *types.Transcript {
		return &types.Transcript{
			Text: "the quality wording of everything",
			Segments: []types.Segment{
				{Speaker: "speaker_0", Text: "the quality wording", Start: 0, End: 5},
				{Speaker: "speaker_1", Text: "of everything", Start: 5, End: 10},
			},
			Duration: 10,
		}
	}}
	resolver := &mockResolver{byModel: map[string]transcribe.Client{
		"whisper-1": quality,
		"scribe_v1": diarize,
	}}
	rec := &progressRecorder{}

	reconciler := NewReconciler(resolver, "whisper-1", "scribe_v1")
	o := NewOrchestrator(testConfig(), resolver, &mockProber{}, &mockSplitter{}, nil, reconciler)

	out, err := o.Run(context.Background(), types.AudioSource{Data: []byte("x"), FileName: "m.wav"},
		types.Options{Model: "whisper-1", DualModel: true}, rec)
	if err != nil {
		t.Fatal(err)
	}
	if quality.calls != 1 || diarize.calls != 1 {
		t.Errorf("calls: quality=%d diarize=%d, want 1 each", quality.calls, diarize.calls)
	}
	if out.Model != "whisper-1+scribe_v1" {
		t.Errorf("model = %q", out.Model)
	}
	if len(out.Segments) != 2 {
		t.Errorf("expected 2 diarized segments, got %d", len(out.Segments))
	}
	rec.assertMonotone(t)
}

func TestRunLongFormOutranksDualModel(t *testing.T) {
	quality := &mockClient{}
	diarize := &mockClient{transcript: func(call int, source types.AudioSource) *types.Transcript {
		return &types.Transcript{
			Text:     "one direct pass",
			Segments: []types.Segment{{Speaker: "speaker_0", Text: "one direct pass", Start: 0, End: 4}},
			Duration: 4,
		}
	}}
	resolver := &mockResolver{byModel: map[string]transcribe.Client{
		"whisper-1": quality,
		"scribe_v1": diarize,
	}}

	reconciler := NewReconciler(resolver, "whisper-1", "scribe_v1")
	o := NewOrchestrator(testConfig(), resolver, &mockProber{}, &mockSplitter{}, nil, reconciler)

	out, err := o.Run(context.Background(), types.AudioSource{Data: []byte("x")},
		types.Options{Model: "scribe_v1", DualModel: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	// A long-form-native model goes straight to one direct call even in
	// dual-model mode; no second pass runs.
	if diarize.calls != 1 {
		t.Errorf("diarize calls = %d, want 1 direct call", diarize.calls)
	}
	if quality.calls != 0 {
		t.Errorf("quality calls = %d, want no reconciler pass", quality.calls)
	}
	if out.Text != "one direct pass" {
		t.Errorf("text = %q", out.Text)
	}
}

func TestTrackerClampsTo100(t *testing.T) {
	rec := &progressRecorder{}
	tr := newTracker(rec)
	tr.report(types.PhaseTranscribing, 150, 0, 0, "")
	if rec.events[0].OverallProgress != 100 {
		t.Errorf("progress = %d, want clamp to 100", rec.events[0].OverallProgress)
	}
	tr.report(types.PhaseMerging, 40, 0, 0, "")
	if rec.events[1].OverallProgress != 100 {
		t.Errorf("progress = %d, want monotone hold at 100", rec.events[1].OverallProgress)
	}
}
