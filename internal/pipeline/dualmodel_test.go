package pipeline

import (
	"strings"
	"testing"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

func TestReconcileNoDiarizedSegmentsKeepsQuality(t *testing.T) {
	quality := &types.Transcript{Text: "the full quality wording", Model: "whisper-1"}
	diarized := &types.Transcript{Text: "whatever", Model: "scribe_v1"}

	out := reconcile(quality, diarized, "whisper-1", "scribe_v1", "a.wav")
	if out.Text != quality.Text {
		t.Errorf("text = %q, want quality text", out.Text)
	}
	if out.Model != "whisper-1" {
		t.Errorf("model = %q, want the quality model alone", out.Model)
	}
}

func TestReconcileCombinesWordingAndSpeakers(t *testing.T) {
	quality := &types.Transcript{
		Text:     "Hello everyone welcome to the quarterly planning meeting",
		Language: "en",
	}
	diarized := &types.Transcript{
		Segments: []types.Segment{
			{ID: 0, Speaker: "speaker_0", Text: "hello everyone welcome", Start: 0, End: 2.5},
			{ID: 1, Speaker: "speaker_1", Text: "the quarterly planing meeting", Start: 2.5, End: 5},
		},
	}

	out := reconcile(quality, diarized, "whisper-1", "scribe_v1", "a.wav")

	if out.Model != "whisper-1+scribe_v1" {
		t.Errorf("model = %q", out.Model)
	}
	if out.Text != quality.Text {
		t.Errorf("text = %q, want quality wording", out.Text)
	}
	if len(out.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(out.Segments))
	}
	if out.Segments[0].Speaker != "speaker_0" || out.Segments[1].Speaker != "speaker_1" {
		t.Error("speaker attribution lost in reconciliation")
	}
	// Timing comes from the diarized pass.
	if out.Segments[1].Start != 2.5 || out.Segments[1].End != 5 {
		t.Errorf("segment timing = [%.1f, %.1f], want diarized timing", out.Segments[1].Start, out.Segments[1].End)
	}
	// Wording comes from the quality pass, including its spelling fix.
	if !strings.Contains(out.Segments[1].Text, "planning") {
		t.Errorf("segment 1 text = %q, want quality wording", out.Segments[1].Text)
	}
	if out.Duration != 5 {
		t.Errorf("duration = %.1f, want max segment end", out.Duration)
	}
	if _, ok := out.SpeakerColors["speaker_1"]; !ok {
		t.Error("speaker_1 missing from color map")
	}
}

func TestAlignSegmentsNeverDrops(t *testing.T) {
	qualityText := "completely different wording here"
	segs := []types.Segment{
		{ID: 0, Speaker: "speaker_0", Text: "zzz qqq xxx", Start: 0, End: 1},
		{ID: 1, Speaker: "speaker_1", Text: "www vvv uuu", Start: 1, End: 2},
	}
	out := alignSegments(qualityText, segs)
	if len(out) != len(segs) {
		t.Fatalf("alignment dropped segments: %d -> %d", len(segs), len(out))
	}
	// No match: segments keep their own wording.
	if out[0].Text != "zzz qqq xxx" {
		t.Errorf("unmatched segment text = %q, want original", out[0].Text)
	}
}

func TestAlignSegmentsForwardCursor(t *testing.T) {
	// The same phrase occurs twice; the second segment must match the later
	// occurrence because the cursor only moves forward.
	qualityText := "we agree on that point and later we agree on that point again"
	segs := []types.Segment{
		{ID: 0, Speaker: "speaker_0", Text: "we agree on that point and later", Start: 0, End: 3},
		{ID: 1, Speaker: "speaker_1", Text: "we agree on that point again", Start: 3, End: 6},
	}
	out := alignSegments(qualityText, segs)
	if len(out) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(out))
	}
	if !strings.Contains(out[1].Text, "again") {
		t.Errorf("second segment text = %q, want the later occurrence", out[1].Text)
	}
}

func TestSignificantWords(t *testing.T) {
	got := significantWords("So, I think we... go now!")
	want := []string{"think", "now"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAsciiLowerPreservesLength(t *testing.T) {
	in := "Héllo WORLD"
	out := asciiLower(in)
	if len(out) != len(in) {
		t.Fatalf("length changed: %d -> %d", len(in), len(out))
	}
	if out != "héllo world" {
		t.Errorf("got %q", out)
	}
}
