package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// Reconciler runs two independent passes over the same audio — a
// quality-optimized one (best wording, no diarization) and a
// diarization-optimized one (speaker-accurate segments, lower fidelity) — and
// aligns them so the output has both good wording and good attribution.
type Reconciler struct {
	clients      ClientResolver
	qualityModel string
	diarizeModel string
}

// NewReconciler wires the dual-model pipeline with its default pass models.
func NewReconciler(clients ClientResolver, qualityModel, diarizeModel string) *Reconciler {
	return &Reconciler{clients: clients, qualityModel: qualityModel, diarizeModel: diarizeModel}
}

// Run executes both passes and reconciles. Exposed for callers entering
// dual-model mode directly rather than through the orchestrator.
func (r *Reconciler) Run(ctx context.Context, source types.AudioSource, opts types.Options, sink types.ProgressSink) (*types.Transcript, error) {
	return r.run(ctx, newTracker(sink), source, opts)
}

func (r *Reconciler) run(ctx context.Context, t *tracker, source types.AudioSource, opts types.Options) (*types.Transcript, error) {
	qualityModel := opts.QualityModel
	if qualityModel == "" {
		qualityModel = r.qualityModel
	}
	diarizeModel := opts.DiarizeModel
	if diarizeModel == "" {
		diarizeModel = r.diarizeModel
	}

	t.report(types.PhaseQuality, 5, 0, 0, "Running quality transcription pass...")
	qualityClient, err := r.clients.ForModel(qualityModel)
	if err != nil {
		return nil, err
	}
	qualityOpts := opts
	qualityOpts.Model = qualityModel
	qualityOpts.DualModel = false
	quality, err := qualityClient.Transcribe(ctx, source, qualityOpts,
		band{t: t, phase: types.PhaseQuality, lo: 5, hi: 45})
	if err != nil {
		return nil, fmt.Errorf("quality pass failed: %w", err)
	}

	t.report(types.PhaseDiarization, 50, 0, 0, "Running diarization pass...")
	diarizeClient, err := r.clients.ForModel(diarizeModel)
	if err != nil {
		return nil, err
	}
	diarizeOpts := opts
	diarizeOpts.Model = diarizeModel
	diarizeOpts.DualModel = false
	diarized, err := diarizeClient.Transcribe(ctx, source, diarizeOpts,
		band{t: t, phase: types.PhaseDiarization, lo: 50, hi: 90})
	if err != nil {
		return nil, fmt.Errorf("diarization pass failed: %w", err)
	}

	t.report(types.PhaseMerging, 90, 0, 0, "Reconciling transcripts...")
	result := reconcile(quality, diarized, qualityModel, diarizeModel, source.FileName)
	t.report(types.PhaseMerging, 95, 0, 0, "Reconciliation complete")
	return result, nil
}

// reconcile combines the two passes. The diarized pass contributes speakers
// and timing; the quality pass contributes wording. With no diarized segments
// there is nothing to align against, so the quality transcript wins outright.
func reconcile(quality, diarized *types.Transcript, qualityModel, diarizeModel, fileName string) *types.Transcript {
	if len(diarized.Segments) == 0 {
		log.Warn("diarization pass returned no segments, keeping quality transcript")
		out := *quality
		out.Model = qualityModel
		return &out
	}

	segments := alignSegments(quality.Text, diarized.Segments)

	var duration float64
	for _, seg := range segments {
		if seg.End > duration {
			duration = seg.End
		}
	}

	language := quality.Language
	if language == "" {
		language = diarized.Language
	}

	return &types.Transcript{
		ID:            uuid.New().String(),
		Text:          quality.Text,
		Segments:      segments,
		Words:         quality.Words,
		Duration:      duration,
		Language:      language,
		Model:         qualityModel + "+" + diarizeModel,
		CreatedAt:     time.Now(),
		FileName:      fileName,
		SpeakerColors: types.AssignSpeakerColors(segments),
		SpeakerNames:  map[string]string{},
	}
}

// alignSegments walks the diarized segments in order, replacing each segment's
// text with the matching span of the quality text. The cursor into the quality
// text only moves forward. A segment with no match keeps its own lower-fidelity
// wording — a segment is never dropped.
//
// This is a deliberate greedy heuristic, not a guaranteed-correct sequence
// alignment: wording drift between the two passes is typically small relative
// to a spoken sentence.
func alignSegments(qualityText string, segs []types.Segment) []types.Segment {
	lower := asciiLower(qualityText)
	cursor := 0
	out := make([]types.Segment, 0, len(segs))

	for i, seg := range segs {
		aligned := seg
		aligned.ID = i

		pos := matchPosition(lower, seg.Text, cursor)
		if pos < 0 {
			out = append(out, aligned)
			continue
		}

		end := len(qualityText)
		if i+1 < len(segs) {
			next := matchPosition(lower, segs[i+1].Text, pos+len(seg.Text))
			if next > pos {
				end = next
			} else {
				// Lookahead failed; pad past the diarized wording as a
				// buffered estimate.
				end = pos + len(seg.Text) + 20
				if end > len(qualityText) {
					end = len(qualityText)
				}
			}
		}

		if text := strings.TrimSpace(qualityText[pos:end]); text != "" {
			aligned.Text = text
		}
		cursor = end
		out = append(out, aligned)
	}
	return out
}

// matchPosition locates segText within the quality text near the cursor.
// It searches for the segment's first significant word starting slightly
// behind the cursor, then verifies the second significant word lands within 50
// characters; on a verification miss it probes up to 200 characters ahead for
// an alternate occurrence of the first word. Keeping the search anchored to
// the cursor tolerates minor wording drift without runaway false matches.
func matchPosition(lowerText, segText string, cursor int) int {
	words := significantWords(segText)
	if len(words) == 0 {
		return -1
	}
	first := asciiLower(words[0])

	from := cursor - 50
	if from < 0 {
		from = 0
	}
	idx := indexFrom(lowerText, first, from)
	if idx < 0 {
		return -1
	}

	if len(words) >= 2 {
		second := asciiLower(words[1])
		if !foundWithin(lowerText, second, idx+len(first), 50) {
			alt := indexFrom(lowerText, first, idx+len(first))
			if alt >= 0 && alt <= idx+200 && foundWithin(lowerText, second, alt+len(first), 50) {
				return alt
			}
		}
	}
	return idx
}

// significantWords returns the words of s longer than two characters, with
// surrounding punctuation stripped.
func significantWords(s string) []string {
	var words []string
	for _, w := range strings.Fields(s) {
		w = strings.Trim(w, ".,!?;:\"'()[]")
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	return words
}

func indexFrom(s, sub string, from int) int {
	if from >= len(s) {
		return -1
	}
	if from < 0 {
		from = 0
	}
	i := strings.Index(s[from:], sub)
	if i < 0 {
		return -1
	}
	return from + i
}

func foundWithin(s, sub string, from, span int) bool {
	if from < 0 {
		from = 0
	}
	end := from + span + len(sub)
	if end > len(s) {
		end = len(s)
	}
	if from >= end {
		return false
	}
	return strings.Contains(s[from:end], sub)
}

// asciiLower lowercases ASCII letters only, preserving byte offsets so match
// positions in the lowered copy index directly into the original.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
