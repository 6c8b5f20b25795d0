package storage

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

func sampleTranscript() *types.Transcript {
	return &types.Transcript{
		ID:   "t1",
		Text: "hello world goodbye",
		Segments: []types.Segment{
			{ID: 0, Speaker: "speaker_0", Text: "hello world", Start: 0, End: 65},
			{ID: 1, Speaker: "speaker_1", Text: "goodbye", Start: 65, End: 3725},
		},
		Duration:      3725,
		Model:         "whisper-1",
		FileName:      "weekly standup.mp3",
		SpeakerColors: map[string]int{"speaker_0": 0, "speaker_1": 1},
		SpeakerNames:  map[string]string{"speaker_1": "Dana"},
	}
}

func TestSaveTranscriptWritesTextAndJSON(t *testing.T) {
	store := NewLocal(t.TempDir())
	path, err := store.SaveTranscript(sampleTranscript())
	if err != nil {
		t.Fatal(err)
	}

	text, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(text)
	if !strings.Contains(content, "[00:00:00 - 00:01:05] speaker_0: hello world") {
		t.Errorf("text rendering wrong:\n%s", content)
	}
	// Named speakers use their name; 3725s is 01:02:05.
	if !strings.Contains(content, "[00:01:05 - 01:02:05] Dana: goodbye") {
		t.Errorf("named speaker rendering wrong:\n%s", content)
	}

	jsonPath := strings.TrimSuffix(path, ".txt") + ".json"
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("json sidecar missing: %v", err)
	}
	var back types.Transcript
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if back.Text != "hello world goodbye" || len(back.Segments) != 2 {
		t.Error("json sidecar does not round-trip the transcript")
	}
}

func TestSaveTranscriptNoSegmentsUsesFlatText(t *testing.T) {
	store := NewLocal(t.TempDir())
	path, err := store.SaveTranscript(&types.Transcript{Text: "flat only", FileName: "x.wav"})
	if err != nil {
		t.Fatal(err)
	}
	content, _ := os.ReadFile(path)
	if string(content) != "flat only" {
		t.Errorf("content = %q", string(content))
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"weekly standup.mp3": "weekly_standup",
		"../../etc/passwd":   "passwd",
		"a:b*c?d.wav":        "a_b_c_d",
		"":                   "untitled",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
