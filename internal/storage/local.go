package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// Local persists finished transcripts to the filesystem under dated
// directories: outputs/2026/08/30/20260830_143022_weekly_standup.txt.
type Local struct {
	outputDir string
}

// NewLocal creates the local transcript store.
func NewLocal(outputDir string) *Local {
	return &Local{outputDir: outputDir}
}

// SaveTranscript writes the transcript as a speaker-attributed text file plus
// a full JSON sidecar, and returns the text file path.
func (l *Local) SaveTranscript(t *types.Transcript) (string, error) {
	now := time.Now()
	dateDir := filepath.Join(l.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("create date directory: %w", err)
	}

	base := fmt.Sprintf("%s_%s", now.Format("20060102_150405"), sanitizeFilename(t.FileName))
	txtPath := filepath.Join(dateDir, base+".txt")
	jsonPath := filepath.Join(dateDir, base+".json")

	if err := os.WriteFile(txtPath, []byte(renderText(t)), 0644); err != nil {
		return "", fmt.Errorf("save transcript text: %w", err)
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return "", fmt.Errorf("save transcript json: %w", err)
	}

	return txtPath, nil
}

// renderText formats the transcript for reading: one speaker-attributed line
// per segment, or the flat text when there are no segments.
func renderText(t *types.Transcript) string {
	if len(t.Segments) == 0 {
		return t.Text
	}
	var b strings.Builder
	for _, seg := range t.Segments {
		name := t.SpeakerNames[seg.Speaker]
		if name == "" {
			name = seg.Speaker
		}
		fmt.Fprintf(&b, "[%s - %s] %s: %s\n", formatTime(seg.Start), formatTime(seg.End), name, seg.Text)
	}
	return b.String()
}

func formatTime(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// sanitizeFilename strips path separators and characters unsafe in filenames.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	name = replacer.Replace(name)
	if name == "" || name == "." {
		name = "untitled"
	}
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}
