package queue

import (
	"time"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/transcribe"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// Job is one queued transcription run. Mutable fields are only touched by the
// worker pool under its lock; handlers read through Snapshot.
type Job struct {
	ID         string
	FileName   string
	SourceType string
	Source     types.AudioSource
	Options    types.Options

	Status    string
	Progress  types.ChunkProgress
	Err       *transcribe.Error
	Result    *types.Transcript
	LocalPath string
	DriveURL  string
	CreatedAt time.Time
}

// NewJob creates a queued job for an uploaded source.
func NewJob(id string, source types.AudioSource, sourceType string, opts types.Options) *Job {
	return &Job{
		ID:         id,
		FileName:   source.FileName,
		SourceType: sourceType,
		Source:     source,
		Options:    opts,
		Status:     types.StatusQueued,
		CreatedAt:  time.Now(),
	}
}

// JobView is the handler-facing snapshot of a job.
type JobView struct {
	ID        string              `json:"id"`
	FileName  string              `json:"file_name"`
	Status    string              `json:"status"`
	Progress  types.ChunkProgress `json:"progress"`
	Error     *transcribe.Error   `json:"error,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}
