package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/queue"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/storage"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/transcribe"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// JobsHandler exposes job status, finished transcripts, and history.
type JobsHandler struct {
	workerPool *queue.WorkerPool
	db         *storage.MetadataDB
}

// NewJobsHandler creates the jobs handler. db may be nil.
func NewJobsHandler(workerPool *queue.WorkerPool, db *storage.MetadataDB) *JobsHandler {
	return &JobsHandler{workerPool: workerPool, db: db}
}

// Status returns the current state of a job.
func (h *JobsHandler) Status(c *fiber.Ctx) error {
	view, ok := h.workerPool.Snapshot(c.Params("id"))
	if !ok {
		return errorJSON(c, 404, transcribe.CodeBadRequest, "Job not found")
	}
	return c.JSON(view)
}

// Transcript returns the finished transcript of a completed job.
func (h *JobsHandler) Transcript(c *fiber.Ctx) error {
	id := c.Params("id")
	view, ok := h.workerPool.Snapshot(id)
	if !ok {
		return errorJSON(c, 404, transcribe.CodeBadRequest, "Job not found")
	}
	if view.Status != types.StatusCompleted {
		return errorJSON(c, 409, transcribe.CodeBadRequest, "Job has not completed")
	}
	result, ok := h.workerPool.Transcript(id)
	if !ok {
		return errorJSON(c, 404, transcribe.CodeBadRequest, "Transcript not available")
	}
	return c.JSON(result)
}

// List returns recent transcript metadata records.
func (h *JobsHandler) List(c *fiber.Ctx) error {
	if h.db == nil {
		return c.JSON(fiber.Map{"transcripts": []storage.Record{}})
	}
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	records, err := h.db.ListTranscripts(limit)
	if err != nil {
		return errorJSON(c, 500, transcribe.CodeAPIError, "Failed to list transcripts")
	}
	if records == nil {
		records = []storage.Record{}
	}
	return c.JSON(fiber.Map{"transcripts": records})
}
