package handlers

import (
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/audio"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/queue"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/transcribe"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

var validate = validator.New()

// transcribeRequest is the form-field portion of an upload.
type transcribeRequest struct {
	Model        string `form:"model" validate:"required"`
	Language     string `form:"language" validate:"omitempty,len=2"`
	DualModel    bool   `form:"dual_model"`
	QualityModel string `form:"quality_model"`
	DiarizeModel string `form:"diarize_model"`
}

// TranscribeHandler accepts audio uploads and queues them for transcription.
type TranscribeHandler struct {
	workerPool *queue.WorkerPool
	maxSizeMB  int
}

// NewTranscribeHandler creates the upload handler.
func NewTranscribeHandler(workerPool *queue.WorkerPool, maxSizeMB int) *TranscribeHandler {
	return &TranscribeHandler{workerPool: workerPool, maxSizeMB: maxSizeMB}
}

// Handle processes a multipart upload and returns the job id immediately.
func (h *TranscribeHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, 400, transcribe.CodeBadRequest, "No file uploaded")
	}

	var req transcribeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, 400, transcribe.CodeBadRequest, "Malformed request fields")
	}
	if req.Model == "" {
		req.Model = "whisper-1"
	}
	if err := validate.Struct(&req); err != nil {
		return errorJSON(c, 400, transcribe.CodeBadRequest, fmt.Sprintf("Invalid request: %v", err))
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		return errorJSON(c, 400, transcribe.CodeFileTooLarge,
			fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB))
	}

	if !audio.ValidateFormat(file.Filename) {
		return errorJSON(c, 400, transcribe.CodeInvalidFormat, "Unsupported audio format")
	}

	src, err := file.Open()
	if err != nil {
		return errorJSON(c, 500, transcribe.CodeAPIError, "Failed to read upload")
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return errorJSON(c, 500, transcribe.CodeAPIError, "Failed to read upload")
	}

	source := types.AudioSource{
		Data:     data,
		MimeType: file.Header.Get("Content-Type"),
		FileName: file.Filename,
	}
	opts := types.Options{
		Model:        req.Model,
		Language:     req.Language,
		DualModel:    req.DualModel,
		QualityModel: req.QualityModel,
		DiarizeModel: req.DiarizeModel,
	}

	job := queue.NewJob(uuid.New().String(), source, types.SourceUpload, opts)
	h.workerPool.Enqueue(job)

	log.WithFields(log.Fields{"job_id": job.ID, "file": file.Filename, "model": req.Model}).
		Info("upload accepted")

	return c.JSON(fiber.Map{
		"job_id": job.ID,
		"status": types.StatusQueued,
	})
}

// errorJSON writes the standard error envelope.
func errorJSON(c *fiber.Ctx, status int, code transcribe.ErrorCode, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}
