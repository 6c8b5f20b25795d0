package handlers

import (
	"encoding/base64"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/media"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/transcribe"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// chunkResponseChunk is one base64-encoded chunk on the wire.
type chunkResponseChunk struct {
	Index    int    `json:"index"`
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// ChunkHandler is the server-side chunking endpoint backing clients whose
// in-process decode failed. It requires ffmpeg; without it the endpoint
// reports unavailable rather than guessing.
type ChunkHandler struct {
	ffmpeg       *media.FFmpeg
	chunkSeconds float64
	maxSizeMB    int
}

// NewChunkHandler creates the chunk handler. ffmpeg may be nil when the binary
// was not found at startup.
func NewChunkHandler(ffmpeg *media.FFmpeg, chunkSeconds, maxSizeMB int) *ChunkHandler {
	return &ChunkHandler{ffmpeg: ffmpeg, chunkSeconds: float64(chunkSeconds), maxSizeMB: maxSizeMB}
}

// Handle splits an uploaded file into provider-sized WAV chunks.
func (h *ChunkHandler) Handle(c *fiber.Ctx) error {
	if h.ffmpeg == nil {
		return errorJSON(c, 503, transcribe.CodeAPIError, "Server-side chunking unavailable")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, 400, transcribe.CodeBadRequest, "No file uploaded")
	}
	if file.Size > int64(h.maxSizeMB)*1024*1024 {
		return errorJSON(c, 400, transcribe.CodeFileTooLarge, "File too large")
	}

	chunkDuration := h.chunkSeconds
	if v := c.FormValue("chunk_duration"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			return errorJSON(c, 400, transcribe.CodeBadRequest, "Invalid chunk_duration")
		}
		chunkDuration = parsed
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

	result, err := h.ffmpeg.Split(c.Context(), source, chunkDuration)
	if err != nil {
		log.WithField("file", file.Filename).WithError(err).Warn("server-side chunking failed")
		return errorJSON(c, 422, transcribe.CodeBadRequest, "Could not split the audio file")
	}

	chunks := make([]chunkResponseChunk, 0, len(result.Chunks))
	for _, ch := range result.Chunks {
		chunks = append(chunks, chunkResponseChunk{
			Index:    ch.Index,
			MimeType: ch.MimeType,
			Data:     base64.StdEncoding.EncodeToString(ch.Data),
		})
	}

	return c.JSON(fiber.Map{
		"needs_chunking": result.NeedsChunking,
		"duration":       result.Duration,
		"chunks":         chunks,
	})
}
