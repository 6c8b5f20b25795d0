package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// RemoteChunker calls a server-side chunking endpoint: whole file plus desired
// chunk duration in, ordered chunks out. Used when in-process decode fails.
type RemoteChunker struct {
	endpoint string
	hc       *http.Client
}

// NewRemoteChunker builds a client for the given /chunk endpoint URL. An empty
// endpoint yields a nil chunker, which the orchestrator treats as unavailable.
func NewRemoteChunker(endpoint string) *RemoteChunker {
	if endpoint == "" {
		return nil
	}
	return &RemoteChunker{
		endpoint: endpoint,
		hc:       &http.Client{Timeout: 10 * time.Minute},
	}
}

// remoteSplitResponse is the wire shape of the chunking endpoint. Chunk bytes
// travel base64-encoded inside JSON.
type remoteSplitResponse struct {
	NeedsChunking bool    `json:"needs_chunking"`
	Duration      float64 `json:"duration"`
	Chunks        []struct {
		Index    int    `json:"index"`
		MimeType string `json:"mime_type"`
		Data     string `json:"data"`
	} `json:"chunks"`
	Error string `json:"error,omitempty"`
}

// Split uploads the whole source and returns the chunks the server produced.
// A server that decides no chunking is needed returns the source as one chunk.
func (r *RemoteChunker) Split(ctx context.Context, source types.AudioSource, chunkDuration float64) ([]types.ChunkDescriptor, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("chunk_duration", strconv.FormatFloat(chunkDuration, 'f', -1, 64)); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	fw, err := mw.CreateFormFile("file", source.FileName)
	if err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := fw.Write(source.Data); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := r.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server-side chunking unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server-side chunking failed (status %d): %s", resp.StatusCode, string(raw))
	}

	var out remoteSplitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode chunking response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("server-side chunking failed: %s", out.Error)
	}

	if !out.NeedsChunking {
		return []types.ChunkDescriptor{{Index: 0, Data: source.Data, MimeType: source.MimeType}}, nil
	}

	chunks := make([]types.ChunkDescriptor, 0, len(out.Chunks))
	for _, c := range out.Chunks {
		data, err := base64.StdEncoding.DecodeString(c.Data)
		if err != nil {
			return nil, fmt.Errorf("decode chunk %d payload: %w", c.Index, err)
		}
		chunks = append(chunks, types.ChunkDescriptor{Index: c.Index, Data: data, MimeType: c.MimeType})
	}
	return chunks, nil
}
