package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient is the quality/plain-shape client: best wording, word-level
// timestamps when available, no diarization. Every segment is attributed to a
// single synthetic speaker.
type OpenAIClient struct {
	creds   Credentials
	baseURL string
	hc      *http.Client
}

// NewOpenAIClient creates a client against the OpenAI transcription API.
func NewOpenAIClient(creds Credentials, baseURL string) *OpenAIClient {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIClient{
		creds:   creds,
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 30 * time.Minute},
	}
}

// openAIResponse matches the verbose_json response shape.
type openAIResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
	Words []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

// Transcribe submits the whole blob in one request and normalizes the flat
// response into a single-speaker transcript.
func (c *OpenAIClient) Transcribe(ctx context.Context, source types.AudioSource, opts types.Options, sink types.ProgressSink) (*types.Transcript, error) {
	apiKey, ok := c.creds.APIKey(types.ProviderOpenAI)
	if !ok {
		return nil, NewError(CodeInvalidAPIKey, "No OpenAI API key configured.")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", opts.Model); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if err := mw.WriteField("timestamp_granularities[]", "segment"); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if opts.Language != "" {
		if err := mw.WriteField("language", opts.Language); err != nil {
			return nil, fmt.Errorf("build multipart: %w", err)
		}
	}
	fw, err := mw.CreateFormFile("file", fileNameOrDefault(source.FileName, "audio.wav"))
	if err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := fw.Write(source.Data); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}

	reportHeuristic(sink, 10, "Uploading audio to OpenAI...")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &Error{Code: CodeNetworkError, Message: messageForCode(CodeNetworkError, "OpenAI"), Details: err.Error()}
	}
	defer resp.Body.Close()

	reportHeuristic(sink, 80, "Processing OpenAI response...")

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		code := codeFromStatus(resp.StatusCode)
		log.WithFields(log.Fields{"status": resp.StatusCode, "code": code}).Warn("openai transcription failed")
		return nil, &Error{Code: code, Message: messageForCode(code, "OpenAI"), Details: string(raw)}
	}

	var out openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &Error{Code: CodeAPIError, Message: "OpenAI returned an unreadable response.", Details: err.Error()}
	}

	reportHeuristic(sink, 100, "Transcription received")
	return normalizeOpenAI(&out, source.FileName, opts.Model), nil
}

// normalizeOpenAI converts the flat provider shape to the canonical one. When
// the provider reports no segments, a single segment spanning the full
// duration is synthesized so downstream merging always has timestamps.
func normalizeOpenAI(out *openAIResponse, fileName, model string) *types.Transcript {
	const speaker = "speaker_0"

	segments := make([]types.Segment, 0, len(out.Segments))
	for i, seg := range out.Segments {
		segments = append(segments, types.Segment{
			ID:      i,
			Speaker: speaker,
			Text:    strings.TrimSpace(seg.Text),
			Start:   seg.Start,
			End:     seg.End,
		})
	}
	if len(segments) == 0 && strings.TrimSpace(out.Text) != "" {
		segments = append(segments, types.Segment{
			ID:      0,
			Speaker: speaker,
			Text:    strings.TrimSpace(out.Text),
			Start:   0,
			End:     out.Duration,
		})
	}

	words := make([]types.Word, 0, len(out.Words))
	for _, w := range out.Words {
		words = append(words, types.Word{Word: w.Word, Start: w.Start, End: w.End})
	}

	duration := out.Duration
	for _, seg := range segments {
		if seg.End > duration {
			duration = seg.End
		}
	}

	return &types.Transcript{
		ID:            uuid.New().String(),
		Text:          strings.TrimSpace(out.Text),
		Segments:      segments,
		Words:         words,
		Duration:      duration,
		Language:      out.Language,
		Model:         model,
		CreatedAt:     time.Now(),
		FileName:      fileName,
		SpeakerColors: types.AssignSpeakerColors(segments),
		SpeakerNames:  map[string]string{},
	}
}

func fileNameOrDefault(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func reportHeuristic(sink types.ProgressSink, percent int, message string) {
	if sink != nil {
		sink.Report(types.ChunkProgress{Phase: types.PhaseTranscribing, OverallProgress: percent, Message: message})
	}
}
