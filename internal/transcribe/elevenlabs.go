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

const defaultElevenLabsBaseURL = "https://api.elevenlabs.io/v1"

// ElevenLabsClient is the diarized-shape client: speaker-accurate timed
// segments, possibly lower transcription fidelity than the quality shape.
type ElevenLabsClient struct {
	creds   Credentials
	baseURL string
	hc      *http.Client
}

// NewElevenLabsClient creates a client against the ElevenLabs speech-to-text API.
func NewElevenLabsClient(creds Credentials, baseURL string) *ElevenLabsClient {
	if baseURL == "" {
		baseURL = defaultElevenLabsBaseURL
	}
	return &ElevenLabsClient{
		creds:   creds,
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 30 * time.Minute},
	}
}

// elevenLabsResponse matches the speech-to-text response shape. Words carry
// per-word speaker ids; spacing entries are interleaved with type "spacing".
type elevenLabsResponse struct {
	LanguageCode string `json:"language_code"`
	Text         string `json:"text"`
	Words        []struct {
		Text      string  `json:"text"`
		Type      string  `json:"type"`
		Start     float64 `json:"start"`
		End       float64 `json:"end"`
		SpeakerID string  `json:"speaker_id"`
	} `json:"words"`
}

// Transcribe submits the whole blob with diarization enabled and groups the
// word stream into speaker-attributed segments.
func (c *ElevenLabsClient) Transcribe(ctx context.Context, source types.AudioSource, opts types.Options, sink types.ProgressSink) (*types.Transcript, error) {
	apiKey, ok := c.creds.APIKey(types.ProviderElevenLabs)
	if !ok {
		return nil, NewError(CodeInvalidAPIKey, "No ElevenLabs API key configured.")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model_id", opts.Model); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if err := mw.WriteField("diarize", "true"); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if opts.Language != "" {
		if err := mw.WriteField("language_code", opts.Language); err != nil {
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

	reportHeuristic(sink, 10, "Uploading audio to ElevenLabs...")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/speech-to-text", &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("xi-api-key", apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &Error{Code: CodeNetworkError, Message: messageForCode(CodeNetworkError, "ElevenLabs"), Details: err.Error()}
	}
	defer resp.Body.Close()

	reportHeuristic(sink, 80, "Processing ElevenLabs response...")

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		code := codeFromStatus(resp.StatusCode)
		log.WithFields(log.Fields{"status": resp.StatusCode, "code": code}).Warn("elevenlabs transcription failed")
		return nil, &Error{Code: code, Message: messageForCode(code, "ElevenLabs"), Details: string(raw)}
	}

	var out elevenLabsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &Error{Code: CodeAPIError, Message: "ElevenLabs returned an unreadable response.", Details: err.Error()}
	}

	reportHeuristic(sink, 100, "Transcription received")
	return normalizeElevenLabs(&out, source.FileName, opts.Model), nil
}

// normalizeElevenLabs groups consecutive same-speaker words into segments,
// renumbering segment ids densely from 0.
func normalizeElevenLabs(out *elevenLabsResponse, fileName, model string) *types.Transcript {
	var (
		segments []types.Segment
		words    []types.Word
		current  *types.Segment
		textBuf  strings.Builder
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.TrimSpace(textBuf.String())
		if current.Text != "" {
			current.ID = len(segments)
			segments = append(segments, *current)
		}
		current = nil
		textBuf.Reset()
	}

	for _, w := range out.Words {
		if w.Type == "spacing" {
			textBuf.WriteString(w.Text)
			continue
		}
		speaker := w.SpeakerID
		if speaker == "" {
			speaker = "speaker_0"
		}
		if current == nil || current.Speaker != speaker {
			flush()
			current = &types.Segment{Speaker: speaker, Start: w.Start, End: w.End}
		}
		if textBuf.Len() > 0 && !strings.HasSuffix(textBuf.String(), " ") {
			textBuf.WriteString(" ")
		}
		textBuf.WriteString(w.Text)
		current.End = w.End
		words = append(words, types.Word{Word: w.Text, Start: w.Start, End: w.End})
	}
	flush()

	if len(segments) == 0 && strings.TrimSpace(out.Text) != "" {
		segments = append(segments, types.Segment{
			ID:      0,
			Speaker: "speaker_0",
			Text:    strings.TrimSpace(out.Text),
		})
	}

	var duration float64
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
		Language:      out.LanguageCode,
		Model:         model,
		CreatedAt:     time.Now(),
		FileName:      fileName,
		SpeakerColors: types.AssignSpeakerColors(segments),
		SpeakerNames:  map[string]string{},
	}
}
