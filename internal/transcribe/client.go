package transcribe

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// Client submits one audio blob to a transcription provider and normalizes the
// response into the canonical Transcript shape. Progress is heuristic: the
// underlying call is a single blocking request, so clients report fixed marks
// (10% on send, 80% on response, 100% on parse).
type Client interface {
	Transcribe(ctx context.Context, source types.AudioSource, opts types.Options, sink types.ProgressSink) (*types.Transcript, error)
}

// Credentials supplies one plaintext API key per provider. Absence of a key is
// a precondition failure, not an internal error.
type Credentials interface {
	APIKey(provider string) (string, bool)
}

// StaticCredentials is a fixed provider -> key mapping.
type StaticCredentials map[string]string

func (c StaticCredentials) APIKey(provider string) (string, bool) {
	key, ok := c[provider]
	return key, ok && key != ""
}

// ProviderFor routes a model identifier to its provider.
func ProviderFor(model string) (string, error) {
	switch {
	case strings.HasPrefix(model, "scribe"):
		return types.ProviderElevenLabs, nil
	case strings.HasPrefix(model, "whisper"), strings.HasPrefix(model, "gpt-4o"):
		return types.ProviderOpenAI, nil
	default:
		return "", fmt.Errorf("unknown model %q", model)
	}
}

// SupportsLongForm reports whether a provider's batch API tolerates long
// recordings without client-side chunking. ElevenLabs accepts multi-hour
// files; OpenAI caps uploads, so long files must be split first.
func SupportsLongForm(provider string) bool {
	return provider == types.ProviderElevenLabs
}

// Registry owns the per-provider clients.
type Registry struct {
	clients map[string]Client
}

// NewRegistry builds the default registry backed by real provider clients.
func NewRegistry(creds Credentials, openAIBaseURL, elevenLabsBaseURL string) *Registry {
	return &Registry{clients: map[string]Client{
		types.ProviderOpenAI:     NewOpenAIClient(creds, openAIBaseURL),
		types.ProviderElevenLabs: NewElevenLabsClient(creds, elevenLabsBaseURL),
	}}
}

// ForModel returns the client responsible for the given model.
func (r *Registry) ForModel(model string) (Client, error) {
	provider, err := ProviderFor(model)
	if err != nil {
		return nil, err
	}
	client, ok := r.clients[provider]
	if !ok {
		return nil, fmt.Errorf("no client registered for provider %q", provider)
	}
	return client, nil
}
