package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
)

// OllamaLLMAdapter implements ports.Generator using the Ollama chat API.
type OllamaLLMAdapter struct {
	opts   Options
	client *http.Client
	log    zerolog.Logger
}

// NewOllamaLLMAdapter creates a new Ollama LLM adapter for a local model.
func NewOllamaLLMAdapter(opts Options, log zerolog.Logger) *OllamaLLMAdapter {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second // local models are slow to load
	}
	opts = opts.withDefaults("http://localhost:11434", "llama3.2")
	return &OllamaLLMAdapter{
		opts:   opts,
		client: newHTTPClient(opts.Timeout),
		log:    log.With().Str("component", "llm").Str("model", opts.Model).Logger(),
	}
}

// ollamaChatRequest is the Ollama chat API request.
type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

// ollamaChatResponse is the Ollama chat API response.
type ollamaChatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error"`
}

// Generate produces a response given a system prompt and conversation turns.
func (a *OllamaLLMAdapter) Generate(ctx context.Context, systemPrompt string, turns []entities.ConversationTurn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	reqBody := ollamaChatRequest{
		Model:    a.opts.Model,
		Messages: toMessages(systemPrompt, turns),
		Options: ollamaOptions{
			Temperature: a.opts.Temperature,
			TopP:        a.opts.TopP,
			NumPredict:  a.opts.MaxTokens,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.opts.BaseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", readError(ctx, fmt.Errorf("decoding response: %w", err))
	}
	if chatResp.Error != "" {
		return "", entities.NewInvalidResponseError(errors.New(chatResp.Error))
	}
	if strings.TrimSpace(chatResp.Message.Content) == "" {
		return "", entities.NewInvalidResponseError(errors.New("empty completion"))
	}
	return chatResp.Message.Content, nil
}
