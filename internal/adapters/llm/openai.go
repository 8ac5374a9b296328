// Package llm provides the language-model adapters.
// Clean Architecture: Adapters implementing ports.Generator.
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

// Options configures a chat-completion backend.
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64
	Timeout     time.Duration
}

func (o Options) withDefaults(baseURL, model string) Options {
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Model == "" {
		o.Model = model
	}
	if o.Temperature == 0 {
		o.Temperature = 0.7
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1000
	}
	if o.TopP == 0 {
		o.TopP = 0.95
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// OpenAIAdapter implements ports.Generator against an OpenAI-compatible
// chat-completions endpoint such as DeepSeek.
type OpenAIAdapter struct {
	opts   Options
	client *http.Client
	log    zerolog.Logger
}

// NewOpenAIAdapter creates a new chat-completions adapter. Defaults target DeepSeek.
func NewOpenAIAdapter(opts Options, log zerolog.Logger) *OpenAIAdapter {
	opts = opts.withDefaults("https://api.deepseek.com/v1", "deepseek-chat")
	return &OpenAIAdapter{
		opts:   opts,
		client: newHTTPClient(opts.Timeout),
		log:    log.With().Str("component", "llm").Str("model", opts.Model).Logger(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends the system prompt and turns and returns the first choice.
func (a *OpenAIAdapter) Generate(ctx context.Context, systemPrompt string, turns []entities.ConversationTurn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	reqBody := chatCompletionRequest{
		Model:       a.opts.Model,
		Messages:    toMessages(systemPrompt, turns),
		Temperature: a.opts.Temperature,
		MaxTokens:   a.opts.MaxTokens,
		TopP:        a.opts.TopP,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.opts.BaseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.opts.APIKey)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", readError(ctx, fmt.Errorf("decoding response: %w", err))
	}
	if len(out.Choices) == 0 {
		return "", entities.NewInvalidResponseError(errors.New("response has no choices"))
	}
	answer := out.Choices[0].Message.Content
	if strings.TrimSpace(answer) == "" {
		return "", entities.NewInvalidResponseError(errors.New("empty completion"))
	}

	a.log.Debug().Dur("latency", time.Since(start)).Int("messages", len(reqBody.Messages)).Msg("completion received")
	return answer, nil
}

func toMessages(systemPrompt string, turns []entities.ConversationTurn) []chatMessage {
	msgs := make([]chatMessage, 0, len(turns)+1)
	msgs = append(msgs, chatMessage{Role: "system", Content: systemPrompt})
	for _, t := range turns {
		msgs = append(msgs, chatMessage{Role: string(t.Role), Content: t.Content})
	}
	return msgs
}
