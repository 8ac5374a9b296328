package llm

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
)

func TestOpenAIAdapter_Generate(t *testing.T) {
	var got chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": "Founded in 2002."}}},
		})
	}))
	defer server.Close()

	adapter := NewOpenAIAdapter(Options{BaseURL: server.URL, APIKey: "secret"}, zerolog.Nop())
	answer, err := adapter.Generate(context.Background(), "system text", []entities.ConversationTurn{
		{Role: entities.RoleAssistant, Content: "Hello!"},
		{Role: entities.RoleUser, Content: "when was the school founded"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Founded in 2002.", answer)
	assert.Equal(t, "deepseek-chat", got.Model)
	assert.Equal(t, 0.7, got.Temperature)
	assert.Equal(t, 1000, got.MaxTokens)
	assert.Equal(t, 0.95, got.TopP)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, chatMessage{Role: "system", Content: "system text"}, got.Messages[0])
	assert.Equal(t, "assistant", got.Messages[1].Role)
	assert.Equal(t, "user", got.Messages[2].Role)
}

func TestOpenAIAdapter_Failures(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind entities.FailureKind
		wantCode int
	}{
		{
			name: "bad status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "rate limited", http.StatusTooManyRequests)
			},
			wantKind: entities.FailureBadStatus,
			wantCode: http.StatusTooManyRequests,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{not json"))
			},
			wantKind: entities.FailureInvalidResponse,
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"choices":[]}`))
			},
			wantKind: entities.FailureInvalidResponse,
		},
		{
			name: "slow server",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(2 * time.Second):
				case <-r.Context().Done():
				}
			},
			wantKind: entities.FailureTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			adapter := NewOpenAIAdapter(Options{BaseURL: server.URL, Timeout: 200 * time.Millisecond}, zerolog.Nop())
			_, err := adapter.Generate(context.Background(), "sys", []entities.ConversationTurn{{Role: entities.RoleUser, Content: "q"}})

			require.Error(t, err)
			kind, code := entities.ClassifyFailure(err)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestOpenAIAdapter_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	adapter := NewOpenAIAdapter(Options{BaseURL: "http://" + addr, Timeout: time.Second}, zerolog.Nop())
	_, err = adapter.Generate(context.Background(), "sys", nil)

	kind, _ := entities.ClassifyFailure(err)
	assert.Equal(t, entities.FailureConnection, kind)
}

func TestOptions_Defaults(t *testing.T) {
	opts := Options{BaseURL: "https://api.example.com/v1/"}.withDefaults("unused", "deepseek-chat")

	assert.Equal(t, "https://api.example.com/v1", opts.BaseURL)
	assert.Equal(t, "deepseek-chat", opts.Model)
	assert.Equal(t, 30*time.Second, opts.Timeout)
}

// hangingServer blocks every request until the client goes away and
// reports that on the returned channel.
func hangingServer(t *testing.T) (*httptest.Server, <-chan struct{}) {
	t.Helper()
	gone := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
			gone <- struct{}{}
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(server.Close)
	return server, gone
}

func TestOpenAIAdapter_CallerCancelAbortsRequest(t *testing.T) {
	server, gone := hangingServer(t)
	adapter := NewOpenAIAdapter(Options{BaseURL: server.URL, Timeout: 10 * time.Second}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	_, err := adapter.Generate(ctx, "sys", []entities.ConversationTurn{{Role: entities.RoleUser, Content: "q"}})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	kind, _ := entities.ClassifyFailure(err)
	assert.Equal(t, entities.FailureCanceled, kind)
	select {
	case <-gone:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the cancellation")
	}
}
