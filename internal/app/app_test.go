package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
	"github.com/0xcro3dile/starbot/internal/infrastructure/config"
)

const processedUploads = `[
  {"id": "h1", "text": "Star College was founded in 2002 in Durban.", "metadata": {"source_type": "file", "filename": "history.pdf", "page": 1}},
  {"id": "f1", "text": "School fees are payable in ten monthly instalments.", "metadata": {"source_type": "file", "filename": "fees.pdf", "page": 2}}
]`

func fakeLLM(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Star College was founded in 2002."}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, llmURL string) *config.AppConfig {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Storage.ProcessedFolder = filepath.Join(root, "processed")
	cfg.Storage.DataPath = filepath.Join(root, "data")
	cfg.Storage.Fallback = false
	cfg.Ingestion.UploadFolder = filepath.Join(root, "uploads")
	cfg.Generation.Provider = "openai"
	cfg.Generation.BaseURL = llmURL
	cfg.Generation.Model = "test-model"
	cfg.Generation.APIKey = "sk-test"

	require.NoError(t, os.MkdirAll(cfg.Storage.ProcessedFolder, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Storage.ProcessedFolder, "uploads_data.json"), []byte(processedUploads), 0o644))
	return cfg
}

func TestApp_AnswersFromProcessedData(t *testing.T) {
	var calls atomic.Int32
	cfg := testConfig(t, fakeLLM(t, &calls).URL)

	a, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 2, a.Refresh(context.Background()))

	resp := a.Chat.Answer(context.Background(), entities.ChatRequest{Query: "When was Star College founded?"})
	require.Equal(t, entities.OutcomeAnswered, resp.Metadata.Outcome, resp.Metadata.Error)
	assert.Equal(t, "Star College was founded in 2002.", resp.Answer)
	require.NotEmpty(t, resp.Sources)
	assert.Equal(t, "h1", resp.Sources[0].Metadata["chunk_id"])

	again := a.Chat.Answer(context.Background(), entities.ChatRequest{Query: "when was star college founded?"})
	assert.True(t, again.Metadata.Cached)
	assert.Equal(t, int32(1), calls.Load())
}

func TestApp_ReloadIngestsUploads(t *testing.T) {
	var calls atomic.Int32
	cfg := testConfig(t, fakeLLM(t, &calls).URL)
	require.NoError(t, os.MkdirAll(cfg.Ingestion.UploadFolder, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Ingestion.UploadFolder, "boarding.md"),
		[]byte("Star College offers weekly boarding for learners from grade 8."), 0o644))

	a, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	n, err := a.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	raw, err := os.ReadFile(filepath.Join(cfg.Storage.ProcessedFolder, "uploads_data.json"))
	require.NoError(t, err)
	var chunks []entities.Chunk
	require.NoError(t, json.Unmarshal(raw, &chunks))
	require.Len(t, chunks, 1)
	assert.Equal(t, "boarding.md", chunks[0].Metadata.Filename)

	results, err := a.Search.Search(context.Background(), "weekly boarding", "", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestApp_ReloadClearsCachedAnswers(t *testing.T) {
	var calls atomic.Int32
	cfg := testConfig(t, fakeLLM(t, &calls).URL)
	require.NoError(t, os.MkdirAll(cfg.Ingestion.UploadFolder, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Ingestion.UploadFolder, "history.txt"),
		[]byte("Star College was founded in 2002 in Durban by a group of educators."), 0o644))

	a, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()
	a.Refresh(context.Background())

	req := entities.ChatRequest{Query: "When was Star College founded?"}
	first := a.Chat.Answer(context.Background(), req)
	require.Equal(t, entities.OutcomeAnswered, first.Metadata.Outcome, first.Metadata.Error)
	require.True(t, a.Chat.Answer(context.Background(), req).Metadata.Cached)
	require.Equal(t, int32(1), calls.Load())

	_, err = a.Reload(context.Background())
	require.NoError(t, err)
	assert.Zero(t, a.Cache.Stats().Entries)

	after := a.Chat.Answer(context.Background(), req)
	require.Equal(t, entities.OutcomeAnswered, after.Metadata.Outcome, after.Metadata.Error)
	assert.False(t, after.Metadata.Cached)
	assert.Equal(t, int32(2), calls.Load())
	require.NotEmpty(t, after.Sources)
	assert.NotEqual(t, "h1", after.Sources[0].Metadata["chunk_id"], "sources come from the reloaded snapshot")
}

func TestApp_FeedbackIsStored(t *testing.T) {
	var calls atomic.Int32
	cfg := testConfig(t, fakeLLM(t, &calls).URL)

	a, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Feedback.Submit(context.Background(), entities.Feedback{
		Question: "When was it founded?",
		Answer:   "2002",
		Verdict:  entities.VerdictHelpful,
	}))

	sum, err := a.FeedbackSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"helpful": 1}, sum)
}

func TestApp_SQLiteChunkSource(t *testing.T) {
	var calls atomic.Int32
	cfg := testConfig(t, fakeLLM(t, &calls).URL)
	require.NoError(t, os.MkdirAll(cfg.Ingestion.UploadFolder, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Ingestion.UploadFolder, "sports.txt"),
		[]byte("Learners play soccer, cricket and chess at Star College."), 0o644))

	first, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	_, err = first.Reload(context.Background())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	cfg.Storage.ChunkSource = "sqlite"
	second, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, 1, second.Refresh(context.Background()))
}

func TestNewGenerator_UnknownProvider(t *testing.T) {
	_, err := newGenerator(config.GenerationConfig{Provider: "gemini"}, zerolog.Nop())

	assert.Error(t, err)
}
