// Package app wires adapters and use cases into a running starbot.
// Every command builds the same graph and uses the parts it needs.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/amikos-tech/chroma-go/pkg/embeddings/openai"
	"github.com/rs/zerolog"

	"github.com/0xcro3dile/starbot/internal/adapters/cache"
	"github.com/0xcro3dile/starbot/internal/adapters/chunkstore"
	"github.com/0xcro3dile/starbot/internal/adapters/embedding"
	"github.com/0xcro3dile/starbot/internal/adapters/filewatcher"
	"github.com/0xcro3dile/starbot/internal/adapters/llm"
	"github.com/0xcro3dile/starbot/internal/adapters/loader"
	"github.com/0xcro3dile/starbot/internal/adapters/vectordb"
	"github.com/0xcro3dile/starbot/internal/domain/ports"
	"github.com/0xcro3dile/starbot/internal/domain/usecases"
	"github.com/0xcro3dile/starbot/internal/infrastructure/config"
	"github.com/0xcro3dile/starbot/internal/infrastructure/metrics"
)

// App holds the wired object graph.
type App struct {
	Config   *config.AppConfig
	Log      zerolog.Logger
	Metrics  *metrics.Metrics
	Store    *chunkstore.Store
	Cache    *cache.MemoryCache
	Chat     *usecases.ChatUseCase
	Search   *usecases.SearchUseCase
	Feedback *usecases.FeedbackUseCase
	Ingest   *usecases.IngestUseCase
	Loader   ports.DocumentLoader

	sqlite *vectordb.SQLiteStore
}

// Build constructs the graph. Optional backends that cannot start (SQLite,
// a vector index) are logged and left out rather than failing the build.
func Build(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log, Metrics: metrics.NewMetrics()}

	sqlite, err := vectordb.NewSQLiteStore(cfg.Storage.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("sqlite unavailable, feedback and snapshot mirroring disabled")
	} else {
		a.sqlite = sqlite
	}

	uploads := loader.NewProcessedFile("uploads", filepath.Join(cfg.Storage.ProcessedFolder, loader.UploadsFile))
	web := loader.NewProcessedFile("web", filepath.Join(cfg.Storage.ProcessedFolder, loader.WebFile))

	sources := []ports.ChunkSource{uploads, web}
	if cfg.Storage.ChunkSource == "sqlite" && a.sqlite != nil {
		sources = []ports.ChunkSource{a.sqlite, web}
	}
	var storeOpts []chunkstore.Option
	if !cfg.Storage.Fallback {
		storeOpts = append(storeOpts, chunkstore.WithoutFallback())
	}
	a.Store = chunkstore.New(log, sources, storeOpts...)

	searcher, indexers := a.buildSearcher(ctx)
	retriever := usecases.NewRetriever(searcher, usecases.DefaultRetrieverConfig())

	generator, err := newGenerator(cfg.Generation, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	quick := cfg.Retrieval.QuickAnswers
	if len(quick) == 0 {
		quick = usecases.DefaultQuickAnswers()
	}

	a.Cache = cache.NewMemoryCache(cfg.Cache.TTL(), cfg.Cache.Capacity)
	a.Metrics.RegisterCache(func() (uint64, uint64, int) {
		st := a.Cache.Stats()
		return st.Hits, st.Misses, st.Entries
	})
	a.Chat = usecases.NewChatUseCase(retriever, a.Cache, generator, a.Metrics, usecases.ChatConfig{
		School:           cfg.Retrieval.School,
		MaxResults:       cfg.Retrieval.MaxResults,
		PrimaryMinScore:  cfg.Retrieval.PrimaryMinScore,
		FallbackMinScore: cfg.Retrieval.FallbackMinScore,
		MaxContextChars:  cfg.Retrieval.MaxContextChars,
		MaxHistory:       cfg.Retrieval.MaxHistory,
		QuickAnswers:     quick,
	}, log)
	a.Search = usecases.NewSearchUseCase(retriever, cfg.Retrieval.MaxResults, cfg.Retrieval.FallbackMinScore)

	var feedbackStores []ports.FeedbackStore
	sinks := []ports.ChunkSink{uploads}
	if a.sqlite != nil {
		feedbackStores = append(feedbackStores, a.sqlite)
		sinks = append(sinks, a.sqlite)
	}
	a.Feedback = usecases.NewFeedbackUseCase(feedbackStores, log)

	a.Loader = loader.NewMultiLoader(loader.NewTextLoader(), loader.NewDocconvLoader())
	a.Ingest = usecases.NewIngestUseCase(a.Loader, sinks, a.Store, indexers, usecases.IngestConfig{
		ChunkSize:    cfg.Ingestion.ChunkSize,
		ChunkOverlap: cfg.Ingestion.ChunkOverlap,
		Debounce:     cfg.Ingestion.Debounce(),
		OnRefresh: func(n int) {
			// Cached answers may cite chunks that no longer exist.
			a.Cache.Clear()
			a.Metrics.RecordRefresh(n)
		},
	}, log)

	return a, nil
}

// buildSearcher picks the retrieval backend. A vector backend that fails to
// start falls back to the lexical scan.
func (a *App) buildSearcher(ctx context.Context) (ports.Searcher, []ports.ChunkIndexer) {
	cfg := a.Config
	lexical := usecases.NewLexicalSearcher(a.Store)

	switch cfg.Retrieval.Backend {
	case "memory":
		emb := embedding.NewOllamaAdapter(cfg.Vector.EmbeddingURL, cfg.Vector.EmbeddingModel, a.Log)
		idx := vectordb.NewMemoryIndex(emb, a.Log)
		return idx, []ports.ChunkIndexer{idx}

	case "chroma":
		ef, err := openai.NewOpenAIEmbeddingFunction(
			os.Getenv(cfg.Vector.OpenAIKeyEnv),
			openai.WithModel(openai.EmbeddingModel(cfg.Vector.OpenAIModel)))
		if err != nil {
			a.Log.Warn().Err(err).Msg("embedding function unavailable, using lexical search")
			return lexical, nil
		}
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		idx, err := vectordb.NewChromaIndex(connectCtx, vectordb.ChromaConfig{
			BaseURL:       cfg.Vector.ChromaURL,
			Collection:    cfg.Vector.ChromaCollection,
			EmbeddingFunc: ef,
		}, a.Log)
		if err != nil {
			a.Log.Warn().Err(err).Msg("chroma unavailable, using lexical search")
			return lexical, nil
		}
		return idx, []ports.ChunkIndexer{idx}
	}
	return lexical, nil
}

func newGenerator(cfg config.GenerationConfig, log zerolog.Logger) (ports.Generator, error) {
	opts := llm.Options{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		TopP:        cfg.TopP,
		Timeout:     cfg.Timeout(),
	}
	switch cfg.Provider {
	case "ollama":
		return llm.NewOllamaLLMAdapter(opts, log), nil
	case "deepseek", "openai":
		if opts.APIKey == "" {
			log.Warn().Str("env", cfg.APIKeyEnv).Msg("no API key set, generation requests will be rejected upstream")
		}
		return llm.NewOpenAIAdapter(opts, log), nil
	}
	return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
}

// Refresh loads the snapshot and pushes it to the vector index.
func (a *App) Refresh(ctx context.Context) int {
	return a.Ingest.Refresh(ctx)
}

// Reload re-ingests the upload folder and swaps the snapshot.
func (a *App) Reload(ctx context.Context) (int, error) {
	return a.Ingest.Sync(ctx, a.Config.Ingestion.UploadFolder)
}

// Watch re-ingests the upload folder on change until ctx ends.
func (a *App) Watch(ctx context.Context) error {
	w, err := filewatcher.NewFSNotifyWatcher(a.Loader.SupportedExtensions(), a.Log)
	if err != nil {
		return err
	}
	defer w.Stop()
	if err := os.MkdirAll(a.Config.Ingestion.UploadFolder, 0o755); err != nil {
		return err
	}
	return a.Ingest.Watch(ctx, w, a.Config.Ingestion.UploadFolder)
}

// FeedbackSummary reports stored verdict counts; empty without SQLite.
func (a *App) FeedbackSummary(ctx context.Context) (map[string]int, error) {
	out := map[string]int{}
	if a.sqlite == nil {
		return out, nil
	}
	sum, err := a.sqlite.FeedbackSummary(ctx)
	if err != nil {
		return nil, err
	}
	for v, n := range sum {
		out[string(v)] = n
	}
	return out, nil
}

// Close releases the SQLite handle.
func (a *App) Close() error {
	if a.sqlite == nil {
		return nil
	}
	err := a.sqlite.Close()
	a.sqlite = nil
	return err
}

// LoadConfig reads path, or the default locations when path is empty, and
// applies environment overrides.
func LoadConfig(path string, log zerolog.Logger) (*config.AppConfig, error) {
	var cfg *config.AppConfig
	var err error
	if path == "" {
		cfg, _, err = config.LoadDefault(log)
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.ApplyEnv(cfg, os.Getenv); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return cfg, nil
}
