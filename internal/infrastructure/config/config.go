// Package config loads the starbot YAML configuration and applies
// environment overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/0xcro3dile/starbot/internal/domain/usecases"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host             string   `yaml:"host"`
	Port             int      `yaml:"port"`
	ReadTimeoutSecs  int      `yaml:"read_timeout_secs"`
	WriteTimeoutSecs int      `yaml:"write_timeout_secs"`
	AllowedOrigins   []string `yaml:"allowed_origins"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ReadTimeout returns the request read timeout.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSecs) * time.Second
}

// WriteTimeout returns the response write timeout.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSecs) * time.Second
}

// GenerationConfig selects and configures the language model.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"` // deepseek, openai or ollama
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	APIKey      string  `yaml:"-"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TopP        float64 `yaml:"top_p"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// Timeout returns the per-call generation timeout.
func (g GenerationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// RetrievalConfig tunes the retriever and the context window.
type RetrievalConfig struct {
	School           string  `yaml:"school"`
	Backend          string  `yaml:"backend"` // lexical, memory or chroma
	MaxResults       int     `yaml:"max_results"`
	PrimaryMinScore  float64 `yaml:"primary_min_score"`
	FallbackMinScore float64 `yaml:"fallback_min_score"`
	MaxContextChars  int     `yaml:"max_context_chars"`
	MaxHistory       int     `yaml:"max_history"`

	// QuickAnswers replaces the built-in canned answers when non-empty.
	QuickAnswers []usecases.QuickAnswer `yaml:"quick_answers,omitempty"`
}

// CacheConfig sizes the response cache.
type CacheConfig struct {
	TTLSecs  int `yaml:"ttl_secs"`
	Capacity int `yaml:"capacity"`
}

// TTL returns the entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSecs) * time.Second
}

// IngestionConfig configures document ingestion.
type IngestionConfig struct {
	UploadFolder string `yaml:"upload_folder"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	Watch        bool   `yaml:"watch"`
	DebounceMs   int    `yaml:"debounce_ms"`
}

// Debounce returns the quiet period before a watched change is ingested.
func (i IngestionConfig) Debounce() time.Duration {
	return time.Duration(i.DebounceMs) * time.Millisecond
}

// VectorConfig configures the embedding-backed search backends.
type VectorConfig struct {
	EmbeddingURL     string `yaml:"embedding_url"`
	EmbeddingModel   string `yaml:"embedding_model"`
	ChromaURL        string `yaml:"chroma_url"`
	ChromaCollection string `yaml:"chroma_collection"`
	OpenAIModel      string `yaml:"openai_embedding_model"`
	OpenAIKeyEnv     string `yaml:"openai_api_key_env"`
}

// StorageConfig locates processed data and the SQLite database.
type StorageConfig struct {
	ProcessedFolder string `yaml:"processed_folder"`
	DataPath        string `yaml:"data_path"`
	ChunkSource     string `yaml:"chunk_source"` // json or sqlite
	Fallback        bool   `yaml:"fallback"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// MCPConfig configures the MCP tool server.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	BaseURL string `yaml:"base_url"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Cache      CacheConfig      `yaml:"cache"`
	Ingestion  IngestionConfig  `yaml:"ingestion"`
	Vector     VectorConfig     `yaml:"vector"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
	MCP        MCPConfig        `yaml:"mcp"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := applyConfigDefaults(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/starbot/config.yaml.
// If neither exists, it writes defaults to ~/.config/starbot/config.yaml and
// returns them. An unwritable home is logged and the defaults are used as is.
func LoadDefault(log zerolog.Logger) (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		log.Warn().Err(err).Msg("no home directory, using built-in config")
		return Default(), "", nil
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		log.Warn().Err(err).Str("path", userPath).Msg("could not write default config, using built-in config")
		return cfg, "", nil
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "starbot", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8000,
			ReadTimeoutSecs:  15,
			WriteTimeoutSecs: 60,
			AllowedOrigins:   []string{"*"},
		},
		Generation: GenerationConfig{
			Provider:    "deepseek",
			BaseURL:     "https://api.deepseek.com/v1",
			APIKeyEnv:   "DEEPSEEK_API_KEY",
			Model:       "deepseek-chat",
			Temperature: 0.7,
			MaxTokens:   1000,
			TopP:        0.95,
			TimeoutSecs: 30,
		},
		Retrieval: RetrievalConfig{
			School:           "Star College",
			Backend:          "lexical",
			MaxResults:       5,
			PrimaryMinScore:  0.3,
			FallbackMinScore: 0.1,
			MaxContextChars:  4000,
			MaxHistory:       6,
		},
		Cache: CacheConfig{TTLSecs: 300, Capacity: 100},
		Ingestion: IngestionConfig{
			UploadFolder: "uploads",
			ChunkSize:    512,
			ChunkOverlap: 50,
			Watch:        true,
			DebounceMs:   500,
		},
		Vector: VectorConfig{
			EmbeddingURL:     "http://localhost:11434",
			EmbeddingModel:   "nomic-embed-text",
			ChromaURL:        "http://localhost:8001",
			ChromaCollection: "starbot",
			OpenAIModel:      "text-embedding-3-small",
			OpenAIKeyEnv:     "OPENAI_API_KEY",
		},
		Storage: StorageConfig{
			ProcessedFolder: "processed",
			DataPath:        "data",
			ChunkSource:     "json",
			Fallback:        true,
		},
		Logging: LoggingConfig{Level: "info"},
		MCP:     MCPConfig{Addr: ":8090", BaseURL: "http://localhost:8090"},
	}
}

// ErrUnknownProvider is returned for a generation provider no adapter serves.
var ErrUnknownProvider = errors.New("unknown generation provider")

func applyConfigDefaults(cfg *AppConfig) error {
	def := Default()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.ReadTimeoutSecs <= 0 {
		cfg.Server.ReadTimeoutSecs = def.Server.ReadTimeoutSecs
	}
	if cfg.Server.WriteTimeoutSecs <= 0 {
		cfg.Server.WriteTimeoutSecs = def.Server.WriteTimeoutSecs
	}

	g := &cfg.Generation
	g.Provider = strings.ToLower(strings.TrimSpace(g.Provider))
	switch g.Provider {
	case "ollama":
		if g.BaseURL == "" || g.BaseURL == def.Generation.BaseURL {
			g.BaseURL = "http://localhost:11434"
		}
		if g.Model == "" || g.Model == def.Generation.Model {
			g.Model = "llama3.2"
		}
	case "openai":
		if g.BaseURL == "" || g.BaseURL == def.Generation.BaseURL {
			g.BaseURL = "https://api.openai.com/v1"
		}
		if g.APIKeyEnv == "" || g.APIKeyEnv == def.Generation.APIKeyEnv {
			g.APIKeyEnv = "OPENAI_API_KEY"
		}
		if g.Model == "" || g.Model == def.Generation.Model {
			g.Model = "gpt-4o-mini"
		}
	case "", "deepseek":
		g.Provider = "deepseek"
	default:
		return fmt.Errorf("%w %q", ErrUnknownProvider, g.Provider)
	}
	if g.TimeoutSecs <= 0 {
		g.TimeoutSecs = def.Generation.TimeoutSecs
	}
	if g.MaxTokens <= 0 {
		g.MaxTokens = def.Generation.MaxTokens
	}

	r := &cfg.Retrieval
	r.Backend = strings.ToLower(strings.TrimSpace(r.Backend))
	switch r.Backend {
	case "lexical", "memory", "chroma":
	default:
		r.Backend = def.Retrieval.Backend
	}
	if r.MaxResults <= 0 {
		r.MaxResults = def.Retrieval.MaxResults
	}
	if r.FallbackMinScore > r.PrimaryMinScore {
		r.FallbackMinScore = r.PrimaryMinScore
	}
	if r.MaxContextChars <= 0 {
		r.MaxContextChars = def.Retrieval.MaxContextChars
	}

	if cfg.Cache.TTLSecs <= 0 {
		cfg.Cache.TTLSecs = def.Cache.TTLSecs
	}
	if cfg.Cache.Capacity <= 0 {
		cfg.Cache.Capacity = def.Cache.Capacity
	}

	if cfg.Storage.ChunkSource != "sqlite" {
		cfg.Storage.ChunkSource = def.Storage.ChunkSource
	}

	in := &cfg.Ingestion
	if in.ChunkSize <= 0 {
		in.ChunkSize = def.Ingestion.ChunkSize
	}
	if in.ChunkOverlap < 0 || in.ChunkOverlap >= in.ChunkSize {
		in.ChunkOverlap = def.Ingestion.ChunkOverlap
	}
	if in.DebounceMs <= 0 {
		in.DebounceMs = def.Ingestion.DebounceMs
	}
	return nil
}

// ApplyEnv overrides file settings from the environment and resolves the
// generation API key. Malformed numbers are reported, not ignored.
func ApplyEnv(cfg *AppConfig, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	var errs []error
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}

	str("HOST", &cfg.Server.Host)
	num("PORT", &cfg.Server.Port)
	str("UPLOAD_FOLDER", &cfg.Ingestion.UploadFolder)
	str("PROCESSED_FOLDER", &cfg.Storage.ProcessedFolder)
	num("CHUNK_SIZE", &cfg.Ingestion.ChunkSize)
	num("CHUNK_OVERLAP", &cfg.Ingestion.ChunkOverlap)
	num("TOP_K_RESULTS", &cfg.Retrieval.MaxResults)
	str("LLM_MODEL", &cfg.Generation.Model)
	str("LOG_LEVEL", &cfg.Logging.Level)

	if cfg.Generation.APIKeyEnv != "" {
		cfg.Generation.APIKey = strings.TrimSpace(getenv(cfg.Generation.APIKeyEnv))
	}
	if err := applyConfigDefaults(cfg); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
