// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"
	"time"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
)

// ChunkSource produces chunks from one durable source (processed JSON,
// a SQLite snapshot, a directory of documents).
type ChunkSource interface {
	// Name identifies the source in logs.
	Name() string

	// Load reads every chunk the source holds, in source order.
	Load(ctx context.Context) ([]entities.Chunk, error)
}

// ChunkReader exposes the current chunk snapshot without I/O.
type ChunkReader interface {
	Chunks() []entities.Chunk
}

// Searcher scores the knowledge base against a query.
// Open-Closed: the lexical scan and vector backends are interchangeable.
type Searcher interface {
	// Search returns candidates with RawScore and Position set. limit is a
	// hint for backends that can't scan everything; 0 means no limit.
	Search(ctx context.Context, query string, limit int) ([]entities.ScoredChunk, error)
}

// ChunkIndexer receives every freshly built chunk snapshot.
// Vector backends implement it to keep their index in step with the store.
type ChunkIndexer interface {
	Index(ctx context.Context, chunks []entities.Chunk) error
}

// ChunkSink persists a freshly ingested batch of chunks, replacing what
// it held before.
type ChunkSink interface {
	Name() string
	SaveChunks(ctx context.Context, chunks []entities.Chunk) error
}

// Generator sends a system instruction plus ordered turns to a language model.
// Implementations must return *entities.GenerationError on failure.
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, turns []entities.ConversationTurn) (string, error)
}

// EmbeddingService generates vector embeddings for text.
// Interface Segregation: Only embedding responsibility, nothing else.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ResponseCache memoizes answers by key.
type ResponseCache interface {
	Get(key string) (entities.ResponseObject, bool)
	Put(key string, value entities.ResponseObject)
}

// FeedbackStore persists user feedback. Best effort.
type FeedbackStore interface {
	SaveFeedback(ctx context.Context, fb entities.Feedback) error
}

// DocumentLoader reads and parses documents from various formats.
type DocumentLoader interface {
	// Load reads a document from the given path.
	Load(ctx context.Context, path string) (*entities.Document, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

func (op FileOperation) String() string {
	switch op {
	case FileCreated:
		return "created"
	case FileModified:
		return "modified"
	case FileDeleted:
		return "deleted"
	}
	return "unknown"
}

// Telemetry receives pipeline observations. The metrics adapter implements it.
type Telemetry interface {
	ObserveChat(outcome entities.Outcome, cached bool, elapsed time.Duration)
	ObserveRetrieval(results int, retried bool)
	ObserveGeneration(elapsed time.Duration, failure entities.FailureKind)
}

// NopTelemetry discards all observations.
type NopTelemetry struct{}

func (NopTelemetry) ObserveChat(entities.Outcome, bool, time.Duration)     {}
func (NopTelemetry) ObserveRetrieval(int, bool)                            {}
func (NopTelemetry) ObserveGeneration(time.Duration, entities.FailureKind) {}
