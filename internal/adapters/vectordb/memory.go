// Package vectordb provides vector search and chunk persistence adapters.
// Clean Architecture: Adapters implementing ports.Searcher, ports.ChunkIndexer,
// ports.ChunkSource, ports.ChunkSink and ports.FeedbackStore.
package vectordb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
	"github.com/0xcro3dile/starbot/internal/domain/ports"
)

// MemoryIndex keeps chunk embeddings in memory and ranks by cosine similarity.
// Open-Closed: Can be replaced with the Chroma index without changing usecases.
type MemoryIndex struct {
	embedder ports.EmbeddingService

	mu      sync.RWMutex
	chunks  []entities.Chunk
	vectors [][]float32
	log     zerolog.Logger
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex(embedder ports.EmbeddingService, log zerolog.Logger) *MemoryIndex {
	return &MemoryIndex{
		embedder: embedder,
		log:      log.With().Str("component", "memory-index").Logger(),
	}
}

// Index embeds every chunk and replaces the index contents.
func (m *MemoryIndex) Index(ctx context.Context, chunks []entities.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}

	snapshot := make([]entities.Chunk, len(chunks))
	copy(snapshot, chunks)

	m.mu.Lock()
	m.chunks, m.vectors = snapshot, vectors
	m.mu.Unlock()

	m.log.Info().Int("chunks", len(chunks)).Msg("index rebuilt")
	return nil
}

// Search finds the chunks most similar to query. limit <= 0 returns all.
func (m *MemoryIndex) Search(ctx context.Context, query string, limit int) ([]entities.ScoredChunk, error) {
	queryVec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	m.mu.RLock()
	results := make([]entities.ScoredChunk, len(m.chunks))
	for i, c := range m.chunks {
		score := cosineSimilarity(queryVec, m.vectors[i])
		results[i] = entities.ScoredChunk{Chunk: c, Score: score, RawScore: score, Position: i}
	}
	m.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RawScore > results[j].RawScore
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Len returns the number of indexed chunks.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// cosineSimilarity calculates cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
