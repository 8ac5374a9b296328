// Package usecases - query.go handles retrieval-only search.
package usecases

import (
	"context"
	"strings"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
)

// SearchUseCase returns ranked passages without calling the generator.
// Single Responsibility: Only search logic.
type SearchUseCase struct {
	retriever *Retriever
	topK      int
	minScore  float64
}

// NewSearchUseCase creates a SearchUseCase over a retriever.
func NewSearchUseCase(retriever *Retriever, topK int, minScore float64) *SearchUseCase {
	if topK <= 0 {
		topK = 5
	}
	return &SearchUseCase{retriever: retriever, topK: topK, minScore: minScore}
}

// Search ranks the knowledge base for query within scope. limit <= 0 uses
// the configured top-k.
func (uc *SearchUseCase) Search(ctx context.Context, query, scope string, limit int) ([]entities.SourceRef, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []entities.SourceRef{}, nil
	}
	if limit <= 0 {
		limit = uc.topK
	}

	results, err := uc.retriever.RetrieveScoped(ctx, query, scope, limit, uc.minScore)
	if err != nil {
		return nil, err
	}

	out := make([]entities.SourceRef, 0, len(results))
	for _, r := range results {
		meta := r.Chunk.Metadata.Map()
		meta["chunk_id"] = r.Chunk.ID
		meta["relevance_score"] = r.Score
		meta["source"] = r.Chunk.Metadata.Attribution()
		out = append(out, entities.SourceRef{Content: r.Chunk.Text, Metadata: meta})
	}
	return out, nil
}
