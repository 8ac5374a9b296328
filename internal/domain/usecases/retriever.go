// Package usecases - retriever.go ranks chunks for a query.
package usecases

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
	"github.com/0xcro3dile/starbot/internal/domain/ports"
)

// LexicalSearcher scores every chunk of the current snapshot with Score.
// O(N) per query; fine for a school-sized knowledge base.
type LexicalSearcher struct {
	store ports.ChunkReader
}

// NewLexicalSearcher creates a searcher over the given snapshot reader.
func NewLexicalSearcher(store ports.ChunkReader) *LexicalSearcher {
	return &LexicalSearcher{store: store}
}

// Search scores all chunks in store order. limit is ignored.
func (s *LexicalSearcher) Search(ctx context.Context, query string, limit int) ([]entities.ScoredChunk, error) {
	chunks := s.store.Chunks()
	out := make([]entities.ScoredChunk, 0, len(chunks))
	for i, c := range chunks {
		if i%256 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		score := Score(query, c.Text)
		out = append(out, entities.ScoredChunk{Chunk: c, Score: score, RawScore: score, Position: i})
	}
	return out, nil
}

// RetrieverConfig tunes ranking after the threshold filter.
type RetrieverConfig struct {
	SourceMultipliers map[entities.SourceType]float64
	LongChunkChars    int     // Chunks longer than this get LengthBonus
	LengthBonus       float64 // Multiplier, >= 1
	YearBonus         float64 // Multiplier when a year in the query appears in the chunk
	MaxPerSource      int
	DiversityFloor    int // Cap is not enforced until this many results are admitted
	CandidateLimit    int // Passed to vector searchers
}

// DefaultRetrieverConfig returns the standard ranking parameters.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		SourceMultipliers: map[entities.SourceType]float64{
			entities.SourceFile:   1.2,
			entities.SourceSample: 1.1,
			entities.SourceWeb:    1.05,
		},
		LongChunkChars: 300,
		LengthBonus:    1.1,
		YearBonus:      1.25,
		MaxPerSource:   3,
		DiversityFloor: 2,
		CandidateLimit: 50,
	}
}

// Retriever orchestrates scoring, filtering, ranking and the diversity cap.
// Single Responsibility: no prompt or generation logic.
type Retriever struct {
	searcher ports.Searcher
	cfg      RetrieverConfig
}

// NewRetriever creates a Retriever. Zero config fields take defaults.
func NewRetriever(searcher ports.Searcher, cfg RetrieverConfig) *Retriever {
	def := DefaultRetrieverConfig()
	if cfg.SourceMultipliers == nil {
		cfg.SourceMultipliers = def.SourceMultipliers
	}
	if cfg.LongChunkChars <= 0 {
		cfg.LongChunkChars = def.LongChunkChars
	}
	if cfg.LengthBonus < 1 {
		cfg.LengthBonus = def.LengthBonus
	}
	if cfg.YearBonus < 1 {
		cfg.YearBonus = def.YearBonus
	}
	if cfg.MaxPerSource <= 0 {
		cfg.MaxPerSource = def.MaxPerSource
	}
	if cfg.DiversityFloor <= 0 {
		cfg.DiversityFloor = def.DiversityFloor
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = def.CandidateLimit
	}
	return &Retriever{searcher: searcher, cfg: cfg}
}

var yearPattern = regexp.MustCompile(`\b(20\d\d)\b`)

// Retrieve returns at most maxResults chunks scoring at least minScore,
// best first. An empty slice means nothing matched; it is not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, maxResults int, minScore float64) ([]entities.ScoredChunk, error) {
	return r.RetrieveScoped(ctx, query, "", maxResults, minScore)
}

// RetrieveScoped is Retrieve restricted to one scope. Chunks tagged with a
// different "scope" metadata value are skipped; untagged chunks are shared.
func (r *Retriever) RetrieveScoped(ctx context.Context, query, scope string, maxResults int, minScore float64) ([]entities.ScoredChunk, error) {
	if maxResults <= 0 {
		return nil, nil
	}

	candidates, err := r.searcher.Search(ctx, query, r.cfg.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	year := yearPattern.FindString(query)

	// Threshold first, adjustments after: multipliers never push a
	// rejected chunk back over the line.
	kept := make([]entities.ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		if c.RawScore < minScore || !inScope(c.Chunk, scope) {
			continue
		}
		c.Score = r.adjust(c, year)
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].Position < kept[j].Position
	})

	return r.diversify(kept, maxResults), nil
}

func (r *Retriever) adjust(c entities.ScoredChunk, year string) float64 {
	score := c.RawScore
	if m, ok := r.cfg.SourceMultipliers[c.Chunk.Metadata.SourceType]; ok && m > 1 {
		score *= m
	}
	if len([]rune(c.Chunk.Text)) > r.cfg.LongChunkChars {
		score *= r.cfg.LengthBonus
	}
	if year != "" && strings.Contains(c.Chunk.Text, year) {
		score *= r.cfg.YearBonus
	}
	return score
}

// diversify walks the ranked list admitting a chunk unless its source has
// already contributed MaxPerSource chunks and DiversityFloor results exist.
// Skipped chunks are not reconsidered, so ties at the cap resolve by rank
// and then by store order.
func (r *Retriever) diversify(ranked []entities.ScoredChunk, maxResults int) []entities.ScoredChunk {
	out := make([]entities.ScoredChunk, 0, min(maxResults, len(ranked)))
	perSource := make(map[string]int)
	for _, c := range ranked {
		if len(out) >= maxResults {
			break
		}
		key := c.Chunk.Metadata.SourceKey()
		if perSource[key] >= r.cfg.MaxPerSource && len(out) >= r.cfg.DiversityFloor {
			continue
		}
		perSource[key]++
		out = append(out, c)
	}
	return out
}

// ScopeKey is the metadata key that pins a chunk to one scope.
const ScopeKey = "scope"

func inScope(c entities.Chunk, scope string) bool {
	if scope == "" {
		return true
	}
	tag, ok := c.Metadata.Extra[ScopeKey].(string)
	return !ok || tag == "" || strings.EqualFold(tag, scope)
}
