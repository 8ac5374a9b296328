package vectordb

import (
	"context"
	"encoding/json"
	"fmt"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/rs/zerolog"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
)

// Chroma metadata keys.
const (
	chromaIndexKey = "index"
	chromaChunkKey = "chunk"
	chromaIDKey    = "chunk_id"
)

// ChromaConfig configures the Chroma-backed index.
type ChromaConfig struct {
	BaseURL       string
	Collection    string
	EmbeddingFunc embeddings.EmbeddingFunction
	BatchSize     int // Chunks per Add request
	Results       int // Default number of neighbours per query
}

// ChromaIndex ranks chunks with a Chroma collection. Chunks are stored with
// their full JSON form in metadata so search results round-trip exactly.
type ChromaIndex struct {
	col       chroma.Collection
	name      string
	batchSize int
	results   int
	log       zerolog.Logger
}

// NewChromaIndex connects to Chroma and opens (or creates) the collection.
func NewChromaIndex(ctx context.Context, cfg ChromaConfig, log zerolog.Logger) (*ChromaIndex, error) {
	if cfg.Collection == "" {
		cfg.Collection = "starbot"
	}
	client, err := chroma.NewHTTPClient(chroma.WithBaseURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("creating chroma client: %w", err)
	}
	col, err := client.GetOrCreateCollection(ctx, cfg.Collection, chroma.WithEmbeddingFunctionCreate(cfg.EmbeddingFunc))
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", cfg.Collection, err)
	}
	return newChromaIndex(col, cfg, log), nil
}

func newChromaIndex(col chroma.Collection, cfg ChromaConfig, log zerolog.Logger) *ChromaIndex {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Results <= 0 {
		cfg.Results = 50
	}
	return &ChromaIndex{
		col:       col,
		name:      cfg.Collection,
		batchSize: cfg.BatchSize,
		results:   cfg.Results,
		log:       log.With().Str("component", "chroma").Str("collection", cfg.Collection).Logger(),
	}
}

// Index replaces the collection contents with chunks.
func (c *ChromaIndex) Index(ctx context.Context, chunks []entities.Chunk) error {
	if err := c.col.Delete(ctx, chroma.WithWhereDelete(chroma.EqString(chromaIndexKey, c.name))); err != nil {
		return fmt.Errorf("clearing collection: %w", err)
	}

	for _, batch := range batches(chunks, c.batchSize) {
		texts := make([]string, len(batch))
		metas := make([]chroma.DocumentMetadata, len(batch))
		for i, chunk := range batch {
			encoded, err := json.Marshal(chunk)
			if err != nil {
				return fmt.Errorf("encoding chunk %s: %w", chunk.ID, err)
			}
			texts[i] = chunk.Text
			metas[i] = chroma.NewDocumentMetadata(
				chroma.NewStringAttribute(chromaIndexKey, c.name),
				chroma.NewStringAttribute(chromaIDKey, chunk.ID),
				chroma.NewStringAttribute(chromaChunkKey, string(encoded)),
			)
		}
		err := c.col.Add(ctx,
			chroma.WithTexts(texts...),
			chroma.WithIDGenerator(chroma.NewULIDGenerator()),
			chroma.WithMetadatas(metas...),
		)
		if err != nil {
			return fmt.Errorf("adding %d chunks: %w", len(batch), err)
		}
	}

	c.log.Info().Int("chunks", len(chunks)).Msg("collection rebuilt")
	return nil
}

// Search returns the nearest chunks, RawScore being 1 - cosine distance.
func (c *ChromaIndex) Search(ctx context.Context, query string, limit int) ([]entities.ScoredChunk, error) {
	if limit <= 0 {
		limit = c.results
	}
	r, err := c.col.Query(ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	docGroups := r.GetDocumentsGroups()
	if len(docGroups) == 0 {
		return []entities.ScoredChunk{}, nil
	}
	docs := docGroups[0]
	metas := r.GetMetadatasGroups()[0]
	distances := r.GetDistancesGroups()[0]

	hits := make([]chromaHit, 0, len(docs))
	for i := range docs {
		encoded, _ := metas[i].GetString(chromaChunkKey)
		hits = append(hits, chromaHit{
			text:     docs[i].ContentString(),
			encoded:  encoded,
			distance: float64(distances[i]),
		})
	}
	return decodeHits(hits, c.log), nil
}

type chromaHit struct {
	text     string
	encoded  string
	distance float64
}

// decodeHits rebuilds chunks from query hits in rank order. Hits whose
// stored chunk can't be decoded keep the document text only.
func decodeHits(hits []chromaHit, log zerolog.Logger) []entities.ScoredChunk {
	out := make([]entities.ScoredChunk, 0, len(hits))
	for i, h := range hits {
		var chunk entities.Chunk
		if err := json.Unmarshal([]byte(h.encoded), &chunk); err != nil {
			log.Debug().Err(err).Msg("chunk metadata missing, using document text")
			chunk = entities.Chunk{Text: h.text, Metadata: entities.Metadata{SourceType: entities.SourceSample}}
		}
		if chunk.Text == "" {
			chunk.Text = h.text
		}
		score := max(1-h.distance, 0)
		out = append(out, entities.ScoredChunk{Chunk: chunk, Score: score, RawScore: score, Position: i})
	}
	return out
}

func batches(chunks []entities.Chunk, size int) [][]entities.Chunk {
	var out [][]entities.Chunk
	for start := 0; start < len(chunks); start += size {
		out = append(out, chunks[start:min(start+size, len(chunks))])
	}
	return out
}
