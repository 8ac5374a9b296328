package vectordb

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
)

// keywordEmbedder maps text onto three fixed axes.
type keywordEmbedder struct {
	err error
}

func (k keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if k.err != nil {
		return nil, k.err
	}
	t := strings.ToLower(text)
	v := []float32{0, 0, 0}
	if strings.Contains(t, "founded") {
		v[0] = 1
	}
	if strings.Contains(t, "boarding") {
		v[1] = 1
	}
	if strings.Contains(t, "fees") {
		v[2] = 1
	}
	return v, nil
}

func (k keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := k.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func TestMemoryIndex_IndexAndSearch(t *testing.T) {
	idx := NewMemoryIndex(keywordEmbedder{}, zerolog.Nop())
	chunks := []entities.Chunk{
		{ID: "c1", Text: "Boarding is available for learners."},
		{ID: "c2", Text: "Star College was founded in 2002."},
		{ID: "c3", Text: "Fees are listed online."},
	}
	require.NoError(t, idx.Index(context.Background(), chunks))

	results, err := idx.Search(context.Background(), "when was it founded", 2)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c2", results[0].Chunk.ID)
	assert.InDelta(t, 1.0, results[0].RawScore, 1e-9)
	assert.Equal(t, 1, results[0].Position)
	assert.Equal(t, 3, idx.Len())
}

func TestMemoryIndex_ReindexReplaces(t *testing.T) {
	idx := NewMemoryIndex(keywordEmbedder{}, zerolog.Nop())
	require.NoError(t, idx.Index(context.Background(), []entities.Chunk{{ID: "old", Text: "founded"}}))
	require.NoError(t, idx.Index(context.Background(), []entities.Chunk{{ID: "new", Text: "boarding"}}))

	results, err := idx.Search(context.Background(), "boarding", 0)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].Chunk.ID)
}

func TestMemoryIndex_EmbedderError(t *testing.T) {
	idx := NewMemoryIndex(keywordEmbedder{err: errors.New("ollama down")}, zerolog.Nop())

	assert.Error(t, idx.Index(context.Background(), []entities.Chunk{{ID: "c", Text: "x"}}))
	_, err := idx.Search(context.Background(), "q", 1)
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1}, []float32{1, 0}))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
