package vectordb

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
)

func TestDecodeHits(t *testing.T) {
	stored := entities.Chunk{ID: "c1", Text: "Star College was founded in 2002.", Metadata: entities.Metadata{
		SourceType: entities.SourceFile, SourceFile: "history.pdf",
	}}
	encoded, err := json.Marshal(stored)
	require.NoError(t, err)

	got := decodeHits([]chromaHit{
		{text: stored.Text, encoded: string(encoded), distance: 0.25},
		{text: "orphan document", encoded: "", distance: 1.4},
	}, zerolog.Nop())

	require.Len(t, got, 2)
	assert.Equal(t, stored, got[0].Chunk)
	assert.InDelta(t, 0.75, got[0].RawScore, 1e-9)
	assert.Equal(t, 0, got[0].Position)

	assert.Equal(t, "orphan document", got[1].Chunk.Text)
	assert.Equal(t, entities.SourceSample, got[1].Chunk.Metadata.SourceType)
	assert.Equal(t, 0.0, got[1].RawScore, "distances past 1 clamp to zero")
	assert.Equal(t, 1, got[1].Position)
}

func TestBatches(t *testing.T) {
	var chunks []entities.Chunk
	for i := 0; i < 7; i++ {
		chunks = append(chunks, entities.Chunk{ID: fmt.Sprint(i)})
	}

	got := batches(chunks, 3)

	require.Len(t, got, 3)
	assert.Len(t, got[0], 3)
	assert.Len(t, got[2], 1)
	assert.Empty(t, batches(nil, 3))
}
