package usecases

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
)

type staticReader []entities.Chunk

func (r staticReader) Chunks() []entities.Chunk { return r }

// fixedSearcher returns canned raw scores so ranking can be tested without
// depending on the lexical scorer.
type fixedSearcher struct {
	results []entities.ScoredChunk
	err     error
}

func (f fixedSearcher) Search(ctx context.Context, query string, limit int) ([]entities.ScoredChunk, error) {
	out := make([]entities.ScoredChunk, len(f.results))
	copy(out, f.results)
	return out, f.err
}

func fileChunk(id, source, text string) entities.Chunk {
	return entities.Chunk{ID: id, Text: text, Metadata: entities.Metadata{SourceType: entities.SourceFile, SourceFile: source}}
}

func scored(c entities.Chunk, raw float64, pos int) entities.ScoredChunk {
	return entities.ScoredChunk{Chunk: c, Score: raw, RawScore: raw, Position: pos}
}

func TestRetriever_FoundingQuestion(t *testing.T) {
	store := staticReader{fileChunk("1", "a", "Star College was founded in 2002.")}
	r := NewRetriever(NewLexicalSearcher(store), RetrieverConfig{})

	got, err := r.Retrieve(context.Background(), "when was the school founded", 5, 0.3)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Greater(t, got[0].Score, 0.0)
	assert.Contains(t, got[0].Chunk.Text, "2002")
}

func TestRetriever_EmptyStore(t *testing.T) {
	r := NewRetriever(NewLexicalSearcher(staticReader{}), RetrieverConfig{})

	got, err := r.Retrieve(context.Background(), "when was the school founded", 5, 0.9)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetriever_NeverReturnsBelowThreshold(t *testing.T) {
	store := staticReader{
		fileChunk("1", "a", "Star College was founded in 2002."),
		fileChunk("2", "b", "Boarding facilities are available for learners."),
		fileChunk("3", "c", "The school library opens at seven."),
		fileChunk("4", "d", "Matric results were excellent, with many distinctions."),
		{ID: "5", Text: "Fees and the scholarship policy are published online.", Metadata: entities.Metadata{SourceType: entities.SourceWeb, URL: "https://example.org/fees"}},
	}
	r := NewRetriever(NewLexicalSearcher(store), RetrieverConfig{})
	queries := []string{"school founded", "boarding fees", "matric results 2002", "library", "scholarship"}

	for _, q := range queries {
		for _, minScore := range []float64{0, 0.1, 0.3, 0.5, 0.9, 1.5} {
			got, err := r.Retrieve(context.Background(), q, 5, minScore)
			require.NoError(t, err)
			for _, c := range got {
				assert.GreaterOrEqual(t, c.RawScore, minScore, "query %q min %v", q, minScore)
				assert.GreaterOrEqual(t, c.Score, minScore, "query %q min %v", q, minScore)
			}
		}
	}
}

func TestRetriever_MultipliersApplyAfterThreshold(t *testing.T) {
	c := fileChunk("1", "a", "short text")
	r := NewRetriever(fixedSearcher{results: []entities.ScoredChunk{scored(c, 0.25, 0)}}, RetrieverConfig{})

	got, err := r.Retrieve(context.Background(), "anything", 5, 0.3)

	require.NoError(t, err)
	assert.Empty(t, got, "a 1.2 file boost must not lift 0.25 over 0.3")
}

func TestRetriever_SourceAndYearBoosts(t *testing.T) {
	plain := fileChunk("plain", "a", "results were strong")
	dated := fileChunk("dated", "b", "results for 2023 were strong")
	web := entities.Chunk{ID: "web", Text: "results page", Metadata: entities.Metadata{SourceType: entities.SourceWeb, URL: "https://example.org"}}
	r := NewRetriever(fixedSearcher{results: []entities.ScoredChunk{
		scored(plain, 0.5, 0),
		scored(dated, 0.5, 1),
		scored(web, 0.5, 2),
	}}, RetrieverConfig{})

	got, err := r.Retrieve(context.Background(), "matric results 2023", 5, 0.1)

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "dated", got[0].Chunk.ID)
	assert.InDelta(t, 0.5*1.2*1.25, got[0].Score, 1e-9)
	assert.Equal(t, "plain", got[1].Chunk.ID)
	assert.InDelta(t, 0.6, got[1].Score, 1e-9)
	assert.Equal(t, "web", got[2].Chunk.ID)
	assert.InDelta(t, 0.525, got[2].Score, 1e-9)
	assert.Equal(t, 0.5, got[0].RawScore)
}

func TestRetriever_TiesKeepStoreOrder(t *testing.T) {
	var results []entities.ScoredChunk
	for i := 0; i < 4; i++ {
		results = append(results, scored(fileChunk(fmt.Sprint(i), fmt.Sprintf("src-%d", i), "same text"), 0.7, i))
	}
	// Reverse so the searcher order disagrees with store order.
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	r := NewRetriever(fixedSearcher{results: results}, RetrieverConfig{})

	got, err := r.Retrieve(context.Background(), "text", 5, 0.1)

	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2", "3"}, chunkIDs(got))
}

func TestRetriever_DiversityCap(t *testing.T) {
	var results []entities.ScoredChunk
	for i := 0; i < 6; i++ {
		results = append(results, scored(fileChunk(fmt.Sprintf("a%d", i), "a", "dominant source"), 0.9-float64(i)*0.01, i))
	}
	results = append(results,
		scored(fileChunk("b0", "b", "second source"), 0.5, 6),
		scored(fileChunk("c0", "c", "third source"), 0.4, 7),
	)
	r := NewRetriever(fixedSearcher{results: results}, RetrieverConfig{})

	got, err := r.Retrieve(context.Background(), "anything", 5, 0.1)

	require.NoError(t, err)
	require.Len(t, got, 5)
	perSource := map[string]int{}
	for _, c := range got {
		perSource[c.Chunk.Metadata.SourceKey()]++
	}
	assert.Equal(t, 3, perSource["a"])
	assert.Equal(t, []string{"a0", "a1", "a2", "b0", "c0"}, chunkIDs(got))
}

func TestRetriever_ScopeFilter(t *testing.T) {
	high := fileChunk("high", "a", "high school fees")
	high.Metadata.Extra = map[string]any{ScopeKey: "high"}
	primary := fileChunk("primary", "b", "primary school fees")
	primary.Metadata.Extra = map[string]any{ScopeKey: "primary"}
	shared := fileChunk("shared", "c", "school fees")
	r := NewRetriever(fixedSearcher{results: []entities.ScoredChunk{
		scored(high, 0.8, 0), scored(primary, 0.8, 1), scored(shared, 0.8, 2),
	}}, RetrieverConfig{})

	scoped, err := r.RetrieveScoped(context.Background(), "fees", "high", 5, 0.1)
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "shared"}, chunkIDs(scoped))

	all, err := r.Retrieve(context.Background(), "fees", 5, 0.1)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRetriever_MaxResults(t *testing.T) {
	r := NewRetriever(fixedSearcher{results: []entities.ScoredChunk{
		scored(fileChunk("1", "a", "one"), 0.9, 0),
		scored(fileChunk("2", "b", "two"), 0.8, 1),
	}}, RetrieverConfig{})

	got, err := r.Retrieve(context.Background(), "q", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, chunkIDs(got))

	got, err = r.Retrieve(context.Background(), "q", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetriever_SearcherError(t *testing.T) {
	r := NewRetriever(fixedSearcher{err: errors.New("index offline")}, RetrieverConfig{})

	_, err := r.Retrieve(context.Background(), "q", 5, 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "index offline")
}

func TestLexicalSearcher_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLexicalSearcher(staticReader{fileChunk("1", "a", "text here")}).Search(ctx, "text", 0)

	assert.ErrorIs(t, err, context.Canceled)
}

func chunkIDs(chunks []entities.ScoredChunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Chunk.ID
	}
	return out
}
