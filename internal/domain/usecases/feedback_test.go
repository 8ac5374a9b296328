package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
	"github.com/0xcro3dile/starbot/internal/domain/ports"
)

type memoryFeedback struct {
	saved []entities.Feedback
	err   error
}

func (m *memoryFeedback) SaveFeedback(ctx context.Context, fb entities.Feedback) error {
	m.saved = append(m.saved, fb)
	return m.err
}

func TestFeedbackUseCase_Submit(t *testing.T) {
	broken := &memoryFeedback{err: errors.New("read-only filesystem")}
	store := &memoryFeedback{}
	uc := NewFeedbackUseCase([]ports.FeedbackStore{broken, store}, zerolog.Nop())
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return fixed }

	err := uc.Submit(context.Background(), entities.Feedback{
		Question: "when was the school founded",
		Answer:   "2002",
		Verdict:  entities.VerdictHelpful,
	})

	require.NoError(t, err, "storage failures are best effort")
	require.Len(t, store.saved, 1)
	assert.Equal(t, fixed, store.saved[0].CreatedAt)
}

func TestFeedbackUseCase_RejectsInvalid(t *testing.T) {
	store := &memoryFeedback{}
	uc := NewFeedbackUseCase([]ports.FeedbackStore{store}, zerolog.Nop())

	err := uc.Submit(context.Background(), entities.Feedback{Question: "q", Verdict: "meh"})

	assert.ErrorIs(t, err, ErrInvalidFeedback)
	assert.Empty(t, store.saved)
}

func TestSearchUseCase_Search(t *testing.T) {
	store := staticReader{
		fileChunk("1", "a", "Star College was founded in 2002."),
		fileChunk("2", "b", "Boarding facilities are available."),
	}
	uc := NewSearchUseCase(NewRetriever(NewLexicalSearcher(store), RetrieverConfig{}), 5, 0.1)

	got, err := uc.Search(context.Background(), "school founded", "", 0)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].Metadata["chunk_id"])
	assert.Equal(t, "FILE: a", got[0].Metadata["source"])

	empty, err := uc.Search(context.Background(), "  ", "", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
