// Package usecases - feedback.go records user verdicts on answers.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
	"github.com/0xcro3dile/starbot/internal/domain/ports"
)

// ErrInvalidFeedback wraps validation failures so transports can map them
// to a client error.
var ErrInvalidFeedback = errors.New("invalid feedback")

// FeedbackUseCase validates feedback and fans it out to every store.
type FeedbackUseCase struct {
	stores []ports.FeedbackStore
	now    func() time.Time
	log    zerolog.Logger
}

// NewFeedbackUseCase creates a FeedbackUseCase.
func NewFeedbackUseCase(stores []ports.FeedbackStore, log zerolog.Logger) *FeedbackUseCase {
	return &FeedbackUseCase{
		stores: stores,
		now:    time.Now,
		log:    log.With().Str("component", "feedback").Logger(),
	}
}

// Submit stores fb. Storage is best effort: a failing store is logged and
// the remaining stores still run. Only invalid input is reported.
func (uc *FeedbackUseCase) Submit(ctx context.Context, fb entities.Feedback) error {
	if err := fb.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFeedback, err)
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = uc.now().UTC()
	}

	for _, store := range uc.stores {
		if err := store.SaveFeedback(ctx, fb); err != nil {
			uc.log.Warn().Err(err).Msg("saving feedback failed")
		}
	}
	uc.log.Info().Str("verdict", string(fb.Verdict)).Int("sources", len(fb.Sources)).Msg("feedback recorded")
	return nil
}
