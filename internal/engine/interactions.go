package engine

import (
	"context"
	"time"

	"github.com/lazypower/rapport/internal/metrics"
	"github.com/lazypower/rapport/internal/store"
)

// SubmitRequest is a new interaction as submitted by its owner.
type SubmitRequest struct {
	ProfileID   string
	Description string
	Type        string
	// Date defaults to now.
	Date *time.Time
}

// SubmitInteraction classifies the description, scores it and persists the
// interaction. Classification finishes before anything is written, so a
// failed classification call leaves no record behind.
func (e *Engine) SubmitInteraction(ctx context.Context, ownerID string, req SubmitRequest) (*store.Interaction, error) {
	s := e.scope(ownerID)

	in := store.NewInteraction{
		ProfileID:   req.ProfileID,
		Description: req.Description,
		Type:        req.Type,
		Date:        e.now(),
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	if err := store.ValidateNewInteraction(&in); err != nil {
		return nil, err
	}

	// Fail fast on unknown profiles before paying for a classification.
	if _, err := s.GetProfile(ctx, in.ProfileID); err != nil {
		return nil, err
	}

	analysis, err := e.Classifier.Classify(ctx, in.Description)
	if err != nil {
		return nil, err
	}
	in.Sentiment = store.Sentiment{
		Score:      analysis.Score(),
		Label:      analysis.Sentiment,
		Confidence: analysis.Confidence,
	}
	in.Emotions = analysis.Emotions
	in.KeyPhrases = analysis.KeyPhrases

	it, err := s.CreateInteraction(ctx, in)
	if err != nil {
		return nil, err
	}

	metrics.InteractionsCreatedTotal.WithLabelValues(it.Sentiment.Label).Inc()
	e.Log.Info().
		Str("owner", ownerID).
		Str("profile", it.ProfileID).
		Str("interaction", it.ID).
		Str("label", it.Sentiment.Label).
		Float64("score", it.Sentiment.Score).
		Msg("interaction recorded")
	return it, nil
}

// ListInteractions returns the owner's interactions matching f, newest first.
func (e *Engine) ListInteractions(ctx context.Context, ownerID string, f store.InteractionFilter) ([]store.Interaction, error) {
	return e.scope(ownerID).QueryInteractions(ctx, f)
}
