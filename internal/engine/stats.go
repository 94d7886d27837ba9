package engine

import (
	"context"
	"time"

	"github.com/lazypower/rapport/internal/store"
)

// Stats is the sentiment rollup for one profile.
type Stats struct {
	TotalInteractions    int            `json:"totalInteractions"`
	AverageSentiment     float64        `json:"averageSentiment"`
	PositiveCount        int            `json:"positiveCount"`
	NegativeCount        int            `json:"negativeCount"`
	NeutralCount         int            `json:"neutralCount"`
	FirstInteractionDate *time.Time     `json:"firstInteractionDate"`
	LastInteractionDate  *time.Time     `json:"lastInteractionDate"`
	TypeDistribution     map[string]int `json:"typeDistribution"`
}

// ComputeStats aggregates interactions. Positive, negative and neutral counts
// split on the sign of the score, so they always sum to the total. A score of
// exactly zero counts as neutral whatever its label.
func ComputeStats(items []store.Interaction) Stats {
	st := Stats{TypeDistribution: map[string]int{}}
	if len(items) == 0 {
		return st
	}

	var sum float64
	first, last := items[0].Date, items[0].Date
	for _, it := range items {
		score := it.Sentiment.Score
		sum += score
		switch {
		case score > 0:
			st.PositiveCount++
		case score < 0:
			st.NegativeCount++
		default:
			st.NeutralCount++
		}
		st.TypeDistribution[it.Type]++
		if it.Date.Before(first) {
			first = it.Date
		}
		if it.Date.After(last) {
			last = it.Date
		}
	}

	st.TotalInteractions = len(items)
	st.AverageSentiment = sum / float64(len(items))
	st.FirstInteractionDate = &first
	st.LastInteractionDate = &last
	return st
}

// ProfileStats returns the rollup for one of the owner's profiles.
func (e *Engine) ProfileStats(ctx context.Context, ownerID, profileID string) (*Stats, error) {
	s := e.scope(ownerID)
	if _, err := s.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}
	items, err := s.QueryInteractions(ctx, store.InteractionFilter{ProfileID: profileID})
	if err != nil {
		return nil, err
	}
	st := ComputeStats(items)
	return &st, nil
}
