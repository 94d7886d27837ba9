package engine

import (
	"context"
	"strings"

	"github.com/lazypower/rapport/internal/apperr"
	"github.com/lazypower/rapport/internal/sentiment"
)

// Insight is a one-off analysis that is not stored.
type Insight struct {
	sentiment.Analysis
	Score     float64 `json:"score"`
	ColorBand string  `json:"colorBand"`
}

// Analyze classifies text without persisting anything.
func (e *Engine) Analyze(ctx context.Context, text string) (*Insight, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("text", "text is required")
	}
	a, err := e.Classifier.Classify(ctx, text)
	if err != nil {
		return nil, err
	}
	score := a.Score()
	return &Insight{
		Analysis:  a,
		Score:     score,
		ColorBand: sentiment.ColorBand(score),
	}, nil
}
