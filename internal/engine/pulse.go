package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/lazypower/rapport/internal/apperr"
	"github.com/lazypower/rapport/internal/sentiment"
	"github.com/lazypower/rapport/internal/store"
)

// Pulse timeframes.
const (
	TimeframeDaily   = "daily"
	TimeframeWeekly  = "weekly"
	TimeframeMonthly = "monthly"
)

// PulsePoint is one interaction plotted on a pulse chart.
type PulsePoint struct {
	Date        time.Time `json:"date"`
	Score       float64   `json:"score"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	ColorBand   string    `json:"colorBand"`
}

// PulseSeries is a profile's interactions within a trailing window, oldest
// first.
type PulseSeries struct {
	Timeframe string       `json:"timeframe"`
	Start     time.Time    `json:"start"`
	End       time.Time    `json:"end"`
	Metrics   []PulsePoint `json:"metrics"`
}

// WindowStart returns the start of the trailing window ending at now. An
// empty timeframe is daily.
func WindowStart(now time.Time, timeframe string) (time.Time, error) {
	switch timeframe {
	case TimeframeDaily, "":
		return now.Add(-24 * time.Hour), nil
	case TimeframeWeekly:
		return now.AddDate(0, 0, -7), nil
	case TimeframeMonthly:
		return now.AddDate(0, -1, 0), nil
	default:
		return time.Time{}, apperr.Validation("timeframe",
			fmt.Sprintf("unknown timeframe %q (want daily, weekly or monthly)", timeframe))
	}
}

// Pulse returns the profile's interactions from the trailing window for
// timeframe, sorted by date ascending.
func (e *Engine) Pulse(ctx context.Context, ownerID, profileID, timeframe string) (*PulseSeries, error) {
	if timeframe == "" {
		timeframe = TimeframeDaily
	}
	now := e.now()
	start, err := WindowStart(now, timeframe)
	if err != nil {
		return nil, err
	}

	s := e.scope(ownerID)
	if _, err := s.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}
	items, err := s.QueryInteractions(ctx, store.InteractionFilter{
		ProfileID: profileID,
		Start:     &start,
		End:       &now,
	})
	if err != nil {
		return nil, err
	}

	series := &PulseSeries{
		Timeframe: timeframe,
		Start:     start,
		End:       now,
		Metrics:   make([]PulsePoint, 0, len(items)),
	}
	// Query order is newest first.
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		series.Metrics = append(series.Metrics, PulsePoint{
			Date:        it.Date,
			Score:       it.Sentiment.Score,
			Description: it.Description,
			Type:        it.Type,
			ColorBand:   sentiment.ColorBand(it.Sentiment.Score),
		})
	}
	return series, nil
}
