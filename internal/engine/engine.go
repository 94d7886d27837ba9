package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lazypower/rapport/internal/sentiment"
	"github.com/lazypower/rapport/internal/store"
)

// Classifier produces a sentiment analysis for a piece of text.
type Classifier interface {
	Classify(ctx context.Context, text string) (sentiment.Analysis, error)
}

// Engine runs the interaction pipeline (classify, score, persist) and the
// per-profile aggregations on top of the owner-scoped store.
type Engine struct {
	DB         *store.DB
	Classifier Classifier
	Log        zerolog.Logger

	// Now is the clock used for default interaction dates and pulse windows.
	Now func() time.Time
}

// New creates a new Engine.
func New(db *store.DB, classifier Classifier, log zerolog.Logger) *Engine {
	return &Engine{
		DB:         db,
		Classifier: classifier,
		Log:        log,
		Now:        time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now().UTC()
}

func (e *Engine) scope(ownerID string) *store.Scope {
	return e.DB.ForOwner(ownerID)
}
