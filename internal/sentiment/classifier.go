package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lazypower/rapport/internal/apperr"
	"github.com/lazypower/rapport/internal/llm"
	"github.com/lazypower/rapport/internal/metrics"
)

// DefaultTimeout bounds a single classification call.
const DefaultTimeout = 30 * time.Second

// fallbackPhraseLen is how many characters of the input become the fallback
// key phrase.
const fallbackPhraseLen = 50

// Classifier asks an LLM for the sentiment of a text. Each Classify call makes
// exactly one request; there is no retry.
type Classifier struct {
	client  llm.Client
	timeout time.Duration
	log     zerolog.Logger
}

// NewClassifier creates a Classifier. A non-positive timeout uses DefaultTimeout.
func NewClassifier(client llm.Client, timeout time.Duration, log zerolog.Logger) *Classifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Classifier{client: client, timeout: timeout, log: log}
}

// Classify returns the sentiment analysis of text. Malformed model output
// yields Fallback(text) with a nil error. A failed call returns an
// apperr.KindClassificationUnavailable error and no analysis.
func (c *Classifier) Classify(ctx context.Context, text string) (Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Complete(ctx, llm.SentimentPrompt(text))
	metrics.ClassificationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ClassificationsTotal.WithLabelValues("unavailable").Inc()
		c.log.Error().Err(err).Msg("sentiment classification call failed")
		return Analysis{}, apperr.ClassificationUnavailable(err)
	}
	if resp == nil {
		metrics.ClassificationsTotal.WithLabelValues("unavailable").Inc()
		return Analysis{}, apperr.ClassificationUnavailable(errors.New("empty response from provider"))
	}

	a, err := ParseAnalysis(resp.Content)
	if err != nil {
		metrics.ClassificationsTotal.WithLabelValues("fallback").Inc()
		c.log.Warn().Err(err).Str("provider", resp.Provider).Bool("truncated", resp.Truncated).
			Msg("malformed classification, using fallback")
		return Fallback(text), nil
	}

	metrics.ClassificationsTotal.WithLabelValues("ok").Inc()
	c.log.Debug().Str("sentiment", a.Sentiment).Float64("confidence", a.Confidence).
		Int("tokens", resp.TokensUsed).Msg("classified")
	return a, nil
}

// Fallback is the analysis substituted when the model's output can't be used.
func Fallback(text string) Analysis {
	return Analysis{
		Sentiment:  LabelNeutral,
		Confidence: 0.5,
		Emotions:   []string{"unknown"},
		KeyPhrases: []string{truncate(text, fallbackPhraseLen)},
	}
}

// ParseAnalysis decodes a model response into an Analysis. Surrounding code
// fences are stripped. Unknown labels and confidences outside [0, 1] are
// errors.
func ParseAnalysis(content string) (Analysis, error) {
	content = stripCodeFences(content)

	var a Analysis
	if err := json.Unmarshal([]byte(content), &a); err != nil {
		return Analysis{}, fmt.Errorf("unmarshal analysis: %w", err)
	}

	a.Sentiment = strings.ToLower(strings.TrimSpace(a.Sentiment))
	switch a.Sentiment {
	case LabelPositive, LabelNegative, LabelNeutral:
	default:
		return Analysis{}, fmt.Errorf("invalid sentiment %q", a.Sentiment)
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return Analysis{}, fmt.Errorf("confidence %v out of range", a.Confidence)
	}
	if a.Emotions == nil {
		a.Emotions = []string{}
	}
	if a.KeyPhrases == nil {
		a.KeyPhrases = []string{}
	}
	return a, nil
}

// stripCodeFences removes markdown ``` fences, with or without a json tag.
func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")
	return strings.TrimSpace(content)
}

// truncate returns at most n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
