// Package sentiment turns free-text interaction descriptions into a labelled
// sentiment and a signed score.
package sentiment

import (
	"math"
	"strings"
)

// Labels produced by the classifier. LabelError is only ever stored, never
// returned by Classify.
const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
	LabelError    = "error"
)

// Color bands for pulse rendering.
const (
	BandGreen  = "green"
	BandYellow = "yellow"
	BandRed    = "red"
)

// Analysis is the structured result of classifying one text.
type Analysis struct {
	Sentiment  string   `json:"sentiment" jsonschema:"enum=positive,enum=negative,enum=neutral"`
	Confidence float64  `json:"confidence" jsonschema:"minimum=0,maximum=1"`
	Emotions   []string `json:"emotions"`
	KeyPhrases []string `json:"keyPhrases"`
}

// Score is the signed score for a.
func (a Analysis) Score() float64 {
	return ToScore(a.Sentiment, a.Confidence)
}

// ToScore maps a label and confidence into [-1, 1]: positive is +confidence,
// negative is -confidence, anything else is 0. Label matching ignores case and
// confidence is clamped to [0, 1].
func ToScore(label string, confidence float64) float64 {
	c := clamp01(confidence)
	switch strings.ToLower(strings.TrimSpace(label)) {
	case LabelPositive:
		return c
	case LabelNegative:
		return -c
	default:
		return 0
	}
}

// ColorBand classifies a score for display: above 0.5 is green, below -0.5
// is red, everything else yellow.
func ColorBand(score float64) string {
	switch {
	case score > 0.5:
		return BandGreen
	case score < -0.5:
		return BandRed
	default:
		return BandYellow
	}
}

// ValidLabel reports whether label is a storable sentiment label.
func ValidLabel(label string) bool {
	switch label {
	case LabelPositive, LabelNegative, LabelNeutral, LabelError:
		return true
	}
	return false
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
