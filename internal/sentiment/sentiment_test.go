package sentiment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/rapport/internal/apperr"
	"github.com/lazypower/rapport/internal/llm"
	"github.com/lazypower/rapport/internal/metrics"
)

func TestToScore(t *testing.T) {
	tests := []struct {
		label      string
		confidence float64
		want       float64
	}{
		{"positive", 0.8, 0.8},
		{"negative", 0.3, -0.3},
		{"neutral", 0.9, 0},
		{"POSITIVE", 0.4, 0.4},
		{" Negative ", 1, -1},
		{"mixed", 0.7, 0},
		{"", 0.7, 0},
		{"positive", 0, 0},
		{"positive", 1.5, 1},
		{"negative", -0.2, 0},
	}
	for _, tt := range tests {
		got := ToScore(tt.label, tt.confidence)
		assert.InDelta(t, tt.want, got, 1e-9, "ToScore(%q, %v)", tt.label, tt.confidence)
		assert.GreaterOrEqual(t, got, -1.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestToScoreSignRule(t *testing.T) {
	for i := 0; i <= 100; i++ {
		c := float64(i) / 100
		assert.Equal(t, c, ToScore(LabelPositive, c))
		assert.Equal(t, -c, ToScore(LabelNegative, c))
		assert.Zero(t, ToScore(LabelNeutral, c))
	}
}

func TestColorBand(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.51, BandGreen},
		{1, BandGreen},
		{0.5, BandYellow},
		{0, BandYellow},
		{-0.5, BandYellow},
		{-0.51, BandRed},
		{-1, BandRed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ColorBand(tt.score), "ColorBand(%v)", tt.score)
	}
}

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Analysis
		wantErr bool
	}{
		{
			name:    "plain json",
			content: `{"sentiment":"positive","confidence":0.8,"emotions":["joy"],"keyPhrases":["great job"]}`,
			want:    Analysis{Sentiment: "positive", Confidence: 0.8, Emotions: []string{"joy"}, KeyPhrases: []string{"great job"}},
		},
		{
			name:    "fenced json",
			content: "```json\n{\"sentiment\":\"Negative\",\"confidence\":0.3,\"emotions\":[],\"keyPhrases\":[]}\n```",
			want:    Analysis{Sentiment: "negative", Confidence: 0.3, Emotions: []string{}, KeyPhrases: []string{}},
		},
		{
			name:    "bare fence",
			content: "```\n{\"sentiment\":\"neutral\",\"confidence\":0.5}\n```",
			want:    Analysis{Sentiment: "neutral", Confidence: 0.5, Emotions: []string{}, KeyPhrases: []string{}},
		},
		{name: "prose", content: "I think this is positive.", wantErr: true},
		{name: "unknown label", content: `{"sentiment":"ecstatic","confidence":0.9}`, wantErr: true},
		{name: "confidence too high", content: `{"sentiment":"positive","confidence":1.2}`, wantErr: true},
		{name: "empty", content: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnalysis(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestClassifier(mock *llm.MockClient) *Classifier {
	return NewClassifier(mock, time.Second, zerolog.Nop())
}

func TestClassifyRoundTrip(t *testing.T) {
	tests := []struct {
		content string
		score   float64
	}{
		{`{"sentiment":"positive","confidence":0.8,"emotions":["pride"],"keyPhrases":["great job"]}`, 0.8},
		{`{"sentiment":"negative","confidence":0.3,"emotions":["annoyed"],"keyPhrases":["late"]}`, -0.3},
	}
	for _, tt := range tests {
		mock := &llm.MockClient{Response: &llm.Response{Content: tt.content, Provider: "mock"}}
		c := newTestClassifier(mock)

		a, err := c.Classify(context.Background(), "great job today")
		require.NoError(t, err)
		assert.InDelta(t, tt.score, a.Score(), 1e-9)
		require.Len(t, mock.Calls, 1)
		assert.Contains(t, mock.Calls[0], "great job today")
	}
}

func TestClassifyMalformedUsesFallback(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: "Sorry, I can't help with that.", Provider: "mock"}}
	c := newTestClassifier(mock)

	text := strings.Repeat("abcdefghij", 8)
	before := testutil.ToFloat64(metrics.ClassificationsTotal.WithLabelValues("fallback"))

	a, err := c.Classify(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, LabelNeutral, a.Sentiment)
	assert.Equal(t, 0.5, a.Confidence)
	assert.Equal(t, []string{"unknown"}, a.Emotions)
	assert.Equal(t, []string{text[:50]}, a.KeyPhrases)
	assert.Zero(t, a.Score())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ClassificationsTotal.WithLabelValues("fallback")))
}

func TestFallbackShortText(t *testing.T) {
	a := Fallback("hi")
	assert.Equal(t, []string{"hi"}, a.KeyPhrases)

	// Truncation counts runes, not bytes.
	a = Fallback(strings.Repeat("é", 60))
	assert.Equal(t, strings.Repeat("é", 50), a.KeyPhrases[0])
}

func TestClassifyTransportErrorPropagates(t *testing.T) {
	mock := &llm.MockClient{Err: errors.New("connection refused")}
	c := newTestClassifier(mock)

	_, err := c.Classify(context.Background(), "we argued")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindClassificationUnavailable))
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, 1, mock.CallCount())
}

func TestClassifyTimeout(t *testing.T) {
	mock := &llm.MockClient{Func: func(ctx context.Context, prompt string) (*llm.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	c := NewClassifier(mock, 20*time.Millisecond, zerolog.Nop())

	_, err := c.Classify(context.Background(), "slow")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindClassificationUnavailable))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSchema(t *testing.T) {
	s, err := Schema()
	require.NoError(t, err)
	props, ok := s["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "sentiment")
	assert.Contains(t, props, "keyPhrases")
	assert.Equal(t, []string{"confidence", "emotions", "keyPhrases", "sentiment"}, s["required"])
}
