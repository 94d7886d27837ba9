package llm

import (
	"fmt"
	"strings"
)

// SentimentPrompt generates the prompt for classifying the sentiment of a
// single interaction description. The model is asked for one JSON object with
// exactly four keys: sentiment, confidence, emotions, keyPhrases.
func SentimentPrompt(text string) string {
	// Keep the quoted text from terminating the quote in the template.
	text = strings.ReplaceAll(text, `"`, `\"`)

	return fmt.Sprintf(`You are a sentiment analysis system for a personal relationship journal.
Analyze the sentiment of the interaction described below.

Text to analyze: "%s"

Rules:
- sentiment must be exactly one of: positive, negative, neutral
- confidence is a number between 0 and 1
- emotions lists up to 5 short emotion words detected in the text
- keyPhrases lists up to 5 short phrases from the text that carry the sentiment
- Return ONLY the JSON object, no other text

Return a JSON object:
{
  "sentiment": "positive|negative|neutral",
  "confidence": 0.0,
  "emotions": ["emotion1", "emotion2"],
  "keyPhrases": ["phrase1", "phrase2"]
}`, text)
}
