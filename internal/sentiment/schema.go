package sentiment

import "github.com/lazypower/rapport/internal/llm"

// SchemaName is the structured-output name used for Analysis.
const SchemaName = "sentiment_analysis"

// Schema returns the strict JSON schema for Analysis, for providers that
// support constrained output.
func Schema() (map[string]any, error) {
	return llm.GenerateSchema[Analysis]()
}
