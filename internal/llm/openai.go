package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// OpenAI calls the OpenAI Responses API. When a schema is configured the
// request uses strict json_schema output.
type OpenAI struct {
	client *openai.Client
	model  string
	schema *Schema
}

// NewOpenAI creates a new OpenAI client.
func NewOpenAI(apiKey, model string, schema *Schema, opts ...option.RequestOption) *OpenAI {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAI{client: &client, model: model, schema: schema}
}

// Complete sends a prompt to the Responses API.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (*Response, error) {
	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(512),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if o.schema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        o.schema.Name,
					Schema:      o.schema.Schema,
					Strict:      openai.Bool(true),
					Description: openai.String(o.schema.Name + " JSON"),
					Type:        "json_schema",
				},
			},
		}
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api: %w", err)
	}

	return &Response{
		Content:    resp.OutputText(),
		Provider:   "openai",
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}
