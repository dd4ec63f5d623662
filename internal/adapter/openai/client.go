package openai

import (
	"context"
	"encoding/json"
	"fmt"

	gopenai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"loanlens/internal/pipeline"
)

// Client wraps the OpenAI API for the two calls this system makes:
// embeddings and schema-constrained chat completions. BaseURL may point at
// any OpenAI-compatible endpoint.
type Client struct {
	api        *gopenai.Client
	embedModel string
	chatModel  string
}

func NewClient(apiKey, baseURL, embedModel, chatModel string) *Client {
	cfg := gopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:        gopenai.NewClientWithConfig(cfg),
		embedModel: embedModel,
		chatModel:  chatModel,
	}
}

// Embed converts text into a fixed-length vector. A provider failure or an
// empty vector is an error; a zero vector is never returned silently.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, gopenai.EmbeddingRequest{
		Model: gopenai.EmbeddingModel(c.embedModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrEmbedding, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding received", pipeline.ErrEmbedding)
	}
	return resp.Data[0].Embedding, nil
}

// CompleteJSON runs a chat completion constrained to the given JSON schema
// and returns the raw structured content. The schema is marked strict, so
// the provider must emit the full required field set; the caller still
// validates on receipt.
func (c *Client) CompleteJSON(ctx context.Context, system, user, schemaName string, schema jsonschema.Definition) (json.RawMessage, error) {
	resp, err := c.api.CreateChatCompletion(ctx, gopenai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleSystem, Content: system},
			{Role: gopenai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &gopenai.ChatCompletionResponseFormat{
			Type: gopenai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &gopenai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: schema,
				Strict: true,
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}
	return json.RawMessage(resp.Choices[0].Message.Content), nil
}
