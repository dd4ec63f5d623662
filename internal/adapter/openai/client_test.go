package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanlens/internal/pipeline"
)

func TestClient_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{0.1, 0.2, 0.3}, "index": 0},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "text-embedding-3-small", "gpt-4o")
	vec, err := c.Embed(context.Background(), "monthly income")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestClient_Embed_EmptyVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "text-embedding-3-small", "gpt-4o")
	_, err := c.Embed(context.Background(), "query")

	assert.ErrorIs(t, err, pipeline.ErrEmbedding)
}

func TestClient_Embed_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "text-embedding-3-small", "gpt-4o")
	_, err := c.Embed(context.Background(), "query")

	assert.ErrorIs(t, err, pipeline.ErrEmbedding)
}

func TestClient_CompleteJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)
		rf, _ := req["response_format"].(map[string]interface{})
		assert.Equal(t, "json_schema", rf["type"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": `{"verdict":"ok"}`}},
			},
		})
	}))
	defer srv.Close()

	schema := jsonschema.Definition{
		Type:       jsonschema.Object,
		Properties: map[string]jsonschema.Definition{"verdict": {Type: jsonschema.String}},
		Required:   []string{"verdict"},
	}

	c := NewClient("test-key", srv.URL, "text-embedding-3-small", "gpt-4o")
	raw, err := c.CompleteJSON(context.Background(), "system", "user", "verdict_schema", schema)
	require.NoError(t, err)

	assert.JSONEq(t, `{"verdict":"ok"}`, string(raw))
}

func TestClient_CompleteJSON_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "text-embedding-3-small", "gpt-4o")
	_, err := c.CompleteJSON(context.Background(), "s", "u", "n", jsonschema.Definition{Type: jsonschema.Object})
	assert.Error(t, err)
}
