package weaviate

import (
	"context"
	"fmt"
	"strconv"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"loanlens/internal/retrieval"
	"loanlens/internal/vector"
)

// Store implements the document-index contract against Weaviate. The object
// id of every ChunkVector equals the chunk's repository id, which is what
// makes retrieval's vector-id to chunk-text mapping resolvable.
type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// Upsert writes the vector for a chunk under the chunk's id.
func (s *Store) Upsert(ctx context.Context, id string, vec []float32, fileName string, chunkIndex int) error {
	_, err := s.client.Data().Creator().
		WithClassName(vector.ClassName).
		WithID(id).
		WithProperties(map[string]interface{}{
			"fileName":   fileName,
			"chunkIndex": chunkIndex,
		}).
		WithVector(vec).
		Do(ctx)
	return err
}

// Query returns up to topK nearest vectors, best match first.
func (s *Store) Query(ctx context.Context, vec []float32, topK int) ([]retrieval.Match, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	fields := []graphql.Field{
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "distance"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithLimit(topK).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var matches []retrieval.Match
	if data, ok := res.Data["Get"].(map[string]interface{}); ok {
		if objs, ok := data[vector.ClassName].([]interface{}); ok {
			for _, o := range objs {
				props, ok := o.(map[string]interface{})
				if !ok {
					continue
				}
				additional, ok := props["_additional"].(map[string]interface{})
				if !ok {
					continue
				}

				var m retrieval.Match
				if id, ok := additional["id"].(string); ok {
					m.ID = id
				}
				// Weaviate reports distance; surface it as a similarity
				// score. Some server versions return numbers as strings.
				switch d := additional["distance"].(type) {
				case float64:
					m.Score = 1 - float32(d)
				case string:
					if f, err := strconv.ParseFloat(d, 64); err == nil {
						m.Score = 1 - float32(f)
					}
				}

				if m.ID != "" {
					matches = append(matches, m)
				}
			}
		}
	}

	return matches, nil
}

// Delete removes the vector entries for the given chunk ids.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		err := s.client.Data().Deleter().
			WithClassName(vector.ClassName).
			WithID(id).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("delete vector %s: %w", id, err)
		}
	}
	return nil
}

// DeleteAll wipes every chunk vector. Weaviate's batch deleter requires a
// where clause, so match every fileName.
func (s *Store) DeleteAll(ctx context.Context) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"fileName"}).
			WithOperator(filters.Like).
			WithValueText("*")).
		Do(ctx)
	return err
}
