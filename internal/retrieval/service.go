package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"loanlens/features/document"
	"loanlens/internal/middleware"
	"loanlens/internal/pipeline"
)

// Match is one nearest-neighbour hit from the vector index, best score
// first.
type Match struct {
	ID    string
	Score float32
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorIndex interface {
	Query(ctx context.Context, vec []float32, topK int) ([]Match, error)
}

type ChunkRepo interface {
	FindByIDs(ctx context.Context, ids []string) ([]document.Chunk, error)
}

type Service struct {
	embedder Embedder
	index    VectorIndex
	chunks   ChunkRepo
	topK     int
	logger   *QueryLogger
}

func NewService(e Embedder, idx VectorIndex, chunks ChunkRepo, topK int, l *QueryLogger) *Service {
	if topK <= 0 {
		topK = 50
	}
	return &Service{embedder: e, index: idx, chunks: chunks, topK: topK, logger: l}
}

// Retrieve embeds the query, finds the nearest chunks, resolves them back
// to text, and joins them into a single context block. Chunks are ordered
// by their position in the source document, not by similarity score, so
// the assembled context reads in document order. Matches whose ids no
// longer resolve to a chunk are dropped silently.
func (s *Service) Retrieve(ctx context.Context, query string) (string, error) {
	start := time.Now()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("%w: embed query: %v", pipeline.ErrRetrieval, err)
	}

	matches, err := s.index.Query(ctx, vec, s.topK)
	if err != nil {
		return "", fmt.Errorf("%w: vector query: %v", pipeline.ErrRetrieval, err)
	}
	if len(matches) == 0 {
		return "", nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}

	chunks, err := s.chunks.FindByIDs(ctx, ids)
	if err != nil {
		return "", fmt.Errorf("%w: resolve chunks: %v", pipeline.ErrRetrieval, err)
	}

	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].FileName != chunks[j].FileName {
			return chunks[i].FileName < chunks[j].FileName
		}
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	joined := strings.Join(texts, "\n")

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:         query,
			NumResults:    len(chunks),
			Duration:      time.Since(start),
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
	}

	return joined, nil
}
