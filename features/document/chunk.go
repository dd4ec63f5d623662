package document

import "context"

// Chunk is one bounded slice of a source file's extracted text. The id is
// assigned at persistence time and shared with the vector-index entry, so a
// retrieval hit can always be resolved back to text. Chunks are immutable
// once written.
type Chunk struct {
	ID         string `json:"id"`
	FileName   string `json:"file_name"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	CreatedAt  string `json:"created_at,omitempty"`
}

type Repository interface {
	Save(ctx context.Context, chunk *Chunk) error
	FindByIDs(ctx context.Context, ids []string) ([]Chunk, error)
	List(ctx context.Context) ([]Chunk, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the document-index contract: one entry per chunk, keyed by
// chunk id.
type VectorIndex interface {
	Upsert(ctx context.Context, id string, vec []float32, fileName string, chunkIndex int) error
	Delete(ctx context.Context, ids []string) error
	DeleteAll(ctx context.Context) error
}

type Extractor interface {
	Extract(ctx context.Context, data []byte, fileName string) (string, error)
}
