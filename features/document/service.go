package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"loanlens/internal/pipeline"
	"loanlens/internal/text"
)

// File is one uploaded file to ingest.
type File struct {
	Name string
	Data []byte
}

// FileChunks reports the chunk ids produced from one file, in sequence
// order.
type FileChunks struct {
	FileName string   `json:"file_name"`
	ChunkIDs []string `json:"chunk_ids"`
}

// AnalysisPurger lets the bulk wipe clear analysis records along with
// chunks and vectors.
type AnalysisPurger interface {
	DeleteAll(ctx context.Context) error
}

type Service struct {
	extractor   Extractor
	repo        Repository
	embedder    Embedder
	index       VectorIndex
	analyses    AnalysisPurger
	policy      text.Policy
	maxWords    int
	concurrency int
}

func NewService(extractor Extractor, repo Repository, embedder Embedder, index VectorIndex, analyses AnalysisPurger, policy text.Policy, maxWords, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Service{
		extractor:   extractor,
		repo:        repo,
		embedder:    embedder,
		index:       index,
		analyses:    analyses,
		policy:      policy,
		maxWords:    maxWords,
		concurrency: concurrency,
	}
}

// Ingest runs one file through extract → chunk → persist → embed → index
// and returns the chunk ids in sequence order. Chunks are processed in
// parallel, but each chunk's repository write completes before its vector
// upsert so the index never references unresolvable ids. Per-chunk failures
// are collected rather than aborting sibling chunks; any failure fails the
// file.
func (s *Service) Ingest(ctx context.Context, f File) ([]string, error) {
	extracted, err := s.extractor.Extract(ctx, f.Data, f.Name)
	if err != nil {
		return nil, err
	}

	chunks := text.Chunk(extracted, s.maxWords, s.policy)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s: no text extracted", pipeline.ErrExtraction, f.Name)
	}

	ids := make([]string, len(chunks))
	errs := make([]error, len(chunks))

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, chunkText := range chunks {
		wg.Add(1)
		go func(index int, content string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			chunk := &Chunk{
				FileName:   f.Name,
				ChunkIndex: index,
				Text:       content,
			}
			if err := s.repo.Save(ctx, chunk); err != nil {
				errs[index] = fmt.Errorf("%w: save chunk %d: %v", pipeline.ErrStore, index, err)
				return
			}
			ids[index] = chunk.ID

			vec, err := s.embedder.Embed(ctx, content)
			if err != nil {
				// Chunk row exists without a vector; surface it instead of
				// leaving a silent partial state.
				errs[index] = fmt.Errorf("chunk %d saved but not indexed: %w", index, err)
				return
			}

			if err := s.index.Upsert(ctx, chunk.ID, vec, f.Name, index); err != nil {
				errs[index] = fmt.Errorf("chunk %d saved but not indexed: %w", index, err)
			}
		}(i, chunkText)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("ingest %s: %w", f.Name, err)
	}

	slog.InfoContext(ctx, "file ingested", "file", f.Name, "chunks", len(chunks))
	return ids, nil
}

// IngestAll processes files in order and fails on the first file that
// cannot be processed, naming it.
func (s *Service) IngestAll(ctx context.Context, files []File) ([]FileChunks, error) {
	results := make([]FileChunks, 0, len(files))
	for _, f := range files {
		ids, err := s.Ingest(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("file %q: %w", f.Name, err)
		}
		results = append(results, FileChunks{FileName: f.Name, ChunkIDs: ids})
	}
	return results, nil
}

// Delete removes a chunk record and its paired vector entry. A dangling
// vector without text violates the retrieval invariant, so the vector
// delete is attempted even though the row goes first.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("%w: delete chunk %s: %v", pipeline.ErrStore, id, err)
	}
	if err := s.index.Delete(ctx, []string{id}); err != nil {
		return fmt.Errorf("chunk %s deleted but vector remains: %w", id, err)
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]Chunk, error) {
	return s.repo.List(ctx)
}

// WipeAll clears every chunk record, every vector entry, and all analyses.
// Used by the dashboard reset.
func (s *Service) WipeAll(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("%w: wipe chunks: %v", pipeline.ErrStore, err)
	}
	if s.analyses != nil {
		if err := s.analyses.DeleteAll(ctx); err != nil {
			return fmt.Errorf("%w: wipe analyses: %v", pipeline.ErrStore, err)
		}
	}
	if err := s.index.DeleteAll(ctx); err != nil {
		return fmt.Errorf("chunks wiped but vectors remain: %w", err)
	}
	return nil
}
