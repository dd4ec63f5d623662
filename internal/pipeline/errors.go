package pipeline

import (
	"errors"
	"fmt"
)

// Failure kinds for the document-to-analysis pipeline. Callers wrap these
// with %w so handlers and tests can classify failures with errors.Is.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrExtraction          = errors.New("text extraction failed")
	ErrEmbedding           = errors.New("embedding failed")
	ErrRetrieval           = errors.New("retrieval failed")
	ErrGeneration          = errors.New("analysis generation failed")
	ErrNotFound            = errors.New("not found")
	ErrStore               = errors.New("store operation failed")
)

// Pipeline stage names used when reporting which stage an analysis run
// failed in.
const (
	StageExtraction = "extraction"
	StageRetrieval  = "retrieval"
	StageGeneration = "generation"
	StageValidation = "validation"
)

// ValidationError names the offending field and the constraint it broke.
// It is the single gate between a model's candidate verdict and the store.
type ValidationError struct {
	Field      string
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Constraint)
}

// Stage resolves the pipeline stage a wrapped error belongs to. Unknown
// errors report as generation since that is the stage talking to the most
// opaque dependency.
func Stage(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return StageValidation
	case errors.Is(err, ErrExtraction), errors.Is(err, ErrUnsupportedFileType):
		return StageExtraction
	case errors.Is(err, ErrRetrieval), errors.Is(err, ErrEmbedding):
		return StageRetrieval
	default:
		return StageGeneration
	}
}
