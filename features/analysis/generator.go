package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai/jsonschema"
	"golang.org/x/sync/errgroup"

	"loanlens/features/application"
	"loanlens/internal/pipeline"
)

type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

type LanguageModel interface {
	CompleteJSON(ctx context.Context, system, user, schemaName string, schema jsonschema.Definition) (json.RawMessage, error)
}

// Generator produces a candidate verdict for an application. The candidate
// is untrusted; the caller must validate it before persisting.
type Generator struct {
	retriever Retriever
	llm       LanguageModel
}

func NewGenerator(retriever Retriever, llm LanguageModel) *Generator {
	return &Generator{retriever: retriever, llm: llm}
}

// Generate runs the three topic retrievals in parallel, assembles the
// prompt, and asks the model for a schema-constrained verdict. The first
// retrieval failure cancels the others and aborts the run; an analysis
// built on partial context is worse than no analysis.
func (g *Generator) Generate(ctx context.Context, app *application.Application) (*Result, error) {
	var incomeContent, creditContent, identityContent string

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		incomeContent, err = g.retriever.Retrieve(egCtx, QueryIncome)
		return err
	})
	eg.Go(func() error {
		var err error
		creditContent, err = g.retriever.Retrieve(egCtx, QueryCredit)
		return err
	})
	eg.Go(func() error {
		var err error
		identityContent, err = g.retriever.Retrieve(egCtx, QueryIdentity)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	prompt := buildPrompt(app, incomeContent, creditContent, identityContent)

	raw, err := g.llm.CompleteJSON(ctx, prompt, userPrompt, SchemaName, ResponseSchema())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrGeneration, err)
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: malformed model output: %v", pipeline.ErrGeneration, err)
	}
	return &result, nil
}
