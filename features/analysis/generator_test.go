package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"loanlens/features/application"
	"loanlens/internal/pipeline"
)

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, query string) (string, error) {
	args := m.Called(ctx, query)
	return args.String(0), args.Error(1)
}

type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) CompleteJSON(ctx context.Context, system, user, schemaName string, schema jsonschema.Definition) (json.RawMessage, error) {
	args := m.Called(ctx, system, user, schemaName, schema)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func testApp() *application.Application {
	return &application.Application{
		ID:          "app-1",
		Name:        "Asha",
		Age:         31,
		CreditScore: 720,
	}
}

func validVerdict(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(consistentResult())
	require.NoError(t, err)
	return raw
}

func TestGenerate_JoinsTopicsIntoPrompt(t *testing.T) {
	retriever := new(MockRetriever)
	llm := new(MockLLM)

	retriever.On("Retrieve", mock.Anything, QueryIncome).Return("INCOME-CONTEXT", nil)
	retriever.On("Retrieve", mock.Anything, QueryCredit).Return("CREDIT-CONTEXT", nil)
	retriever.On("Retrieve", mock.Anything, QueryIdentity).Return("IDENTITY-CONTEXT", nil)

	llm.On("CompleteJSON", mock.Anything, mock.MatchedBy(func(system string) bool {
		// Each topic's content must land in its own labelled block even
		// though the retrievals run concurrently.
		return strings.Contains(system, "Income Documents Analysis:\nINCOME-CONTEXT") &&
			strings.Contains(system, "Credit Profile Analysis:\nCREDIT-CONTEXT") &&
			strings.Contains(system, "Identity Verification Records:\nIDENTITY-CONTEXT") &&
			strings.Contains(system, "Name: Asha") &&
			strings.Contains(system, "Credit Score: 720")
	}), userPrompt, SchemaName, mock.Anything).Return(validVerdict(t), nil)

	gen := NewGenerator(retriever, llm)
	result, err := gen.Generate(context.Background(), testApp())
	require.NoError(t, err)
	require.NotNil(t, result.IncomeAnalysis)
	assert.Equal(t, 50000.0, *result.IncomeAnalysis.MonthlyIncome)
	llm.AssertExpectations(t)
}

func TestGenerate_RetrievalFailureAbortsRun(t *testing.T) {
	retriever := new(MockRetriever)
	llm := new(MockLLM)

	retriever.On("Retrieve", mock.Anything, QueryIncome).
		Return("", fmt.Errorf("%w: weaviate down", pipeline.ErrRetrieval))
	retriever.On("Retrieve", mock.Anything, QueryCredit).Return("credit", nil).Maybe()
	retriever.On("Retrieve", mock.Anything, QueryIdentity).Return("identity", nil).Maybe()

	gen := NewGenerator(retriever, llm)
	_, err := gen.Generate(context.Background(), testApp())
	require.Error(t, err)
	assert.True(t, errors.Is(err, pipeline.ErrRetrieval))
	llm.AssertNotCalled(t, "CompleteJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerate_ProviderErrorIsGenerationError(t *testing.T) {
	retriever := new(MockRetriever)
	llm := new(MockLLM)

	retriever.On("Retrieve", mock.Anything, mock.Anything).Return("ctx", nil)
	llm.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("rate limited"))

	gen := NewGenerator(retriever, llm)
	_, err := gen.Generate(context.Background(), testApp())
	require.Error(t, err)
	assert.True(t, errors.Is(err, pipeline.ErrGeneration))
	assert.Equal(t, pipeline.StageGeneration, pipeline.Stage(err))
}

func TestGenerate_MalformedOutputIsGenerationError(t *testing.T) {
	retriever := new(MockRetriever)
	llm := new(MockLLM)

	retriever.On("Retrieve", mock.Anything, mock.Anything).Return("ctx", nil)
	llm.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(json.RawMessage(`{"personalInfo": not-json`), nil)

	gen := NewGenerator(retriever, llm)
	_, err := gen.Generate(context.Background(), testApp())
	require.Error(t, err)
	assert.True(t, errors.Is(err, pipeline.ErrGeneration))
}
