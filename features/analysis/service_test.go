package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"loanlens/features/application"
	"loanlens/internal/pipeline"
)

type MockAppStore struct {
	mock.Mock
}

func (m *MockAppStore) Get(ctx context.Context, id string) (*application.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.Application), args.Error(1)
}

func (m *MockAppStore) MarkAnalyzed(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockAnalysisRepo struct {
	mock.Mock
}

func (m *MockAnalysisRepo) Upsert(ctx context.Context, a *Analysis) error {
	args := m.Called(ctx, a)
	if args.Error(0) == nil {
		a.ID = "analysis-1"
	}
	return args.Error(0)
}

func (m *MockAnalysisRepo) FindByApplicationID(ctx context.Context, applicationID string) (*Analysis, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Analysis), args.Error(1)
}

func (m *MockAnalysisRepo) DeleteByApplicationID(ctx context.Context, applicationID string) error {
	return m.Called(ctx, applicationID).Error(0)
}

func (m *MockAnalysisRepo) DeleteAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockAnalysisRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(topic string, body []byte) error {
	return m.Called(topic, body).Error(0)
}

func serviceWithVerdict(t *testing.T, apps *MockAppStore, repo *MockAnalysisRepo, pub *MockPublisher, verdict json.RawMessage) *Service {
	t.Helper()
	retriever := new(MockRetriever)
	llm := new(MockLLM)
	retriever.On("Retrieve", mock.Anything, mock.Anything).Return("context", nil)
	llm.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(verdict, nil)
	return NewService(apps, NewGenerator(retriever, llm), repo, pub)
}

func TestAnalyze_PersistsAndMarksAnalyzed(t *testing.T) {
	apps := new(MockAppStore)
	repo := new(MockAnalysisRepo)
	pub := new(MockPublisher)

	apps.On("Get", mock.Anything, "app-1").Return(testApp(), nil)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(a *Analysis) bool {
		return a.ApplicationID == "app-1" && a.Status == StatusCompleted
	})).Return(nil)
	apps.On("MarkAnalyzed", mock.Anything, "app-1").Return(nil)
	pub.On("Publish", TopicAnalysisCompleted, mock.MatchedBy(func(body []byte) bool {
		var evt AnalysisCompleted
		return json.Unmarshal(body, &evt) == nil && evt.AnalysisID == "analysis-1"
	})).Return(nil)

	svc := serviceWithVerdict(t, apps, repo, pub, validVerdict(t))
	a, err := svc.Analyze(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, "analysis-1", a.ID)
	apps.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestAnalyze_ValidationFailurePersistsNothing(t *testing.T) {
	apps := new(MockAppStore)
	repo := new(MockAnalysisRepo)
	pub := new(MockPublisher)

	apps.On("Get", mock.Anything, "app-1").Return(testApp(), nil)

	bad := consistentResult()
	bad.IncomeAnalysis.AnnualIncome = nump(500000)
	raw, err := json.Marshal(bad)
	require.NoError(t, err)

	svc := serviceWithVerdict(t, apps, repo, pub, raw)
	_, err = svc.Analyze(context.Background(), "app-1")
	require.Error(t, err)

	var verr *pipeline.ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, pipeline.StageValidation, pipeline.Stage(err))
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	apps.AssertNotCalled(t, "MarkAnalyzed", mock.Anything, mock.Anything)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestAnalyze_ApplicationNotFound(t *testing.T) {
	apps := new(MockAppStore)
	apps.On("Get", mock.Anything, "missing").
		Return(nil, fmt.Errorf("%w: application missing", pipeline.ErrNotFound))

	svc := serviceWithVerdict(t, apps, new(MockAnalysisRepo), new(MockPublisher), validVerdict(t))
	_, err := svc.Analyze(context.Background(), "missing")
	assert.True(t, errors.Is(err, pipeline.ErrNotFound))
}

func TestAnalyze_PublishFailureIsNotFatal(t *testing.T) {
	apps := new(MockAppStore)
	repo := new(MockAnalysisRepo)
	pub := new(MockPublisher)

	apps.On("Get", mock.Anything, "app-1").Return(testApp(), nil)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	apps.On("MarkAnalyzed", mock.Anything, "app-1").Return(nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("nsqd unreachable"))

	svc := serviceWithVerdict(t, apps, repo, pub, validVerdict(t))
	a, err := svc.Analyze(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, a.Status)
}
