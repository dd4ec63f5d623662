package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"loanlens/features/application"
	"loanlens/internal/middleware"
)

const TopicAnalysisCompleted = "analysis.completed"

// AnalysisCompleted is published after a validated verdict is persisted.
type AnalysisCompleted struct {
	ApplicationID string `json:"application_id"`
	AnalysisID    string `json:"analysis_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

type ApplicationStore interface {
	Get(ctx context.Context, id string) (*application.Application, error)
	MarkAnalyzed(ctx context.Context, id string) error
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	apps      ApplicationStore
	generator *Generator
	repo      Repository
	pub       EventPublisher
}

func NewService(apps ApplicationStore, generator *Generator, repo Repository, pub EventPublisher) *Service {
	return &Service{apps: apps, generator: generator, repo: repo, pub: pub}
}

// Analyze runs the full pipeline for one application: generate a candidate
// verdict, validate it, persist it, flip the application to analyzed, and
// announce completion. Validation failure persists nothing; an
// inconsistent verdict must never be readable as a financial decision.
func (s *Service) Analyze(ctx context.Context, applicationID string) (*Analysis, error) {
	app, err := s.apps.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	result, err := s.generator.Generate(ctx, app)
	if err != nil {
		return nil, err
	}

	if err := Validate(result, app.CreditScore); err != nil {
		return nil, err
	}

	a := &Analysis{
		ApplicationID: applicationID,
		Result:        *result,
		Status:        StatusCompleted,
	}
	if err := s.repo.Upsert(ctx, a); err != nil {
		return nil, fmt.Errorf("persist analysis: %w", err)
	}

	if err := s.apps.MarkAnalyzed(ctx, applicationID); err != nil {
		return nil, fmt.Errorf("update application status: %w", err)
	}

	if s.pub != nil {
		payload, _ := json.Marshal(AnalysisCompleted{
			ApplicationID: applicationID,
			AnalysisID:    a.ID,
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
		if err := s.pub.Publish(TopicAnalysisCompleted, payload); err != nil {
			// Fire-and-forget announcement; the analysis itself is safe.
			slog.ErrorContext(ctx, "failed to publish completion event", "error", err, "application_id", applicationID)
		}
	}

	slog.InfoContext(ctx, "analysis persisted", "application_id", applicationID, "analysis_id", a.ID)
	return a, nil
}

func (s *Service) GetByApplicationID(ctx context.Context, applicationID string) (*Analysis, error) {
	return s.repo.FindByApplicationID(ctx, applicationID)
}
