package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"loanlens/features/document"
	"loanlens/internal/middleware"
)

const TopicAnalysisRequest = "analysis.request"

// AnalysisRequest is the queue payload that triggers an asynchronous
// analysis run for a freshly created application.
type AnalysisRequest struct {
	ApplicationID string `json:"application_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Ingester runs one file through the ingestion pipeline and returns its
// chunk ids in sequence order.
type Ingester interface {
	Ingest(ctx context.Context, f document.File) ([]string, error)
}

// ChunkDeleter removes one chunk record and its vector entry.
type ChunkDeleter interface {
	Delete(ctx context.Context, id string) error
}

// AnalysisRemover clears the persisted analysis for an application, if any.
type AnalysisRemover interface {
	DeleteByApplicationID(ctx context.Context, applicationID string) error
}

// Intake is everything submitted with a new application.
type Intake struct {
	Name           string
	Age            int
	CreditScore    int
	Email          string
	PhotoURL       string
	Payslips       []document.File
	BankStatements []document.File
	PANCard        *document.File
	AadhaarCard    *document.File
}

type Service struct {
	repo     Repository
	ingester Ingester
	chunks   ChunkDeleter
	analyses AnalysisRemover
	pub      EventPublisher
}

func NewService(repo Repository, ingester Ingester, chunks ChunkDeleter, analyses AnalysisRemover, pub EventPublisher) *Service {
	return &Service{repo: repo, ingester: ingester, chunks: chunks, analyses: analyses, pub: pub}
}

// Create ingests every submitted file, persists the application with its
// grouped chunk references, and queues an analysis run. Ingestion failure
// on any file aborts the whole intake, naming the file.
func (s *Service) Create(ctx context.Context, in Intake) (*Application, error) {
	app := &Application{
		Name:        in.Name,
		Age:         in.Age,
		CreditScore: in.CreditScore,
		Email:       in.Email,
		PhotoURL:    in.PhotoURL,
		Status:      StatusPending,
	}

	for _, f := range in.Payslips {
		ref, err := s.ingestOne(ctx, f)
		if err != nil {
			return nil, err
		}
		app.Documents.Payslips = append(app.Documents.Payslips, ref)
	}
	for _, f := range in.BankStatements {
		ref, err := s.ingestOne(ctx, f)
		if err != nil {
			return nil, err
		}
		app.Documents.BankStatements = append(app.Documents.BankStatements, ref)
	}
	if in.PANCard != nil {
		ref, err := s.ingestOne(ctx, *in.PANCard)
		if err != nil {
			return nil, err
		}
		app.Documents.PANCard = &ref
	}
	if in.AadhaarCard != nil {
		ref, err := s.ingestOne(ctx, *in.AadhaarCard)
		if err != nil {
			return nil, err
		}
		app.Documents.AadhaarCard = &ref
	}

	if err := s.repo.Save(ctx, app); err != nil {
		return nil, fmt.Errorf("save application: %w", err)
	}

	payload, _ := json.Marshal(AnalysisRequest{
		ApplicationID: app.ID,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(TopicAnalysisRequest, payload); err != nil {
		// The application is stored; analysis can still be run on demand.
		slog.ErrorContext(ctx, "failed to queue analysis request", "error", err, "application_id", app.ID)
	}

	slog.InfoContext(ctx, "application created", "application_id", app.ID)
	return app, nil
}

func (s *Service) ingestOne(ctx context.Context, f document.File) (DocumentRef, error) {
	ids, err := s.ingester.Ingest(ctx, f)
	if err != nil {
		return DocumentRef{}, fmt.Errorf("file %q: %w", f.Name, err)
	}
	return DocumentRef{FileName: f.Name, ChunkIDs: ids}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Application, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Application, error) {
	return s.repo.List(ctx)
}

// Delete removes an application and everything derived from it: chunk
// records with their vectors, the persisted analysis, then the application
// row. Chunk deletion is best-effort; individual failures are collected
// into the returned warnings rather than aborting, since a half-deleted
// application is worse than a few orphaned vectors. Analysis and
// application deletion still fail hard.
func (s *Service) Delete(ctx context.Context, id string) ([]string, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var warnings []string
	for _, chunkID := range app.Documents.AllChunkIDs() {
		if err := s.chunks.Delete(ctx, chunkID); err != nil {
			warnings = append(warnings, fmt.Sprintf("chunk %s: %v", chunkID, err))
		}
	}

	if err := s.analyses.DeleteByApplicationID(ctx, id); err != nil {
		return warnings, fmt.Errorf("delete analysis: %w", err)
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return warnings, err
	}

	if len(warnings) > 0 {
		slog.WarnContext(ctx, "application deleted with partial chunk cleanup",
			"application_id", id, "failed_chunks", len(warnings))
	} else {
		slog.InfoContext(ctx, "application deleted", "application_id", id)
	}
	return warnings, nil
}

// MarkAnalyzed flips the application status once a validated analysis has
// been persisted. The transition is one-way.
func (s *Service) MarkAnalyzed(ctx context.Context, id string) error {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if app.Status == StatusAnalyzed {
		return nil
	}
	if app.Status != StatusPending {
		return errors.New("application is not pending")
	}
	return s.repo.UpdateStatus(ctx, id, StatusAnalyzed)
}
