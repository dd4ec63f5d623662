package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"loanlens/features/application"
	"loanlens/internal/middleware"
	"loanlens/internal/pipeline"
)

// RequestConsumer handles queued analysis requests published at application
// creation time.
type RequestConsumer struct {
	service *Service
	timeout time.Duration
}

func NewRequestConsumer(service *Service) *RequestConsumer {
	return &RequestConsumer{service: service, timeout: 5 * time.Minute}
}

func (h *RequestConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var req application.AnalysisRequest
	if err := json.Unmarshal(m.Body, &req); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}
	if req.ApplicationID == "" {
		slog.Error("poison pill: missing application id")
		return nil
	}

	ctx := context.Background()
	if req.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, req.CorrelationID)
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if _, err := h.service.Analyze(ctx, req.ApplicationID); err != nil {
		var verr *pipeline.ValidationError
		switch {
		case errors.Is(err, pipeline.ErrNotFound):
			// Application deleted between queue and dequeue; nothing to do.
			slog.WarnContext(ctx, "application gone before analysis", "application_id", req.ApplicationID)
			return nil
		case errors.As(err, &verr):
			// Retrying the same prompt may well produce a consistent verdict
			// next time, so hand the message back to the queue.
			slog.WarnContext(ctx, "analysis failed validation", "application_id", req.ApplicationID, "field", verr.Field)
			return err
		default:
			slog.ErrorContext(ctx, "analysis failed", "error", err, "application_id", req.ApplicationID, "stage", pipeline.Stage(err))
			return err // Retry
		}
	}

	slog.InfoContext(ctx, "queued analysis completed", "application_id", req.ApplicationID)
	return nil
}
