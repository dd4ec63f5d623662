package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"loanlens/internal/middleware"
	"loanlens/internal/pipeline"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Analyze runs the pipeline synchronously for one application. A failure
// response names the stage that failed so the dashboard can say more than
// "analysis failed".
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	a, err := h.service.Analyze(r.Context(), id)
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			h.writeError(r.Context(), w, "NOT_FOUND", "Application not found", http.StatusNotFound)
			return
		}

		stage := pipeline.Stage(err)
		slog.ErrorContext(r.Context(), "analysis failed", "error", err, "application_id", id, "stage", stage)

		status := http.StatusInternalServerError
		var verr *pipeline.ValidationError
		if errors.As(err, &verr) {
			status = http.StatusUnprocessableEntity
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		resp := map[string]interface{}{
			"error": map[string]string{
				"code":    "ANALYSIS_FAILED",
				"stage":   stage,
				"message": err.Error(),
			},
			"correlationId": middleware.GetCorrelationID(r.Context()),
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("failed to encode error response", "error", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": a}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	a, err := h.service.GetByApplicationID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			h.writeError(r.Context(), w, "NOT_FOUND", "Analysis not found", http.StatusNotFound)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": a}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
