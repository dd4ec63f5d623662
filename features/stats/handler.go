package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"loanlens/internal/middleware"
)

type ApplicationRepo interface {
	Count(ctx context.Context) (int, error)
}

type AnalysisRepo interface {
	Count(ctx context.Context) (int, error)
}

type ChunkRepo interface {
	Count(ctx context.Context) (int, error)
}

type Handler struct {
	applications ApplicationRepo
	analyses     AnalysisRepo
	chunks       ChunkRepo
}

func NewHandler(apps ApplicationRepo, analyses AnalysisRepo, chunks ChunkRepo) *Handler {
	return &Handler{applications: apps, analyses: analyses, chunks: chunks}
}

type StatsResponse struct {
	Applications int `json:"applications"`
	Analyses     int `json:"analyses"`
	Chunks       int `json:"chunks"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID)

	appCount, err := h.applications.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count applications", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count applications", http.StatusInternalServerError)
		return
	}

	analysisCount, err := h.analyses.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count analyses", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count analyses", http.StatusInternalServerError)
		return
	}

	chunkCount, err := h.chunks.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count chunks", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count chunks", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Applications: appCount,
		Analyses:     analysisCount,
		Chunks:       chunkCount,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
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
