package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"loanlens/features/document"
	"loanlens/internal/middleware"
	"loanlens/internal/pipeline"
)

type Handler struct {
	service     *Service
	uploadDir   string
	maxUploadMB int64
}

func NewHandler(service *Service, uploadDir string, maxUploadMB int64) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &Handler{service: service, uploadDir: uploadDir, maxUploadMB: maxUploadMB}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	limit := h.maxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "Upload too large", http.StatusBadRequest)
		return
	}

	name := r.FormValue("name")
	if name == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Name is required", http.StatusBadRequest)
		return
	}
	email := r.FormValue("email")
	if email == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Email is required", http.StatusBadRequest)
		return
	}
	age, err := strconv.Atoi(r.FormValue("age"))
	if err != nil || age <= 0 {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Age must be a positive number", http.StatusBadRequest)
		return
	}
	creditScore, err := strconv.Atoi(r.FormValue("creditScore"))
	if err != nil || creditScore < 300 || creditScore > 900 {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Credit score must be between 300 and 900", http.StatusBadRequest)
		return
	}

	in := Intake{
		Name:        name,
		Age:         age,
		CreditScore: creditScore,
		Email:       email,
	}

	if in.Payslips, err = h.readFiles(r, "payslips"); err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", err.Error(), http.StatusBadRequest)
		return
	}
	if in.BankStatements, err = h.readFiles(r, "bankStatements"); err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", err.Error(), http.StatusBadRequest)
		return
	}
	if in.PANCard, err = h.readOptionalFile(r, "panCard"); err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", err.Error(), http.StatusBadRequest)
		return
	}
	if in.AadhaarCard, err = h.readOptionalFile(r, "aadhaarCard"); err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", err.Error(), http.StatusBadRequest)
		return
	}

	photoURL, err := h.savePhoto(r)
	if err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to store photo", http.StatusInternalServerError)
		return
	}
	in.PhotoURL = photoURL

	app, err := h.service.Create(r.Context(), in)
	if err != nil {
		if errors.Is(err, pipeline.ErrUnsupportedFileType) {
			h.writeError(r.Context(), w, "BAD_REQUEST", err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(r.Context(), "application intake failed", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": app}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	apps, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	if apps == nil {
		apps = []Application{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": apps,
		"meta": map[string]int{"count": len(apps)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	app, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			h.writeError(r.Context(), w, "NOT_FOUND", "Application not found", http.StatusNotFound)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": app}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	warnings, err := h.service.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			h.writeError(r.Context(), w, "NOT_FOUND", "Application not found", http.StatusNotFound)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{"data": map[string]string{"id": id}}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) readFiles(r *http.Request, field string) ([]document.File, error) {
	var files []document.File
	for _, header := range r.MultipartForm.File[field] {
		f, err := h.readFile(header)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func (h *Handler) readOptionalFile(r *http.Request, field string) (*document.File, error) {
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, nil
	}
	f, err := h.readFile(headers[0])
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (h *Handler) readFile(header *multipart.FileHeader) (document.File, error) {
	f, err := header.Open()
	if err != nil {
		return document.File{}, fmt.Errorf("unable to read %q", header.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return document.File{}, fmt.Errorf("unable to read %q", header.Filename)
	}
	return document.File{Name: filepath.Base(header.Filename), Data: data}, nil
}

// savePhoto stores the applicant photo on disk and returns its serving
// path. The photo is profile decoration, not pipeline input, so it skips
// ingestion entirely.
func (h *Handler) savePhoto(r *http.Request) (string, error) {
	headers := r.MultipartForm.File["photo"]
	if len(headers) == 0 {
		return "", nil
	}
	header := headers[0]

	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		return "", err
	}

	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	filename := fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(header.Filename))
	path := filepath.Clean(filepath.Join(h.uploadDir, filename))

	dst, err := os.Create(path) // #nosec G304 -- path is UUID-based under the configured upload dir
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return "/uploads/" + filename, nil
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
