package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/ledgerimport/internal/adapter/http/dto"
	"github.com/iho/ledgerimport/internal/domain"
	"github.com/iho/ledgerimport/internal/usecase"
)

// RunService defines the batch operations used by RunHandler.
type RunService interface {
	Run(ctx context.Context, input usecase.RunInput) (*domain.RunResult, error)
	GetRun(ctx context.Context, id string) (*domain.RunResult, error)
}

var allowedUploadExt = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xls":  true,
	".csv":  true,
	".txt":  true,
}

// RunHandler handles batch uploads and run lookups.
type RunHandler struct {
	service       RunService
	uploadDir     string
	maxUploadSize int64
	logger        zerolog.Logger
}

// NewRunHandler creates a new RunHandler. An empty uploadDir uses the system
// temp directory.
func NewRunHandler(service RunService, uploadDir string, maxUploadSize int64, logger zerolog.Logger) *RunHandler {
	return &RunHandler{
		service:       service,
		uploadDir:     uploadDir,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// Create handles POST /api/v1/runs (multipart: enterprise, transactions,
// invoices).
func (h *RunHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	dir, err := os.MkdirTemp(h.uploadDir, "upload-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store upload", err.Error())
		return
	}
	defer os.RemoveAll(dir)

	req := dto.RunRequest{Enterprise: r.FormValue("enterprise")}

	req.TransactionsPath, err = saveUpload(r, "transactions", dir)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transactions file", err.Error())
		return
	}
	req.InvoicesPath, err = saveUpload(r, "invoices", dir)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid invoices file", err.Error())
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result, err := h.service.Run(r.Context(), req.ToUseCaseInput())
	if err != nil {
		status := mapDomainError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error().Err(err).Str("enterprise", req.Enterprise).Msg("batch run failed")
		}
		writeError(w, status, "batch run failed", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.RunFromDomain(result))
}

// Get handles GET /api/v1/runs/{id}.
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.service.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "run not found", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.RunFromDomain(result))
}

// saveUpload copies a form file into dir. A missing optional field yields "".
func saveUpload(r *http.Request, field, dir string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", err
	}
	defer file.Close()

	return writeUpload(file, header, field, dir)
}

func writeUpload(file multipart.File, header *multipart.FileHeader, field, dir string) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedUploadExt[ext] {
		return "", fmt.Errorf("unsupported file type %q", ext)
	}

	path := filepath.Join(dir, field+ext)
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		return "", err
	}
	return path, out.Close()
}
