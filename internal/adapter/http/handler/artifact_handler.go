package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iho/ledgerimport/internal/domain"
)

// ArtifactService opens stored output files.
type ArtifactService interface {
	OpenArtifact(ctx context.Context, id string) (*domain.Artifact, []byte, error)
}

// ArtifactHandler serves artifact downloads.
type ArtifactHandler struct {
	service ArtifactService
}

// NewArtifactHandler creates a new ArtifactHandler.
func NewArtifactHandler(service ArtifactService) *ArtifactHandler {
	return &ArtifactHandler{service: service}
}

// Download handles GET /api/v1/artifacts/{id}.
func (h *ArtifactHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	artifact, content, err := h.service.OpenArtifact(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "artifact not found", err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType(artifact.Kind))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

func contentType(kind domain.ArtifactKind) string {
	if kind == domain.ArtifactExceptions {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/plain; charset=utf-8"
}
