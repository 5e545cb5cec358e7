package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/ledgerimport/internal/adapter/http/dto"
	"github.com/iho/ledgerimport/internal/domain"
)

// CatalogProvider exposes the loaded rule catalog.
type CatalogProvider interface {
	Catalog() *domain.Catalog
}

// EnterpriseHandler lists enterprises and their rule modules.
type EnterpriseHandler struct {
	provider CatalogProvider
}

// NewEnterpriseHandler creates a new EnterpriseHandler.
func NewEnterpriseHandler(provider CatalogProvider) *EnterpriseHandler {
	return &EnterpriseHandler{provider: provider}
}

// List handles GET /api/v1/enterprises.
func (h *EnterpriseHandler) List(w http.ResponseWriter, r *http.Request) {
	catalog := h.provider.Catalog()
	writeJSON(w, http.StatusOK, map[string]any{
		"catalog_version": catalog.Version,
		"enterprises":     dto.EnterprisesFromDomain(catalog.Enterprises()),
	})
}

// Get handles GET /api/v1/enterprises/{id}.
func (h *EnterpriseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	enterprise, err := h.provider.Catalog().Enterprise(id)
	if err != nil {
		writeError(w, mapDomainError(err), "enterprise not found", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EnterpriseFromDomain(enterprise))
}
