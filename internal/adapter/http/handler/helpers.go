package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iho/ledgerimport/internal/adapter/http/dto"
	"github.com/iho/ledgerimport/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownEnterprise):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownRule):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrArtifactNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInputMissing):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInputMalformed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRunInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
