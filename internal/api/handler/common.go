package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, &domain.APIError{
		Code:    status,
		Message: message,
	})
}

// respondErrorDetails writes a JSON error response carrying details.
func respondErrorDetails(w http.ResponseWriter, status int, message, details string) {
	respondJSON(w, status, &domain.APIError{
		Code:    status,
		Message: message,
		Details: details,
	})
}

// handleError converts domain errors to HTTP errors.
func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		respondErrorDetails(w, http.StatusBadRequest, "invalid input", err.Error())
	case errors.Is(err, domain.ErrSyncInProgress):
		respondError(w, http.StatusConflict, "sync already in progress")
	case errors.Is(err, domain.ErrSourceFetch), errors.Is(err, domain.ErrSchema):
		respondError(w, http.StatusBadGateway, "source unavailable")
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pagination reads limit and offset query parameters. Malformed values are
// domain.ErrInvalidInput.
func pagination(r *http.Request, defaultLimit int) (limit, offset int, err error) {
	limit = defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			return 0, 0, fmt.Errorf("%w: limit must be a positive integer, got %q", domain.ErrInvalidInput, l)
		}
		limit = parsed
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			return 0, 0, fmt.Errorf("%w: offset must be a non-negative integer, got %q", domain.ErrInvalidInput, o)
		}
		offset = parsed
	}
	return limit, offset, nil
}
