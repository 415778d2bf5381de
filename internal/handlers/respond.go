package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/dukapay/dukapay-gobackend/internal/apperrors"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func respondSuccess(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

func respondInternal(w http.ResponseWriter, err error) {
	respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"success": false,
		"error":   "Internal Server Error",
		"details": err.Error(),
	})
}

// respondServiceError maps the apperrors taxonomy onto HTTP status codes.
// Validation and provider declines are the caller's problem (400), missing
// documents are 404, everything else is an internal error.
func respondServiceError(w http.ResponseWriter, err error) {
	var (
		validationErr *apperrors.ValidationError
		notFoundErr   *apperrors.NotFoundError
		gatewayErr    *apperrors.GatewayError
	)
	switch {
	case errors.As(err, &validationErr):
		respondError(w, http.StatusBadRequest, validationErr.Msg)
	case errors.As(err, &notFoundErr):
		respondError(w, http.StatusNotFound, notFoundErr.Msg)
	case errors.As(err, &gatewayErr):
		respondError(w, http.StatusBadRequest, gatewayErr.Msg)
	default:
		log.Printf("Unexpected error: %v", err)
		respondInternal(w, err)
	}
}
