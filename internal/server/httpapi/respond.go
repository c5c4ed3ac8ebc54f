package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/copypaster/server/internal/shared"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondError maps the service sentinel errors onto HTTP statuses. Internal
// details never leak to the client.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrorUnauthorized),
		errors.Is(err, shared.ErrorInvalidToken),
		errors.Is(err, shared.ErrorTokenExpired):
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, shared.ErrorNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, shared.ErrorValidation),
		errors.Is(err, shared.ErrorIncorrectPassword),
		errors.Is(err, shared.ErrorBotCheckFailed),
		errors.Is(err, shared.ErrorAlreadyExists),
		errors.Is(err, shared.ErrorVerificationFailed),
		errors.Is(err, shared.ErrorEmailNotVerified):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
