package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"banking-ledger-backend/ledger"
)

// --- Error Handling ---

type ErrorResponse struct {
	Error string `json:"error"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	response := ErrorResponse{Error: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		return
	}
}

func JSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		return
	}
}

// RespondWithDomainError maps an engine error to its HTTP status. Domain
// rejections keep their message; storage failures and anything unknown stay
// opaque to the client.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidCurrency),
		errors.Is(err, ledger.ErrSelfTransfer):
		RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrPreviewMismatch):
		RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrRecipientNotFound):
		RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ledger.ErrStorage):
		RespondWithError(w, http.StatusServiceUnavailable, "Storage unavailable, please retry")
	default:
		RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
