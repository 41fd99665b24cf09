package transactions

import (
	"encoding/json"
	"net/http"

	"banking-ledger-backend/auth"
	"banking-ledger-backend/ledger"
)

func (env *Env) TransferHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.GetUserIDFromContext(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cents, err := resolveCents(req.AmountCents, req.Amount, req.Currency)
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}

	transaction, err := env.Processor.Transfer(r.Context(), ownerID, ledger.TransferRequest{
		ToOwner:     req.ToOwner,
		Currency:    req.Currency,
		AmountCents: cents,
	})
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}

	auth.JSON(w, http.StatusCreated, transaction)
}
