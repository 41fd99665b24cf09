package transactions

import (
	"encoding/json"
	"net/http"

	"banking-ledger-backend/auth"
	"banking-ledger-backend/ledger"
)

func (env *Env) ExchangeHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.GetUserIDFromContext(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cents, err := resolveCents(req.AmountCents, req.Amount, req.FromCurrency)
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}

	transaction, err := env.Processor.Exchange(r.Context(), ownerID, ledger.ExchangeRequest{
		FromCurrency: req.FromCurrency,
		AmountCents:  cents,
	})
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}

	auth.JSON(w, http.StatusCreated, transaction)
}
