package transactions

import (
	"encoding/json"
	"net/http"

	"banking-ledger-backend/auth"
	"banking-ledger-backend/ledger"
)

// ProposeHandler computes a preview of a transfer or exchange without
// mutating anything. The client shows it for explicit confirmation and
// echoes it back to ConfirmHandler; dropping it commits nothing.
func (env *Env) ProposeHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.GetUserIDFromContext(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ProposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var preview *ledger.Preview
	switch req.Kind {
	case ledger.KindTransfer:
		cents, err := resolveCents(req.AmountCents, req.Amount, req.Currency)
		if err != nil {
			auth.RespondWithDomainError(w, err)
			return
		}
		preview, err = env.Gate.ProposeTransfer(r.Context(), ownerID, ledger.TransferRequest{
			ToOwner:     req.ToOwner,
			Currency:    req.Currency,
			AmountCents: cents,
		})
		if err != nil {
			auth.RespondWithDomainError(w, err)
			return
		}
	case ledger.KindExchange:
		cents, err := resolveCents(req.AmountCents, req.Amount, req.FromCurrency)
		if err != nil {
			auth.RespondWithDomainError(w, err)
			return
		}
		preview, err = env.Gate.ProposeExchange(r.Context(), ownerID, ledger.ExchangeRequest{
			FromCurrency: req.FromCurrency,
			AmountCents:  cents,
		})
		if err != nil {
			auth.RespondWithDomainError(w, err)
			return
		}
	default:
		auth.RespondWithError(w, http.StatusBadRequest, "kind must be transfer or exchange")
		return
	}

	auth.JSON(w, http.StatusOK, preview)
}

func (env *Env) ConfirmHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.GetUserIDFromContext(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	transaction, err := env.Gate.Confirm(r.Context(), ownerID, req.Preview)
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}

	auth.JSON(w, http.StatusCreated, transaction)
}
