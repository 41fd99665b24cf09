package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"banking-ledger-backend/auth"
	"banking-ledger-backend/ledger"
)

// --- Models ---

// ReconciliationResult compares an account balance against the fold of its
// ledger entries. The two must always agree; a difference means a balance
// changed without the transaction that explains it.
type ReconciliationResult struct {
	AccountID       string `json:"account_id"`
	Currency        string `json:"currency"`
	BalanceCents    int64  `json:"balance_cents"`
	LedgerSumCents  int64  `json:"ledger_sum_cents"`
	DifferenceCents int64  `json:"difference_cents"`
	IsBalanced      bool   `json:"is_balanced"`
}

// --- Handlers ---

type Env struct {
	Store  ledger.Store
	Logger *zap.Logger
}

func (env *Env) GetAccountsHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.GetUserIDFromContext(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accounts, err := env.Store.AccountsByOwner(r.Context(), ownerID)
	if err != nil {
		env.Logger.Error("could not get accounts", zap.Error(err), zap.String("ownerID", ownerID))
		auth.RespondWithDomainError(w, err)
		return
	}
	if accounts == nil {
		accounts = []ledger.Account{}
	}

	auth.JSON(w, http.StatusOK, map[string]interface{}{"accounts": accounts})
}

func (env *Env) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.GetUserIDFromContext(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accountID := chi.URLParam(r, "id")
	account, err := env.Store.AccountByID(r.Context(), accountID)
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}
	if account.OwnerID != ownerID {
		// Do not reveal that the account exists.
		env.Logger.Warn("account access denied", zap.String("ownerID", ownerID), zap.String("accountID", accountID))
		auth.RespondWithDomainError(w, ledger.ErrAccountNotFound)
		return
	}

	auth.JSON(w, http.StatusOK, map[string]interface{}{
		"balance_cents": account.BalanceCents,
		"currency":      account.Currency,
	})
}

func (env *Env) ReconcileHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.GetUserIDFromContext(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accounts, err := env.Store.AccountsByOwner(r.Context(), ownerID)
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}

	results := make([]ReconciliationResult, 0, len(accounts))
	for _, account := range accounts {
		sumCents, err := env.Store.EntrySumCents(r.Context(), account.ID)
		if err != nil {
			auth.RespondWithDomainError(w, err)
			return
		}

		difference := account.BalanceCents - sumCents
		if difference != 0 {
			env.Logger.Warn("balance mismatch detected",
				zap.String("accountID", account.ID),
				zap.String("currency", account.Currency),
				zap.Int64("balanceCents", account.BalanceCents),
				zap.Int64("ledgerSumCents", sumCents))
		}

		results = append(results, ReconciliationResult{
			AccountID:       account.ID,
			Currency:        account.Currency,
			BalanceCents:    account.BalanceCents,
			LedgerSumCents:  sumCents,
			DifferenceCents: difference,
			IsBalanced:      difference == 0,
		})
	}

	auth.JSON(w, http.StatusOK, results)
}
