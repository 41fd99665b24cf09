package transactions

import (
	"net/http"
	"strconv"

	"banking-ledger-backend/auth"
	"banking-ledger-backend/ledger"
)

func (env *Env) ListHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.GetUserIDFromContext(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = env.DefaultPage
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = env.DefaultLimit
	}
	if limit > env.MaxLimit {
		limit = env.MaxLimit
	}

	history, err := env.Query.List(r.Context(), ownerID, ledger.ListOptions{
		Kind:  r.URL.Query().Get("type"),
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}

	auth.JSON(w, http.StatusOK, history)
}
