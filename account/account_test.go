package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"banking-ledger-backend/auth"
	"banking-ledger-backend/ledger"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type stubDirectory map[string]ledger.Owner

func (d stubDirectory) FindOwner(ctx context.Context, idOrEmail string) (*ledger.Owner, error) {
	owner, ok := d[idOrEmail]
	if !ok {
		return nil, ledger.ErrRecipientNotFound
	}
	return &owner, nil
}

func newTestEnv(t *testing.T) (*Env, *ledger.MemoryStore) {
	t.Helper()

	store := ledger.NewMemoryStore()
	directory := stubDirectory{
		"alice": {ID: "alice", DisplayName: "Alice Smith"},
		"bob":   {ID: "bob", DisplayName: "Bob Jones"},
	}
	processor := ledger.NewProcessor(store, directory, zap.NewNop())

	ctx := context.Background()
	_, err := processor.ProvisionOwner(ctx, "alice", 10000, 5000, nil)
	require.NoError(t, err)
	_, err = processor.ProvisionOwner(ctx, "bob", 10000, 5000, nil)
	require.NoError(t, err)

	return &Env{Store: store, Logger: zap.NewNop()}, store
}

func do(t *testing.T, router chi.Router, ownerID, target string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.GenerateJWT(testKey, ownerID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func newRouter(env *Env) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.AuthenticationMiddleware(testKey))
	r.Get("/accounts", env.GetAccountsHandler)
	r.Get("/accounts/{id}/balance", env.GetBalanceHandler)
	r.Get("/accounts/reconcile", env.ReconcileHandler)
	return r
}

func TestGetAccountsHandler(t *testing.T) {
	env, _ := newTestEnv(t)
	rec := do(t, newRouter(env), "alice", "/accounts")
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Accounts []ledger.Account `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Accounts, 2)
	// Currency order as stored: EUR before USD.
	assert.Equal(t, "EUR", response.Accounts[0].Currency)
	assert.Equal(t, int64(5000), response.Accounts[0].BalanceCents)
	assert.Equal(t, "USD", response.Accounts[1].Currency)
	assert.Equal(t, int64(10000), response.Accounts[1].BalanceCents)
}

func TestGetBalanceHandler(t *testing.T) {
	env, store := newTestEnv(t)
	router := newRouter(env)

	account, err := store.AccountByOwnerAndCurrency(context.Background(), "alice", "USD")
	require.NoError(t, err)

	rec := do(t, router, "alice", "/accounts/"+account.ID+"/balance")
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		BalanceCents int64  `json:"balance_cents"`
		Currency     string `json:"currency"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, int64(10000), response.BalanceCents)
	assert.Equal(t, "USD", response.Currency)

	// Someone else's account reads as not found.
	rec = do(t, router, "bob", "/accounts/"+account.ID+"/balance")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, "alice", "/accounts/no-such-account/balance")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReconcileHandler(t *testing.T) {
	env, _ := newTestEnv(t)
	rec := do(t, newRouter(env), "alice", "/accounts/reconcile")
	require.Equal(t, http.StatusOK, rec.Code)

	var results []ReconciliationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 2)
	for _, result := range results {
		assert.True(t, result.IsBalanced, "account %s should reconcile", result.AccountID)
		assert.Zero(t, result.DifferenceCents)
		assert.Equal(t, result.BalanceCents, result.LedgerSumCents)
	}
}
