package transactions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

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

func newTestEnv(t *testing.T) *Env {
	t.Helper()

	alice := ledger.Owner{ID: "alice", DisplayName: "Alice Smith"}
	bob := ledger.Owner{ID: "bob", DisplayName: "Bob Jones"}
	directory := stubDirectory{
		"alice": alice,
		"bob":   bob, "bob@example.com": bob,
	}

	store := ledger.NewMemoryStore()
	processor := ledger.NewProcessor(store, directory, zap.NewNop())

	ctx := context.Background()
	_, err := processor.ProvisionOwner(ctx, "alice", 10000, 5000, nil)
	require.NoError(t, err)
	_, err = processor.ProvisionOwner(ctx, "bob", 10000, 5000, nil)
	require.NoError(t, err)

	return &Env{
		Processor:    processor,
		Query:        ledger.NewQuery(store),
		Gate:         ledger.NewGate(store, directory, processor),
		Logger:       zap.NewNop(),
		DefaultPage:  1,
		DefaultLimit: 10,
		MaxLimit:     100,
	}
}

// do runs the handler behind the real authentication middleware with a token
// for the given owner.
func do(t *testing.T, handler http.HandlerFunc, ownerID, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	token, err := auth.GenerateJWT(testKey, ownerID)
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	auth.AuthenticationMiddleware(testKey)(handler).ServeHTTP(rec, req)
	return rec
}

func TestTransferHandler(t *testing.T) {
	env := newTestEnv(t)

	rec := do(t, env.TransferHandler, "alice", http.MethodPost, "/transactions/transfer", TransferRequest{
		ToOwner:     "bob",
		Currency:    "USD",
		AmountCents: 2500,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var transaction ledger.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &transaction))
	assert.Equal(t, ledger.KindTransfer, transaction.Kind)
	assert.Equal(t, int64(2500), transaction.AmountCents)
	assert.Equal(t, "Transfer to Bob Jones", transaction.Description)
}

func TestTransferHandlerDecimalAmount(t *testing.T) {
	env := newTestEnv(t)

	rec := do(t, env.TransferHandler, "alice", http.MethodPost, "/transactions/transfer", TransferRequest{
		ToOwner:  "bob@example.com",
		Currency: "USD",
		Amount:   "25.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var transaction ledger.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &transaction))
	assert.Equal(t, int64(2500), transaction.AmountCents)
}

func TestTransferHandlerErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		req        TransferRequest
		wantStatus int
	}{
		{name: "insufficient funds", req: TransferRequest{ToOwner: "bob", Currency: "USD", AmountCents: 99999}, wantStatus: http.StatusUnprocessableEntity},
		{name: "unknown recipient", req: TransferRequest{ToOwner: "nobody", Currency: "USD", AmountCents: 100}, wantStatus: http.StatusNotFound},
		{name: "bad currency", req: TransferRequest{ToOwner: "bob", Currency: "GBP", AmountCents: 100}, wantStatus: http.StatusBadRequest},
		{name: "zero amount", req: TransferRequest{ToOwner: "bob", Currency: "USD"}, wantStatus: http.StatusBadRequest},
		{name: "self transfer", req: TransferRequest{ToOwner: "alice", Currency: "USD", AmountCents: 100}, wantStatus: http.StatusBadRequest},
		{name: "bad decimal", req: TransferRequest{ToOwner: "bob", Currency: "USD", Amount: "lots"}, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, env.TransferHandler, "alice", http.MethodPost, "/transactions/transfer", tt.req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestExchangeHandler(t *testing.T) {
	env := newTestEnv(t)

	rec := do(t, env.ExchangeHandler, "alice", http.MethodPost, "/transactions/exchange", ExchangeRequest{
		FromCurrency: "USD",
		AmountCents:  10000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var transaction ledger.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &transaction))
	assert.Equal(t, ledger.KindExchange, transaction.Kind)
	assert.Equal(t, int64(23), transaction.RateNum)
	assert.Equal(t, int64(25), transaction.RateDenom)
}

func TestListHandler(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 12; i++ {
		rec := do(t, env.TransferHandler, "alice", http.MethodPost, "/transactions/transfer", TransferRequest{
			ToOwner: "bob", Currency: "USD", AmountCents: 1,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, env.ListHandler, "alice", http.MethodGet, "/transactions?type=transfer&page=2&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history ledger.History
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, 12, history.Total)
	assert.Equal(t, 2, history.Page)
	assert.Len(t, history.Transactions, 2)
}

func TestListHandlerClampsLimit(t *testing.T) {
	env := newTestEnv(t)

	rec := do(t, env.ListHandler, "alice", http.MethodGet, "/transactions?limit=9999", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history ledger.History
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, 100, history.Limit)
}

func TestProposeAndConfirm(t *testing.T) {
	env := newTestEnv(t)

	rec := do(t, env.ProposeHandler, "alice", http.MethodPost, "/transactions/propose", ProposeRequest{
		Kind:        ledger.KindTransfer,
		ToOwner:     "bob",
		Currency:    "USD",
		AmountCents: 4000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var preview ledger.Preview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.Equal(t, "bob", preview.ToOwnerID)
	assert.Equal(t, "40.00", preview.Amount)

	rec = do(t, env.ConfirmHandler, "alice", http.MethodPost, "/transactions/confirm", ConfirmRequest{Preview: preview})
	require.Equal(t, http.StatusCreated, rec.Code)

	var transaction ledger.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &transaction))
	assert.Equal(t, int64(4000), transaction.AmountCents)
}

func TestConfirmForeignPreviewRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := do(t, env.ProposeHandler, "alice", http.MethodPost, "/transactions/propose", ProposeRequest{
		Kind:        ledger.KindTransfer,
		ToOwner:     "bob",
		Currency:    "USD",
		AmountCents: 1000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var preview ledger.Preview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))

	rec = do(t, env.ConfirmHandler, "bob", http.MethodPost, "/transactions/confirm", ConfirmRequest{Preview: preview})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProposeUnknownKind(t *testing.T) {
	env := newTestEnv(t)

	rec := do(t, env.ProposeHandler, "alice", http.MethodPost, "/transactions/propose", ProposeRequest{
		Kind:        "withdrawal",
		AmountCents: 100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
