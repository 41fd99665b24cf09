package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banking-ledger-backend/currency"
)

func seedTransfers(t *testing.T, processor *Processor, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := processor.Transfer(context.Background(), "alice", TransferRequest{
			ToOwner:     "bob",
			Currency:    currency.USD,
			AmountCents: 1,
		})
		require.NoError(t, err)
	}
}

func TestListPagination(t *testing.T) {
	store, processor := newTestEngine(t)
	query := NewQuery(store)
	ctx := context.Background()

	seedTransfers(t, processor, 25)

	seen := make(map[string]bool)
	for page := 1; page <= 3; page++ {
		history, err := query.List(ctx, "alice", ListOptions{Kind: KindTransfer, Page: page, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 25, history.Total)
		assert.Equal(t, page, history.Page)
		assert.Equal(t, 10, history.Limit)
		if page < 3 {
			assert.Len(t, history.Transactions, 10)
		} else {
			assert.Len(t, history.Transactions, 5)
		}
		for _, transaction := range history.Transactions {
			assert.False(t, seen[transaction.ID], "transaction %s appeared on two pages", transaction.ID)
			seen[transaction.ID] = true
		}
	}
	// Every transfer appeared exactly once across the pages.
	assert.Len(t, seen, 25)
}

func TestListNewestFirst(t *testing.T) {
	store, processor := newTestEngine(t)
	query := NewQuery(store)
	ctx := context.Background()

	first, err := processor.Transfer(ctx, "alice", TransferRequest{ToOwner: "bob", Currency: currency.USD, AmountCents: 100})
	require.NoError(t, err)
	second, err := processor.Transfer(ctx, "alice", TransferRequest{ToOwner: "bob", Currency: currency.USD, AmountCents: 200})
	require.NoError(t, err)

	history, err := query.List(ctx, "alice", ListOptions{Kind: KindTransfer, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, history.Transactions, 2)
	assert.Equal(t, second.ID, history.Transactions[0].ID)
	assert.Equal(t, first.ID, history.Transactions[1].ID)
}

func TestListPastEndReturnsEmptyPage(t *testing.T) {
	store, processor := newTestEngine(t)
	query := NewQuery(store)
	ctx := context.Background()

	seedTransfers(t, processor, 3)

	history, err := query.List(ctx, "alice", ListOptions{Kind: KindTransfer, Page: 5, Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, history.Transactions)
	assert.Empty(t, history.Transactions)
	assert.Equal(t, 3, history.Total)
}

func TestListDefaultsPageAndLimit(t *testing.T) {
	store, processor := newTestEngine(t)
	query := NewQuery(store)
	ctx := context.Background()

	seedTransfers(t, processor, 12)

	history, err := query.List(ctx, "alice", ListOptions{Kind: KindTransfer, Page: 0, Limit: -4})
	require.NoError(t, err)
	assert.Equal(t, 1, history.Page)
	assert.Equal(t, 10, history.Limit)
	assert.Len(t, history.Transactions, 10)
}

func TestListKindFilter(t *testing.T) {
	store, processor := newTestEngine(t)
	query := NewQuery(store)
	ctx := context.Background()

	seedTransfers(t, processor, 2)
	_, err := processor.Exchange(ctx, "alice", ExchangeRequest{FromCurrency: currency.USD, AmountCents: 100})
	require.NoError(t, err)

	transfers, err := query.List(ctx, "alice", ListOptions{Kind: KindTransfer, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, transfers.Total)

	exchanges, err := query.List(ctx, "alice", ListOptions{Kind: KindExchange, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, exchanges.Total)

	// Unfiltered includes both, plus the two initial deposits.
	all, err := query.List(ctx, "alice", ListOptions{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, all.Total)
}

func TestListIncludesIncomingTransfers(t *testing.T) {
	store, processor := newTestEngine(t)
	query := NewQuery(store)
	ctx := context.Background()

	transaction, err := processor.Transfer(ctx, "alice", TransferRequest{ToOwner: "bob", Currency: currency.USD, AmountCents: 500})
	require.NoError(t, err)

	history, err := query.List(ctx, "bob", ListOptions{Kind: KindTransfer, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, history.Transactions, 1)
	assert.Equal(t, transaction.ID, history.Transactions[0].ID)
}

// Listing is a pure read: running it twice yields identical results.
func TestListIdempotent(t *testing.T) {
	store, processor := newTestEngine(t)
	query := NewQuery(store)
	ctx := context.Background()

	seedTransfers(t, processor, 7)

	first, err := query.List(ctx, "alice", ListOptions{Kind: KindTransfer, Page: 1, Limit: 5})
	require.NoError(t, err)
	second, err := query.List(ctx, "alice", ListOptions{Kind: KindTransfer, Page: 1, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
