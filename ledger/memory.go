package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"banking-ledger-backend/currency"
)

// --- In-memory store ---

// MemoryStore keeps the whole ledger in process memory. Every unit of work
// holds one mutex from Begin to Commit or Rollback, serializing the whole
// ledger; that closes the check-then-act race on balances without per-
// account locks. Mutations are staged and only applied at Commit, so a
// failed unit leaves nothing behind.
type MemoryStore struct {
	mu           sync.Mutex
	accounts     map[string]*Account // by account id
	transactions []Transaction       // append order == creation order
	entries      []Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*Account)}
}

func (s *MemoryStore) AccountByID(ctx context.Context, id string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *MemoryStore) AccountByOwnerAndCurrency(ctx context.Context, ownerID, code string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if account.OwnerID == ownerID && account.Currency == code {
			copied := *account
			return &copied, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (s *MemoryStore) AccountsByOwner(ctx context.Context, ownerID string) ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var accounts []Account
	// Currency order, matching the SQL store's ORDER BY currency.
	for _, code := range []string{currency.EUR, currency.USD} {
		for _, account := range s.accounts {
			if account.OwnerID == ownerID && account.Currency == code {
				accounts = append(accounts, *account)
			}
		}
	}
	return accounts, nil
}

func (s *MemoryStore) EntrySumCents(ctx context.Context, accountID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, entry := range s.entries {
		if entry.AccountID == accountID {
			sum += entry.AmountCents
		}
	}
	return sum, nil
}

func (s *MemoryStore) Transactions(ctx context.Context, ownerID, kind string, page, limit int) ([]Transaction, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Snapshot the filtered sequence newest-first once; the page is sliced
	// from that snapshot, so concurrent appends cannot duplicate or skip
	// items within this request.
	var filtered []Transaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		t := s.transactions[i]
		if t.FromOwnerID != ownerID && (t.ToOwnerID == nil || *t.ToOwnerID != ownerID) {
			continue
		}
		if kind != "" && t.Kind != kind {
			continue
		}
		filtered = append(filtered, t)
	}

	total := len(filtered)
	start := (page - 1) * limit
	if start >= total {
		return []Transaction{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	pageItems := make([]Transaction, end-start)
	copy(pageItems, filtered[start:end])
	return pageItems, total, nil
}

func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	s.mu.Lock()
	return &memoryTx{store: s}, nil
}

// memoryTx stages every mutation and applies the batch at Commit while
// still holding the store lock taken at Begin.
type memoryTx struct {
	store *MemoryStore
	done  bool

	newAccounts     []*Account
	balanceDeltas   map[string]int64
	newTransactions []*Transaction
	newEntries      []*Entry
}

func (tx *memoryTx) effectiveBalance(accountID string) (int64, bool) {
	account, ok := tx.store.accounts[accountID]
	if ok {
		return account.BalanceCents + tx.balanceDeltas[accountID], true
	}
	for _, staged := range tx.newAccounts {
		if staged.ID == accountID {
			return staged.BalanceCents + tx.balanceDeltas[accountID], true
		}
	}
	return 0, false
}

func (tx *memoryTx) CreateAccount(ctx context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	for _, existing := range tx.store.accounts {
		if existing.OwnerID == a.OwnerID && existing.Currency == a.Currency {
			return fmt.Errorf("%w: account already exists for owner %s in %s", ErrStorage, a.OwnerID, a.Currency)
		}
	}
	staged := *a
	tx.newAccounts = append(tx.newAccounts, &staged)
	return nil
}

// LockAccounts is a no-op: the store mutex held from Begin already
// serializes every unit of work.
func (tx *memoryTx) LockAccounts(ctx context.Context, accountIDs ...string) error {
	return nil
}

func (tx *memoryTx) Debit(ctx context.Context, accountID string, amountCents int64) error {
	balance, ok := tx.effectiveBalance(accountID)
	if !ok {
		return ErrAccountNotFound
	}
	if balance < amountCents {
		return ErrInsufficientFunds
	}
	if tx.balanceDeltas == nil {
		tx.balanceDeltas = make(map[string]int64)
	}
	tx.balanceDeltas[accountID] -= amountCents
	return nil
}

func (tx *memoryTx) Credit(ctx context.Context, accountID string, amountCents int64) error {
	if _, ok := tx.effectiveBalance(accountID); !ok {
		return ErrAccountNotFound
	}
	if tx.balanceDeltas == nil {
		tx.balanceDeltas = make(map[string]int64)
	}
	tx.balanceDeltas[accountID] += amountCents
	return nil
}

func (tx *memoryTx) AppendTransaction(ctx context.Context, t *Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	tx.newTransactions = append(tx.newTransactions, t)
	return nil
}

func (tx *memoryTx) AppendEntry(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	tx.newEntries = append(tx.newEntries, e)
	return nil
}

func (tx *memoryTx) Commit() error {
	if tx.done {
		return fmt.Errorf("%w: transaction already finished", ErrStorage)
	}
	tx.done = true

	now := time.Now().UTC()
	for _, account := range tx.newAccounts {
		tx.store.accounts[account.ID] = account
	}
	for accountID, delta := range tx.balanceDeltas {
		account := tx.store.accounts[accountID]
		account.BalanceCents += delta
		account.UpdatedAt = now
	}
	for _, t := range tx.newTransactions {
		tx.store.transactions = append(tx.store.transactions, *t)
	}
	for _, e := range tx.newEntries {
		tx.store.entries = append(tx.store.entries, *e)
	}

	tx.store.mu.Unlock()
	return nil
}

func (tx *memoryTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.store.mu.Unlock()
	return nil
}
