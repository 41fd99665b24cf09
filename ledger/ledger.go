// Package ledger is the transaction engine: it validates, atomically
// executes, and durably records peer-to-peer transfers and currency
// exchanges, and serves the resulting transaction history. Balances change
// only through this package, and every change carries a transaction record
// plus double-entry ledger rows, so an account balance always equals the
// sum of its entries.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"banking-ledger-backend/currency"
	"banking-ledger-backend/money"
)

// --- Models ---

const (
	KindTransfer       = "transfer"
	KindExchange       = "exchange"
	KindInitialDeposit = "initial_deposit"
)

type Account struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Currency     string    `json:"currency"`
	BalanceCents int64     `json:"balance_cents"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Transaction is immutable once appended. For exchanges the rate and the
// truncated residual are stored as structured fields so a receipt can
// reproduce the conversion without parsing the description.
type Transaction struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	FromOwnerID string  `json:"from_owner_id"`
	ToOwnerID   *string `json:"to_owner_id,omitempty"`
	Currency    string  `json:"currency"`
	AmountCents int64   `json:"amount_cents"`

	RateNum     int64 `json:"rate_num,omitempty"`
	RateDenom   int64 `json:"rate_denom,omitempty"`
	ResidualNum int64 `json:"residual_num,omitempty"`

	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Entry is one side of a double-entry record: negative for the debited
// account, positive for the credited one.
type Entry struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	AccountID     string    `json:"account_id"`
	Currency      string    `json:"currency"`
	AmountCents   int64     `json:"amount_cents"`
	CreatedAt     time.Time `json:"created_at"`
}

// --- Errors ---

// Domain errors are deterministic and caller-correctable; the engine never
// retries them. ErrStorage is the one infrastructure category and must stay
// distinguishable from every domain rejection, since only a storage failure
// is safe to retry blindly.
var (
	ErrInvalidAmount     = money.ErrInvalidAmount
	ErrInvalidCurrency   = currency.ErrUnsupported
	ErrAccountNotFound   = errors.New("account not found")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSelfTransfer      = errors.New("cannot transfer to self")
	ErrPreviewMismatch   = errors.New("preview no longer matches current state")
	ErrStorage           = errors.New("storage unavailable")
)

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

// --- Store contract ---

// Store is the durable state behind the engine: account balances plus the
// append-only transaction log. Reads see committed state only; every
// mutation goes through Begin.
type Store interface {
	AccountByID(ctx context.Context, id string) (*Account, error)
	AccountByOwnerAndCurrency(ctx context.Context, ownerID, code string) (*Account, error)
	AccountsByOwner(ctx context.Context, ownerID string) ([]Account, error)

	// EntrySumCents folds all ledger entries of an account; used to audit
	// that the balance equals its history.
	EntrySumCents(ctx context.Context, accountID string) (int64, error)

	// Transactions returns one newest-first page of the owner's log,
	// filtered by kind when kind is non-empty, plus the filtered total.
	// The page is taken from a single snapshot of the ordered sequence.
	Transactions(ctx context.Context, ownerID, kind string, page, limit int) ([]Transaction, int, error)

	Begin(ctx context.Context) (Tx, error)
}

// Tx is one atomic unit of work. The debit, the credit, and the appended
// records become visible together at Commit or not at all, and no
// concurrent unit may observe a debited-but-not-credited state in between.
type Tx interface {
	CreateAccount(ctx context.Context, a *Account) error

	// LockAccounts takes the balance locks for the given accounts in one
	// deterministic order, so two units touching the same pair of accounts
	// from opposite directions cannot deadlock.
	LockAccounts(ctx context.Context, accountIDs ...string) error

	// Debit decreases the account balance, failing with
	// ErrInsufficientFunds before any change when the balance is short.
	Debit(ctx context.Context, accountID string, amountCents int64) error
	Credit(ctx context.Context, accountID string, amountCents int64) error

	// AppendTransaction assigns the id and creation time if absent and
	// stages the immutable record.
	AppendTransaction(ctx context.Context, t *Transaction) error
	AppendEntry(ctx context.Context, e *Entry) error

	Commit() error
	Rollback() error
}

// Directory resolves transfer recipients to owner identities. Identity is
// owned outside the engine; the engine only ever sees opaque owner ids.
type Directory interface {
	// FindOwner accepts an owner id, or an email when the value contains
	// an "@".
	FindOwner(ctx context.Context, idOrEmail string) (*Owner, error)
}

type Owner struct {
	ID          string
	DisplayName string
}
