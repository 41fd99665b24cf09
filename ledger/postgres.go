package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// --- Postgres store ---

type DB struct {
	*sql.DB
}

func NewDB(db *sql.DB) *DB {
	return &DB{db}
}

// EnsureSchema creates the ledger tables when they do not exist yet. Safe to
// run on every startup.
func (db *DB) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			currency TEXT NOT NULL,
			balance_cents BIGINT NOT NULL DEFAULT 0 CHECK (balance_cents >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (owner_id, currency)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			from_owner_id TEXT NOT NULL,
			to_owner_id TEXT,
			currency TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			rate_num BIGINT NOT NULL DEFAULT 0,
			rate_denom BIGINT NOT NULL DEFAULT 0,
			residual_num BIGINT NOT NULL DEFAULT 0,
			description TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id TEXT PRIMARY KEY,
			transaction_id TEXT NOT NULL REFERENCES transactions(id),
			account_id TEXT NOT NULL REFERENCES accounts(id),
			currency TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_owner ON transactions (from_owner_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_entries_account ON ledger_entries (account_id)`,
	}
	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("could not ensure ledger schema: %w", storageErr(err))
		}
	}
	return nil
}

func (db *DB) AccountByID(ctx context.Context, id string) (*Account, error) {
	account := &Account{}
	query := `SELECT id, owner_id, currency, balance_cents, created_at, updated_at
			  FROM accounts WHERE id = $1`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&account.ID, &account.OwnerID, &account.Currency, &account.BalanceCents, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("could not get account by id: %w", storageErr(err))
	}
	return account, nil
}

func (db *DB) AccountByOwnerAndCurrency(ctx context.Context, ownerID, code string) (*Account, error) {
	account := &Account{}
	query := `SELECT id, owner_id, currency, balance_cents, created_at, updated_at
			  FROM accounts WHERE owner_id = $1 AND currency = $2`
	err := db.QueryRowContext(ctx, query, ownerID, code).Scan(
		&account.ID, &account.OwnerID, &account.Currency, &account.BalanceCents, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("could not get account by owner and currency: %w", storageErr(err))
	}
	return account, nil
}

func (db *DB) AccountsByOwner(ctx context.Context, ownerID string) ([]Account, error) {
	query := `SELECT id, owner_id, currency, balance_cents, created_at, updated_at
			  FROM accounts WHERE owner_id = $1 ORDER BY currency`
	rows, err := db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("could not get accounts by owner: %w", storageErr(err))
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var account Account
		err := rows.Scan(&account.ID, &account.OwnerID, &account.Currency, &account.BalanceCents, &account.CreatedAt, &account.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("could not scan account: %w", storageErr(err))
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", storageErr(err))
	}
	return accounts, nil
}

func (db *DB) EntrySumCents(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM ledger_entries WHERE account_id = $1`
	if err := db.QueryRowContext(ctx, query, accountID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("could not sum ledger entries: %w", storageErr(err))
	}
	return sum, nil
}

func (db *DB) Transactions(ctx context.Context, ownerID, kind string, page, limit int) ([]Transaction, int, error) {
	baseQuery := `SELECT id, kind, from_owner_id, to_owner_id, currency, amount_cents,
				  rate_num, rate_denom, residual_num, description, created_at
				  FROM transactions WHERE (from_owner_id = $1 OR to_owner_id = $1)`
	countQuery := `SELECT COUNT(*) FROM transactions WHERE (from_owner_id = $1 OR to_owner_id = $1)`

	args := []interface{}{ownerID}
	if kind != "" {
		baseQuery += " AND kind = $2"
		countQuery += " AND kind = $2"
		args = append(args, kind)
	}

	var total int
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("could not count transactions: %w", storageErr(err))
	}

	// Secondary order on id keeps pages stable when timestamps collide.
	baseQuery += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("could not get transactions: %w", storageErr(err))
	}
	defer rows.Close()

	transactions := []Transaction{}
	for rows.Next() {
		var t Transaction
		err := rows.Scan(&t.ID, &t.Kind, &t.FromOwnerID, &t.ToOwnerID, &t.Currency, &t.AmountCents,
			&t.RateNum, &t.RateDenom, &t.ResidualNum, &t.Description, &t.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("could not scan transaction: %w", storageErr(err))
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating transactions: %w", storageErr(err))
	}
	return transactions, total, nil
}

func (db *DB) Begin(ctx context.Context) (Tx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", storageErr(err))
	}
	return &postgresTx{tx: tx}, nil
}

// postgresTx serializes concurrent units touching the same accounts through
// SELECT ... FOR UPDATE row locks, held until Commit or Rollback.
type postgresTx struct {
	tx *sql.Tx
}

func (p *postgresTx) CreateAccount(ctx context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	query := `INSERT INTO accounts (id, owner_id, currency, balance_cents)
			  VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`
	err := p.tx.QueryRowContext(ctx, query, a.ID, a.OwnerID, a.Currency, a.BalanceCents).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("could not create account: %w", storageErr(err))
	}
	return nil
}

// SQL exposes the transaction backing this unit of work so writes to
// adjacent tables in the same database can be enlisted in it.
func (p *postgresTx) SQL() *sql.Tx {
	return p.tx
}

// LockAccounts takes all row locks up front, sorted by id. Debit and Credit
// lock on demand, so without this two units touching the same pair of
// accounts from opposite directions could acquire the locks in opposite
// order and deadlock.
func (p *postgresTx) LockAccounts(ctx context.Context, accountIDs ...string) error {
	ids := append([]string(nil), accountIDs...)
	sort.Strings(ids)
	deduped := make([]string, 0, len(ids))
	for i, id := range ids {
		if i == 0 || id != ids[i-1] {
			deduped = append(deduped, id)
		}
	}

	query := `SELECT id FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	rows, err := p.tx.QueryContext(ctx, query, pq.Array(deduped))
	if err != nil {
		return fmt.Errorf("could not lock accounts: %w", storageErr(err))
	}
	defer rows.Close()

	locked := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("could not scan locked account: %w", storageErr(err))
		}
		locked++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error locking accounts: %w", storageErr(err))
	}
	if locked != len(deduped) {
		return ErrAccountNotFound
	}
	return nil
}

func (p *postgresTx) lockBalance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	query := `SELECT balance_cents FROM accounts WHERE id = $1 FOR UPDATE`
	err := p.tx.QueryRowContext(ctx, query, accountID).Scan(&balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("could not lock account balance: %w", storageErr(err))
	}
	return balance, nil
}

func (p *postgresTx) Debit(ctx context.Context, accountID string, amountCents int64) error {
	balance, err := p.lockBalance(ctx, accountID)
	if err != nil {
		return err
	}
	if balance < amountCents {
		return ErrInsufficientFunds
	}
	return p.addToBalance(ctx, accountID, -amountCents)
}

func (p *postgresTx) Credit(ctx context.Context, accountID string, amountCents int64) error {
	if _, err := p.lockBalance(ctx, accountID); err != nil {
		return err
	}
	return p.addToBalance(ctx, accountID, amountCents)
}

func (p *postgresTx) addToBalance(ctx context.Context, accountID string, deltaCents int64) error {
	query := `UPDATE accounts SET balance_cents = balance_cents + $1, updated_at = NOW() WHERE id = $2`
	result, err := p.tx.ExecContext(ctx, query, deltaCents, accountID)
	if err != nil {
		return fmt.Errorf("could not update account balance: %w", storageErr(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not read update result: %w", storageErr(err))
	}
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (p *postgresTx) AppendTransaction(ctx context.Context, t *Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	query := `INSERT INTO transactions (id, kind, from_owner_id, to_owner_id, currency, amount_cents,
			  rate_num, rate_denom, residual_num, description)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING created_at`
	err := p.tx.QueryRowContext(ctx, query, t.ID, t.Kind, t.FromOwnerID, t.ToOwnerID, t.Currency,
		t.AmountCents, t.RateNum, t.RateDenom, t.ResidualNum, t.Description).
		Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not append transaction: %w", storageErr(err))
	}
	return nil
}

func (p *postgresTx) AppendEntry(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	query := `INSERT INTO ledger_entries (id, transaction_id, account_id, currency, amount_cents)
			  VALUES ($1, $2, $3, $4, $5) RETURNING created_at`
	err := p.tx.QueryRowContext(ctx, query, e.ID, e.TransactionID, e.AccountID, e.Currency, e.AmountCents).
		Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not append ledger entry: %w", storageErr(err))
	}
	return nil
}

func (p *postgresTx) Commit() error {
	if err := p.tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", storageErr(err))
	}
	return nil
}

func (p *postgresTx) Rollback() error {
	err := p.tx.Rollback()
	if err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("could not roll back transaction: %w", storageErr(err))
	}
	return nil
}
