package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"banking-ledger-backend/currency"
	"banking-ledger-backend/money"
)

// MinExchangeCents guards rate granularity: below 10 cents the 23/25 rate
// truncates a visible share of the amount.
const MinExchangeCents int64 = 10

// Processor validates and atomically applies transfers and exchanges. Each
// committed movement appends exactly one transaction record and one ledger
// entry per touched account, inside the same unit of work as the balance
// change.
type Processor struct {
	store     Store
	directory Directory
	logger    *zap.Logger
}

func NewProcessor(store Store, directory Directory, logger *zap.Logger) *Processor {
	return &Processor{store: store, directory: directory, logger: logger}
}

type TransferRequest struct {
	ToOwner     string // owner id, or email
	Currency    string
	AmountCents int64
}

type ExchangeRequest struct {
	FromCurrency string
	AmountCents  int64
}

// Transfer moves AmountCents between two owners in one currency. The debit
// and credit are amount-equal and committed together, so the total across
// all accounts in that currency is unchanged.
func (p *Processor) Transfer(ctx context.Context, fromOwnerID string, req TransferRequest) (*Transaction, error) {
	if req.ToOwner == fromOwnerID {
		return nil, ErrSelfTransfer
	}
	if req.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if !currency.Supported(req.Currency) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCurrency, req.Currency)
	}

	to, err := p.directory.FindOwner(ctx, req.ToOwner)
	if err != nil || to == nil {
		return nil, ErrRecipientNotFound
	}
	if to.ID == fromOwnerID {
		return nil, ErrSelfTransfer
	}

	fromAccount, err := p.store.AccountByOwnerAndCurrency(ctx, fromOwnerID, req.Currency)
	if err != nil {
		return nil, err
	}
	toAccount, err := p.store.AccountByOwnerAndCurrency(ctx, to.ID, req.Currency)
	if err != nil {
		// The recipient exists but holds no account in this currency.
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}

	tx, err := p.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := tx.LockAccounts(ctx, fromAccount.ID, toAccount.ID); err != nil {
		return nil, err
	}
	if err := tx.Debit(ctx, fromAccount.ID, req.AmountCents); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			p.logger.Warn("insufficient funds",
				zap.String("ownerID", fromOwnerID),
				zap.Int64("requiredCents", req.AmountCents))
		}
		return nil, err
	}
	if err := tx.Credit(ctx, toAccount.ID, req.AmountCents); err != nil {
		return nil, err
	}

	transaction := &Transaction{
		Kind:        KindTransfer,
		FromOwnerID: fromOwnerID,
		ToOwnerID:   &to.ID,
		Currency:    req.Currency,
		AmountCents: req.AmountCents,
		Description: fmt.Sprintf("Transfer to %s", to.DisplayName),
	}
	if err := tx.AppendTransaction(ctx, transaction); err != nil {
		return nil, err
	}
	if err := p.appendPair(ctx, tx, transaction, fromAccount.ID, toAccount.ID, req.AmountCents, req.AmountCents, req.Currency, req.Currency); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		p.logger.Error("failed to commit transfer", zap.Error(err))
		return nil, err
	}

	p.logger.Info("transfer completed",
		zap.String("transactionID", transaction.ID),
		zap.String("from", fromOwnerID),
		zap.String("to", to.ID),
		zap.Int64("amountCents", req.AmountCents))
	return transaction, nil
}

// Exchange converts AmountCents of the owner's FromCurrency balance into
// the counterpart currency at the fixed rate. The conversion truncates and
// both the rate and the discarded residual are recorded on the transaction.
func (p *Processor) Exchange(ctx context.Context, ownerID string, req ExchangeRequest) (*Transaction, error) {
	if req.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.AmountCents < MinExchangeCents {
		return nil, fmt.Errorf("%w: minimum exchange amount is %d cents", ErrInvalidAmount, MinExchangeCents)
	}

	toCurrency, err := currency.Other(req.FromCurrency)
	if err != nil {
		return nil, err
	}
	rate, err := currency.GetRate(req.FromCurrency, toCurrency)
	if err != nil {
		return nil, err
	}
	converted, residual, err := money.Convert(money.New(req.AmountCents, req.FromCurrency), rate, toCurrency)
	if err != nil {
		return nil, err
	}

	fromAccount, err := p.store.AccountByOwnerAndCurrency(ctx, ownerID, req.FromCurrency)
	if err != nil {
		return nil, err
	}
	toAccount, err := p.store.AccountByOwnerAndCurrency(ctx, ownerID, toCurrency)
	if err != nil {
		return nil, err
	}

	tx, err := p.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := tx.LockAccounts(ctx, fromAccount.ID, toAccount.ID); err != nil {
		return nil, err
	}
	if err := tx.Debit(ctx, fromAccount.ID, req.AmountCents); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			p.logger.Warn("insufficient funds for exchange",
				zap.String("ownerID", ownerID),
				zap.Int64("requiredCents", req.AmountCents))
		}
		return nil, err
	}
	if err := tx.Credit(ctx, toAccount.ID, converted.Cents); err != nil {
		return nil, err
	}

	transaction := &Transaction{
		Kind:        KindExchange,
		FromOwnerID: ownerID,
		ToOwnerID:   &ownerID,
		Currency:    req.FromCurrency,
		AmountCents: req.AmountCents,
		RateNum:     rate.Num,
		RateDenom:   rate.Denom,
		ResidualNum: residual,
		Description: fmt.Sprintf("Exchange %d cents %s to %d cents %s (rate: %d/%d)",
			req.AmountCents, req.FromCurrency, converted.Cents, toCurrency, rate.Num, rate.Denom),
	}
	if err := tx.AppendTransaction(ctx, transaction); err != nil {
		return nil, err
	}
	if err := p.appendPair(ctx, tx, transaction, fromAccount.ID, toAccount.ID, req.AmountCents, converted.Cents, req.FromCurrency, toCurrency); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		p.logger.Error("failed to commit exchange", zap.Error(err))
		return nil, err
	}

	if residual > 0 {
		p.logger.Debug("exchange residual captured as spread",
			zap.String("transactionID", transaction.ID),
			zap.String("residual", fmt.Sprintf("%d/%d %s", residual, rate.Denom, toCurrency)))
	}
	p.logger.Info("exchange completed",
		zap.String("transactionID", transaction.ID),
		zap.String("from", req.FromCurrency),
		zap.String("to", toCurrency),
		zap.Int64("amountCents", req.AmountCents),
		zap.Int64("convertedCents", converted.Cents))
	return transaction, nil
}

// SetupFunc runs caller writes inside a provisioning unit of work, before
// any account is created. A non-nil error aborts the whole unit.
type SetupFunc func(ctx context.Context, tx Tx) error

// ProvisionOwner creates the owner's USD and EUR accounts with the given
// starting balances, recording any non-zero balance as an initial_deposit
// transaction with a matching ledger entry so the books start balanced.
// When setup is non-nil it runs first in the same unit of work, so the
// owner's own record can commit or roll back together with the accounts.
func (p *Processor) ProvisionOwner(ctx context.Context, ownerID string, initialUSDCents, initialEURCents int64, setup SetupFunc) ([]Account, error) {
	tx, err := p.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if setup != nil {
		if err := setup(ctx, tx); err != nil {
			return nil, err
		}
	}

	seeds := []struct {
		code  string
		cents int64
	}{
		{currency.USD, initialUSDCents},
		{currency.EUR, initialEURCents},
	}

	accounts := make([]Account, 0, len(seeds))
	for _, seed := range seeds {
		account := &Account{OwnerID: ownerID, Currency: seed.code, BalanceCents: seed.cents}
		if err := tx.CreateAccount(ctx, account); err != nil {
			return nil, err
		}

		if seed.cents > 0 {
			deposit := &Transaction{
				Kind:        KindInitialDeposit,
				FromOwnerID: ownerID,
				Currency:    seed.code,
				AmountCents: seed.cents,
				Description: "Initial deposit",
			}
			if err := tx.AppendTransaction(ctx, deposit); err != nil {
				return nil, err
			}
			entry := &Entry{
				TransactionID: deposit.ID,
				AccountID:     account.ID,
				Currency:      seed.code,
				AmountCents:   seed.cents,
			}
			if err := tx.AppendEntry(ctx, entry); err != nil {
				return nil, err
			}
		}
		accounts = append(accounts, *account)
	}

	if err := tx.Commit(); err != nil {
		p.logger.Error("failed to commit account provisioning", zap.Error(err))
		return nil, err
	}

	p.logger.Info("owner accounts provisioned",
		zap.String("ownerID", ownerID),
		zap.Int64("initialUSDCents", initialUSDCents),
		zap.Int64("initialEURCents", initialEURCents))
	return accounts, nil
}

func (p *Processor) appendPair(ctx context.Context, tx Tx, t *Transaction, fromAccountID, toAccountID string, debitCents, creditCents int64, fromCurrency, toCurrency string) error {
	debit := &Entry{
		TransactionID: t.ID,
		AccountID:     fromAccountID,
		Currency:      fromCurrency,
		AmountCents:   -debitCents,
	}
	if err := tx.AppendEntry(ctx, debit); err != nil {
		return err
	}
	credit := &Entry{
		TransactionID: t.ID,
		AccountID:     toAccountID,
		Currency:      toCurrency,
		AmountCents:   creditCents,
	}
	return tx.AppendEntry(ctx, credit)
}
