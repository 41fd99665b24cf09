package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"banking-ledger-backend/currency"
	"banking-ledger-backend/money"
)

// Gate is the two-step commit protocol in front of the processor. Propose
// computes a preview of the movement without touching state; Confirm
// re-validates the same request against current balances and only then
// hands it to the processor. Abandoning a preview has no effect because
// Propose is a pure read, and the gate itself keeps no state between the
// two calls.
type Gate struct {
	store     Store
	directory Directory
	processor *Processor
}

func NewGate(store Store, directory Directory, processor *Processor) *Gate {
	return &Gate{store: store, directory: directory, processor: processor}
}

// Preview carries everything the caller needs to show for explicit human
// confirmation, plus the inputs Confirm needs to re-run the request.
type Preview struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	FromOwnerID string `json:"from_owner_id"`

	// Transfer fields.
	ToOwner     string `json:"to_owner,omitempty"` // as addressed: id or email
	ToOwnerID   string `json:"to_owner_id,omitempty"`
	ToOwnerName string `json:"to_owner_name,omitempty"`

	Currency    string `json:"currency"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`

	// Exchange fields.
	ToCurrency      string      `json:"to_currency,omitempty"`
	ConvertedCents  int64       `json:"converted_cents,omitempty"`
	ConvertedAmount string      `json:"converted_amount,omitempty"`
	Rate            *money.Rate `json:"rate,omitempty"`

	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProposeTransfer runs the full transfer validation sequence, including a
// balance check against the current committed state, without mutating
// anything.
func (g *Gate) ProposeTransfer(ctx context.Context, fromOwnerID string, req TransferRequest) (*Preview, error) {
	if req.ToOwner == fromOwnerID {
		return nil, ErrSelfTransfer
	}
	if req.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if !currency.Supported(req.Currency) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCurrency, req.Currency)
	}

	to, err := g.directory.FindOwner(ctx, req.ToOwner)
	if err != nil || to == nil {
		return nil, ErrRecipientNotFound
	}
	if to.ID == fromOwnerID {
		return nil, ErrSelfTransfer
	}

	fromAccount, err := g.store.AccountByOwnerAndCurrency(ctx, fromOwnerID, req.Currency)
	if err != nil {
		return nil, err
	}
	if fromAccount.BalanceCents < req.AmountCents {
		return nil, ErrInsufficientFunds
	}
	if _, err := g.store.AccountByOwnerAndCurrency(ctx, to.ID, req.Currency); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}

	amount := money.New(req.AmountCents, req.Currency)
	return &Preview{
		ID:          uuid.NewString(),
		Kind:        KindTransfer,
		FromOwnerID: fromOwnerID,
		ToOwner:     req.ToOwner,
		ToOwnerID:   to.ID,
		ToOwnerName: to.DisplayName,
		Currency:    req.Currency,
		AmountCents: req.AmountCents,
		Amount:      amount.DecimalString(),
		Description: fmt.Sprintf("Transfer to %s", to.DisplayName),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// ProposeExchange computes the converted amount at the fixed rate, again
// without mutating anything.
func (g *Gate) ProposeExchange(ctx context.Context, ownerID string, req ExchangeRequest) (*Preview, error) {
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
	converted, _, err := money.Convert(money.New(req.AmountCents, req.FromCurrency), rate, toCurrency)
	if err != nil {
		return nil, err
	}

	fromAccount, err := g.store.AccountByOwnerAndCurrency(ctx, ownerID, req.FromCurrency)
	if err != nil {
		return nil, err
	}
	if fromAccount.BalanceCents < req.AmountCents {
		return nil, ErrInsufficientFunds
	}
	if _, err := g.store.AccountByOwnerAndCurrency(ctx, ownerID, toCurrency); err != nil {
		return nil, err
	}

	return &Preview{
		ID:              uuid.NewString(),
		Kind:            KindExchange,
		FromOwnerID:     ownerID,
		Currency:        req.FromCurrency,
		AmountCents:     req.AmountCents,
		Amount:          money.New(req.AmountCents, req.FromCurrency).DecimalString(),
		ToCurrency:      toCurrency,
		ConvertedCents:  converted.Cents,
		ConvertedAmount: converted.DecimalString(),
		Rate:            &rate,
		Description: fmt.Sprintf("Exchange %d cents %s to %d cents %s (rate: %d/%d)",
			req.AmountCents, req.FromCurrency, converted.Cents, toCurrency, rate.Num, rate.Denom),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Confirm re-proposes the request carried by the preview against current
// state and executes it only when the outcome still matches what the caller
// saw. A failed re-validation surfaces the same domain error a direct call
// would; Confirm holds no privilege.
func (g *Gate) Confirm(ctx context.Context, ownerID string, preview Preview) (*Transaction, error) {
	if preview.FromOwnerID != ownerID {
		return nil, ErrPreviewMismatch
	}

	switch preview.Kind {
	case KindTransfer:
		req := TransferRequest{ToOwner: preview.ToOwner, Currency: preview.Currency, AmountCents: preview.AmountCents}
		fresh, err := g.ProposeTransfer(ctx, ownerID, req)
		if err != nil {
			return nil, err
		}
		if fresh.ToOwnerID != preview.ToOwnerID || fresh.AmountCents != preview.AmountCents {
			return nil, ErrPreviewMismatch
		}
		return g.processor.Transfer(ctx, ownerID, req)

	case KindExchange:
		req := ExchangeRequest{FromCurrency: preview.Currency, AmountCents: preview.AmountCents}
		fresh, err := g.ProposeExchange(ctx, ownerID, req)
		if err != nil {
			return nil, err
		}
		if fresh.ConvertedCents != preview.ConvertedCents || fresh.ToCurrency != preview.ToCurrency {
			return nil, ErrPreviewMismatch
		}
		return g.processor.Exchange(ctx, ownerID, req)

	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrPreviewMismatch, preview.Kind)
	}
}
