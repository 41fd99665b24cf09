package transactions

import (
	"go.uber.org/zap"

	"banking-ledger-backend/ledger"
	"banking-ledger-backend/money"
)

// --- Models ---

// Amounts cross the API as integer cents. A decimal string is accepted as a
// convenience and converted exactly once, at this edge, before any value
// enters the engine.
type TransferRequest struct {
	ToOwner     string `json:"to_owner"`
	Currency    string `json:"currency"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount,omitempty"`
}

type ExchangeRequest struct {
	FromCurrency string `json:"from_currency"`
	AmountCents  int64  `json:"amount_cents"`
	Amount       string `json:"amount,omitempty"`
}

type ProposeRequest struct {
	Kind         string `json:"kind"`
	ToOwner      string `json:"to_owner,omitempty"`
	Currency     string `json:"currency,omitempty"`
	FromCurrency string `json:"from_currency,omitempty"`
	AmountCents  int64  `json:"amount_cents"`
	Amount       string `json:"amount,omitempty"`
}

type ConfirmRequest struct {
	Preview ledger.Preview `json:"preview"`
}

// --- Handlers ---

type Env struct {
	Processor *ledger.Processor
	Query     *ledger.Query
	Gate      *ledger.Gate
	Logger    *zap.Logger

	DefaultPage  int
	DefaultLimit int
	MaxLimit     int
}

// resolveCents picks the cents field when set, otherwise parses the decimal
// string with a single half-up rounding.
func resolveCents(amountCents int64, amount, currencyCode string) (int64, error) {
	if amountCents != 0 || amount == "" {
		return amountCents, nil
	}
	parsed, err := money.FromDecimalString(amount, currencyCode)
	if err != nil {
		return 0, err
	}
	return parsed.Cents, nil
}
