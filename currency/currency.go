// Package currency defines the currencies the platform supports and the
// fixed exchange-rate table between them. Rates are compile-time constants;
// no live feed is consulted.
package currency

import (
	"errors"
	"fmt"

	"banking-ledger-backend/money"
)

const (
	USD = "USD"
	EUR = "EUR"
)

var ErrUnsupported = errors.New("unsupported currency")

// 1 USD = 23/25 EUR (0.92); the reverse direction is the algebraic inverse,
// so the same table entry pair stays consistent by construction.
var rates = map[[2]string]money.Rate{
	{USD, EUR}: {Num: 23, Denom: 25},
	{EUR, USD}: {Num: 25, Denom: 23},
}

func Supported(code string) bool {
	return code == USD || code == EUR
}

// Other returns the counterpart of the two supported currencies.
func Other(code string) (string, error) {
	switch code {
	case USD:
		return EUR, nil
	case EUR:
		return USD, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, code)
	}
}

func GetRate(from, to string) (money.Rate, error) {
	rate, ok := rates[[2]string{from, to}]
	if !ok {
		return money.Rate{}, fmt.Errorf("%w: no rate for %s to %s", ErrUnsupported, from, to)
	}
	return rate, nil
}
