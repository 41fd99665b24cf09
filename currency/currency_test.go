package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banking-ledger-backend/money"
)

func TestSupported(t *testing.T) {
	assert.True(t, Supported(USD))
	assert.True(t, Supported(EUR))
	assert.False(t, Supported("GBP"))
	assert.False(t, Supported("usd"))
	assert.False(t, Supported(""))
}

func TestOther(t *testing.T) {
	other, err := Other(USD)
	require.NoError(t, err)
	assert.Equal(t, EUR, other)

	other, err = Other(EUR)
	require.NoError(t, err)
	assert.Equal(t, USD, other)

	_, err = Other("GBP")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestGetRate(t *testing.T) {
	rate, err := GetRate(USD, EUR)
	require.NoError(t, err)
	assert.Equal(t, money.Rate{Num: 23, Denom: 25}, rate)

	rate, err = GetRate(EUR, USD)
	require.NoError(t, err)
	assert.Equal(t, money.Rate{Num: 25, Denom: 23}, rate)

	_, err = GetRate(USD, USD)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = GetRate("GBP", USD)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestRateApplication(t *testing.T) {
	rate, err := GetRate(USD, EUR)
	require.NoError(t, err)

	converted, residual, err := money.Convert(money.New(10000, USD), rate, EUR)
	require.NoError(t, err)
	assert.Equal(t, int64(9200), converted.Cents)
	assert.Zero(t, residual)
}
