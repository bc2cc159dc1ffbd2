package service

import (
	"math"
	"testing"

	"github.com/SnizhanaK/Currency-Converter/internals/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRates(t *testing.T) *domain.RateSet {
	t.Helper()
	rates, err := domain.NewRateSet("2024-01-01", []domain.RateRecord{
		{Code: "USD", Name: "US Dollar", Rate: 2.70, Quantity: 1},
		{Code: "EUR", Name: "Euro", Rate: 2.95, Quantity: 1},
		{Code: "JPY", Name: "Japanese Yen", Rate: 1.89, Quantity: 100},
	})
	require.NoError(t, err)
	return rates
}

func TestConvert_Identity(t *testing.T) {
	rates := testRates(t)
	for _, code := range []domain.Currency{"USD", "GEL", "ZZZ"} {
		got, ok := Convert(42.5, code, code, rates)
		assert.True(t, ok, code)
		assert.Equal(t, 42.5, got, code)
	}

	got, ok := Convert(10, "ZZZ", "ZZZ", nil)
	assert.True(t, ok)
	assert.Equal(t, 10.0, got)
}

func TestConvert_PivotThroughBase(t *testing.T) {
	rates := testRates(t)

	got, ok := Convert(1, "USD", domain.BaseCurrency, rates)
	assert.True(t, ok)
	assert.Equal(t, 2.70, got)

	got, ok = Convert(1, domain.BaseCurrency, "USD", rates)
	assert.True(t, ok)
	assert.InDelta(t, 1/2.70, got, 1e-12)

	got, ok = Convert(1, "JPY", domain.BaseCurrency, rates)
	assert.True(t, ok)
	assert.InDelta(t, 0.0189, got, 1e-12)

	got, ok = Convert(1, domain.BaseCurrency, "JPY", rates)
	assert.True(t, ok)
	assert.InDelta(t, 100/1.89, got, 1e-9)
}

func TestConvert_CrossRate(t *testing.T) {
	rates := testRates(t)

	got, ok := Convert(100, "USD", "EUR", rates)
	assert.True(t, ok)
	assert.InDelta(t, 100*2.70/2.95, got, 1e-9)
}

func TestConvert_RoundTrip(t *testing.T) {
	rates := testRates(t)
	codes := []domain.Currency{"USD", "EUR", "JPY", "GEL"}

	for _, from := range codes {
		for _, to := range codes {
			there, ok := Convert(123.45, from, to, rates)
			require.True(t, ok)
			back, ok := Convert(there, to, from, rates)
			require.True(t, ok)
			assert.InDelta(t, 123.45, back, 1e-9, "%s -> %s", from, to)
		}
	}
}

func TestConvert_InvalidAmount(t *testing.T) {
	rates := testRates(t)
	for _, amount := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		_, ok := Convert(amount, "USD", "GEL", rates)
		assert.False(t, ok, "amount %v", amount)

		_, err := ConvertStrict(amount, "USD", "GEL", rates)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	}
}

func TestConvert_UnknownCurrency(t *testing.T) {
	rates := testRates(t)

	_, ok := Convert(10, "ZZZ", "GEL", rates)
	assert.False(t, ok)

	_, err := ConvertStrict(10, "ZZZ", "GEL", rates)
	assert.ErrorIs(t, err, domain.ErrUnknownCurrency)

	_, err = ConvertStrict(10, "GEL", "ZZZ", rates)
	assert.ErrorIs(t, err, domain.ErrUnknownCurrency)
}

func TestConvert_NilRatesNeedsLookup(t *testing.T) {
	_, err := ConvertStrict(10, "USD", "GEL", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownCurrency)
}
