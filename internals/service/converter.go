package service

import (
	"errors"
	"fmt"

	"github.com/SnizhanaK/Currency-Converter/internals/core/domain"

	"go.uber.org/zap"
)

// Convert converts amount from one currency to another by pivoting through the base currency.
// ok is false when there is nothing to convert (amount not positive and finite) or when either
// currency is missing from rates.
func Convert(amount float64, from, to domain.Currency, rates *domain.RateSet) (float64, bool) {
	result, err := ConvertStrict(amount, from, to, rates)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuantity) || errors.Is(err, domain.ErrInvalidRate) {
			zap.L().Error("corrupt rate record", zap.Error(err))
		}
		return 0, false
	}
	return result, true
}

// ConvertStrict is Convert with the reason for a missing result.
func ConvertStrict(amount float64, from, to domain.Currency, rates *domain.RateSet) (float64, error) {
	if !domain.ValidAmount(amount) {
		return 0, domain.ErrInvalidAmount
	}
	if from == to {
		return amount, nil
	}

	baseAmount, err := toBase(amount, from, rates)
	if err != nil {
		return 0, err
	}
	return fromBase(baseAmount, to, rates)
}

func toBase(v float64, code domain.Currency, rates *domain.RateSet) (float64, error) {
	if code.IsBase() {
		return v, nil
	}
	perUnit, err := perUnitRate(code, rates)
	if err != nil {
		return 0, err
	}
	return v * perUnit, nil
}

func fromBase(v float64, code domain.Currency, rates *domain.RateSet) (float64, error) {
	if code.IsBase() {
		return v, nil
	}
	perUnit, err := perUnitRate(code, rates)
	if err != nil {
		return 0, err
	}
	return v / perUnit, nil
}

func perUnitRate(code domain.Currency, rates *domain.RateSet) (float64, error) {
	rec, ok := rates.Lookup(code)
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownCurrency, code)
	}
	return rec.PerUnit()
}
