package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDateFormat = errors.New("invalid date format, use YYYY-MM-DD")
	ErrInvalidAmount     = errors.New("invalid amount, must be a positive number")
	ErrUnknownCurrency   = errors.New("currency not found in rate set")
	ErrInvalidQuantity   = errors.New("rate record has a non-positive quantity")
	ErrInvalidRate       = errors.New("rate record has a non-positive rate")
	ErrInvalidRateData   = errors.New("invalid rate data")
	ErrEmptyRateSet      = errors.New("no currencies in rate data")
)

// RateFetchError reports that the rates for Date could not be retrieved or parsed.
type RateFetchError struct {
	Date  string
	Cause string
	Err   error
}

func NewRateFetchError(date, cause string, err error) *RateFetchError {
	return &RateFetchError{Date: date, Cause: cause, Err: err}
}

func (e *RateFetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("could not fetch rates for %s: %s", e.Date, e.Cause)
	}
	return fmt.Sprintf("could not fetch rates for %s: %s: %v", e.Date, e.Cause, e.Err)
}

func (e *RateFetchError) Unwrap() error {
	return e.Err
}
