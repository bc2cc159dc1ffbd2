package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Currency represents a currency code (e.g., "USD", "EUR").
type Currency string

const (
	// BaseCurrency is the pivot every published rate is quoted in.
	BaseCurrency     Currency = "GEL"
	BaseCurrencyName          = "Georgian Lari"

	DateFmt = "2006-01-02"
)

// IsBase reports whether c is the base currency.
func (c Currency) IsBase() bool {
	return c == BaseCurrency
}

// Normalize upper-cases and trims a user supplied code.
func (c Currency) Normalize() Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(string(c))))
}

// ParseDate validates an ISO YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFmt, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	return t, nil
}

// Today returns the calendar date of now in UTC, formatted as YYYY-MM-DD.
func Today(now time.Time) string {
	return now.UTC().Format(DateFmt)
}

// RateRecord is one published rate: Quantity units of Code cost Rate units of the base currency.
type RateRecord struct {
	Code     Currency `json:"code"`
	Name     string   `json:"name"`
	Rate     float64  `json:"rate"`
	Quantity float64  `json:"quantity"`
}

// PerUnit returns the base currency value of a single unit of the record's currency.
func (r RateRecord) PerUnit() (float64, error) {
	if !(r.Quantity > 0) || math.IsInf(r.Quantity, 0) {
		return 0, fmt.Errorf("%w: %s has quantity %v", ErrInvalidQuantity, r.Code, r.Quantity)
	}
	if !(r.Rate > 0) || math.IsInf(r.Rate, 0) {
		return 0, fmt.Errorf("%w: %s has rate %v", ErrInvalidRate, r.Code, r.Rate)
	}
	return r.Rate / r.Quantity, nil
}

// RateSet holds the rate records published for exactly one date. It is never mutated after construction.
type RateSet struct {
	date    string
	records map[Currency]RateRecord
}

// NewRateSet validates records and builds an immutable RateSet for date.
func NewRateSet(date string, records []RateRecord) (*RateSet, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyRateSet
	}

	byCode := make(map[Currency]RateRecord, len(records))
	for _, rec := range records {
		rec.Code = rec.Code.Normalize()
		if rec.Code == "" {
			return nil, fmt.Errorf("%w: record without a currency code", ErrInvalidRateData)
		}
		if rec.Code.IsBase() {
			continue
		}
		if _, err := rec.PerUnit(); err != nil {
			return nil, err
		}
		byCode[rec.Code] = rec
	}
	if len(byCode) == 0 {
		return nil, ErrEmptyRateSet
	}

	return &RateSet{date: date, records: byCode}, nil
}

// Date returns the ISO date the set was published for.
func (s *RateSet) Date() string {
	return s.date
}

// Lookup returns the record for code. The base currency never has a record.
func (s *RateSet) Lookup(code Currency) (RateRecord, bool) {
	if s == nil {
		return RateRecord{}, false
	}
	rec, ok := s.records[code]
	return rec, ok
}

// Supports reports whether code can be converted with this set.
func (s *RateSet) Supports(code Currency) bool {
	if code.IsBase() {
		return true
	}
	_, ok := s.Lookup(code)
	return ok
}

func (s *RateSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Records returns a copy of the records sorted by code.
func (s *RateSet) Records() []RateRecord {
	if s == nil {
		return nil
	}
	out := make([]RateRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (s *RateSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date       string       `json:"date"`
		Base       Currency     `json:"base"`
		Currencies []RateRecord `json:"currencies"`
	}{
		Date:       s.date,
		Base:       BaseCurrency,
		Currencies: s.Records(),
	})
}

// CurrencyOption is an entry of the currency picker.
type CurrencyOption struct {
	Code Currency `json:"code"`
	Name string   `json:"name"`
}

// CurrencyOptions lists every currency of s plus the base currency, sorted by code.
func CurrencyOptions(s *RateSet) []CurrencyOption {
	records := s.Records()
	options := make([]CurrencyOption, 0, len(records)+1)
	options = append(options, CurrencyOption{Code: BaseCurrency, Name: BaseCurrencyName})
	for _, rec := range records {
		options = append(options, CurrencyOption{Code: rec.Code, Name: rec.Name})
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Code < options[j].Code })
	return options
}

// RatesResponse is the coerced payload of one rates API call.
type RatesResponse struct {
	Date       string
	Currencies []RateRecord
}

type ConversionRequest struct {
	From   Currency `json:"from"`
	To     Currency `json:"to"`
	Amount float64  `json:"amount"`
	Date   string   `json:"date"`
}

type ConversionResult struct {
	From            Currency `json:"from"`
	To              Currency `json:"to"`
	OriginalAmount  float64  `json:"amount"`
	ConvertedAmount float64  `json:"convertedAmount"`
	Formatted       string   `json:"formatted"`
	Rate            float64  `json:"rate"`
	Date            string   `json:"onDate"`
}
