package domain

import (
	"math"
	"strconv"
	"strings"
)

// Row is one pending conversion request as entered by the user.
type Row struct {
	Amount string   `json:"amount"`
	Date   string   `json:"date"`
	Result *float64 `json:"result"`
}

// ParseAmount returns the numeric amount of a row input and whether it is worth converting.
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, ValidAmount(v)
}

// ValidAmount reports whether v is a positive finite number.
func ValidAmount(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// SummaryEntry is a converted row recorded in the running summary.
type SummaryEntry struct {
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
	Result float64 `json:"result"`
}

// RowFailure explains why a row with valid input produced no result.
type RowFailure struct {
	Index  int    `json:"index"`
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme maps a stored value to a theme; anything but "dark" is light.
func ParseTheme(s string) Theme {
	if strings.EqualFold(strings.TrimSpace(s), string(ThemeDark)) {
		return ThemeDark
	}
	return ThemeLight
}

func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

type Preferences struct {
	FromCurrency Currency `json:"fromCurrency"`
	ToCurrency   Currency `json:"toCurrency"`
	Theme        Theme    `json:"theme"`
}

// DefaultPreferences is USD to GEL on a light theme.
func DefaultPreferences() Preferences {
	return Preferences{FromCurrency: "USD", ToCurrency: BaseCurrency, Theme: ThemeLight}
}
