package domain

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var displayPrinter = message.NewPrinter(language.German)

// FormatAmount renders v with two fraction digits and German grouping, e.g. 1.234,56.
// Rounding is done on the decimal representation so 1.005 becomes 1,01.
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	rounded := decimal.NewFromFloat(v).Round(2).InexactFloat64()
	return displayPrinter.Sprintf("%.2f", rounded)
}

// FormatOptional renders an absent value as the empty string.
func FormatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatAmount(*v)
}
