package scraper

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var priceRe = regexp.MustCompile(`\d+\.?\d*`)

// ExtractPrice returns the first positive amount found in text, rounded to cents.
// Thousands separators are ignored, so "$1,299.99" yields 1299.99.
func ExtractPrice(text string) *float64 {
	text = strings.ReplaceAll(text, ",", "")
	match := priceRe.FindString(text)
	if match == "" {
		return nil
	}

	amount, err := decimal.NewFromString(strings.TrimSuffix(match, "."))
	if err != nil || !amount.IsPositive() {
		return nil
	}

	price := amount.Round(2).InexactFloat64()
	return &price
}
