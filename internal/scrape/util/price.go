package util

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var ErrBadPrice = errors.New("unparseable price")

var priceRe = regexp.MustCompile(`\d+(?:[.,\s]\d+)*`)

// ParsePrice turns merchant price text into a positive float. It accepts both
// separator styles ("19,99 €", "29.99", "1.299,00") plus currency symbols and
// whitespace noise. Zero or negative values are rejected.
func ParsePrice(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrBadPrice
	}
	m := priceRe.FindString(s)
	if m == "" {
		return 0, ErrBadPrice
	}
	m = strings.ReplaceAll(m, " ", "")
	m = strings.ReplaceAll(m, " ", "")

	lastComma := strings.LastIndex(m, ",")
	lastDot := strings.LastIndex(m, ".")
	switch {
	case lastComma > lastDot:
		// comma is the decimal separator, dots are thousands
		m = strings.ReplaceAll(m, ".", "")
		m = strings.Replace(m, ",", ".", 1)
	case lastDot > lastComma:
		// dot is the decimal separator, commas are thousands
		m = strings.ReplaceAll(m, ",", "")
	}

	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v <= 0 {
		return 0, ErrBadPrice
	}
	return v, nil
}

// DiscountPercent recomputes the rounded discount from the two prices. Source
// badges are never trusted. originalPrice <= dealPrice yields 0.
func DiscountPercent(dealPrice, originalPrice float64) int {
	if originalPrice <= 0 || dealPrice <= 0 || originalPrice <= dealPrice {
		return 0
	}
	pct := 100 * (1 - dealPrice/originalPrice)
	return int(pct + 0.5)
}
