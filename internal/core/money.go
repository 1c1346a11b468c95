// Package core provides the daily ledger engine: stock reconciliation,
// accommodation and expense tallies, the profit summary, and the parsing
// helpers that guard its inputs.
//
// This file contains functions for parsing monetary amounts and counts from
// user input and for formatting amounts for display.
package core

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// CurrencyCode is the ISO code used for every displayed amount.
const CurrencyCode = "KES"

// ParseAmount converts a decimal string to a non-negative decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, an empty
// string (treated as zero) and surrounding whitespace. No rounding is applied.
//
// Examples:
//
//	ParseAmount("250")    -> 250, nil
//	ParseAmount("12,5")   -> 12.5, nil
//	ParseAmount("-1")     -> error (ErrInvalidInput)
func ParseAmount(field, s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "-") {
		return decimal.Zero, &InputError{Field: field, Value: raw, Reason: "must not be negative"}
	}
	s = strings.TrimPrefix(s, "+")
	parts := strings.Split(s, ".")
	if len(parts) > 2 || parts[len(parts)-1] == "" {
		return decimal.Zero, &InputError{Field: field, Value: raw, Reason: "not a number"}
	}
	if parts[0] == "" {
		s = "0" + s
	}
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return decimal.Zero, &InputError{Field: field, Value: raw, Reason: "not a number"}
			}
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &InputError{Field: field, Value: raw, Reason: "not a number"}
	}
	return d, nil
}

// ParseCount converts a string to a non-negative whole count. Empty means zero.
func ParseCount(field, s string) (int, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &InputError{Field: field, Value: raw, Reason: "not a whole number"}
	}
	if n < 0 {
		return 0, &InputError{Field: field, Value: raw, Reason: "must not be negative"}
	}
	return n, nil
}

// FormatAmount renders d rounded to two decimals with the KES symbol,
// e.g. "KSh1,750.00". Negative values keep their sign.
func FormatAmount(d decimal.Decimal) string {
	cents := d.Round(2).Shift(2).IntPart()
	return money.New(cents, CurrencyCode).Display()
}

// FormatPlain renders d with exactly two decimals and no currency, for
// form inputs and exports.
func FormatPlain(d decimal.Decimal) string {
	return d.StringFixed(2)
}
