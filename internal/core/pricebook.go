package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// PriceBook maps item names to unit prices. It is the only value carried
// across dates; an item without an entry costs zero.
type PriceBook map[string]decimal.Decimal

// NewPriceBook returns a book with every catalog item priced at zero.
func NewPriceBook(c Catalog) PriceBook {
	b := make(PriceBook, len(c))
	for _, item := range c {
		b[item] = decimal.Zero
	}
	return b
}

// Price returns the unit price of item, zero when unknown.
func (b PriceBook) Price(item string) decimal.Decimal {
	if p, ok := b[item]; ok {
		return p
	}
	return decimal.Zero
}

// Set records a new price. Negative prices are rejected.
func (b PriceBook) Set(item string, price decimal.Decimal) error {
	if price.IsNegative() {
		return &InputError{Field: "price of " + item, Value: price.String(), Reason: "must not be negative"}
	}
	b[item] = price
	return nil
}

// Items returns the priced item names sorted alphabetically.
func (b PriceBook) Items() []string {
	out := make([]string, 0, len(b))
	for item := range b {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (b PriceBook) Clone() PriceBook {
	out := make(PriceBook, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Equal reports whether both books hold the same prices.
func (b PriceBook) Equal(o PriceBook) bool {
	if len(b) != len(o) {
		return false
	}
	for k, v := range b {
		w, ok := o[k]
		if !ok || !v.Equal(w) {
			return false
		}
	}
	return true
}
