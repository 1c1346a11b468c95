package core

import "github.com/shopspring/decimal"

// TotalExpenses sums the amounts of lines; an empty set totals zero.
func TotalExpenses(lines []ExpenseLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return total
}

// Validate rejects negative amounts. Descriptions are free text.
func (e ExpenseLine) Validate() error {
	if e.Amount.IsNegative() {
		return &InputError{Field: "expense amount", Value: e.Amount.String(), Reason: "must not be negative"}
	}
	return nil
}
