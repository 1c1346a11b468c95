package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultRoster is the number of empty accommodation rows on a new day.
const DefaultRoster = 15

// AccommodationTally aggregates a day's accommodation records.
type AccommodationTally struct {
	Rooms      int
	FirstFloor int
	Ground     int
	MoneyLent  decimal.Decimal
}

// MethodAmount is the money lent through one payment method.
type MethodAmount struct {
	Method PaymentMethod
	Amount decimal.Decimal
}

// NewRoster returns n empty records paid in cash.
func NewRoster(n int) Rows[AccommodationRecord] {
	out := make(Rows[AccommodationRecord], n)
	for i := range out {
		out[i] = AccommodationRecord{Method: Cash}
	}
	return out
}

// TallyAccommodation sums room counts and money lent over records.
func TallyAccommodation(records []AccommodationRecord) AccommodationTally {
	t := AccommodationTally{Rooms: len(records), MoneyLent: decimal.Zero}
	for _, r := range records {
		t.FirstFloor += r.FirstFloor
		t.Ground += r.Ground
		t.MoneyLent = t.MoneyLent.Add(r.MoneyLent)
	}
	return t
}

// TallyByMethod groups money lent per payment method, in PaymentMethods
// order. Methods with no records are omitted.
func TallyByMethod(records []AccommodationRecord) []MethodAmount {
	sums := make(map[PaymentMethod]decimal.Decimal)
	for _, r := range records {
		m := r.Method
		if m == "" {
			m = Cash
		}
		sums[m] = sums[m].Add(r.MoneyLent)
	}
	var out []MethodAmount
	for _, m := range PaymentMethods() {
		if amt, ok := sums[m]; ok {
			out = append(out, MethodAmount{Method: m, Amount: amt})
		}
	}
	return out
}

// Validate rejects negative counts and amounts.
func (r AccommodationRecord) Validate() error {
	switch {
	case r.FirstFloor < 0:
		return &InputError{Field: "1st floor rooms", Value: fmt.Sprint(r.FirstFloor), Reason: "must not be negative"}
	case r.Ground < 0:
		return &InputError{Field: "ground floor rooms", Value: fmt.Sprint(r.Ground), Reason: "must not be negative"}
	case r.MoneyLent.IsNegative():
		return &InputError{Field: "money lendered", Value: r.MoneyLent.String(), Reason: "must not be negative"}
	}
	return nil
}
