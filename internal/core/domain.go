package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the key format of every per-date resource.
const DateLayout = "2006-01-02"

const (
	Cash  PaymentMethod = "Cash"
	MPesa PaymentMethod = "M-Pesa"
	Other PaymentMethod = "Other"
)

type (
	PaymentMethod string

	Date struct {
		time.Time
	}

	// StockLine is one catalog item on a given day. Sales and Amount are
	// derived from the other fields on every read.
	StockLine struct {
		Item      string
		Opening   int
		Purchases int
		Closing   int
		Price     decimal.Decimal
	}

	// AccommodationRecord is one rental slot for a day.
	AccommodationRecord struct {
		Room       string // free-text label, may be empty
		FirstFloor int
		Ground     int
		MoneyLent  decimal.Decimal
		Method     PaymentMethod
	}

	ExpenseLine struct {
		Description string
		Amount      decimal.Decimal
	}
)

// PaymentMethods lists the accepted payment methods in display order.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{Cash, MPesa, Other}
}

// ParsePaymentMethod accepts the display names case-insensitively; empty means Cash.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return Cash, nil
	}
	for _, m := range PaymentMethods() {
		if strings.EqualFold(v, string(m)) {
			return m, nil
		}
	}
	if strings.EqualFold(v, "mpesa") {
		return MPesa, nil
	}
	return "", &InputError{Field: "payment method", Value: s, Reason: "must be Cash, M-Pesa or Other"}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current local day as a Date.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses a YYYY-MM-DD key.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, &InputError{Field: "date", Value: s, Reason: "expected YYYY-MM-DD"}
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return &InputError{Field: "date", Value: "", Reason: "date cannot be zero"}
	}
	return nil
}

// Key returns the storage key of the date.
func (d Date) Key() string {
	return d.Format(DateLayout)
}

func (d Date) String() string { return d.Key() }

// Sales returns opening + purchases - closing. Negative values are kept:
// they signal an over-counted closing stock.
func (l StockLine) Sales() int {
	return l.Opening + l.Purchases - l.Closing
}

// Amount returns Sales * Price.
func (l StockLine) Amount() decimal.Decimal {
	return decimal.NewFromInt(int64(l.Sales())).Mul(l.Price)
}
