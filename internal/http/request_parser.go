// Package http serves the day ledger form, its XLSX download, the list of
// saved dates and a JSON summary endpoint.
//
// This file parses the day form. Every input of the page is posted on
// each submit together with the action that was clicked.
package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"pillars/internal/core"
)

const (
	fieldAction        = "action"
	fieldMoneyPaid     = "money_paid"
	fieldMoneyInvested = "money_invested"
	fieldRoomCount     = "room_count"
	fieldExpenseCount  = "expense_count"
)

func stockField(i int, name string) string   { return fmt.Sprintf("stock-%d-%s", i, name) }
func roomField(i int, name string) string    { return fmt.Sprintf("room-%d-%s", i, name) }
func expenseField(i int, name string) string { return fmt.Sprintf("expense-%d-%s", i, name) }

// Actions posted by the day form.
const (
	ActionRecalculate   = "recalculate"
	ActionSave          = "save"
	ActionReload        = "reload"
	ActionAddExpense    = "add_expense"
	ActionRemoveExpense = "remove_expense"
	ActionAddRoom       = "add_room"
	ActionRemoveRoom    = "remove_room"
)

// Action is the button the user clicked. Index is set for row removals.
type Action struct {
	Kind  string
	Index int
}

// ParseAction reads "save", "remove_room:3" and the like. Empty means
// recalculate.
func ParseAction(s string) (Action, error) {
	kind, idx, hasIdx := strings.Cut(strings.TrimSpace(s), ":")
	if kind == "" {
		kind = ActionRecalculate
	}
	switch kind {
	case ActionRecalculate, ActionSave, ActionReload, ActionAddExpense, ActionAddRoom:
		if hasIdx {
			return Action{}, &core.InputError{Field: "action", Value: s, Reason: "takes no row"}
		}
		return Action{Kind: kind}, nil
	case ActionRemoveExpense, ActionRemoveRoom:
		i, err := strconv.Atoi(idx)
		if !hasIdx || err != nil || i < 0 {
			return Action{}, &core.InputError{Field: "action", Value: s, Reason: "expects a row number"}
		}
		return Action{Kind: kind, Index: i}, nil
	default:
		return Action{}, &core.InputError{Field: "action", Value: s, Reason: "unknown action"}
	}
}

// ParseDayForm reads every input of the day page for sess. A price is only
// reported when it differs from the line's current price, so an untouched
// duplicate line never overwrites the price book. Blank numbers read as zero.
func ParseDayForm(form url.Values, sess *core.Session) (core.DayInput, error) {
	var in core.DayInput
	var err error

	in.Stock = make([]core.StockEntry, len(sess.Stock.Lines))
	for i, line := range sess.Stock.Lines {
		e := &in.Stock[i]
		if e.Opening, err = core.ParseCount(line.Item+" opening stock", form.Get(stockField(i, "opening"))); err != nil {
			return core.DayInput{}, err
		}
		if e.Purchases, err = core.ParseCount(line.Item+" purchases", form.Get(stockField(i, "purchases"))); err != nil {
			return core.DayInput{}, err
		}
		if e.Closing, err = core.ParseCount(line.Item+" closing stock", form.Get(stockField(i, "closing"))); err != nil {
			return core.DayInput{}, err
		}
		if raw, ok := form[stockField(i, "price")]; ok && len(raw) > 0 {
			price, err := core.ParseAmount(line.Item+" price", raw[0])
			if err != nil {
				return core.DayInput{}, err
			}
			if !price.Equal(line.Price) {
				e.Price = &price
			}
		}
	}

	rooms, err := rowCount(form, fieldRoomCount)
	if err != nil {
		return core.DayInput{}, err
	}
	in.Accommodation = make([]core.AccommodationRecord, rooms)
	for i := range in.Accommodation {
		if in.Accommodation[i], err = parseRoom(form, i); err != nil {
			return core.DayInput{}, err
		}
	}

	expenses, err := rowCount(form, fieldExpenseCount)
	if err != nil {
		return core.DayInput{}, err
	}
	in.Expenses = make([]core.ExpenseLine, expenses)
	for i := range in.Expenses {
		amount, err := core.ParseAmount(fmt.Sprintf("expense %d amount", i+1), form.Get(expenseField(i, "amount")))
		if err != nil {
			return core.DayInput{}, err
		}
		in.Expenses[i] = core.ExpenseLine{Description: sanitizeInput(form.Get(expenseField(i, "item"))), Amount: amount}
	}

	if in.MoneyPaid, err = core.ParseAmount("money paid to boss", form.Get(fieldMoneyPaid)); err != nil {
		return core.DayInput{}, err
	}
	if in.MoneyInvested, err = core.ParseAmount("money invested", form.Get(fieldMoneyInvested)); err != nil {
		return core.DayInput{}, err
	}
	return in, nil
}

func rowCount(form url.Values, field string) (int, error) {
	return core.ParseCount(strings.ReplaceAll(field, "_", " "), form.Get(field))
}

func parseRoom(form url.Values, i int) (core.AccommodationRecord, error) {
	label := fmt.Sprintf("room %d", i+1)
	first, err := core.ParseCount(label+" 1st floor rooms", form.Get(roomField(i, "first")))
	if err != nil {
		return core.AccommodationRecord{}, err
	}
	ground, err := core.ParseCount(label+" ground floor rooms", form.Get(roomField(i, "ground")))
	if err != nil {
		return core.AccommodationRecord{}, err
	}
	var money decimal.Decimal
	if money, err = core.ParseAmount(label+" money lendered", form.Get(roomField(i, "money"))); err != nil {
		return core.AccommodationRecord{}, err
	}
	method, err := core.ParsePaymentMethod(form.Get(roomField(i, "method")))
	if err != nil {
		return core.AccommodationRecord{}, err
	}
	return core.AccommodationRecord{
		Room:       sanitizeInput(form.Get(roomField(i, "room"))),
		FirstFloor: first,
		Ground:     ground,
		MoneyLent:  money,
		Method:     method,
	}, nil
}
