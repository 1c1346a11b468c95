package http

import (
	"github.com/shopspring/decimal"

	"pillars/internal/core"
)

// Notice is a message shown above the day form.
type Notice struct {
	Kind    string // success, warning or error
	Message string
}

type stockRow struct {
	Index                       int
	Item                        string
	Opening, Purchases, Closing int
	Sales                       int
	Price                       string
	Amount                      string
	Negative                    bool
}

type roomRow struct {
	Index         int
	Room          string
	First, Ground int
	Money         string
	Method        string
}

type expenseRow struct {
	Index  int
	Item   string
	Amount string
}

type methodRow struct {
	Method string
	Amount string
}

type summaryView struct {
	StockSales       string
	Accommodation    string
	IncludesRooms    bool
	TotalSales       string
	TotalExpenses    string
	MoneyPaid        string
	MoneyInvested    string
	NetProfit        string
	NegativeProfit   bool
	TotalSalesCount  int
	RoomsFirstFloor  int
	RoomsGroundFloor int
}

type dayView struct {
	Date, Prev, Next string
	Saved            bool
	Dirty            bool
	Notices          []Notice
	Stock            []stockRow
	Rooms            []roomRow
	Expenses         []expenseRow
	Methods          []methodRow
	PaymentMethods   []core.PaymentMethod
	MoneyPaid        string
	MoneyInvested    string
	Summary          summaryView
}

func plain(d decimal.Decimal) string { return core.FormatPlain(d) }

func newDayView(wd *workingDay, opts core.SummaryOptions, notices []Notice) dayView {
	s := wd.sess
	v := dayView{
		Date:           s.Date.Key(),
		Prev:           core.Date{Time: s.Date.AddDate(0, 0, -1)}.Key(),
		Next:           core.Date{Time: s.Date.AddDate(0, 0, 1)}.Key(),
		Saved:          wd.found,
		Dirty:          wd.dirty,
		Notices:        notices,
		PaymentMethods: core.PaymentMethods(),
		MoneyPaid:      plain(s.MoneyPaid),
		MoneyInvested:  plain(s.MoneyInvested),
	}
	for _, w := range wd.warnings {
		v.Notices = append(v.Notices, Notice{Kind: "warning", Message: w})
	}

	for i, l := range s.Stock.Lines {
		v.Stock = append(v.Stock, stockRow{
			Index: i, Item: l.Item,
			Opening: l.Opening, Purchases: l.Purchases, Closing: l.Closing,
			Sales:    l.Sales(),
			Price:    plain(l.Price),
			Amount:   core.FormatAmount(l.Amount()),
			Negative: l.Sales() < 0,
		})
	}
	for i, r := range s.Accommodation {
		v.Rooms = append(v.Rooms, roomRow{
			Index: i, Room: r.Room, First: r.FirstFloor, Ground: r.Ground,
			Money: plain(r.MoneyLent), Method: string(r.Method),
		})
	}
	for i, e := range s.Expenses {
		v.Expenses = append(v.Expenses, expenseRow{Index: i, Item: e.Description, Amount: plain(e.Amount)})
	}
	for _, m := range core.TallyByMethod(s.Accommodation) {
		v.Methods = append(v.Methods, methodRow{Method: string(m.Method), Amount: core.FormatAmount(m.Amount)})
	}

	sum := core.Summarize(s, opts)
	tally := core.TallyAccommodation(s.Accommodation)
	v.Summary = summaryView{
		StockSales:       core.FormatAmount(sum.StockSalesAmount),
		Accommodation:    core.FormatAmount(sum.AccommodationAmount),
		IncludesRooms:    opts.IncludeAccommodation,
		TotalSales:       core.FormatAmount(sum.TotalSalesAmount),
		TotalExpenses:    core.FormatAmount(sum.TotalExpenses),
		MoneyPaid:        core.FormatAmount(sum.MoneyPaid),
		MoneyInvested:    core.FormatAmount(sum.MoneyInvested),
		NetProfit:        core.FormatAmount(sum.NetProfit),
		NegativeProfit:   sum.NetProfit.IsNegative(),
		TotalSalesCount:  s.Stock.TotalSales(),
		RoomsFirstFloor:  tally.FirstFloor,
		RoomsGroundFloor: tally.Ground,
	}
	return v
}

// summaryJSON is the body of /api/summary. Amounts are plain decimals
// with two places.
type summaryJSON struct {
	Date          string   `json:"date"`
	Saved         bool     `json:"saved"`
	Unsaved       bool     `json:"unsaved_changes"`
	StockSales    string   `json:"stock_sales_amount"`
	Accommodation string   `json:"accommodation_amount"`
	TotalSales    string   `json:"total_sales_amount"`
	TotalExpenses string   `json:"total_expenses"`
	MoneyPaid     string   `json:"money_paid"`
	MoneyInvested string   `json:"money_invested"`
	NetProfit     string   `json:"net_profit"`
	IncludesRooms bool     `json:"includes_accommodation"`
	Warnings      []string `json:"warnings,omitempty"`
}

func newSummaryJSON(wd *workingDay, opts core.SummaryOptions) summaryJSON {
	sum := core.Summarize(wd.sess, opts)
	return summaryJSON{
		Date:          wd.sess.Date.Key(),
		Saved:         wd.found,
		Unsaved:       wd.dirty,
		StockSales:    plain(sum.StockSalesAmount),
		Accommodation: plain(sum.AccommodationAmount),
		TotalSales:    plain(sum.TotalSalesAmount),
		TotalExpenses: plain(sum.TotalExpenses),
		MoneyPaid:     plain(sum.MoneyPaid),
		MoneyInvested: plain(sum.MoneyInvested),
		NetProfit:     plain(sum.NetProfit),
		IncludesRooms: opts.IncludeAccommodation,
		Warnings:      wd.warnings,
	}
}
