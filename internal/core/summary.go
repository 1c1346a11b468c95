package core

import "github.com/shopspring/decimal"

// SummaryOptions selects which revenue feeds the total sales amount.
type SummaryOptions struct {
	// IncludeAccommodation adds money lent on rooms to the stock sales.
	IncludeAccommodation bool
}

// DailySummary is the derived profit view of one day. It is never stored as
// primary data.
type DailySummary struct {
	Date                Date
	StockSalesAmount    decimal.Decimal
	AccommodationAmount decimal.Decimal
	TotalSalesAmount    decimal.Decimal
	TotalExpenses       decimal.Decimal
	MoneyPaid           decimal.Decimal
	MoneyInvested       decimal.Decimal
	NetProfit           decimal.Decimal
}

// NetProfit returns (totalSales + invested) - (totalExpenses + paid).
func NetProfit(totalSales, totalExpenses, paid, invested decimal.Decimal) decimal.Decimal {
	return totalSales.Add(invested).Sub(totalExpenses.Add(paid))
}

// Summarize computes the summary of a session from its current inputs.
func Summarize(s *Session, opts SummaryOptions) DailySummary {
	stock := s.Stock.TotalSalesAmount()
	accommodation := TallyAccommodation(s.Accommodation).MoneyLent
	total := stock
	if opts.IncludeAccommodation {
		total = total.Add(accommodation)
	}
	expenses := TotalExpenses(s.Expenses)
	return DailySummary{
		Date:                s.Date,
		StockSalesAmount:    stock,
		AccommodationAmount: accommodation,
		TotalSalesAmount:    total,
		TotalExpenses:       expenses,
		MoneyPaid:           s.MoneyPaid,
		MoneyInvested:       s.MoneyInvested,
		NetProfit:           NetProfit(total, expenses, s.MoneyPaid, s.MoneyInvested),
	}
}
