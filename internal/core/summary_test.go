package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestTotalExpenses(t *testing.T) {
	cases := []struct {
		lines []ExpenseLine
		want  string
	}{
		{[]ExpenseLine{{"Fuel", dec("500")}, {"Repairs", dec("1200")}}, "1700"},
		{nil, "0"},
		{[]ExpenseLine{{"", dec("0.1")}, {"", dec("0.2")}}, "0.3"},
	}
	for i, tc := range cases {
		if got := TotalExpenses(tc.lines); !got.Equal(dec(tc.want)) {
			t.Fatalf("case %d: TotalExpenses = %s, want %s", i, got, tc.want)
		}
	}
	if err := (ExpenseLine{Amount: dec("-5")}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNetProfit(t *testing.T) {
	got := NetProfit(dec("50000"), dec("1700"), dec("10000"), decimal.Zero)
	if !got.Equal(dec("38300")) {
		t.Fatalf("NetProfit = %s, want 38300", got)
	}
	if FormatPlain(got) != "38300.00" {
		t.Fatalf("FormatPlain = %s", FormatPlain(got))
	}
	got = NetProfit(decimal.Zero, dec("100"), decimal.Zero, dec("30"))
	if !got.Equal(dec("-70")) {
		t.Fatalf("NetProfit = %s, want -70", got)
	}
}

func TestTallyAccommodation(t *testing.T) {
	records := []AccommodationRecord{
		{Room: "1", FirstFloor: 2, Ground: 1, MoneyLent: dec("1500"), Method: Cash},
		{Room: "2", FirstFloor: 1, MoneyLent: dec("800"), Method: MPesa},
		{Room: "3", Ground: 3, MoneyLent: dec("700"), Method: Cash},
	}
	tally := TallyAccommodation(records)
	if tally.Rooms != 3 || tally.FirstFloor != 3 || tally.Ground != 4 || !tally.MoneyLent.Equal(dec("3000")) {
		t.Fatalf("unexpected tally: %+v", tally)
	}
	by := TallyByMethod(records)
	if len(by) != 2 || by[0].Method != Cash || !by[0].Amount.Equal(dec("2200")) || by[1].Method != MPesa {
		t.Fatalf("unexpected method tally: %+v", by)
	}
	if err := (AccommodationRecord{Ground: -1}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func sampleSession() *Session {
	c := Catalog{"TUSKER", "BALOZI"}
	s := NewSession(NewDate(2024, 1, 1), c, PriceBook{"TUSKER": dec("250"), "BALOZI": dec("200")})
	_ = s.SetCounts(0, 10, 5, 8)
	_ = s.SetCounts(1, 2, 0, 0)
	_ = s.AddExpense(ExpenseLine{Description: "Fuel", Amount: dec("500")})
	_ = s.AddExpense(ExpenseLine{Description: "Repairs", Amount: dec("1200")})
	_ = s.UpdateAccommodation(0, AccommodationRecord{Room: "A", FirstFloor: 1, MoneyLent: dec("1000"), Method: MPesa})
	_ = s.SetMoney(dec("300"), dec("50"))
	return s
}

func TestSummarize(t *testing.T) {
	s := sampleSession()

	sum := Summarize(s, SummaryOptions{})
	if !sum.StockSalesAmount.Equal(dec("2150")) || !sum.TotalSalesAmount.Equal(dec("2150")) {
		t.Fatalf("unexpected sales: %+v", sum)
	}
	if !sum.TotalExpenses.Equal(dec("1700")) {
		t.Fatalf("TotalExpenses = %s", sum.TotalExpenses)
	}
	// (2150 + 50) - (1700 + 300)
	if !sum.NetProfit.Equal(dec("200")) {
		t.Fatalf("NetProfit = %s", sum.NetProfit)
	}

	with := Summarize(s, SummaryOptions{IncludeAccommodation: true})
	if !with.AccommodationAmount.Equal(dec("1000")) || !with.TotalSalesAmount.Equal(dec("3150")) || !with.NetProfit.Equal(dec("1200")) {
		t.Fatalf("unexpected summary with accommodation: %+v", with)
	}
}

func TestSummarizeIsIdempotent(t *testing.T) {
	s := sampleSession()
	before := s.Clone()
	a := Summarize(s, SummaryOptions{})
	b := Summarize(s, SummaryOptions{})
	if !a.NetProfit.Equal(b.NetProfit) || !a.TotalSalesAmount.Equal(b.TotalSalesAmount) {
		t.Fatalf("summaries differ: %+v vs %+v", a, b)
	}
	if !s.Prices.Equal(before.Prices) || len(s.Expenses) != len(before.Expenses) {
		t.Fatal("Summarize must not mutate the session")
	}
}
