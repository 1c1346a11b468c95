package export

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"pillars/internal/core"
	"pillars/internal/sheets"
)

func sampleDay() (sheets.Day, core.DailySummary) {
	c := core.Catalog{"TUSKER", "BALOZI"}
	s := core.NewSession(core.NewDate(2024, 1, 1), c, core.PriceBook{"TUSKER": decimal.NewFromInt(250), "BALOZI": decimal.NewFromInt(200)})
	_ = s.SetCounts(0, 10, 5, 8)
	_ = s.AddExpense(core.ExpenseLine{Description: "Fuel", Amount: decimal.NewFromInt(500)})
	_ = s.AddExpense(core.ExpenseLine{Description: "Repairs", Amount: decimal.NewFromInt(1200)})
	_ = s.UpdateAccommodation(0, core.AccommodationRecord{Room: "A", FirstFloor: 1, MoneyLent: decimal.NewFromInt(900), Method: core.MPesa})
	return sheets.DayFromSession(s), core.Summarize(s, core.SummaryOptions{})
}

func TestFileName(t *testing.T) {
	if got := FileName(core.NewDate(2024, 1, 1)); got != "pillars_report_2024-01-01.xlsx" {
		t.Fatalf("FileName = %s", got)
	}
}

func TestWriteProducesAllSheets(t *testing.T) {
	day, summary := sampleDay()
	var buf bytes.Buffer
	if err := Write(&buf, day, summary); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	want := []string{SheetStock, SheetAccommodation, SheetExpenses, SheetSummary}
	if got := f.GetSheetList(); !reflect.DeepEqual(got, want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}

	stock, err := f.GetRows(SheetStock)
	if err != nil {
		t.Fatal(err)
	}
	// header + 2 lines + total
	if len(stock) != 4 || stock[1][0] != "TUSKER" || stock[1][4] != "7" {
		t.Fatalf("unexpected stock rows: %v", stock)
	}
	if v, _ := f.GetCellValue(SheetStock, "G4", excelize.Options{RawCellValue: true}); v != "1750" {
		t.Fatalf("total sales amount = %q", v)
	}

	expenses, _ := f.GetRows(SheetExpenses)
	if last := expenses[len(expenses)-1]; last[0] != "Total" {
		t.Fatalf("missing expenses total row: %v", expenses)
	}
	if v, _ := f.GetCellValue(SheetExpenses, "B4", excelize.Options{RawCellValue: true}); v != "1700" {
		t.Fatalf("total expenses = %q", v)
	}

	if v, _ := f.GetCellValue(SheetSummary, "E2", excelize.Options{RawCellValue: true}); v != "50" {
		// (1750 + 0) - (1700 + 0)
		t.Fatalf("net profit = %q", v)
	}
}

func TestSaveFile(t *testing.T) {
	day, summary := sampleDay()
	dir := filepath.Join(t.TempDir(), "exports")

	// A second save replaces the first report in place.
	for i := 0; i < 2; i++ {
		path, err := SaveFile(dir, day, summary)
		if err != nil {
			t.Fatalf("SaveFile #%d: %v", i+1, err)
		}
		if filepath.Base(path) != "pillars_report_2024-01-01.xlsx" {
			t.Fatalf("path = %s", path)
		}
		f, err := excelize.OpenFile(path)
		if err != nil {
			t.Fatalf("open saved report: %v", err)
		}
		got := f.GetSheetList()
		f.Close()
		want := []string{SheetStock, SheetAccommodation, SheetExpenses, SheetSummary}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("saved sheets = %v, want %v", got, want)
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected only the report in %s, got %d entries", dir, len(entries))
	}
}

func TestEmptyDayExports(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sheets.Day{Date: core.NewDate(2024, 1, 1)}, core.DailySummary{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected a workbook")
	}
}
