// Package export renders a saved day as a downloadable XLSX workbook with
// Stock, Accommodation, Expenses and Summary sheets.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"pillars/internal/core"
	"pillars/internal/sheets"
)

const (
	SheetStock         = "Stock"
	SheetAccommodation = "Accommodation"
	SheetExpenses      = "Expenses"
	SheetSummary       = "Summary"
)

// FileName returns the download name of the report for d.
func FileName(d core.Date) string {
	return fmt.Sprintf("pillars_report_%s.xlsx", d.Key())
}

type styles struct {
	header int
	money  int
	total  int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	if s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	}); err != nil {
		return s, err
	}
	if s.money, err = f.NewStyle(&excelize.Style{NumFmt: 4}); err != nil { // #,##0.00
		return s, err
	}
	s.total, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 4})
	return s, err
}

func amount(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// Build returns the workbook for a day. The caller closes it.
func Build(day sheets.Day, summary core.DailySummary) (*excelize.File, error) {
	f := excelize.NewFile()
	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create styles: %w", err)
	}
	if err := f.SetSheetName("Sheet1", SheetStock); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename first sheet: %w", err)
	}
	for _, name := range []string{SheetAccommodation, SheetExpenses, SheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("add sheet %s: %w", name, err)
		}
	}

	steps := []func(*excelize.File, styles) error{
		func(f *excelize.File, st styles) error { return writeStock(f, st, day.Stock) },
		func(f *excelize.File, st styles) error { return writeAccommodation(f, st, day.Accommodation) },
		func(f *excelize.File, st styles) error { return writeExpenses(f, st, day.Expenses) },
		func(f *excelize.File, st styles) error { return writeSummary(f, st, summary) },
	}
	for _, step := range steps {
		if err := step(f, st); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write streams the workbook for a day to w.
func Write(w io.Writer, day sheets.Day, summary core.DailySummary) error {
	f, err := Build(day, summary)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveFile writes the workbook into dir under FileName and returns its path.
func SaveFile(dir string, day sheets.Day, summary core.DailySummary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	f, err := Build(day, summary)
	if err != nil {
		return "", err
	}
	defer f.Close()
	path := filepath.Join(dir, FileName(day.Date))
	// SaveAs rejects names without a workbook extension, so the temp file
	// keeps .xlsx and goes through Write.
	tmp, err := os.CreateTemp(dir, ".report-*.xlsx")
	if err != nil {
		return "", fmt.Errorf("create temp workbook: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("save workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func writeHeader(f *excelize.File, st styles, sheet string, header []string) error {
	values := make([]any, len(header))
	for i, h := range header {
		values[i] = h
	}
	if err := writeRow(f, sheet, 1, values); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, st.header); err != nil {
		return err
	}
	last, _ := excelize.ColumnNumberToName(len(header))
	return f.SetColWidth(sheet, "A", last, 18)
}

func moneyColumns(f *excelize.File, st styles, sheet string, lastRow int, cols ...string) error {
	if lastRow < 2 {
		return nil
	}
	for _, c := range cols {
		if err := f.SetCellStyle(sheet, fmt.Sprintf("%s2", c), fmt.Sprintf("%s%d", c, lastRow), st.money); err != nil {
			return err
		}
	}
	return nil
}

func writeStock(f *excelize.File, st styles, lines []core.StockLine) error {
	if err := writeHeader(f, st, SheetStock, sheets.StockHeader); err != nil {
		return err
	}
	sheet := core.StockSheet{Lines: lines}
	row := 2
	for _, l := range lines {
		if err := writeRow(f, SheetStock, row, []any{
			l.Item, l.Opening, l.Purchases, l.Closing, l.Sales(), amount(l.Price), amount(l.Amount()),
		}); err != nil {
			return err
		}
		row++
	}
	if err := moneyColumns(f, st, SheetStock, row-1, "F", "G"); err != nil {
		return err
	}
	if err := writeRow(f, SheetStock, row, []any{"Total", nil, nil, nil, sheet.TotalSales(), nil, amount(sheet.TotalSalesAmount())}); err != nil {
		return err
	}
	return f.SetRowStyle(SheetStock, row, row, st.total)
}

func writeAccommodation(f *excelize.File, st styles, records []core.AccommodationRecord) error {
	if err := writeHeader(f, st, SheetAccommodation, sheets.AccommodationHeader); err != nil {
		return err
	}
	row := 2
	for _, r := range records {
		if err := writeRow(f, SheetAccommodation, row, []any{
			r.Room, r.FirstFloor, r.Ground, amount(r.MoneyLent), string(r.Method),
		}); err != nil {
			return err
		}
		row++
	}
	if err := moneyColumns(f, st, SheetAccommodation, row-1, "D"); err != nil {
		return err
	}
	t := core.TallyAccommodation(records)
	if err := writeRow(f, SheetAccommodation, row, []any{"Total", t.FirstFloor, t.Ground, amount(t.MoneyLent)}); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetAccommodation, row, row, st.total); err != nil {
		return err
	}
	for _, m := range core.TallyByMethod(records) {
		row++
		if err := writeRow(f, SheetAccommodation, row, []any{string(m.Method), nil, nil, amount(m.Amount)}); err != nil {
			return err
		}
	}
	return nil
}

func writeExpenses(f *excelize.File, st styles, lines []core.ExpenseLine) error {
	if err := writeHeader(f, st, SheetExpenses, sheets.ExpensesHeader); err != nil {
		return err
	}
	row := 2
	for _, l := range lines {
		if err := writeRow(f, SheetExpenses, row, []any{l.Description, amount(l.Amount)}); err != nil {
			return err
		}
		row++
	}
	if err := moneyColumns(f, st, SheetExpenses, row-1, "B"); err != nil {
		return err
	}
	if err := writeRow(f, SheetExpenses, row, []any{"Total", amount(core.TotalExpenses(lines))}); err != nil {
		return err
	}
	return f.SetRowStyle(SheetExpenses, row, row, st.total)
}

func writeSummary(f *excelize.File, st styles, s core.DailySummary) error {
	if err := writeHeader(f, st, SheetSummary, sheets.SummaryHeader); err != nil {
		return err
	}
	if err := writeRow(f, SheetSummary, 2, []any{
		amount(s.TotalSalesAmount), amount(s.TotalExpenses), amount(s.MoneyPaid), amount(s.MoneyInvested), amount(s.NetProfit),
	}); err != nil {
		return err
	}
	return f.SetCellStyle(SheetSummary, "A2", "E2", st.money)
}
