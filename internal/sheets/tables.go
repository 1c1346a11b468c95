package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"pillars/internal/core"
)

// Column headers shared by every tabular backend and the report export.
var (
	PricesHeader        = []string{"Item", "Price"}
	StockHeader         = []string{"Item", "Opening Stock", "Purchases", "Closing Stock", "Sales", "Price per Item", "Amount"}
	AccommodationHeader = []string{"Room", "1st Floor Rooms", "Ground Floor Rooms", "Money Lendered", "Payment Method"}
	ExpensesHeader      = []string{"Item", "Amount"}
	SummaryHeader       = []string{"Total Sales", "Expenses", "Money Paid to Boss", "Money Invested", "Profit"}
)

// EncodePrices renders the book sorted by item, header first.
func EncodePrices(b core.PriceBook) [][]string {
	rows := [][]string{PricesHeader}
	for _, item := range b.Items() {
		rows = append(rows, []string{item, b[item].String()})
	}
	return rows
}

func DecodePrices(rows [][]string) (core.PriceBook, error) {
	cols, body := columns(rows, PricesHeader)
	b := core.PriceBook{}
	for i, r := range body {
		item := cell(r, cols[0])
		if item == "" {
			continue
		}
		p, err := amountCell(r, cols[1])
		if err != nil {
			return nil, corrupt("prices", i, err)
		}
		b[item] = p
	}
	return b, nil
}

// EncodeStock renders the sheet with the derived Sales and Amount columns
// so the saved file reads like the on-screen table.
func EncodeStock(lines []core.StockLine) [][]string {
	rows := [][]string{StockHeader}
	for _, l := range lines {
		rows = append(rows, []string{
			l.Item,
			strconv.Itoa(l.Opening),
			strconv.Itoa(l.Purchases),
			strconv.Itoa(l.Closing),
			strconv.Itoa(l.Sales()),
			l.Price.String(),
			core.FormatPlain(l.Amount()),
		})
	}
	return rows
}

// DecodeStock ignores the saved Sales and Amount columns; they are derived.
func DecodeStock(rows [][]string) ([]core.StockLine, error) {
	cols, body := columns(rows, StockHeader)
	var err error
	out := make([]core.StockLine, 0, len(body))
	for i, r := range body {
		l := core.StockLine{Item: cell(r, cols[0])}
		if l.Item == "" {
			continue
		}
		if l.Opening, err = countCell(r, cols[1]); err != nil {
			return nil, corrupt("stock", i, err)
		}
		if l.Purchases, err = countCell(r, cols[2]); err != nil {
			return nil, corrupt("stock", i, err)
		}
		if l.Closing, err = countCell(r, cols[3]); err != nil {
			return nil, corrupt("stock", i, err)
		}
		if l.Price, err = amountCell(r, cols[5]); err != nil {
			return nil, corrupt("stock", i, err)
		}
		out = append(out, l)
	}
	return out, nil
}

func EncodeAccommodation(records []core.AccommodationRecord) [][]string {
	rows := [][]string{AccommodationHeader}
	for _, r := range records {
		rows = append(rows, []string{
			r.Room,
			strconv.Itoa(r.FirstFloor),
			strconv.Itoa(r.Ground),
			r.MoneyLent.String(),
			string(r.Method),
		})
	}
	return rows
}

func DecodeAccommodation(rows [][]string) ([]core.AccommodationRecord, error) {
	cols, body := columns(rows, AccommodationHeader)
	var err error
	out := make([]core.AccommodationRecord, 0, len(body))
	for i, r := range body {
		rec := core.AccommodationRecord{Room: cell(r, cols[0])}
		if rec.FirstFloor, err = countCell(r, cols[1]); err != nil {
			return nil, corrupt("accommodation", i, err)
		}
		if rec.Ground, err = countCell(r, cols[2]); err != nil {
			return nil, corrupt("accommodation", i, err)
		}
		if rec.MoneyLent, err = amountCell(r, cols[3]); err != nil {
			return nil, corrupt("accommodation", i, err)
		}
		if rec.Method, err = core.ParsePaymentMethod(cell(r, cols[4])); err != nil {
			return nil, corrupt("accommodation", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func EncodeExpenses(lines []core.ExpenseLine) [][]string {
	rows := [][]string{ExpensesHeader}
	for _, l := range lines {
		rows = append(rows, []string{l.Description, l.Amount.String()})
	}
	return rows
}

func DecodeExpenses(rows [][]string) ([]core.ExpenseLine, error) {
	cols, body := columns(rows, ExpensesHeader)
	var err error
	out := make([]core.ExpenseLine, 0, len(body))
	for i, r := range body {
		l := core.ExpenseLine{Description: cell(r, cols[0])}
		if l.Amount, err = amountCell(r, cols[1]); err != nil {
			return nil, corrupt("expenses", i, err)
		}
		out = append(out, l)
	}
	return out, nil
}

// EncodeSummary renders the one-row summary table, amounts with two decimals.
func EncodeSummary(s core.DailySummary) [][]string {
	return [][]string{SummaryHeader, {
		core.FormatPlain(s.TotalSalesAmount),
		core.FormatPlain(s.TotalExpenses),
		core.FormatPlain(s.MoneyPaid),
		core.FormatPlain(s.MoneyInvested),
		core.FormatPlain(s.NetProfit),
	}}
}

// columns maps each wanted header to its index in the first row. A table
// without a recognizable header is read positionally.
func columns(rows [][]string, want []string) ([]int, [][]string) {
	idx := make([]int, len(want))
	for i := range idx {
		idx[i] = i
	}
	if len(rows) == 0 {
		return idx, nil
	}
	head := rows[0]
	if !strings.EqualFold(strings.TrimSpace(cell(head, 0)), want[0]) {
		return idx, rows
	}
	pos := make(map[string]int, len(head))
	for i, h := range head {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for i, w := range want {
		j, ok := pos[strings.ToLower(w)]
		if !ok {
			j = -1
		}
		idx[i] = j
	}
	return idx, rows[1:]
}

func cell(r []string, i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[i])
}

func countCell(r []string, i int) (int, error) {
	s := cell(r, i)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Spreadsheet round-trips may turn 3 into "3.0".
		d, derr := decimal.NewFromString(s)
		if derr != nil || !d.IsInteger() {
			return 0, fmt.Errorf("count %q: %w", s, err)
		}
		n = int(d.IntPart())
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}

func amountCell(r []string, i int) (decimal.Decimal, error) {
	s := strings.ReplaceAll(cell(r, i), ",", "")
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", s, err)
	}
	return d, nil
}

func corrupt(table string, row int, err error) error {
	return fmt.Errorf("%w: %s row %d: %v", core.ErrDataInconsistency, table, row+1, err)
}
