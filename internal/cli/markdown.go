package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"pillars/internal/core"
)

// DayMarkdown renders a day and its summary as a markdown report.
func DayMarkdown(sess *core.Session, sum core.DailySummary, saved bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Daily report %s\n\n", sess.Date.Key())
	if !saved {
		b.WriteString("_Nothing saved for this date yet._\n\n")
	}

	b.WriteString("## Stock\n\n")
	b.WriteString("| Item | Opening | Purchases | Closing | Sales | Price | Amount |\n")
	b.WriteString("|---|--:|--:|--:|--:|--:|--:|\n")
	for _, l := range sess.Stock.Lines {
		if l.Opening == 0 && l.Purchases == 0 && l.Closing == 0 {
			continue
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d | %s | %s |\n",
			l.Item, l.Opening, l.Purchases, l.Closing, l.Sales(), core.FormatPlain(l.Price), core.FormatPlain(l.Amount()))
	}
	fmt.Fprintf(&b, "| **Total** | | | | %d | | %s |\n\n", sess.Stock.TotalSales(), core.FormatPlain(sum.StockSalesAmount))

	if methods := core.TallyByMethod(sess.Accommodation); len(methods) > 0 {
		tally := core.TallyAccommodation(sess.Accommodation)
		b.WriteString("## Accommodation\n\n")
		fmt.Fprintf(&b, "%d first floor and %d ground floor rooms.\n\n", tally.FirstFloor, tally.Ground)
		for _, m := range methods {
			fmt.Fprintf(&b, "- %s: %s\n", m.Method, core.FormatPlain(m.Amount))
		}
		b.WriteString("\n")
	}

	if len(sess.Expenses) > 0 {
		b.WriteString("## Expenses\n\n")
		for _, e := range sess.Expenses {
			fmt.Fprintf(&b, "- %s: %s\n", e.Description, core.FormatPlain(e.Amount))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Summary\n\n")
	b.WriteString("| | Amount |\n|---|--:|\n")
	fmt.Fprintf(&b, "| Total sales | %s |\n", core.FormatAmount(sum.TotalSalesAmount))
	fmt.Fprintf(&b, "| Expenses | %s |\n", core.FormatAmount(sum.TotalExpenses))
	fmt.Fprintf(&b, "| Money paid to boss | %s |\n", core.FormatAmount(sum.MoneyPaid))
	fmt.Fprintf(&b, "| Money invested | %s |\n", core.FormatAmount(sum.MoneyInvested))
	fmt.Fprintf(&b, "| **Profit** | **%s** |\n", core.FormatAmount(sum.NetProfit))
	return b.String()
}

// renderMarkdown styles md for the terminal. Plain output returns md as is.
func renderMarkdown(md string, plain bool) string {
	if plain {
		return md
	}
	out, err := glamour.Render(md, "auto")
	if err != nil {
		return md
	}
	return out
}
