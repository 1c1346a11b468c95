package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/google/subcommands"

	"pillars/internal/core"
	"pillars/internal/services"
)

// OpenFunc opens the ledger for one command run. The returned func
// releases it.
type OpenFunc func(ctx context.Context) (*services.LedgerService, func() error, error)

// App carries what every subcommand needs. As a CLI it lives for a single
// command.
type App struct {
	Open      OpenFunc
	Out       io.Writer
	Err       io.Writer
	Plain     bool
	ExportDir string
}

// Register adds the ledger subcommands to c.
func Register(c *subcommands.Commander, app *App) {
	c.Register(&datesCmd{app: app}, "ledger")
	c.Register(&summaryCmd{app: app}, "ledger")
	c.Register(&exportCmd{app: app}, "ledger")
	c.Register(&priceCmd{app: app}, "ledger")
}

func (a *App) fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(a.Err, format+"\n", args...)
	return subcommands.ExitFailure
}

func (a *App) with(ctx context.Context, fn func(*services.LedgerService) subcommands.ExitStatus) subcommands.ExitStatus {
	ledger, closeFn, err := a.Open(ctx)
	if err != nil {
		return a.fail("Error opening ledger: %v", err)
	}
	defer func() {
		if err := closeFn(); err != nil {
			fmt.Fprintf(a.Err, "Error closing ledger: %v\n", err)
		}
	}()
	return fn(ledger)
}

func parseDateFlag(s string) (core.Date, error) {
	if s == "" {
		return core.Today(), nil
	}
	return core.ParseDate(s)
}

type datesCmd struct {
	app *App
}

func (*datesCmd) Name() string     { return "dates" }
func (*datesCmd) Synopsis() string { return "list the dates with saved data, most recent first" }
func (*datesCmd) Usage() string {
	return `pillars-cli dates
`
}
func (*datesCmd) SetFlags(*flag.FlagSet) {}

func (c *datesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.with(ctx, func(l *services.LedgerService) subcommands.ExitStatus {
		dates, err := l.ListDates(ctx)
		if err != nil {
			return c.app.fail("Error listing dates: %v", err)
		}
		for _, d := range dates {
			fmt.Fprintln(c.app.Out, d.Key())
		}
		return subcommands.ExitSuccess
	})
}

type summaryCmd struct {
	app    *App
	date   string
	asJSON bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print the report and profit of a day" }
func (*summaryCmd) Usage() string {
	return `pillars-cli summary [-d <date>] [-json]

  Loads the saved data of a date (today by default) and prints the stock,
  accommodation and expense tables with the derived profit.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "The date to report (YYYY-MM-DD, defaults to today).")
	f.BoolVar(&c.asJSON, "json", false, "Print the summary amounts as JSON.")
}

type summaryOutput struct {
	Date          string `json:"date"`
	Saved         bool   `json:"saved"`
	TotalSales    string `json:"total_sales_amount"`
	TotalExpenses string `json:"total_expenses"`
	MoneyPaid     string `json:"money_paid"`
	MoneyInvested string `json:"money_invested"`
	NetProfit     string `json:"net_profit"`
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	d, err := parseDateFlag(c.date)
	if err != nil {
		return c.app.fail("Error parsing date: %v", err)
	}
	return c.app.with(ctx, func(l *services.LedgerService) subcommands.ExitStatus {
		loaded, err := l.LoadSession(ctx, d)
		if err != nil {
			return c.app.fail("Error loading %s: %v", d.Key(), err)
		}
		for _, w := range loaded.Warnings {
			fmt.Fprintf(c.app.Err, "warning: %s\n", w)
		}
		sum := l.Summary(loaded.Session)
		if c.asJSON {
			enc := json.NewEncoder(c.app.Out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(summaryOutput{
				Date:          d.Key(),
				Saved:         loaded.Found,
				TotalSales:    core.FormatPlain(sum.TotalSalesAmount),
				TotalExpenses: core.FormatPlain(sum.TotalExpenses),
				MoneyPaid:     core.FormatPlain(sum.MoneyPaid),
				MoneyInvested: core.FormatPlain(sum.MoneyInvested),
				NetProfit:     core.FormatPlain(sum.NetProfit),
			}); err != nil {
				return c.app.fail("Error encoding summary: %v", err)
			}
			return subcommands.ExitSuccess
		}
		fmt.Fprint(c.app.Out, renderMarkdown(DayMarkdown(loaded.Session, sum, loaded.Found), c.app.Plain))
		return subcommands.ExitSuccess
	})
}

type exportCmd struct {
	app  *App
	date string
	dir  string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write the XLSX report of a saved day" }
func (*exportCmd) Usage() string {
	return `pillars-cli export [-d <date>] [-o <dir>]
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "The date to export (YYYY-MM-DD, defaults to today).")
	f.StringVar(&c.dir, "o", "", "Output directory (defaults to EXPORT_DIR).")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	d, err := parseDateFlag(c.date)
	if err != nil {
		return c.app.fail("Error parsing date: %v", err)
	}
	dir := c.dir
	if dir == "" {
		dir = c.app.ExportDir
	}
	return c.app.with(ctx, func(l *services.LedgerService) subcommands.ExitStatus {
		path, err := l.ExportDate(ctx, d, dir)
		if errors.Is(err, core.ErrMissingResource) {
			return c.app.fail("Nothing saved for %s", d.Key())
		}
		if err != nil {
			return c.app.fail("Error exporting %s: %v", d.Key(), err)
		}
		fmt.Fprintln(c.app.Out, path)
		return subcommands.ExitSuccess
	})
}

type priceCmd struct {
	app *App
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "show the price book or set the price of an item" }
func (*priceCmd) Usage() string {
	return `pillars-cli price [<item> <price>]

  Without arguments, prints every catalog item with its current price.
  With an item and a price, stores the new price for future days.
`
}
func (*priceCmd) SetFlags(*flag.FlagSet) {}

func (c *priceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	switch f.NArg() {
	case 0:
		return c.app.with(ctx, func(l *services.LedgerService) subcommands.ExitStatus {
			prices, err := l.Prices(ctx)
			if err != nil {
				return c.app.fail("Error loading prices: %v", err)
			}
			for _, item := range l.Catalog().Items() {
				fmt.Fprintf(c.app.Out, "%s\t%s\n", item, core.FormatPlain(prices.Price(item)))
			}
			return subcommands.ExitSuccess
		})
	case 2:
		item := f.Arg(0)
		price, err := core.ParseAmount(item+" price", f.Arg(1))
		if err != nil {
			return c.app.fail("%v", err)
		}
		return c.app.with(ctx, func(l *services.LedgerService) subcommands.ExitStatus {
			if err := l.SetItemPrice(ctx, item, price); err != nil {
				return c.app.fail("Error setting price: %v", err)
			}
			fmt.Fprintf(c.app.Out, "%s\t%s\n", item, core.FormatPlain(price))
			return subcommands.ExitSuccess
		})
	default:
		fmt.Fprint(c.app.Err, c.Usage())
		return subcommands.ExitUsageError
	}
}
