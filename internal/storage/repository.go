package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"pillars/internal/core"
	"pillars/internal/sheets"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores the ledger in one SQLite database. Each section
// save runs in its own transaction.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between concurrent section saves.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("SQLite repository ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", core.ErrPersistence, op, err)
}

func (r *SQLiteRepository) hasSection(ctx context.Context, d core.Date, sec sheets.Section) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM day_sections WHERE day = ? AND section = ?`, d.Key(), string(sec)).Scan(&n)
	if err != nil {
		return false, persistence("check "+string(sec), err)
	}
	return n > 0, nil
}

// replaceSection deletes the previous rows of a section, lets fill insert
// the new ones and marks the section saved, all in one transaction.
func (r *SQLiteRepository) replaceSection(ctx context.Context, d core.Date, sec sheets.Section, table string, fill func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence("begin "+string(sec), err)
	}
	defer tx.Rollback()

	if table != "" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE day = ?`, d.Key()); err != nil {
			return persistence("clear "+string(sec), err)
		}
	}
	if err := fill(tx); err != nil {
		return persistence("write "+string(sec), err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO day_sections (day, section, saved_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (day, section) DO UPDATE SET saved_at = excluded.saved_at`,
		d.Key(), string(sec)); err != nil {
		return persistence("mark "+string(sec), err)
	}
	if err := tx.Commit(); err != nil {
		return persistence("commit "+string(sec), err)
	}
	return nil
}

func (r *SQLiteRepository) LoadPrices(ctx context.Context) (core.PriceBook, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT item, price FROM prices`)
	if err != nil {
		return nil, persistence("load prices", err)
	}
	defer rows.Close()

	book := core.PriceBook{}
	for rows.Next() {
		var item, price string
		if err := rows.Scan(&item, &price); err != nil {
			return nil, persistence("scan price", err)
		}
		p, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("%w: price of %s: %q", core.ErrDataInconsistency, item, price)
		}
		book[item] = p
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("load prices", err)
	}
	if len(book) == 0 {
		return nil, fmt.Errorf("%w: price book", core.ErrMissingResource)
	}
	return book, nil
}

func (r *SQLiteRepository) SavePrices(ctx context.Context, prices core.PriceBook) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence("begin prices", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM prices`); err != nil {
		return persistence("clear prices", err)
	}
	for _, item := range prices.Items() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO prices (item, price) VALUES (?, ?)`, item, prices[item].String()); err != nil {
			return persistence("save price of "+item, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return persistence("commit prices", err)
	}
	return nil
}

func (r *SQLiteRepository) LoadStock(ctx context.Context, d core.Date) ([]core.StockLine, error) {
	if ok, err := r.hasSection(ctx, d, sheets.SectionStock); err != nil || !ok {
		return nil, missingOr(err, "stock", d)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT item, opening, purchases, closing, price FROM stock_lines WHERE day = ? ORDER BY position`, d.Key())
	if err != nil {
		return nil, persistence("load stock", err)
	}
	defer rows.Close()

	out := []core.StockLine{}
	for rows.Next() {
		var (
			l     core.StockLine
			price string
		)
		if err := rows.Scan(&l.Item, &l.Opening, &l.Purchases, &l.Closing, &price); err != nil {
			return nil, persistence("scan stock", err)
		}
		if l.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("%w: price of %s on %s: %q", core.ErrDataInconsistency, l.Item, d, price)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("load stock", err)
	}
	return out, nil
}

func (r *SQLiteRepository) SaveStock(ctx context.Context, d core.Date, lines []core.StockLine) error {
	return r.replaceSection(ctx, d, sheets.SectionStock, "stock_lines", func(tx *sql.Tx) error {
		for i, l := range lines {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO stock_lines (day, position, item, opening, purchases, closing, price) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				d.Key(), i, l.Item, l.Opening, l.Purchases, l.Closing, l.Price.String()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) LoadAccommodation(ctx context.Context, d core.Date) ([]core.AccommodationRecord, error) {
	if ok, err := r.hasSection(ctx, d, sheets.SectionAccommodation); err != nil || !ok {
		return nil, missingOr(err, "accommodation", d)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT room, first_floor, ground, money_lent, method FROM accommodation_records WHERE day = ? ORDER BY position`, d.Key())
	if err != nil {
		return nil, persistence("load accommodation", err)
	}
	defer rows.Close()

	out := []core.AccommodationRecord{}
	for rows.Next() {
		var (
			rec    core.AccommodationRecord
			amount string
			method string
		)
		if err := rows.Scan(&rec.Room, &rec.FirstFloor, &rec.Ground, &amount, &method); err != nil {
			return nil, persistence("scan accommodation", err)
		}
		if rec.MoneyLent, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("%w: money lent on %s: %q", core.ErrDataInconsistency, d, amount)
		}
		rec.Method = core.PaymentMethod(method)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("load accommodation", err)
	}
	return out, nil
}

func (r *SQLiteRepository) SaveAccommodation(ctx context.Context, d core.Date, records []core.AccommodationRecord) error {
	return r.replaceSection(ctx, d, sheets.SectionAccommodation, "accommodation_records", func(tx *sql.Tx) error {
		for i, rec := range records {
			method := rec.Method
			if method == "" {
				method = core.Cash
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO accommodation_records (day, position, room, first_floor, ground, money_lent, method) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				d.Key(), i, rec.Room, rec.FirstFloor, rec.Ground, rec.MoneyLent.String(), string(method)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) LoadExpenses(ctx context.Context, d core.Date) ([]core.ExpenseLine, error) {
	if ok, err := r.hasSection(ctx, d, sheets.SectionExpenses); err != nil || !ok {
		return nil, missingOr(err, "expenses", d)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT description, amount FROM expense_lines WHERE day = ? ORDER BY position`, d.Key())
	if err != nil {
		return nil, persistence("load expenses", err)
	}
	defer rows.Close()

	out := []core.ExpenseLine{}
	for rows.Next() {
		var (
			l      core.ExpenseLine
			amount string
		)
		if err := rows.Scan(&l.Description, &amount); err != nil {
			return nil, persistence("scan expense", err)
		}
		if l.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("%w: expense amount on %s: %q", core.ErrDataInconsistency, d, amount)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("load expenses", err)
	}
	return out, nil
}

func (r *SQLiteRepository) SaveExpenses(ctx context.Context, d core.Date, lines []core.ExpenseLine) error {
	return r.replaceSection(ctx, d, sheets.SectionExpenses, "expense_lines", func(tx *sql.Tx) error {
		for i, l := range lines {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO expense_lines (day, position, description, amount) VALUES (?, ?, ?, ?)`,
				d.Key(), i, l.Description, l.Amount.String()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) LoadAmount(ctx context.Context, d core.Date, sec sheets.Section) (decimal.Decimal, error) {
	if !sec.IsAmount() {
		return decimal.Zero, fmt.Errorf("%w: %s is not an amount section", core.ErrInvalidInput, sec)
	}
	var amount string
	err := r.db.QueryRowContext(ctx,
		`SELECT amount FROM day_amounts WHERE day = ? AND section = ?`, d.Key(), string(sec)).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %s for %s", core.ErrMissingResource, sec, d)
	}
	if err != nil {
		return decimal.Zero, persistence("load "+string(sec), err)
	}
	v, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s for %s: %q", core.ErrDataInconsistency, sec, d, amount)
	}
	return v, nil
}

func (r *SQLiteRepository) SaveAmount(ctx context.Context, d core.Date, sec sheets.Section, v decimal.Decimal) error {
	if !sec.IsAmount() {
		return fmt.Errorf("%w: %s is not an amount section", core.ErrInvalidInput, sec)
	}
	return r.replaceSection(ctx, d, sec, "", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO day_amounts (day, section, amount) VALUES (?, ?, ?)
			 ON CONFLICT (day, section) DO UPDATE SET amount = excluded.amount`,
			d.Key(), string(sec), v.String())
		return err
	})
}

func (r *SQLiteRepository) ListDates(ctx context.Context) ([]core.Date, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT day FROM day_sections ORDER BY day DESC`)
	if err != nil {
		return nil, persistence("list dates", err)
	}
	defer rows.Close()

	var out []core.Date
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, persistence("scan date", err)
		}
		d, err := core.ParseDate(key)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("list dates", err)
	}
	return out, nil
}

func missingOr(err error, what string, d core.Date) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s for %s", core.ErrMissingResource, what, d)
}

var _ sheets.Store = (*SQLiteRepository)(nil)
