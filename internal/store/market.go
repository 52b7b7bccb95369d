package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"marketlens/internal/model"
)

// Market is the price/fundamentals/portfolio cache database.
type Market struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewMarket opens (or creates) the market database and runs migrations.
func NewMarket(path string, log zerolog.Logger) (*Market, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS prices (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol    TEXT NOT NULL,
			date      TEXT NOT NULL,
			open      REAL,
			high      REAL,
			low       REAL,
			close     REAL,
			adj_close REAL,
			volume    INTEGER,
			UNIQUE(symbol, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prices_symbol_date ON prices(symbol, date)`,

		`CREATE TABLE IF NOT EXISTS fundamentals (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			key    TEXT NOT NULL,
			value  TEXT,
			as_of  TEXT NOT NULL,
			UNIQUE(symbol, key)
		)`,

		`CREATE TABLE IF NOT EXISTS holdings (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker     TEXT NOT NULL,
			shares     REAL NOT NULL,
			avg_cost   REAL NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE(ticker)
		)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker TEXT NOT NULL,
			action TEXT NOT NULL,
			shares REAL NOT NULL,
			price  REAL NOT NULL,
			at     TEXT NOT NULL
		)`,
	}
	if err := migrate(db, stmts); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate market db: %w", err)
	}
	m := &Market{db: db, log: log.With().Str("store", "market").Logger()}
	m.log.Debug().Str("path", path).Msg("market store opened")
	return m, nil
}

// Close releases the underlying database handle.
func (m *Market) Close() error { return m.db.Close() }

// UpsertPriceBars writes a batch of bars in one transaction. Conflicting
// (symbol, date) rows are replaced, non-conflicting rows inserted. The update
// is change-guarded, so re-ingesting identical bars affects zero rows.
// Returns the number of rows inserted or updated.
func (m *Market) UpsertPriceBars(bars []model.PriceBar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}
	changed := 0
	err := withTx(m.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO prices(symbol, date, open, high, low, close, adj_close, volume)
			VALUES(?,?,?,?,?,?,?,?)
			ON CONFLICT(symbol, date) DO UPDATE SET
				open=excluded.open,
				high=excluded.high,
				low=excluded.low,
				close=excluded.close,
				adj_close=excluded.adj_close,
				volume=excluded.volume
			WHERE open IS NOT excluded.open
			   OR high IS NOT excluded.high
			   OR low IS NOT excluded.low
			   OR close IS NOT excluded.close
			   OR adj_close IS NOT excluded.adj_close
			   OR volume IS NOT excluded.volume`)
		if err != nil {
			return fmt.Errorf("prepare price upsert: %w", err)
		}
		defer stmt.Close()
		for _, b := range bars {
			res, err := stmt.Exec(b.Symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume)
			if err != nil {
				return fmt.Errorf("upsert bar %s/%s: %w", b.Symbol, b.Date, err)
			}
			n, _ := res.RowsAffected()
			changed += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// UpsertFundamentals replaces the stored attributes for one symbol. Every key
// in the batch receives the same new as-of timestamp. An empty map is a no-op.
func (m *Market) UpsertFundamentals(symbol string, attrs model.Attributes) (int, error) {
	if len(attrs) == 0 {
		return 0, nil
	}
	asOf := time.Now().UTC().Format(time.RFC3339)
	changed := 0
	err := withTx(m.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO fundamentals(symbol, key, value, as_of)
			VALUES(?,?,?,?)
			ON CONFLICT(symbol, key) DO UPDATE SET
				value=excluded.value,
				as_of=excluded.as_of`)
		if err != nil {
			return fmt.Errorf("prepare fundamentals upsert: %w", err)
		}
		defer stmt.Close()
		for key, val := range attrs {
			res, err := stmt.Exec(symbol, key, val.String(), asOf)
			if err != nil {
				return fmt.Errorf("upsert fundamental %s/%s: %w", symbol, key, err)
			}
			n, _ := res.RowsAffected()
			changed += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// LatestPrice returns the most recent bar for a symbol by date, or nil when
// nothing is cached. An absent price is not an error.
func (m *Market) LatestPrice(symbol string) (*model.PriceBar, error) {
	row := m.db.QueryRow(`
		SELECT symbol, date, open, high, low, close, adj_close, volume
		FROM prices WHERE symbol=? ORDER BY date DESC LIMIT 1`,
		normalizeTicker(symbol))
	var b model.PriceBar
	err := row.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest price: %w", err)
	}
	return &b, nil
}

// RecentPrices returns up to limit bars for a symbol, most recent first.
func (m *Market) RecentPrices(symbol string, limit int) ([]model.PriceBar, error) {
	rows, err := m.db.Query(`
		SELECT symbol, date, open, high, low, close, adj_close, volume
		FROM prices WHERE symbol=? ORDER BY date DESC LIMIT ?`,
		normalizeTicker(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent prices: %w", err)
	}
	defer rows.Close()
	var bars []model.PriceBar
	for rows.Next() {
		var b model.PriceBar
		if err := rows.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan price bar: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// FundamentalsFor returns the cached attributes for each requested symbol.
// Stored text values are coerced back to int/float where parseable. Symbols
// with nothing cached simply have no entry in the result.
func (m *Market) FundamentalsFor(symbols []string) (map[string]model.Attributes, error) {
	out := make(map[string]model.Attributes)
	if len(symbols) == 0 {
		return out, nil
	}
	placeholders := strings.Repeat("?,", len(symbols))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(symbols))
	for i, s := range symbols {
		args[i] = normalizeTicker(s)
	}
	rows, err := m.db.Query(
		`SELECT symbol, key, value FROM fundamentals WHERE symbol IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query fundamentals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var symbol, key string
		var value sql.NullString
		if err := rows.Scan(&symbol, &key, &value); err != nil {
			return nil, fmt.Errorf("scan fundamental: %w", err)
		}
		if !value.Valid {
			continue
		}
		attrs, ok := out[symbol]
		if !ok {
			attrs = make(model.Attributes)
			out[symbol] = attrs
		}
		attrs[key] = model.ParseValue(value.String)
	}
	return out, rows.Err()
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}
