package store

import (
	"fmt"
	"time"

	"marketlens/internal/model"
)

// Holdings returns all current positions ordered by ticker ascending.
func (m *Market) Holdings() ([]model.Holding, error) {
	rows, err := m.db.Query(
		`SELECT ticker, shares, avg_cost, updated_at FROM holdings ORDER BY ticker ASC`)
	if err != nil {
		return nil, fmt.Errorf("query holdings: %w", err)
	}
	defer rows.Close()
	var holdings []model.Holding
	for rows.Next() {
		var h model.Holding
		var updatedAt string
		if err := rows.Scan(&h.Ticker, &h.Shares, &h.AvgCost, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		h.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// UpsertHolding creates or replaces a position. Shares of zero deletes the
// row; zero is a sentinel, not a valid position.
func (m *Market) UpsertHolding(ticker string, shares, avgCost float64) error {
	ticker = normalizeTicker(ticker)
	if ticker == "" {
		return &ValidationError{Msg: "ticker must not be empty"}
	}
	if shares == 0 {
		if _, err := m.db.Exec(`DELETE FROM holdings WHERE ticker=?`, ticker); err != nil {
			return fmt.Errorf("delete holding %s: %w", ticker, err)
		}
		return nil
	}
	_, err := m.db.Exec(`
		INSERT INTO holdings(ticker, shares, avg_cost, updated_at)
		VALUES(?,?,?,?)
		ON CONFLICT(ticker) DO UPDATE SET
			shares=excluded.shares,
			avg_cost=excluded.avg_cost,
			updated_at=excluded.updated_at`,
		ticker, shares, avgCost, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert holding %s: %w", ticker, err)
	}
	return nil
}

// RecordTransaction appends one row to the trade audit log. It deliberately
// does not touch holdings; position mutation is a separate explicit call.
func (m *Market) RecordTransaction(ticker, action string, shares, price float64) error {
	ticker = normalizeTicker(ticker)
	if ticker == "" {
		return &ValidationError{Msg: "ticker must not be empty"}
	}
	if action != model.ActionBuy && action != model.ActionSell {
		return &ValidationError{Msg: fmt.Sprintf("action must be %q or %q", model.ActionBuy, model.ActionSell)}
	}
	_, err := m.db.Exec(
		`INSERT INTO transactions(ticker, action, shares, price, at) VALUES(?,?,?,?,?)`,
		ticker, action, shares, price, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record transaction %s: %w", ticker, err)
	}
	return nil
}

// Transactions returns the most recent limit rows of the audit log,
// newest first.
func (m *Market) Transactions(limit int) ([]model.Transaction, error) {
	rows, err := m.db.Query(
		`SELECT ticker, action, shares, price, at FROM transactions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()
	var txs []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var at string
		if err := rows.Scan(&t.Ticker, &t.Action, &t.Shares, &t.Price, &at); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.At, _ = time.Parse(time.RFC3339, at)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
