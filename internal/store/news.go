package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"marketlens/internal/model"
)

// News is the news cache database. It is physically separate from the market
// database; the two share no referential integrity.
type News struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewNews opens (or creates) the news database and runs migrations.
func NewNews(path string, log zerolog.Logger) (*News, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS news (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol    TEXT,
			title     TEXT NOT NULL,
			url       TEXT NOT NULL,
			published TEXT,
			summary   TEXT,
			source    TEXT,
			UNIQUE(url)
		)`,
	}
	if err := migrate(db, stmts); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate news db: %w", err)
	}
	n := &News{db: db, log: log.With().Str("store", "news").Logger()}
	n.log.Debug().Str("path", path).Msg("news store opened")
	return n, nil
}

// Close releases the underlying database handle.
func (n *News) Close() error { return n.db.Close() }

// UpsertNews writes a batch of items in one transaction, deduplicated by URL
// across all feeds. A conflict refreshes title, published, summary and source
// but never the symbol tag: tagging is best-effort and first-write-wins.
func (n *News) UpsertNews(items []model.NewsItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	changed := 0
	err := withTx(n.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO news(symbol, title, url, published, summary, source)
			VALUES(?,?,?,?,?,?)
			ON CONFLICT(url) DO UPDATE SET
				title=excluded.title,
				published=excluded.published,
				summary=excluded.summary,
				source=excluded.source
			WHERE title IS NOT excluded.title
			   OR published IS NOT excluded.published
			   OR summary IS NOT excluded.summary
			   OR source IS NOT excluded.source`)
		if err != nil {
			return fmt.Errorf("prepare news upsert: %w", err)
		}
		defer stmt.Close()
		for _, it := range items {
			res, err := stmt.Exec(nullable(it.Symbol), it.Title, it.URL,
				nullable(it.Published), nullable(it.Summary), nullable(it.Source))
			if err != nil {
				return fmt.Errorf("upsert news %s: %w", it.URL, err)
			}
			rows, _ := res.RowsAffected()
			changed += int(rows)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// LatestNews returns up to limit items in insertion order, newest first.
func (n *News) LatestNews(limit int) ([]model.NewsItem, error) {
	rows, err := n.db.Query(`
		SELECT symbol, title, url, published, summary, source
		FROM news ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query news: %w", err)
	}
	defer rows.Close()
	var items []model.NewsItem
	for rows.Next() {
		var it model.NewsItem
		var symbol, published, summary, source sql.NullString
		if err := rows.Scan(&symbol, &it.Title, &it.URL, &published, &summary, &source); err != nil {
			return nil, fmt.Errorf("scan news item: %w", err)
		}
		it.Symbol = symbol.String
		it.Published = published.String
		it.Summary = summary.String
		it.Source = source.String
		items = append(items, it)
	}
	return items, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
