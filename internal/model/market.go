package model

// DateLayout is the calendar-day format used for price bar keys, regardless
// of the timestamp format the upstream provider emits.
const DateLayout = "2006-01-02"

// PriceBar represents one daily OHLCV bar for a symbol.
// Uniquely keyed by (Symbol, Date); re-ingestion replaces the value fields.
type PriceBar struct {
	Symbol   string  `json:"symbol"`
	Date     string  `json:"date"` // calendar day, DateLayout
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adj_close"`
	Volume   int64   `json:"volume"`
}

// NewsItem is a single syndicated news entry, deduplicated globally by URL.
// Symbol is a best-effort tag assigned by the feed reader; it is never
// overwritten once stored.
type NewsItem struct {
	Symbol    string `json:"symbol,omitempty"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Published string `json:"published,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Source    string `json:"source,omitempty"`
}
