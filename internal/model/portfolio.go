package model

import "time"

// Transaction actions. Anything else is rejected with a ValidationError.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

// Holding is one position in the user's portfolio, uniquely keyed by ticker.
// Shares of zero is a deletion sentinel, never a stored state.
type Holding struct {
	Ticker    string    `json:"ticker"`
	Shares    float64   `json:"shares"`
	AvgCost   float64   `json:"avg_cost"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction is one row of the append-only trade audit log. Recording a
// transaction never mutates holdings; that is a separate explicit call.
type Transaction struct {
	Ticker string    `json:"ticker"`
	Action string    `json:"action"`
	Shares float64   `json:"shares"`
	Price  float64   `json:"price"`
	At     time.Time `json:"at"`
}

// HoldingView is a holding enriched with the latest cached price and the
// derived per-position metrics.
type HoldingView struct {
	Ticker       string     `json:"ticker"`
	Shares       float64    `json:"shares"`
	AvgCost      float64    `json:"avg_cost"`
	Last         float64    `json:"last"`
	MarketValue  float64    `json:"market_value"`
	CostBasis    float64    `json:"cost_basis"`
	Pnl          float64    `json:"pnl"`
	PnlPct       float64    `json:"pnl_pct"`
	Weight       float64    `json:"weight"`
	Fundamentals Attributes `json:"fundamentals"`
}

// PositionSummary is the projection used for the largest-positions list.
type PositionSummary struct {
	Ticker      string  `json:"ticker"`
	Weight      float64 `json:"weight"`
	MarketValue float64 `json:"market_value"`
	PnlPct      float64 `json:"pnl_pct"`
}

// SectorExposure is the aggregated market value of one sector group.
type SectorExposure struct {
	Sector string  `json:"sector"`
	Weight float64 `json:"weight"`
	Value  float64 `json:"value"`
}

// Summary holds portfolio-level totals. HealthScore is omitted entirely when
// no scorer is configured or the configured scorer fails.
type Summary struct {
	TotalValue       float64           `json:"total_value"`
	TotalCostBasis   float64           `json:"total_cost_basis"`
	TotalPnl         float64           `json:"total_pnl"`
	PnlPct           float64           `json:"pnl_pct"`
	LargestPositions []PositionSummary `json:"largest_positions"`
	SectorExposure   []SectorExposure  `json:"sector_exposure"`
	HealthScore      *float64          `json:"health_score,omitempty"`
}

// PortfolioSnapshot is the derived point-in-time view of the portfolio.
// It is recomputed on every read and never persisted.
type PortfolioSnapshot struct {
	Holdings    []HoldingView `json:"holdings"`
	Summary     Summary       `json:"summary"`
	GeneratedAt time.Time     `json:"generated_at"`
}
