// Package valuation derives the point-in-time portfolio snapshot from
// holdings and the cached prices and fundamentals. It is a pure
// read-compute-format pipeline: nothing is cached, nothing is retried.
package valuation

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"marketlens/internal/model"
)

// Store is the read-only slice of the market database the engine needs.
type Store interface {
	Holdings() ([]model.Holding, error)
	LatestPrice(symbol string) (*model.PriceBar, error)
	FundamentalsFor(symbols []string) (map[string]model.Attributes, error)
}

// Engine computes portfolio snapshots. The scorer is optional; a nil or
// failing scorer just omits the health score from the summary.
type Engine struct {
	store  Store
	scorer HealthScorer
	log    zerolog.Logger
}

// New creates a valuation engine.
func New(store Store, scorer HealthScorer, log zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		scorer: scorer,
		log:    log.With().Str("component", "valuation").Logger(),
	}
}

// Snapshot joins holdings against the latest cached prices and fundamentals
// and computes all derived metrics. Missing upstream data is never an error:
// an uncached price values the position at zero, missing fundamentals leave
// the sector "Unclassified". Only store unavailability fails.
func (e *Engine) Snapshot() (*model.PortfolioSnapshot, error) {
	holdings, err := e.store.Holdings()
	if err != nil {
		return nil, fmt.Errorf("load holdings: %w", err)
	}

	tickers := make([]string, len(holdings))
	for i, h := range holdings {
		tickers[i] = h.Ticker
	}
	fundamentals, err := e.store.FundamentalsFor(tickers)
	if err != nil {
		return nil, fmt.Errorf("load fundamentals: %w", err)
	}

	// First pass: per-holding values and portfolio totals.
	views := make([]model.HoldingView, 0, len(holdings))
	var totalValue, totalCost float64
	for _, h := range holdings {
		last := 0.0
		bar, err := e.store.LatestPrice(h.Ticker)
		if err != nil {
			return nil, fmt.Errorf("latest price %s: %w", h.Ticker, err)
		}
		if bar != nil {
			last = bar.Close
		}
		marketValue := h.Shares * last
		costBasis := h.Shares * h.AvgCost
		pnl := marketValue - costBasis
		pnlPct := 0.0
		if costBasis != 0 {
			pnlPct = pnl / costBasis * 100
		}
		attrs := fundamentals[h.Ticker]
		if attrs == nil {
			attrs = model.Attributes{}
		}
		views = append(views, model.HoldingView{
			Ticker:       h.Ticker,
			Shares:       h.Shares,
			AvgCost:      h.AvgCost,
			Last:         last,
			MarketValue:  marketValue,
			CostBasis:    costBasis,
			Pnl:          pnl,
			PnlPct:       pnlPct,
			Fundamentals: attrs,
		})
		totalValue += marketValue
		totalCost += costBasis
	}

	// Second pass: weights need the final total.
	for i := range views {
		if totalValue > 0 {
			views[i].Weight = views[i].MarketValue / totalValue
		}
	}

	summary := model.Summary{
		TotalValue:       totalValue,
		TotalCostBasis:   totalCost,
		TotalPnl:         totalValue - totalCost,
		LargestPositions: largestPositions(views),
		SectorExposure:   sectorExposure(views, totalValue),
	}
	if totalCost != 0 {
		summary.PnlPct = summary.TotalPnl / totalCost * 100
	}

	if e.scorer != nil {
		if score, err := e.scorer.Score(summary, views); err != nil {
			e.log.Debug().Err(err).Msg("health scorer unavailable, omitting score")
		} else {
			score = clamp(score, 0, 10)
			summary.HealthScore = &score
		}
	}

	return &model.PortfolioSnapshot{
		Holdings:    views,
		Summary:     summary,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// largestPositions projects the top 5 holdings by market value.
func largestPositions(views []model.HoldingView) []model.PositionSummary {
	sorted := make([]model.HoldingView, len(views))
	copy(sorted, views)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].MarketValue != sorted[j].MarketValue {
			return sorted[i].MarketValue > sorted[j].MarketValue
		}
		return sorted[i].Ticker < sorted[j].Ticker
	})
	if len(sorted) > 5 {
		sorted = sorted[:5]
	}
	out := make([]model.PositionSummary, len(sorted))
	for i, v := range sorted {
		out[i] = model.PositionSummary{
			Ticker:      v.Ticker,
			Weight:      v.Weight,
			MarketValue: v.MarketValue,
			PnlPct:      v.PnlPct,
		}
	}
	return out
}

// sectorExposure groups market value by the "sector" fundamental, descending
// by value. Holdings without a sector land in "Unclassified".
func sectorExposure(views []model.HoldingView, totalValue float64) []model.SectorExposure {
	values := make(map[string]float64)
	for _, v := range views {
		sector := "Unclassified"
		if s, ok := v.Fundamentals["sector"]; ok && s.AsText() != "" {
			sector = s.AsText()
		}
		values[sector] += v.MarketValue
	}
	out := make([]model.SectorExposure, 0, len(values))
	for sector, value := range values {
		weight := 0.0
		if totalValue > 0 {
			weight = value / totalValue
		}
		out = append(out, model.SectorExposure{Sector: sector, Weight: weight, Value: value})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Sector < out[j].Sector
	})
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
