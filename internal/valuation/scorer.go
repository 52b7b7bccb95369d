package valuation

import (
	"errors"
	"math"

	"marketlens/internal/model"
)

// ErrScorerUnavailable is returned by scorers that are configured but not
// implemented. The engine treats it like any scorer failure: the health
// score is omitted, nothing surfaces to the caller.
var ErrScorerUnavailable = errors.New("health scorer unavailable")

// HealthScorer rates a portfolio on a 0–10 scale. The engine clamps whatever
// comes back into [0, 10], so implementations may be loose at the edges.
type HealthScorer interface {
	Score(summary model.Summary, holdings []model.HoldingView) (float64, error)
}

// UnimplementedScorer always reports unavailable. It is the explicit
// "configured but absent" variant, resolved at startup instead of probed
// per call.
type UnimplementedScorer struct{}

func (UnimplementedScorer) Score(model.Summary, []model.HoldingView) (float64, error) {
	return 0, ErrScorerUnavailable
}

// BasicScorer is a weighted-factor heuristic: position count, concentration
// of the largest position, and unrealized PnL each contribute a sub-score.
type BasicScorer struct{}

// Score starts from a neutral 5 and applies the weighted factors.
func (BasicScorer) Score(summary model.Summary, holdings []model.HoldingView) (float64, error) {
	if len(holdings) == 0 {
		return 0, errors.New("no holdings to score")
	}
	score := 5.0
	score += 0.4 * scoreDiversification(len(holdings))
	score += 0.35 * scoreConcentration(holdings)
	score += 0.25 * scorePnl(summary.PnlPct)
	return score, nil
}

// scoreDiversification rewards position count up to a plateau around 10.
func scoreDiversification(positions int) float64 {
	switch {
	case positions >= 10:
		return 5
	case positions >= 6:
		return 3
	case positions >= 3:
		return 1
	case positions == 2:
		return -1
	default:
		return -3
	}
}

// scoreConcentration penalizes a single dominant position.
func scoreConcentration(holdings []model.HoldingView) float64 {
	top := 0.0
	for _, h := range holdings {
		if h.Weight > top {
			top = h.Weight
		}
	}
	switch {
	case top <= 0.15:
		return 5
	case top <= 0.25:
		return 3
	case top <= 0.40:
		return 0
	case top <= 0.60:
		return -2
	default:
		return -4
	}
}

// scorePnl maps overall PnL percentage onto a bounded sub-score.
func scorePnl(pnlPct float64) float64 {
	return math.Max(-4, math.Min(4, pnlPct/10))
}
