package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"marketlens/internal/advisor"
	"marketlens/internal/model"
	"marketlens/internal/store"
)

const (
	defaultNewsLimit    = 50
	maxNewsLimit        = 200
	recentPriceBars     = 30
	recommendationNews  = 20
	transactionPageSize = 100
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleNews serves the cached news feed. An empty cache triggers one
// synchronous fetch so a fresh deployment is not permanently empty.
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultNewsLimit)
	if limit <= 0 || limit > maxNewsLimit {
		limit = defaultNewsLimit
	}
	items, err := s.news.LatestNews(limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "loading news failed")
		return
	}
	if len(items) == 0 {
		if _, err := s.refresher.RefreshNews(r.Context(), nil); err != nil {
			s.respondError(w, http.StatusInternalServerError, "news refresh failed")
			return
		}
		if items, err = s.news.LatestNews(limit); err != nil {
			s.respondError(w, http.StatusInternalServerError, "loading news failed")
			return
		}
	}
	if items == nil {
		items = []model.NewsItem{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbols []string `json:"symbols"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	res, err := s.refresher.Refresh(r.Context(), req.Symbols)
	if err != nil {
		s.log.Error().Err(err).Msg("refresh failed")
		s.respondError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	snap, err := s.valuer.Snapshot()
	if err != nil {
		s.log.Error().Err(err).Msg("portfolio snapshot failed")
		s.respondError(w, http.StatusInternalServerError, "portfolio snapshot failed")
		return
	}
	s.respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleUpsertHolding(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker  string  `json:"ticker"`
		Shares  float64 `json:"shares"`
		AvgCost float64 `json:"avg_cost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.portfolio.UpsertHolding(req.Ticker, req.Shares, req.AvgCost); err != nil {
		var verr *store.ValidationError
		if errors.As(err, &verr) {
			s.respondError(w, http.StatusBadRequest, verr.Msg)
			return
		}
		s.log.Error().Err(err).Str("ticker", req.Ticker).Msg("upsert holding failed")
		s.respondError(w, http.StatusInternalServerError, "upsert holding failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker string  `json:"ticker"`
		Action string  `json:"action"`
		Shares float64 `json:"shares"`
		Price  float64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.portfolio.RecordTransaction(req.Ticker, req.Action, req.Shares, req.Price); err != nil {
		var verr *store.ValidationError
		if errors.As(err, &verr) {
			s.respondError(w, http.StatusBadRequest, verr.Msg)
			return
		}
		s.log.Error().Err(err).Str("ticker", req.Ticker).Msg("record transaction failed")
		s.respondError(w, http.StatusInternalServerError, "record transaction failed")
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", transactionPageSize)
	txs, err := s.portfolio.Transactions(limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "loading transactions failed")
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"transactions": txs, "count": len(txs)})
}

// handleRecommendations assembles the market and portfolio context, hands it
// to the generator and audits the exchange.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if s.recommender == nil {
		s.respondError(w, http.StatusServiceUnavailable, "recommendations are not configured")
		return
	}
	snap, err := s.valuer.Snapshot()
	if err != nil {
		s.log.Error().Err(err).Msg("portfolio snapshot failed")
		s.respondError(w, http.StatusInternalServerError, "portfolio snapshot failed")
		return
	}

	prices := make(map[string][]model.PriceBar, len(snap.Holdings))
	for _, h := range snap.Holdings {
		bars, err := s.portfolio.RecentPrices(h.Ticker, recentPriceBars)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, "loading prices failed")
			return
		}
		prices[h.Ticker] = bars
	}
	news, err := s.news.LatestNews(recommendationNews)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "loading news failed")
		return
	}

	market := advisor.MarketSnapshot{Prices: prices, News: news}
	advice, err := s.recommender.Generate(r.Context(), market, snap)
	if err != nil {
		s.log.Error().Err(err).Msg("recommendation generation failed")
		s.respondError(w, http.StatusBadGateway, "recommendation generation failed")
		return
	}

	if s.auditor != nil {
		s.auditor.Append(map[string]any{
			"endpoint":  "/recommendations",
			"model":     advice.Model,
			"holdings":  len(snap.Holdings),
			"news":      len(news),
			"response":  advice.Text,
			"requestid": r.Header.Get("X-Request-Id"),
		})
	}
	s.respondJSON(w, http.StatusOK, advice)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error().Err(err).Msg("encoding response failed")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
