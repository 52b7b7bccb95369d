// Package server exposes the HTTP API: cached news, the derived portfolio
// snapshot, manual refresh and the recommendation endpoint.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"marketlens/internal/advisor"
	"marketlens/internal/ingest"
	"marketlens/internal/model"
)

// Refresher triggers ingestion runs.
type Refresher interface {
	Refresh(ctx context.Context, symbols []string) (ingest.Result, error)
	RefreshNews(ctx context.Context, symbols []string) (int, error)
}

// Valuer computes the portfolio snapshot.
type Valuer interface {
	Snapshot() (*model.PortfolioSnapshot, error)
}

// PortfolioStore is the slice of the market database the handlers write.
type PortfolioStore interface {
	UpsertHolding(ticker string, shares, avgCost float64) error
	RecordTransaction(ticker, action string, shares, price float64) error
	Transactions(limit int) ([]model.Transaction, error)
	RecentPrices(symbol string, limit int) ([]model.PriceBar, error)
}

// NewsReader reads the news cache.
type NewsReader interface {
	LatestNews(limit int) ([]model.NewsItem, error)
}

// Recommender generates recommendation text. It is optional: a nil
// recommender turns the endpoint into a 503.
type Recommender interface {
	Generate(ctx context.Context, market advisor.MarketSnapshot, portfolio *model.PortfolioSnapshot) (advisor.Advice, error)
}

// Auditor records recommendation exchanges.
type Auditor interface {
	Append(record map[string]any)
}

// Config holds the server's dependencies.
type Config struct {
	Host        string
	Port        int
	Log         zerolog.Logger
	Refresher   Refresher
	Valuer      Valuer
	Portfolio   PortfolioStore
	News        NewsReader
	Recommender Recommender
	Auditor     Auditor
}

// Server is the HTTP front of the application.
type Server struct {
	router      *chi.Mux
	server      *http.Server
	log         zerolog.Logger
	refresher   Refresher
	valuer      Valuer
	portfolio   PortfolioStore
	news        NewsReader
	recommender Recommender
	auditor     Auditor
}

// New creates the server and wires up middleware and routes.
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		refresher:   cfg.Refresher,
		valuer:      cfg.Valuer,
		portfolio:   cfg.Portfolio,
		news:        cfg.News,
		recommender: cfg.Recommender,
		auditor:     cfg.Auditor,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/news", s.handleNews)
	s.router.Post("/refresh", s.handleRefresh)
	s.router.Get("/recommendations", s.handleRecommendations)
	s.router.Route("/portfolio", func(r chi.Router) {
		r.Get("/", s.handlePortfolio)
		r.Post("/holdings", s.handleUpsertHolding)
		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleRecordTransaction)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start runs the server until it fails or is shut down.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
