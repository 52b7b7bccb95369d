package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"marketlens/internal/advisor"
	"marketlens/internal/audit"
	"marketlens/internal/config"
	"marketlens/internal/ingest"
	"marketlens/internal/provider"
	"marketlens/internal/scheduler"
	"marketlens/internal/server"
	"marketlens/internal/store"
	"marketlens/internal/valuation"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("config validation")
	}

	log := newLogger(cfg)
	log.Info().Msg("marketlens starting")

	// Open stores
	market, err := store.NewMarket(cfg.Data.PortfolioDB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open market store")
	}
	defer market.Close()
	news, err := store.NewNews(cfg.Data.NewsDB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open news store")
	}
	defer news.Close()

	// Provider chain: Finnhub primary when enabled, TwelveData fallback.
	var adapters []provider.MarketData
	if cfg.FinnhubEnabled() && cfg.Providers.Finnhub.APIKey != "" {
		adapters = append(adapters, provider.NewFinnhub(cfg.Providers.Finnhub.APIKey, log))
	}
	if cfg.Providers.TwelveData.APIKey != "" {
		adapters = append(adapters, provider.NewTwelveData(cfg.Providers.TwelveData.APIKey, log))
	}
	if len(adapters) == 0 {
		log.Warn().Msg("no market data provider configured, refreshes will cache nothing")
	}
	chain := provider.NewChain(log, adapters...)
	for _, a := range adapters {
		log.Info().Str("provider", a.Name()).Msg("market data provider enabled")
	}

	reader := provider.NewFeedReader(log)
	orchestrator := ingest.New(market, news, chain, reader,
		cfg.Providers.News.RSSFeeds, cfg.Watchlist, log)

	// Valuation engine with the configured scorer
	var scorer valuation.HealthScorer
	switch cfg.Scoring.Strategy {
	case "basic":
		scorer = valuation.BasicScorer{}
	case "none":
		scorer = nil
	}
	engine := valuation.New(market, scorer, log)

	// Recommendations are optional: without an API key the endpoint reports
	// itself unavailable instead of failing at call time.
	var recommender server.Recommender
	if cfg.OpenAI.APIKey != "" {
		recommender = advisor.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, log)
	} else {
		log.Warn().Msg("no OpenAI API key configured, recommendations disabled")
	}
	sink := audit.NewSink(cfg.Audit.LogPath, log)

	srv := server.New(server.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		Log:         log,
		Refresher:   orchestrator,
		Valuer:      engine,
		Portfolio:   market,
		News:        news,
		Recommender: recommender,
		Auditor:     sink,
	})

	sched := scheduler.New(orchestrator, log)
	if err := sched.Register(cfg.Schedule.RefreshCron); err != nil {
		log.Fatal().Err(err).Msg("register refresh schedule")
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("REFRESH_ON_START") == "true" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if _, err := orchestrator.Refresh(ctx, nil); err != nil {
				log.Error().Err(err).Msg("startup refresh failed")
			}
		}()
	}

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("marketlens stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr)
	if cfg.Log.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger()
}
