// Package ingest coordinates refresh requests: it pulls prices, fundamentals
// and news through the provider adapters and writes them through the cache
// stores. Provider failures degrade to partial results; only store failures
// are fatal.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"marketlens/internal/model"
	"marketlens/internal/provider"
)

// MarketStore is the slice of the market database the orchestrator writes.
type MarketStore interface {
	UpsertPriceBars(bars []model.PriceBar) (int, error)
	UpsertFundamentals(symbol string, attrs model.Attributes) (int, error)
	Holdings() ([]model.Holding, error)
}

// NewsStore is the slice of the news database the orchestrator writes.
type NewsStore interface {
	UpsertNews(items []model.NewsItem) (int, error)
}

// NewsSource fetches raw news entries from the configured feeds.
type NewsSource interface {
	Fetch(ctx context.Context, feeds, symbols []string) []model.NewsItem
}

// Result reports what one refresh changed.
type Result struct {
	Symbols              []string `json:"symbols"`
	PricesUpserted       int      `json:"prices_upserted"`
	FundamentalsUpserted int      `json:"fundamentals_upserted"`
	NewsUpserted         int      `json:"news_upserted"`
}

// Orchestrator runs refreshes against one provider chain and the two stores.
type Orchestrator struct {
	market    MarketStore
	news      NewsStore
	providers provider.MarketData
	reader    NewsSource
	feeds     []string
	watchlist []string
	log       zerolog.Logger
}

// New creates an orchestrator. The watchlist is the symbol set used when
// there are no holdings to derive one from.
func New(market MarketStore, news NewsStore, providers provider.MarketData, reader NewsSource,
	feeds, watchlist []string, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		market:    market,
		news:      news,
		providers: providers,
		reader:    reader,
		feeds:     feeds,
		watchlist: watchlist,
		log:       log.With().Str("component", "ingest").Logger(),
	}
}

// Refresh fetches and caches prices, fundamentals and news for the given
// symbols. An empty symbol list derives the set from current holdings,
// falling back to the default watchlist. Refresh never fails because of
// upstream providers — a fully failed fetch just reports zero counts. Only a
// store failure propagates.
func (o *Orchestrator) Refresh(ctx context.Context, symbols []string) (Result, error) {
	symbols = o.resolveSymbols(symbols)
	res := Result{Symbols: symbols}
	if len(symbols) == 0 {
		return res, nil
	}

	// Prices: one whole-batch fetch through the fallback chain.
	bars, err := o.providers.FetchPrices(ctx, symbols)
	if err != nil {
		o.log.Warn().Err(err).Msg("price fetch failed for the whole batch")
	}
	n, err := o.market.UpsertPriceBars(bars)
	if err != nil {
		return res, fmt.Errorf("upsert prices: %w", err)
	}
	res.PricesUpserted = n

	// Fundamentals: per symbol, independently fetched and committed. A
	// failed symbol contributes zero and never blocks the others.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			attrs, err := o.providers.FetchFundamentals(gctx, symbol)
			if err != nil {
				o.log.Warn().Err(err).Str("symbol", symbol).Msg("fundamentals fetch failed")
				return nil
			}
			n, err := o.market.UpsertFundamentals(symbol, attrs)
			if err != nil {
				return fmt.Errorf("upsert fundamentals %s: %w", symbol, err)
			}
			mu.Lock()
			res.FundamentalsUpserted += n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	// News: one fetch over all feeds, tagged against the full symbol set.
	n, err = o.RefreshNews(ctx, symbols)
	if err != nil {
		return res, err
	}
	res.NewsUpserted = n

	o.log.Info().
		Int("prices", res.PricesUpserted).
		Int("fundamentals", res.FundamentalsUpserted).
		Int("news", res.NewsUpserted).
		Strs("symbols", symbols).
		Msg("refresh complete")
	return res, nil
}

// RefreshNews fetches the configured feeds and caches the entries without
// touching prices or fundamentals. Feed failures have already been reduced to
// a shorter item list by the reader; only a store failure propagates.
func (o *Orchestrator) RefreshNews(ctx context.Context, symbols []string) (int, error) {
	symbols = o.resolveSymbols(symbols)
	items := o.reader.Fetch(ctx, o.feeds, symbols)
	n, err := o.news.UpsertNews(items)
	if err != nil {
		return 0, fmt.Errorf("upsert news: %w", err)
	}
	return n, nil
}

// resolveSymbols picks the symbol set: explicit request, else holdings,
// else the default watchlist.
func (o *Orchestrator) resolveSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		return out
	}
	holdings, err := o.market.Holdings()
	if err != nil {
		o.log.Warn().Err(err).Msg("loading holdings for symbol set failed, using watchlist")
	}
	for _, h := range holdings {
		out = append(out, h.Ticker)
	}
	if len(out) > 0 {
		return out
	}
	return append(out, o.watchlist...)
}
