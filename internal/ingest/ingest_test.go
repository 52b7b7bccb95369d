package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketlens/internal/model"
)

type fakeMarketStore struct {
	mu           sync.Mutex
	holdings     []model.Holding
	bars         []model.PriceBar
	fundamentals map[string]model.Attributes
	priceErr     error
	fundErr      error
}

func (f *fakeMarketStore) UpsertPriceBars(bars []model.PriceBar) (int, error) {
	if f.priceErr != nil {
		return 0, f.priceErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bars = append(f.bars, bars...)
	return len(bars), nil
}

func (f *fakeMarketStore) UpsertFundamentals(symbol string, attrs model.Attributes) (int, error) {
	if f.fundErr != nil {
		return 0, f.fundErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fundamentals == nil {
		f.fundamentals = make(map[string]model.Attributes)
	}
	f.fundamentals[symbol] = attrs
	return len(attrs), nil
}

func (f *fakeMarketStore) Holdings() ([]model.Holding, error) {
	return f.holdings, nil
}

type fakeNewsStore struct {
	items []model.NewsItem
	err   error
}

func (f *fakeNewsStore) UpsertNews(items []model.NewsItem) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.items = append(f.items, items...)
	return len(items), nil
}

type fakeReader struct {
	items []model.NewsItem
}

func (f *fakeReader) Fetch(ctx context.Context, feeds, symbols []string) []model.NewsItem {
	return f.items
}

type fakeProvider struct {
	bars     []model.PriceBar
	attrs    map[string]model.Attributes
	priceErr error
	fundErr  map[string]error
}

func (f *fakeProvider) FetchPrices(ctx context.Context, symbols []string) ([]model.PriceBar, error) {
	return f.bars, f.priceErr
}

func (f *fakeProvider) FetchFundamentals(ctx context.Context, symbol string) (model.Attributes, error) {
	if err := f.fundErr[symbol]; err != nil {
		return nil, err
	}
	return f.attrs[symbol], nil
}

func (f *fakeProvider) Name() string { return "fake" }

func TestRefresh_ExplicitSymbols(t *testing.T) {
	market := &fakeMarketStore{}
	news := &fakeNewsStore{}
	prov := &fakeProvider{
		bars: []model.PriceBar{{Symbol: "AAPL", Date: "2026-08-21", Close: 150}},
		attrs: map[string]model.Attributes{
			"AAPL": {"name": model.Text("Apple Inc")},
		},
	}
	reader := &fakeReader{items: []model.NewsItem{{Title: "headline", URL: "https://example.com/1"}}}

	o := New(market, news, prov, reader, nil, []string{"SPY"}, zerolog.Nop())
	res, err := o.Refresh(context.Background(), []string{" aapl "})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL"}, res.Symbols)
	assert.Equal(t, 1, res.PricesUpserted)
	assert.Equal(t, 1, res.FundamentalsUpserted)
	assert.Equal(t, 1, res.NewsUpserted)
	assert.Len(t, market.bars, 1)
	assert.Len(t, news.items, 1)
}

func TestRefresh_SymbolSetFromHoldings(t *testing.T) {
	market := &fakeMarketStore{holdings: []model.Holding{{Ticker: "GOOG"}, {Ticker: "MSFT"}}}
	prov := &fakeProvider{}

	o := New(market, &fakeNewsStore{}, prov, &fakeReader{}, nil, []string{"SPY"}, zerolog.Nop())
	res, err := o.Refresh(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"GOOG", "MSFT"}, res.Symbols)
}

func TestRefresh_WatchlistFallback(t *testing.T) {
	o := New(&fakeMarketStore{}, &fakeNewsStore{}, &fakeProvider{}, &fakeReader{},
		nil, []string{"AAPL", "MSFT"}, zerolog.Nop())
	res, err := o.Refresh(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, res.Symbols)
}

func TestRefresh_ProviderFailureIsNotFatal(t *testing.T) {
	prov := &fakeProvider{
		priceErr: errors.New("provider down"),
		fundErr:  map[string]error{"AAPL": errors.New("provider down")},
	}
	o := New(&fakeMarketStore{}, &fakeNewsStore{}, prov, &fakeReader{},
		nil, nil, zerolog.Nop())

	res, err := o.Refresh(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.PricesUpserted)
	assert.Equal(t, 0, res.FundamentalsUpserted)
}

func TestRefresh_PartialFundamentalsFailure(t *testing.T) {
	market := &fakeMarketStore{}
	prov := &fakeProvider{
		attrs: map[string]model.Attributes{
			"AAPL": {"name": model.Text("Apple Inc"), "sector": model.Text("Technology")},
		},
		fundErr: map[string]error{"MSFT": errors.New("rate limited")},
	}
	o := New(market, &fakeNewsStore{}, prov, &fakeReader{}, nil, nil, zerolog.Nop())

	res, err := o.Refresh(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.FundamentalsUpserted)
	assert.Contains(t, market.fundamentals, "AAPL")
	assert.NotContains(t, market.fundamentals, "MSFT")
}

func TestRefresh_StoreFailureIsFatal(t *testing.T) {
	market := &fakeMarketStore{priceErr: errors.New("disk full")}
	prov := &fakeProvider{bars: []model.PriceBar{{Symbol: "AAPL"}}}
	o := New(market, &fakeNewsStore{}, prov, &fakeReader{}, nil, nil, zerolog.Nop())

	_, err := o.Refresh(context.Background(), []string{"AAPL"})
	require.Error(t, err)
}

func TestRefresh_NewsStoreFailureIsFatal(t *testing.T) {
	news := &fakeNewsStore{err: errors.New("disk full")}
	reader := &fakeReader{items: []model.NewsItem{{Title: "x", URL: "https://example.com/x"}}}
	o := New(&fakeMarketStore{}, news, &fakeProvider{}, reader, nil, nil, zerolog.Nop())

	_, err := o.Refresh(context.Background(), []string{"AAPL"})
	require.Error(t, err)
}

func TestRefreshNews_Standalone(t *testing.T) {
	market := &fakeMarketStore{}
	news := &fakeNewsStore{}
	reader := &fakeReader{items: []model.NewsItem{
		{Title: "one", URL: "https://example.com/1"},
		{Title: "two", URL: "https://example.com/2"},
	}}
	o := New(market, news, &fakeProvider{}, reader, nil, []string{"AAPL"}, zerolog.Nop())

	n, err := o.RefreshNews(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	// Prices and fundamentals stay untouched.
	assert.Empty(t, market.bars)
	assert.Empty(t, market.fundamentals)
}

func TestRefresh_EmptySymbolSet(t *testing.T) {
	o := New(&fakeMarketStore{}, &fakeNewsStore{}, &fakeProvider{}, &fakeReader{},
		nil, nil, zerolog.Nop())
	res, err := o.Refresh(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Symbols)
	assert.Equal(t, 0, res.PricesUpserted)
}
