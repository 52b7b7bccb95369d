package store

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketlens/internal/model"
)

func newTestMarket(t *testing.T) *Market {
	t.Helper()
	m, err := NewMarket(filepath.Join(t.TempDir(), "portfolio.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func bar(symbol, date string, close float64) model.PriceBar {
	return model.PriceBar{
		Symbol: symbol, Date: date,
		Open: close - 1, High: close + 1, Low: close - 2,
		Close: close, AdjClose: close, Volume: 1000,
	}
}

func TestUpsertPriceBars_InsertAndIdempotence(t *testing.T) {
	m := newTestMarket(t)

	bars := []model.PriceBar{
		bar("AAPL", "2026-08-20", 150),
		bar("AAPL", "2026-08-21", 152),
	}
	n, err := m.UpsertPriceBars(bars)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Re-ingesting the identical batch must not touch any row.
	n, err = m.UpsertPriceBars(bars)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// A changed close counts as one updated row.
	bars[1].Close = 153
	n, err = m.UpsertPriceBars(bars)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	latest, err := m.LatestPrice("AAPL")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2026-08-21", latest.Date)
	assert.Equal(t, 153.0, latest.Close)
}

func TestUpsertPriceBars_EmptyBatch(t *testing.T) {
	m := newTestMarket(t)
	n, err := m.UpsertPriceBars(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLatestPrice_UncachedSymbol(t *testing.T) {
	m := newTestMarket(t)
	latest, err := m.LatestPrice("MSFT")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestRecentPrices_OrderAndLimit(t *testing.T) {
	m := newTestMarket(t)
	_, err := m.UpsertPriceBars([]model.PriceBar{
		bar("AAPL", "2026-08-18", 148),
		bar("AAPL", "2026-08-19", 149),
		bar("AAPL", "2026-08-20", 150),
		bar("MSFT", "2026-08-20", 500),
	})
	require.NoError(t, err)

	bars, err := m.RecentPrices("aapl", 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "2026-08-20", bars[0].Date)
	assert.Equal(t, "2026-08-19", bars[1].Date)
}

func TestUpsertFundamentals_RoundTrip(t *testing.T) {
	m := newTestMarket(t)

	attrs := model.Attributes{
		"market_cap":  model.Int(3_500_000_000_000),
		"trailing_pe": model.Float(31.5),
		"sector":      model.Text("Technology"),
	}
	n, err := m.UpsertFundamentals("AAPL", attrs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	out, err := m.FundamentalsFor([]string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.Contains(t, out, "AAPL")
	assert.NotContains(t, out, "MSFT")

	got := out["AAPL"]
	assert.Equal(t, model.KindInt, got["market_cap"].Kind)
	assert.Equal(t, int64(3_500_000_000_000), got["market_cap"].AsInt())
	assert.Equal(t, model.KindFloat, got["trailing_pe"].Kind)
	assert.Equal(t, 31.5, got["trailing_pe"].AsFloat())
	assert.Equal(t, "Technology", got["sector"].AsText())
}

func TestUpsertFundamentals_EmptyMapIsNoop(t *testing.T) {
	m := newTestMarket(t)
	n, err := m.UpsertFundamentals("AAPL", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFundamentalsFor_NoSymbols(t *testing.T) {
	m := newTestMarket(t)
	out, err := m.FundamentalsFor(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
