package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketlens/internal/model"
)

type stubProvider struct {
	name  string
	bars  []model.PriceBar
	attrs model.Attributes
	err   error

	priceCalls int
}

func (s *stubProvider) FetchPrices(ctx context.Context, symbols []string) ([]model.PriceBar, error) {
	s.priceCalls++
	return s.bars, s.err
}

func (s *stubProvider) FetchFundamentals(ctx context.Context, symbol string) (model.Attributes, error) {
	return s.attrs, s.err
}

func (s *stubProvider) Name() string { return s.name }

func TestChain_FetchPrices_PrimaryServesWholeBatch(t *testing.T) {
	primary := &stubProvider{name: "primary", bars: []model.PriceBar{{Symbol: "AAPL"}}}
	fallback := &stubProvider{name: "fallback", bars: []model.PriceBar{{Symbol: "MSFT"}}}
	chain := NewChain(zerolog.Nop(), primary, fallback)

	bars, err := chain.FetchPrices(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "AAPL", bars[0].Symbol)
	assert.Equal(t, 0, fallback.priceCalls)
}

func TestChain_FetchPrices_FallsBackOnError(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("rate limited")}
	fallback := &stubProvider{name: "fallback", bars: []model.PriceBar{{Symbol: "AAPL"}}}
	chain := NewChain(zerolog.Nop(), primary, fallback)

	bars, err := chain.FetchPrices(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 1, primary.priceCalls)
	assert.Equal(t, 1, fallback.priceCalls)
}

func TestChain_FetchPrices_FallsBackOnEmptyResult(t *testing.T) {
	primary := &stubProvider{name: "primary"}
	fallback := &stubProvider{name: "fallback", bars: []model.PriceBar{{Symbol: "AAPL"}}}
	chain := NewChain(zerolog.Nop(), primary, fallback)

	bars, err := chain.FetchPrices(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	require.Len(t, bars, 1)
}

func TestChain_FetchPrices_AllProvidersFail(t *testing.T) {
	chain := NewChain(zerolog.Nop(),
		&stubProvider{name: "a", err: errors.New("down")},
		&stubProvider{name: "b"})

	bars, err := chain.FetchPrices(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestChain_FetchFundamentals_FirstNonEmptyWins(t *testing.T) {
	chain := NewChain(zerolog.Nop(),
		&stubProvider{name: "a", attrs: model.Attributes{}},
		&stubProvider{name: "b", attrs: model.Attributes{"name": model.Text("Apple Inc")}})

	attrs, err := chain.FetchFundamentals(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", attrs["name"].AsText())
}

func TestChain_FetchFundamentals_DegradesToEmpty(t *testing.T) {
	chain := NewChain(zerolog.Nop(), &stubProvider{name: "a", err: errors.New("down")})

	attrs, err := chain.FetchFundamentals(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Empty(t, attrs)
}

func TestChain_Empty(t *testing.T) {
	chain := NewChain(zerolog.Nop())
	bars, err := chain.FetchPrices(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Empty(t, bars)
}
