// Package provider contains the upstream data-source adapters. Each adapter
// normalizes one provider's responses into the canonical record shapes; the
// Chain selects between interchangeable adapters by priority.
package provider

import (
	"context"

	"github.com/rs/zerolog"

	"marketlens/internal/model"
)

// MarketData is the capability interface every price/fundamentals adapter
// implements. A symbol with no data contributes zero results, not an error;
// adapters only return an error when the provider is unusable as a whole.
type MarketData interface {
	// FetchPrices returns daily bars for the given symbols. A failure for
	// one symbol must not discard bars already obtained for others.
	FetchPrices(ctx context.Context, symbols []string) ([]model.PriceBar, error)
	// FetchFundamentals returns named attributes for one symbol. Fields the
	// provider does not know are omitted, never emitted as zero.
	FetchFundamentals(ctx context.Context, symbol string) (model.Attributes, error)
	Name() string
}

// Chain tries adapters in priority order. Price fetching falls back as a
// whole batch: the first adapter that yields any bars services the entire
// symbol set, so one refresh is never split across providers.
type Chain struct {
	providers []MarketData
	log       zerolog.Logger
}

// NewChain creates a priority chain over the given adapters.
func NewChain(log zerolog.Logger, providers ...MarketData) *Chain {
	return &Chain{providers: providers, log: log.With().Str("component", "provider_chain").Logger()}
}

func (c *Chain) Name() string { return "chain" }

// FetchPrices services the whole batch with the first adapter that returns
// usable bars. An adapter error or an empty result moves on to the next.
func (c *Chain) FetchPrices(ctx context.Context, symbols []string) ([]model.PriceBar, error) {
	for _, p := range c.providers {
		bars, err := p.FetchPrices(ctx, symbols)
		if err != nil {
			c.log.Warn().Err(err).Str("provider", p.Name()).Msg("price fetch failed, trying next provider")
			continue
		}
		if len(bars) == 0 {
			c.log.Debug().Str("provider", p.Name()).Msg("no usable bars, trying next provider")
			continue
		}
		return bars, nil
	}
	return nil, nil
}

// FetchFundamentals returns the first non-empty attribute set in priority
// order. All providers empty or failing degrades to an empty map.
func (c *Chain) FetchFundamentals(ctx context.Context, symbol string) (model.Attributes, error) {
	for _, p := range c.providers {
		attrs, err := p.FetchFundamentals(ctx, symbol)
		if err != nil {
			c.log.Warn().Err(err).Str("provider", p.Name()).Str("symbol", symbol).
				Msg("fundamentals fetch failed, trying next provider")
			continue
		}
		if len(attrs) > 0 {
			return attrs, nil
		}
	}
	return model.Attributes{}, nil
}
