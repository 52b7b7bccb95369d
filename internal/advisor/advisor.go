// Package advisor wraps the text-generation service that turns a market and
// portfolio snapshot into natural-language recommendations. The core never
// depends on it succeeding; callers surface its failures as a service
// condition of their own.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"marketlens/internal/model"
)

const systemPrompt = `You are a portfolio analyst. Analyze the provided market data, portfolio and news, and return clear buy/sell/hold rationales per position. Be concise, use plain language, and never invent prices that are not in the input.`

// MarketSnapshot is the market-side context handed to the generator:
// recent bars per symbol plus the latest cached news.
type MarketSnapshot struct {
	Prices map[string][]model.PriceBar `json:"prices"`
	News   []model.NewsItem            `json:"news"`
}

// Advice is the generator's response.
type Advice struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

// Advisor generates recommendations through the OpenAI chat API.
type Advisor struct {
	client oa.Client
	model  string
	log    zerolog.Logger
}

// New creates an advisor for the given model.
func New(apiKey, chatModel string, log zerolog.Logger) *Advisor {
	return &Advisor{
		client: oa.NewClient(option.WithAPIKey(apiKey)),
		model:  chatModel,
		log:    log.With().Str("component", "advisor").Logger(),
	}
}

// Generate produces recommendation text for the given snapshots.
func (a *Advisor) Generate(ctx context.Context, market MarketSnapshot, portfolio *model.PortfolioSnapshot) (Advice, error) {
	input, err := json.Marshal(map[string]any{
		"market_data": market,
		"portfolio":   portfolio,
	})
	if err != nil {
		return Advice{}, fmt.Errorf("marshal advisor input: %w", err)
	}

	resp, err := a.client.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: oa.ChatModel(a.model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage("INPUT JSON:\n" + string(input)),
		},
		MaxTokens: oa.Int(1024),
	})
	if err != nil {
		return Advice{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Advice{}, fmt.Errorf("chat completion: empty response")
	}
	return Advice{Model: a.model, Text: resp.Choices[0].Message.Content}, nil
}
