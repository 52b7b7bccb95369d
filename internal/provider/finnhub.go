package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"marketlens/internal/model"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// candleWindow is how far back daily candles are requested (~100 trading days).
const candleWindow = 120 * 24 * time.Hour

// Finnhub fetches daily candles and company fundamentals from finnhub.io.
type Finnhub struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	log     zerolog.Logger
}

// NewFinnhub creates a Finnhub adapter.
func NewFinnhub(apiKey string, log zerolog.Logger) *Finnhub {
	return &Finnhub{
		BaseURL: finnhubBaseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("provider", "finnhub").Logger(),
	}
}

func (f *Finnhub) Name() string { return "finnhub" }

// finnhubCandles is the /stock/candle response: parallel arrays keyed by a
// status field ("ok" or "no_data").
type finnhubCandles struct {
	Status     string    `json:"s"`
	Timestamps []int64   `json:"t"`
	Opens      []float64 `json:"o"`
	Highs      []float64 `json:"h"`
	Lows       []float64 `json:"l"`
	Closes     []float64 `json:"c"`
	Volumes    []float64 `json:"v"`
}

// FetchPrices pulls daily candles per symbol. A symbol that errors or has no
// data contributes zero bars; bars already collected are kept.
func (f *Finnhub) FetchPrices(ctx context.Context, symbols []string) ([]model.PriceBar, error) {
	end := time.Now().Unix()
	start := time.Now().Add(-candleWindow).Unix()

	var all []model.PriceBar
	for _, symbol := range symbols {
		params := url.Values{
			"symbol":     {symbol},
			"resolution": {"D"},
			"from":       {strconv.FormatInt(start, 10)},
			"to":         {strconv.FormatInt(end, 10)},
			"token":      {f.APIKey},
		}
		var candles finnhubCandles
		if err := f.getJSON(ctx, "/stock/candle", params, &candles); err != nil {
			f.log.Warn().Err(err).Str("symbol", symbol).Msg("candle fetch failed, skipping symbol")
			continue
		}
		if candles.Status != "ok" {
			continue
		}
		n := len(candles.Timestamps)
		for _, arr := range []int{len(candles.Opens), len(candles.Highs), len(candles.Lows), len(candles.Closes), len(candles.Volumes)} {
			if arr < n {
				n = arr
			}
		}
		for i := 0; i < n; i++ {
			all = append(all, model.PriceBar{
				Symbol:   symbol,
				Date:     time.Unix(candles.Timestamps[i], 0).UTC().Format(model.DateLayout),
				Open:     candles.Opens[i],
				High:     candles.Highs[i],
				Low:      candles.Lows[i],
				Close:    candles.Closes[i],
				AdjClose: candles.Closes[i],
				Volume:   int64(candles.Volumes[i]),
			})
		}
	}
	return all, nil
}

// finnhubProfile is the subset of /stock/profile2 we map.
type finnhubProfile struct {
	Name              string  `json:"name"`
	Industry          string  `json:"finnhubIndustry"`
	MarketCap         float64 `json:"marketCapitalization"`
	SharesOutstanding float64 `json:"shareOutstanding"`
}

// finnhubMetrics is the subset of /stock/metric we map.
type finnhubMetrics struct {
	Metric struct {
		MarketCap     float64 `json:"marketCapitalization"`
		PETrailing    float64 `json:"peBasicExclExtraTTM"`
		PETrailingAlt float64 `json:"peTTM"`
		PEForward     float64 `json:"peBasicExclExtraAnnual"`
		PEForwardAlt  float64 `json:"peForwardAnnual"`
	} `json:"metric"`
}

// FetchFundamentals maps the company profile and metrics into the canonical
// attribute set. Unknown fields are omitted rather than written as zero.
func (f *Finnhub) FetchFundamentals(ctx context.Context, symbol string) (model.Attributes, error) {
	params := url.Values{"symbol": {symbol}, "token": {f.APIKey}}

	var profile finnhubProfile
	if err := f.getJSON(ctx, "/stock/profile2", params, &profile); err != nil {
		f.log.Warn().Err(err).Str("symbol", symbol).Msg("profile fetch failed")
		profile = finnhubProfile{}
	}

	metricParams := url.Values{"symbol": {symbol}, "metric": {"all"}, "token": {f.APIKey}}
	var metrics finnhubMetrics
	if err := f.getJSON(ctx, "/stock/metric", metricParams, &metrics); err != nil {
		f.log.Warn().Err(err).Str("symbol", symbol).Msg("metric fetch failed")
		metrics = finnhubMetrics{}
	}

	attrs := model.Attributes{}
	if mc := firstNonZero(profile.MarketCap, metrics.Metric.MarketCap); mc != 0 {
		attrs["market_cap"] = model.Float(mc)
	}
	if pe := firstNonZero(metrics.Metric.PETrailing, metrics.Metric.PETrailingAlt); pe != 0 {
		attrs["trailing_pe"] = model.Float(pe)
	}
	if pe := firstNonZero(metrics.Metric.PEForward, metrics.Metric.PEForwardAlt); pe != 0 {
		attrs["forward_pe"] = model.Float(pe)
	}
	if profile.SharesOutstanding != 0 {
		attrs["shares"] = model.Float(profile.SharesOutstanding)
	}
	if profile.Name != "" {
		attrs["name"] = model.Text(profile.Name)
	}
	if profile.Industry != "" {
		attrs["sector"] = model.Text(profile.Industry)
	}
	return attrs, nil
}

func (f *Finnhub) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := f.BaseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("finnhub %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("finnhub %s: status %d, body: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("finnhub %s: decode: %w", path, err)
	}
	return nil
}

func firstNonZero(vals ...float64) float64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
