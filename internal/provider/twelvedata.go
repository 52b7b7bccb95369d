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

const twelveDataBaseURL = "https://api.twelvedata.com"

// TwelveData fetches daily time series and quotes from twelvedata.com. It is
// the whole-batch fallback when the primary provider yields nothing usable.
type TwelveData struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	log     zerolog.Logger
}

// NewTwelveData creates a Twelve Data adapter.
func NewTwelveData(apiKey string, log zerolog.Logger) *TwelveData {
	return &TwelveData{
		BaseURL: twelveDataBaseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("provider", "twelvedata").Logger(),
	}
}

func (t *TwelveData) Name() string { return "twelvedata" }

// twelveDataSeries is the /time_series response. Twelve Data emits all
// numeric fields as JSON strings.
type twelveDataSeries struct {
	Values []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
}

// FetchPrices pulls up to 100 daily values per symbol. Per-symbol failures
// are skipped without discarding bars already collected.
func (t *TwelveData) FetchPrices(ctx context.Context, symbols []string) ([]model.PriceBar, error) {
	var all []model.PriceBar
	for _, symbol := range symbols {
		params := url.Values{
			"symbol":     {symbol},
			"interval":   {"1day"},
			"outputsize": {"100"},
			"apikey":     {t.APIKey},
		}
		var series twelveDataSeries
		if err := t.getJSON(ctx, "/time_series", params, &series); err != nil {
			t.log.Warn().Err(err).Str("symbol", symbol).Msg("time series fetch failed, skipping symbol")
			continue
		}
		for _, row := range series.Values {
			closePx := parseFloat(row.Close)
			all = append(all, model.PriceBar{
				Symbol:   symbol,
				Date:     normalizeDay(row.Datetime),
				Open:     parseFloat(row.Open),
				High:     parseFloat(row.High),
				Low:      parseFloat(row.Low),
				Close:    closePx,
				AdjClose: closePx,
				Volume:   int64(parseFloat(row.Volume)),
			})
		}
	}
	return all, nil
}

// twelveDataQuote is the subset of /quote we map.
type twelveDataQuote struct {
	Name      string `json:"name"`
	MarketCap string `json:"market_cap"`
}

// FetchFundamentals maps the quote endpoint into a minimal attribute set.
func (t *TwelveData) FetchFundamentals(ctx context.Context, symbol string) (model.Attributes, error) {
	params := url.Values{"symbol": {symbol}, "apikey": {t.APIKey}}
	var quote twelveDataQuote
	if err := t.getJSON(ctx, "/quote", params, &quote); err != nil {
		return nil, err
	}
	attrs := model.Attributes{}
	if mc := parseFloat(quote.MarketCap); mc != 0 {
		attrs["market_cap"] = model.Float(mc)
	}
	if quote.Name != "" {
		attrs["name"] = model.Text(quote.Name)
	}
	return attrs, nil
}

func (t *TwelveData) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := t.BaseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("twelvedata %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twelvedata %s: status %d, body: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("twelvedata %s: decode: %w", path, err)
	}
	return nil
}

// normalizeDay reduces any source timestamp string to a calendar day in the
// canonical layout.
func normalizeDay(s string) string {
	layouts := []string{
		model.DateLayout,
		"2006-01-02 15:04:05",
		time.RFC3339,
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Format(model.DateLayout)
		}
	}
	if len(s) >= len(model.DateLayout) {
		return s[:len(model.DateLayout)]
	}
	return s
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
