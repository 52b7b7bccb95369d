package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinnhub_FetchPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stock/candle", r.URL.Path)
		require.Equal(t, "D", r.URL.Query().Get("resolution"))
		require.Equal(t, "test-key", r.URL.Query().Get("token"))
		switch r.URL.Query().Get("symbol") {
		case "AAPL":
			// 2026-08-20 and 2026-08-21 UTC
			fmt.Fprint(w, `{"s":"ok",
				"t":[1787529600,1787616000],
				"o":[149,150],"h":[151,153],"l":[148,149],
				"c":[150,152],"v":[1000,2000]}`)
		default:
			fmt.Fprint(w, `{"s":"no_data"}`)
		}
	}))
	defer srv.Close()

	f := NewFinnhub("test-key", zerolog.Nop())
	f.BaseURL = srv.URL

	bars, err := f.FetchPrices(context.Background(), []string{"AAPL", "UNKNOWN"})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "AAPL", bars[0].Symbol)
	assert.Equal(t, 150.0, bars[0].Close)
	assert.Equal(t, int64(1000), bars[0].Volume)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, bars[0].Date)
}

func TestFinnhub_FetchPrices_RaggedArrays(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Closes array is one element short of the timestamps.
		fmt.Fprint(w, `{"s":"ok",
			"t":[1787529600,1787616000],
			"o":[149,150],"h":[151,153],"l":[148,149],
			"c":[150],"v":[1000,2000]}`)
	}))
	defer srv.Close()

	f := NewFinnhub("test-key", zerolog.Nop())
	f.BaseURL = srv.URL

	bars, err := f.FetchPrices(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestFinnhub_FetchPrices_ServerErrorSkipsSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewFinnhub("test-key", zerolog.Nop())
	f.BaseURL = srv.URL

	bars, err := f.FetchPrices(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestFinnhub_FetchFundamentals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/stock/profile2":
			fmt.Fprint(w, `{"name":"Apple Inc","finnhubIndustry":"Technology",
				"marketCapitalization":3500000,"shareOutstanding":15000}`)
		case "/stock/metric":
			fmt.Fprint(w, `{"metric":{"peBasicExclExtraTTM":31.5,"peForwardAnnual":28.2}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFinnhub("test-key", zerolog.Nop())
	f.BaseURL = srv.URL

	attrs, err := f.FetchFundamentals(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", attrs["name"].AsText())
	assert.Equal(t, "Technology", attrs["sector"].AsText())
	assert.Equal(t, 3500000.0, attrs["market_cap"].AsFloat())
	assert.Equal(t, 31.5, attrs["trailing_pe"].AsFloat())
	assert.Equal(t, 28.2, attrs["forward_pe"].AsFloat())
	assert.Equal(t, 15000.0, attrs["shares"].AsFloat())
}

func TestFinnhub_FetchFundamentals_OmitsUnknownFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	f := NewFinnhub("test-key", zerolog.Nop())
	f.BaseURL = srv.URL

	attrs, err := f.FetchFundamentals(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Empty(t, attrs)
}
