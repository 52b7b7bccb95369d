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

func TestTwelveData_FetchPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/time_series", r.URL.Path)
		require.Equal(t, "1day", r.URL.Query().Get("interval"))
		fmt.Fprint(w, `{"values":[
			{"datetime":"2026-08-21","open":"150.0","high":"153.0","low":"149.0","close":"152.0","volume":"2000"},
			{"datetime":"2026-08-20 00:00:00","open":"149.0","high":"151.0","low":"148.0","close":"150.0","volume":"1000"}
		]}`)
	}))
	defer srv.Close()

	td := NewTwelveData("test-key", zerolog.Nop())
	td.BaseURL = srv.URL

	bars, err := td.FetchPrices(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "2026-08-21", bars[0].Date)
	assert.Equal(t, 152.0, bars[0].Close)
	assert.Equal(t, "2026-08-20", bars[1].Date)
	assert.Equal(t, int64(1000), bars[1].Volume)
}

func TestTwelveData_FetchFundamentals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/quote", r.URL.Path)
		fmt.Fprint(w, `{"name":"Apple Inc","market_cap":"3500000000000"}`)
	}))
	defer srv.Close()

	td := NewTwelveData("test-key", zerolog.Nop())
	td.BaseURL = srv.URL

	attrs, err := td.FetchFundamentals(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", attrs["name"].AsText())
	assert.Equal(t, 3.5e12, attrs["market_cap"].AsFloat())
}

func TestNormalizeDay(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2026-08-21", "2026-08-21"},
		{"2026-08-21 15:04:05", "2026-08-21"},
		{"2026-08-21T15:04:05Z", "2026-08-21"},
		{"2026-08-21T15:04:05 garbage", "2026-08-21"},
		{"bad", "bad"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeDay(tt.in), "input %q", tt.in)
	}
}
