// Package config loads application configuration from a YAML file with
// environment-variable overrides. A missing file is not an error: every
// value has a default, so the server always starts.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
	Data struct {
		PortfolioDB string `yaml:"portfolio_db"`
		NewsDB      string `yaml:"news_db"`
	} `yaml:"data"`
	Providers struct {
		Finnhub struct {
			Enabled *bool  `yaml:"enabled"`
			APIKey  string `yaml:"api_key"`
		} `yaml:"finnhub"`
		TwelveData struct {
			APIKey string `yaml:"api_key"`
		} `yaml:"twelvedata"`
		News struct {
			RSSFeeds []string `yaml:"rss_feeds"`
		} `yaml:"news"`
	} `yaml:"providers"`
	Watchlist []string `yaml:"watchlist"`
	Schedule  struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	OpenAI struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`
	Audit struct {
		LogPath string `yaml:"log_path"`
	} `yaml:"audit"`
	Scoring struct {
		Strategy string `yaml:"strategy"` // basic, none
	} `yaml:"scoring"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// FinnhubEnabled reports whether Finnhub is the primary price/fundamentals
// provider. It defaults to true when unset.
func (c *Config) FinnhubEnabled() bool {
	return c.Providers.Finnhub.Enabled == nil || *c.Providers.Finnhub.Enabled
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file yields the pure-default config.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PORTFOLIO_DB_PATH"); v != "" {
		cfg.Data.PortfolioDB = v
	}
	if v := os.Getenv("NEWS_DB_PATH"); v != "" {
		cfg.Data.NewsDB = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		cfg.Providers.Finnhub.APIKey = v
	}
	if v := os.Getenv("TWELVEDATA_API_KEY"); v != "" {
		cfg.Providers.TwelveData.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.Schedule.RefreshCron = v
	}
	if v := os.Getenv("AUDIT_LOG_PATH"); v != "" {
		cfg.Audit.LogPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	// Defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Data.PortfolioDB == "" {
		cfg.Data.PortfolioDB = "data/portfolio.db"
	}
	if cfg.Data.NewsDB == "" {
		cfg.Data.NewsDB = "data/news_cache.db"
	}
	if len(cfg.Providers.News.RSSFeeds) == 0 {
		cfg.Providers.News.RSSFeeds = []string{
			"https://feeds.finance.yahoo.com/rss/2.0/headline?s=AAPL,MSFT,GOOG,AMZN&region=US&lang=en-US",
			"https://www.nasdaq.com/feed/rssoutbound?category=Stock%20Market%20News",
		}
	}
	if len(cfg.Watchlist) == 0 {
		cfg.Watchlist = []string{"AAPL", "MSFT", "GOOG", "AMZN"}
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.Audit.LogPath == "" {
		cfg.Audit.LogPath = "data/conversations.jsonl"
	}
	if cfg.Scoring.Strategy == "" {
		cfg.Scoring.Strategy = "basic"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Data.PortfolioDB == c.Data.NewsDB {
		return fmt.Errorf("data.portfolio_db and data.news_db must be distinct files")
	}
	switch c.Scoring.Strategy {
	case "basic", "none":
	default:
		return fmt.Errorf("scoring.strategy must be basic or none, got %q", c.Scoring.Strategy)
	}
	return nil
}
