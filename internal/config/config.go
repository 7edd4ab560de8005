package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Gateway struct {
		BaseURL     string `yaml:"base_url"`
		APIKey      string `yaml:"api_key"`
		AccessToken string `yaml:"access_token"`
	} `yaml:"gateway"`
	Session struct {
		Start           string  `yaml:"start"`       // "09:15"
		End             string  `yaml:"end"`         // "15:13"
		StopBuying      string  `yaml:"stop_buying"` // "15:10"
		IntervalSeconds float64 `yaml:"interval_seconds"`
		Cron            string  `yaml:"cron"` // with seconds field
	} `yaml:"session"`
	Trade struct {
		Budget   float64 `yaml:"budget"`
		Exchange string  `yaml:"exchange"`
	} `yaml:"trade"`
	Returns struct {
		DeliveryInitial     float64 `yaml:"delivery_initial"`
		DeliveryIncremental float64 `yaml:"delivery_incremental"`
		IntradayInitial     float64 `yaml:"intraday_initial"`
		IntradayIncremental float64 `yaml:"intraday_incremental"`
	} `yaml:"returns"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Holidays struct {
		File string `yaml:"file"`
	} `yaml:"holidays"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
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
	if v := os.Getenv("GATEWAY_BASE_URL"); v != "" {
		cfg.Gateway.BaseURL = v
	}
	if v := os.Getenv("GATEWAY_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("GATEWAY_ACCESS_TOKEN"); v != "" {
		cfg.Gateway.AccessToken = v
	}
	if v := os.Getenv("TRADE_BUDGET"); v != "" {
		if budget, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Trade.Budget = budget
		}
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}

	// Defaults
	if cfg.Session.Start == "" {
		cfg.Session.Start = "09:15"
	}
	if cfg.Session.End == "" {
		cfg.Session.End = "15:13"
	}
	if cfg.Session.StopBuying == "" {
		cfg.Session.StopBuying = "15:10"
	}
	if cfg.Session.IntervalSeconds == 0 {
		cfg.Session.IntervalSeconds = 45
	}
	if cfg.Session.Cron == "" {
		cfg.Session.Cron = "0 15 9 * * 1-5"
	}
	if cfg.Trade.Budget == 0 {
		cfg.Trade.Budget = 5000
	}
	if cfg.Trade.Exchange == "" {
		cfg.Trade.Exchange = "NSE"
	}
	if cfg.Returns.DeliveryInitial == 0 {
		cfg.Returns.DeliveryInitial = 0.008
	}
	if cfg.Returns.DeliveryIncremental == 0 {
		cfg.Returns.DeliveryIncremental = 0.006
	}
	if cfg.Returns.IntradayInitial == 0 {
		cfg.Returns.IntradayInitial = 0.008
	}
	if cfg.Returns.IntradayIncremental == 0 {
		cfg.Returns.IntradayIncremental = 0.008
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/tradewarden.db"
	}
	if cfg.Holidays.File == "" {
		cfg.Holidays.File = "data/holidays.json"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}

	return cfg, nil
}

// Validate checks that all required fields are set and coherent.
func (c *Config) Validate() error {
	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway.base_url is required")
	}
	if c.Trade.Budget <= 0 {
		return fmt.Errorf("trade.budget must be positive")
	}
	if c.Session.IntervalSeconds <= 0 {
		return fmt.Errorf("session.interval_seconds must be positive")
	}
	for _, field := range []struct{ name, v string }{
		{"session.start", c.Session.Start},
		{"session.end", c.Session.End},
		{"session.stop_buying", c.Session.StopBuying},
	} {
		if _, err := time.Parse("15:04", field.v); err != nil {
			return fmt.Errorf("%s: bad time %q", field.name, field.v)
		}
	}
	return nil
}

// Interval returns the tick interval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Session.IntervalSeconds * float64(time.Second))
}

// Window resolves the session's start, stop-buying, and end times on the
// given day.
func (c *Config) Window(day time.Time) (start, stopBuying, end time.Time) {
	return at(day, c.Session.Start), at(day, c.Session.StopBuying), at(day, c.Session.End)
}

func at(day time.Time, hhmm string) time.Time {
	t, _ := time.Parse("15:04", hhmm)
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location())
}
