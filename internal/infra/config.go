package infra

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of the auction daemon. Secrets can be
// overridden through environment variables after loading.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	House struct {
		// Default floor for listings created without one, in normalized units.
		DefaultMinBid decimal.Decimal `yaml:"default_min_bid"`
		// Maximum quote age before a bid is rejected as OracleUnavailable.
		QuoteMaxAgeSec int `yaml:"quote_max_age_sec"`
		// Anti-sniping window for v2 logic; 0 keeps v1 behavior.
		ExtendWindowSec int `yaml:"extend_window_sec"`
	} `yaml:"house"`

	Feeds struct {
		// Native currency feed (always configured).
		Native FeedConfig `yaml:"native"`
		// Token currency feeds keyed by currency symbol.
		Tokens map[string]FeedConfig `yaml:"tokens"`
		APIKey string                `yaml:"api_key"`
	} `yaml:"feeds"`

	Artwork struct {
		// Base URL of the artwork CDN, e.g. https://cdn.example.com/art
		CDNBase string `yaml:"cdn_base"`
	} `yaml:"artwork"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// FeedConfig describes one currency's price reference source. Exactly one
// of WSURL and PollURL should be set.
type FeedConfig struct {
	WSURL           string `yaml:"ws_url"`
	PollURL         string `yaml:"poll_url"`
	PollIntervalSec int    `yaml:"poll_interval_sec"`
}

// LoadConfig reads and parses the configuration file, applies environment
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if err := c.Feeds.Native.validate("native"); err != nil {
		return err
	}
	for symbol, feed := range c.Feeds.Tokens {
		if symbol == "" {
			return fmt.Errorf("token feed with empty currency symbol")
		}
		if err := feed.validate(symbol); err != nil {
			return err
		}
	}
	if c.House.QuoteMaxAgeSec < 0 {
		return fmt.Errorf("quote max age must not be negative")
	}
	return nil
}

func (f FeedConfig) validate(name string) error {
	if f.WSURL == "" && f.PollURL == "" {
		return fmt.Errorf("feed %s: either ws_url or poll_url is required", name)
	}
	if f.WSURL != "" && !hasPrefix(f.WSURL, "ws://") && !hasPrefix(f.WSURL, "wss://") {
		return fmt.Errorf("feed %s: invalid WS URL: %s", name, f.WSURL)
	}
	if f.PollURL != "" && !hasPrefix(f.PollURL, "http://") && !hasPrefix(f.PollURL, "https://") {
		return fmt.Errorf("feed %s: invalid poll URL: %s", name, f.PollURL)
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv applies environment variables over file values.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("AUCTION_FEED_API_KEY"); key != "" {
		cfg.Feeds.APIKey = key
	}
	if level := os.Getenv("AUCTION_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
