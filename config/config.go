package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds pipeline configuration.
type Config struct {
	BaseURL         string
	UserAgent       string
	MaxResults      int
	Concurrency     int
	Timeout         time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	DetailDelay     time.Duration // politeness gap between serialized detail fetches; 0 disables
	RandomDelay     time.Duration
	BrowserEnabled  bool
	BrowserTimeout  time.Duration
	CacheEnabled    bool
	CacheSize       int
	CacheTTL        time.Duration
	OutputFile      string
	OutputFormat    string // csv, json, or dual
	MetricsAddr     string
	Verbose         bool
}

// DefaultConfig returns conservative defaults for the marketplace.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "https://www.daraz.com.np",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		MaxResults:      10,
		Concurrency:     5,
		Timeout:         15 * time.Second,
		MaxRetries:      3,
		RetryBackoff:    1 * time.Second,
		RetryBackoffMax: 8 * time.Second,
		DetailDelay:     500 * time.Millisecond,
		RandomDelay:     0,
		BrowserEnabled:  false,
		BrowserTimeout:  30 * time.Second,
		CacheEnabled:    true,
		CacheSize:       128,
		CacheTTL:        5 * time.Minute,
		OutputFile:      "output/products.csv",
		OutputFormat:    "csv",
		MetricsAddr:     "",
		Verbose:         false,
	}
}

// SearchURL builds the search-results URL for a free-text query.
func (c *Config) SearchURL(query string) string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/catalog/?q=" + url.QueryEscape(query)
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max results must be positive")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be positive")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.DetailDelay < 0 {
		return fmt.Errorf("detail delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.BrowserEnabled && c.BrowserTimeout <= 0 {
		return fmt.Errorf("browser timeout must be positive")
	}
	if c.CacheEnabled {
		if c.CacheSize <= 0 {
			return fmt.Errorf("cache size must be positive")
		}
		if c.CacheTTL <= 0 {
			return fmt.Errorf("cache ttl must be positive")
		}
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}

	return nil
}
