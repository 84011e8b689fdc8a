package scraper

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/gocolly/colly/v2"
	"github.com/user/daraz-scraper/config"
)

var defaultHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Upgrade-Insecure-Requests": "1",
}

// HTTPBackend fetches pages with a plain HTTP client. It is fast but sees
// only server-rendered markup.
type HTTPBackend struct {
	collector *colly.Collector
}

// NewHTTPBackend builds the lightweight backend configured from cfg.
func NewHTTPBackend(cfg *config.Config) (*HTTPBackend, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(cloudflarebp.AddCloudFlareByPass(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 30,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}))

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Concurrency,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	return &HTTPBackend{collector: collector}, nil
}

// Name identifies the backend in logs and metrics.
func (b *HTTPBackend) Name() string {
	return "http"
}

// Get fetches rawURL once and returns the response body. Non-2xx statuses
// and transport failures come back classified. Each call works on a clone of
// the collector so concurrent fetches never share callbacks; the in-flight
// request is bounded by the collector timeout, ctx is honored between calls.
func (b *HTTPBackend) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := b.collector.Clone()

	var (
		body     []byte
		fetchErr error
	)
	c.OnRequest(func(r *colly.Request) {
		for key, value := range defaultHeaders {
			r.Headers.Set(key, value)
		}
	})
	c.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = classifyError(err, status)
	})

	if err := c.Visit(rawURL); err != nil {
		// colly both fires OnError and returns the error; the callback saw
		// the response status, so its classification wins.
		if fetchErr != nil {
			return nil, fetchErr
		}
		return nil, classifyError(err, 0)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response body from %s", rawURL)
	}
	return body, nil
}
