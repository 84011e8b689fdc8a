// Package scraper fetches marketplace pages over interchangeable backends
// with retry and exponential backoff.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/daraz-scraper/config"
)

// Backend issues a single HTTP GET for a URL and returns the raw document.
// Implementations own no per-call mutable state and are safe for concurrent
// use.
type Backend interface {
	Name() string
	Get(ctx context.Context, url string) ([]byte, error)
}

// Fetcher wraps one Backend with retry and exponential backoff. A URL is
// attempted up to MaxRetries times; the delay before retry k (1-based) is
// RetryBackoff doubled per step and capped at RetryBackoffMax.
type Fetcher struct {
	backend    Backend
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	metrics    *Metrics
}

// NewFetcher builds a fetcher over backend configured from cfg.
func NewFetcher(backend Backend, cfg *config.Config, metrics *Metrics) *Fetcher {
	return &Fetcher{
		backend:    backend,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBackoff,
		maxDelay:   cfg.RetryBackoffMax,
		metrics:    metrics,
	}
}

// BackendName identifies the backend this fetcher drives.
func (f *Fetcher) BackendName() string {
	return f.backend.Name()
}

// Fetch retrieves rawURL and parses it into a document. On exhausting all
// attempts it returns a *FetchError wrapping the last cause.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	attempts := f.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		if attempt > 0 {
			if err := sleepContext(ctx, f.backoffDelay(attempt)); err != nil {
				lastErr = err
				break
			}
			f.metrics.IncRetries()
		}

		start := time.Now()
		f.metrics.IncRequest(f.backend.Name())
		body, err := f.backend.Get(ctx, rawURL)
		f.metrics.ObserveDuration(time.Since(start))
		if err != nil {
			lastErr = err
			f.metrics.IncError(errorTypeLabel(err))
			slog.Debug("fetch attempt failed",
				slog.String("url", rawURL),
				slog.String("backend", f.backend.Name()),
				slog.Int("attempt", attempt+1),
				slog.Any("error", err),
			)
			continue
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			lastErr = fmt.Errorf("parse document: %w", err)
			continue
		}
		return doc, nil
	}

	return nil, &FetchError{URL: rawURL, Backend: f.backend.Name(), Err: lastErr}
}

// backoffDelay returns the sleep applied before retry number attempt
// (1-based).
func (f *Fetcher) backoffDelay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := f.baseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := f.maxDelay; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
