// Package pipeline composes fetching, parsing and orchestration into the
// search facade.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/user/daraz-scraper/config"
	"github.com/user/daraz-scraper/models"
	"github.com/user/daraz-scraper/parser"
	"github.com/user/daraz-scraper/scraper"
)

// PipelineError reports a query whose summary fetch failed on every
// configured backend. Callers receive it as a typed value; the pipeline
// never panics past this boundary.
type PipelineError struct {
	Query string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("search %q: %v", e.Query, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Pipeline is the search facade. The primary fetcher drives the lightweight
// HTTP backend; the optional fallback fetcher drives the browser backend and
// runs at most once per invocation, when the primary yields no summaries.
type Pipeline struct {
	cfg      *config.Config
	primary  *scraper.Fetcher
	fallback *scraper.Fetcher
	metrics  *scraper.Metrics
	cache    *expirable.LRU[string, []models.ProductRecord]
}

// NewPipeline builds a pipeline. fallback may be nil when no browser backend
// is configured.
func NewPipeline(cfg *config.Config, primary, fallback *scraper.Fetcher, metrics *scraper.Metrics) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		primary:  primary,
		fallback: fallback,
		metrics:  metrics,
	}
	if cfg.CacheEnabled {
		p.cache = expirable.NewLRU[string, []models.ProductRecord](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return p
}

// Search runs one query end to end and returns records ordered by rank.
// Zero parsable results is an empty slice, not an error; only a query whose
// summary page could not be fetched on any backend returns a *PipelineError.
func (p *Pipeline) Search(ctx context.Context, query string, maxResults, concurrency int) ([]models.ProductRecord, error) {
	maxResults, concurrency = p.clamp(maxResults, concurrency)

	key := cacheKey(query, maxResults)
	if p.cache != nil {
		if records, ok := p.cache.Get(key); ok {
			p.metrics.IncCacheHit()
			return records, nil
		}
	}

	summaries, err := p.fetchSummaries(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		slog.Info("no products found", slog.String("query", query))
		return []models.ProductRecord{}, nil
	}

	o := newOrchestrator(p.fetchDetail, concurrency, p.cfg.DetailDelay, p.metrics)
	records := o.run(ctx, summaries, maxResults)

	// A cancelled run yields records degraded by context errors; caching
	// them would poison the key for the full TTL.
	if p.cache != nil && ctx.Err() == nil {
		p.cache.Add(key, records)
	}
	return records, nil
}

// SearchStream runs one query and emits records as their detail fetches
// complete. Emission order is completion order, but every record carries its
// rank so consumers can reorder. The stream is finite and not restartable.
func (p *Pipeline) SearchStream(ctx context.Context, query string, maxResults, concurrency int) (<-chan models.ProductRecord, error) {
	maxResults, concurrency = p.clamp(maxResults, concurrency)

	summaries, err := p.fetchSummaries(ctx, query)
	if err != nil {
		return nil, err
	}

	o := newOrchestrator(p.fetchDetail, concurrency, p.cfg.DetailDelay, p.metrics)
	return o.stream(ctx, summaries, maxResults), nil
}

// SearchBatch runs queries sequentially so total outbound concurrency stays
// bounded by one query's budget. A failed query becomes an empty entry and
// never aborts the batch.
func (p *Pipeline) SearchBatch(ctx context.Context, queries []string, maxResultsPerQuery, concurrency int) map[string][]models.ProductRecord {
	results := make(map[string][]models.ProductRecord, len(queries))
	for _, query := range queries {
		records, err := p.Search(ctx, query, maxResultsPerQuery, concurrency)
		if err != nil {
			slog.Error("batch query failed",
				slog.String("query", query),
				slog.Any("error", err),
			)
			results[query] = []models.ProductRecord{}
			continue
		}
		results[query] = records
	}
	return results
}

// fetchSummaries drives the START -> FETCH_SUMMARIES -> NO_RESULTS_FALLBACK
// legs of an invocation. The browser fallback fires at most once; there is
// no ping-pong back to the primary backend.
func (p *Pipeline) fetchSummaries(ctx context.Context, query string) ([]models.SearchSummary, error) {
	searchURL := p.cfg.SearchURL(query)

	doc, primaryErr := p.primary.Fetch(ctx, searchURL)
	if primaryErr == nil {
		summaries := p.validSummaries(parser.ParseSummaries(doc, p.cfg.BaseURL))
		if len(summaries) > 0 {
			return summaries, nil
		}
	}

	if p.fallback == nil {
		if primaryErr != nil {
			return nil, &PipelineError{Query: query, Err: primaryErr}
		}
		return nil, nil
	}

	p.metrics.IncFallback()
	slog.Info("retrying summaries on browser backend",
		slog.String("query", query),
		slog.Any("primary_error", primaryErr),
	)

	doc, fallbackErr := p.fallback.Fetch(ctx, searchURL)
	if fallbackErr != nil {
		if primaryErr != nil {
			return nil, &PipelineError{Query: query, Err: errors.Join(primaryErr, fallbackErr)}
		}
		// The primary reached the site and saw no products; treat the
		// fallback failure as zero results rather than a hard error.
		return nil, nil
	}
	return p.validSummaries(parser.ParseSummaries(doc, p.cfg.BaseURL)), nil
}

// fetchDetail resolves one product page. Details always ride the primary
// backend; the browser is reserved for summary pages.
func (p *Pipeline) fetchDetail(ctx context.Context, url string) (models.ProductRecord, error) {
	doc, err := p.primary.Fetch(ctx, url)
	if err != nil {
		return models.ProductRecord{}, err
	}
	return parser.ParseDetail(doc, url), nil
}

func (p *Pipeline) validSummaries(in []models.SearchSummary) []models.SearchSummary {
	out := make([]models.SearchSummary, 0, len(in))
	for _, summary := range in {
		if err := parser.ValidateSummary(summary); err != nil {
			slog.Debug("dropping malformed summary", slog.Any("error", err))
			continue
		}
		out = append(out, summary)
	}
	return out
}

func (p *Pipeline) clamp(maxResults, concurrency int) (int, int) {
	if maxResults < 1 {
		maxResults = p.cfg.MaxResults
	}
	if concurrency < 1 {
		concurrency = p.cfg.Concurrency
	}
	return maxResults, concurrency
}

func cacheKey(query string, maxResults int) string {
	return fmt.Sprintf("%s|%d", query, maxResults)
}
