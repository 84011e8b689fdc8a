package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/user/daraz-scraper/models"
	"github.com/user/daraz-scraper/scraper"
)

// detailFunc resolves one summary URL into a full product record.
type detailFunc func(ctx context.Context, url string) (models.ProductRecord, error)

// orchestrator fans detail fetches out under a concurrency budget while
// preserving the rank each summary was assigned on the results page.
type orchestrator struct {
	fetchDetail detailFunc
	concurrency int
	gate        *politenessGate
	metrics     *scraper.Metrics
}

func newOrchestrator(fetchDetail detailFunc, concurrency int, detailDelay time.Duration, metrics *scraper.Metrics) *orchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	o := &orchestrator{
		fetchDetail: fetchDetail,
		concurrency: concurrency,
		metrics:     metrics,
	}
	// The politeness gap only matters when detail fetches are effectively
	// serialized against one host.
	if concurrency == 1 && detailDelay > 0 {
		o.gate = &politenessGate{delay: detailDelay}
	}
	return o
}

// run resolves summaries into records sorted by rank. Completion order never
// leaks into the output.
func (o *orchestrator) run(ctx context.Context, summaries []models.SearchSummary, maxResults int) []models.ProductRecord {
	records := make([]models.ProductRecord, 0, len(summaries))
	for record := range o.stream(ctx, summaries, maxResults) {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Rank < records[j].Rank
	})
	return records
}

// stream resolves summaries and emits records as they complete. Each record
// carries the rank assigned from summary order before any fetch started;
// emission order is completion order. The channel closes after the last
// record.
func (o *orchestrator) stream(ctx context.Context, summaries []models.SearchSummary, maxResults int) <-chan models.ProductRecord {
	if maxResults > 0 && len(summaries) > maxResults {
		summaries = summaries[:maxResults]
	}

	out := make(chan models.ProductRecord)
	go func() {
		defer close(out)

		sem := make(chan struct{}, o.concurrency)
		var wg sync.WaitGroup
		for i, summary := range summaries {
			wg.Add(1)
			go func(rank int, summary models.SearchSummary) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				// A consumer that cancels and walks away must not pin
				// workers on the send.
				select {
				case out <- o.resolve(ctx, summary, rank):
				case <-ctx.Done():
				}
			}(i+1, summary)
		}
		wg.Wait()
	}()
	return out
}

// resolve produces exactly one record per summary: a failure yields a
// degraded record with the summary's fields, never a dropped rank slot.
func (o *orchestrator) resolve(ctx context.Context, summary models.SearchSummary, rank int) models.ProductRecord {
	if o.gate != nil {
		if err := o.gate.wait(ctx); err != nil {
			o.metrics.IncDegraded()
			return degradedRecord(summary, rank, err)
		}
	}

	record, err := o.fetchDetail(ctx, summary.URL)
	if err != nil {
		o.metrics.IncDegraded()
		slog.Warn("detail extraction degraded",
			slog.String("url", summary.URL),
			slog.Int("rank", rank),
			slog.Any("error", err),
		)
		return degradedRecord(summary, rank, err)
	}

	// Summary fields win whenever the detail page missed them; the URL
	// always comes from the summary.
	if record.ProductName == "" {
		record.ProductName = summary.Name
	}
	if record.Price == "" {
		record.Price = summary.Price
	}
	record.ProductURL = summary.URL
	record.Rank = rank

	o.metrics.IncProducts()
	return record
}

func degradedRecord(summary models.SearchSummary, rank int, cause error) models.ProductRecord {
	return models.ProductRecord{
		ProductName: summary.Name,
		Price:       summary.Price,
		ProductURL:  summary.URL,
		Rank:        rank,
		ScrapedAt:   time.Now(),
		Error:       fmt.Sprintf("detail extraction failed: %v", cause),
	}
}

// politenessGate spaces consecutive detail fetches by a fixed delay. It is a
// courtesy toward the site, not a correctness requirement.
type politenessGate struct {
	delay time.Duration

	mu   sync.Mutex
	next time.Time
}

func (g *politenessGate) wait(ctx context.Context) error {
	g.mu.Lock()
	now := time.Now()
	slot := g.next
	if slot.Before(now) {
		slot = now
	}
	g.next = slot.Add(g.delay)
	g.mu.Unlock()

	if d := time.Until(slot); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
