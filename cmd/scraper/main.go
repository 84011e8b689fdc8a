package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/daraz-scraper/config"
	"github.com/user/daraz-scraper/models"
	"github.com/user/daraz-scraper/pipeline"
	"github.com/user/daraz-scraper/scraper"
)

func main() {
	defaultCfg := config.DefaultConfig()
	limitDefault := defaultCfg.MaxResults
	if value, ok, err := config.EnvInt("SCRAPER_LIMIT"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_LIMIT: %v\n", err)
		os.Exit(1)
	} else if ok {
		limitDefault = value
	}
	concurrencyDefault := defaultCfg.Concurrency
	if value, ok, err := config.EnvInt("SCRAPER_CONCURRENCY"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_CONCURRENCY: %v\n", err)
		os.Exit(1)
	} else if ok {
		concurrencyDefault = value
	}
	browserDefault := defaultCfg.BrowserEnabled
	if value, ok, err := config.EnvBool("SCRAPER_BROWSER"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_BROWSER: %v\n", err)
		os.Exit(1)
	} else if ok {
		browserDefault = value
	}
	cacheDefault := defaultCfg.CacheEnabled
	if value, ok, err := config.EnvBool("SCRAPER_CACHE"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_CACHE: %v\n", err)
		os.Exit(1)
	} else if ok {
		cacheDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	limit := flag.Int("limit", limitDefault, "Maximum products per query")
	concurrency := flag.Int("concurrency", concurrencyDefault, "Number of concurrent detail fetches")
	timeoutSec := flag.Int("timeout", int(defaultCfg.Timeout.Seconds()), "HTTP request timeout (seconds)")
	maxRetries := flag.Int("max-retries", defaultCfg.MaxRetries, "Maximum fetch attempts per URL")
	retryBackoffMs := flag.Int("retry-backoff", int(defaultCfg.RetryBackoff.Milliseconds()), "Initial retry backoff (milliseconds)")
	retryBackoffMaxMs := flag.Int("retry-backoff-max", int(defaultCfg.RetryBackoffMax.Milliseconds()), "Maximum retry backoff (milliseconds)")
	delayMs := flag.Int("delay", int(defaultCfg.DetailDelay.Milliseconds()), "Politeness delay between serialized detail fetches (milliseconds)")
	browser := flag.Bool("browser", browserDefault, "Enable headless-browser fallback for empty result pages")
	cache := flag.Bool("cache", cacheDefault, "Cache search results in memory")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: csv, json, or dual")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	stream := flag.Bool("stream", false, "Print records as they complete instead of waiting for rank order")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Marketplace base URL")

	flag.Parse()

	queries := flag.Args()
	if len(queries) == 0 {
		fmt.Fprintln(os.Stderr, "usage: scraper [flags] QUERY [QUERY...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.BaseURL = *baseURL
	cfg.MaxResults = *limit
	cfg.Concurrency = *concurrency
	cfg.Timeout = time.Duration(*timeoutSec) * time.Second
	cfg.MaxRetries = *maxRetries
	cfg.RetryBackoff = time.Duration(*retryBackoffMs) * time.Millisecond
	cfg.RetryBackoffMax = time.Duration(*retryBackoffMaxMs) * time.Millisecond
	cfg.DetailDelay = time.Duration(*delayMs) * time.Millisecond
	cfg.BrowserEnabled = *browser
	cfg.CacheEnabled = *cache
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting search",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("queries", len(queries)),
		slog.Int("limit", cfg.MaxResults),
		slog.Int("concurrency", cfg.Concurrency),
	)

	metrics := scraper.NewMetrics()

	httpBackend, err := scraper.NewHTTPBackend(cfg)
	if err != nil {
		slog.Error("initialising http backend", slog.Any("error", err))
		os.Exit(1)
	}
	primary := scraper.NewFetcher(httpBackend, cfg, metrics)

	var fallback *scraper.Fetcher
	if cfg.BrowserEnabled {
		browserBackend := scraper.NewBrowserBackend(cfg)
		defer browserBackend.Close()
		fallback = scraper.NewFetcher(browserBackend, cfg, metrics)
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	p := pipeline.NewPipeline(cfg, primary, fallback, metrics)

	startTime := time.Now()
	total, degraded, runErr := run(ctx, p, writer, queries, cfg, *stream)
	duration := time.Since(startTime)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if runErr != nil {
		slog.Error("search failed", slog.Any("error", runErr))
		os.Exit(1)
	}

	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	printSummary(len(queries), total, degraded, duration, cfg.OutputFile)
}

// run dispatches the selected mode: streaming is only meaningful for a single
// query, batch handles the rest.
func run(ctx context.Context, p *pipeline.Pipeline, writer pipeline.OutputWriter, queries []string, cfg *config.Config, stream bool) (total, degraded int, err error) {
	if stream && len(queries) == 1 {
		records, streamErr := p.SearchStream(ctx, queries[0], cfg.MaxResults, cfg.Concurrency)
		if streamErr != nil {
			return 0, 0, streamErr
		}
		for record := range records {
			if record.Degraded() {
				degraded++
			}
			total++
			if writeErr := writer.Write([]models.ProductRecord{record}); writeErr != nil {
				return total, degraded, writeErr
			}
		}
		return total, degraded, nil
	}

	if len(queries) == 1 {
		records, searchErr := p.Search(ctx, queries[0], cfg.MaxResults, cfg.Concurrency)
		if searchErr != nil {
			return 0, 0, searchErr
		}
		total, degraded = tally(records)
		return total, degraded, writer.Write(records)
	}

	results := p.SearchBatch(ctx, queries, cfg.MaxResults, cfg.Concurrency)
	for _, query := range queries {
		records := results[query]
		t, d := tally(records)
		total += t
		degraded += d
		if writeErr := writer.Write(records); writeErr != nil {
			return total, degraded, writeErr
		}
	}
	return total, degraded, nil
}

func tally(records []models.ProductRecord) (total, degraded int) {
	for _, record := range records {
		if record.Degraded() {
			degraded++
		}
	}
	return len(records), degraded
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(queries, total, degraded int, duration time.Duration, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Search complete")
	fmt.Printf("  Queries:       %d\n", queries)
	fmt.Printf("  Total items:   %d\n", total)
	fmt.Printf("  Degraded:      %d\n", degraded)
	itemsPerSec := 0.0
	if duration.Seconds() > 0 {
		itemsPerSec = float64(total) / duration.Seconds()
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Items/sec:     %.2f\n", itemsPerSec)
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
