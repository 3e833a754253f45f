package scraper

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/chart-scraper/internal/metrics"
	"github.com/JakeFAU/chart-scraper/internal/pool"
)

// CoordinatorConfig controls a scrape run.
type CoordinatorConfig struct {
	CatalogURL     string
	BaseURL        string
	MaxConcurrency int
	Extractor      ExtractorConfig
}

// Coordinator runs one full pass: catalog, fan-out, sink.
type Coordinator struct {
	cfg     CoordinatorConfig
	fetcher Fetcher
	sink    Sink
	clock   Clock
	ids     IDGenerator
	logger  *zap.Logger
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(
	cfg CoordinatorConfig,
	fetcher Fetcher,
	sink Sink,
	clock Clock,
	ids IDGenerator,
	logger *zap.Logger,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Coordinator{
		cfg:     cfg,
		fetcher: fetcher,
		sink:    sink,
		clock:   clock,
		ids:     ids,
		logger:  logger,
	}
}

// Run performs one stateless pass. Only catalog failures are returned;
// detail and sink failures are logged and absorbed.
func (c *Coordinator) Run(ctx context.Context) error {
	start := c.clock.Now()

	runID, err := c.ids.NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	ctx = WithRunID(ctx, runID)
	logger := c.logger.With(zap.String("run_id", runID))

	urls, err := c.discover(ctx, logger)
	if err != nil {
		return err
	}
	logger.Info("Catalog loaded", zap.Int("urls", len(urls)))

	extractor := NewExtractor(c.fetcher, c.cfg.Extractor, logger)
	workers := pool.Size(c.cfg.MaxConcurrency, len(urls))
	records := pool.Map(ctx, workers, urls, func(ctx context.Context, url string) (Record, bool) {
		metrics.IncActiveWorkers()
		defer metrics.DecActiveWorkers()
		return extractor.Extract(ctx, url)
	}, func(url string, err error) {
		logger.Error("Unexpected error extracting details", zap.String("url", url), zap.Error(err))
	})

	if err := c.sink.Append(ctx, records); err != nil {
		category := SinkCategory(err)
		logger.Error("Failed to save records",
			zap.String("category", category),
			zap.Int("records", len(records)),
			zap.Error(err),
		)
		metrics.ObserveSinkError(category)
	}

	elapsed := c.clock.Now().Sub(start)
	metrics.ObserveRun(elapsed)
	logger.Info("Scrape finished",
		zap.Int("urls", len(urls)),
		zap.Int("workers", workers),
		zap.Int("records", len(records)),
		zap.Duration("duration", elapsed),
	)
	return nil
}

func (c *Coordinator) discover(ctx context.Context, logger *zap.Logger) ([]string, error) {
	page, err := c.fetcher.Fetch(ctx, c.cfg.CatalogURL)
	if err != nil {
		logger.Error("Error in main scraping process",
			zap.String("url", c.cfg.CatalogURL),
			zap.String("category", FetchCategory(err)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	doc, err := ParseHTML(page.Body)
	if err != nil {
		logger.Error("Catalog page is not usable HTML", zap.String("url", c.cfg.CatalogURL), zap.Error(err))
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	urls, err := DiscoverDetailURLs(doc, c.cfg.BaseURL, c.cfg.Extractor.Selectors, logger)
	if err != nil {
		return nil, fmt.Errorf("discover detail urls: %w", err)
	}
	return urls, nil
}
