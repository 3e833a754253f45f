package scraper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/chart-scraper/internal/metrics"
)

// ExtractorConfig controls detail extraction.
type ExtractorConfig struct {
	// JitterMax bounds the random delay before each request. Zero disables it.
	JitterMax time.Duration
	Selectors Selectors
}

// Extractor turns one detail page URL into a Record.
type Extractor struct {
	fetcher   Fetcher
	pauser    Pauser
	jitterMax time.Duration
	selectors Selectors
	fields    []FieldRule
	logger    *zap.Logger
}

// NewExtractor constructs an Extractor.
func NewExtractor(fetcher Fetcher, cfg ExtractorConfig, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Extractor{
		fetcher:   fetcher,
		pauser:    timerPauser{},
		jitterMax: cfg.JitterMax,
		selectors: cfg.Selectors,
		fields:    cfg.Selectors.Fields(),
		logger:    logger,
	}
}

// Extract fetches url and extracts a Record. It never fails loudly: every
// problem is logged and reported as ok=false.
func (e *Extractor) Extract(ctx context.Context, url string) (Record, bool) {
	e.pauser.Pause(ctx, jitter(e.jitterMax))

	page, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		category := FetchCategory(err)
		fields := []zap.Field{
			zap.String("url", url),
			zap.String("category", category),
			zap.Error(err),
		}
		if page.StatusCode != 0 {
			fields = append(fields, zap.Int("status_code", page.StatusCode))
		}
		e.logger.Error("Detail fetch failed", fields...)
		metrics.ObserveDetail(category)
		return Record{}, false
	}

	doc, err := ParseHTML(page.Body)
	if err != nil {
		e.logger.Warn("Detail page is not usable HTML", zap.String("url", url), zap.Error(err))
		metrics.ObserveDetail(metrics.OutcomeParse)
		return Record{}, false
	}

	section, ok := doc.Locate(e.selectors.Section)
	if !ok {
		e.logger.Warn("Main content section not found", zap.String("url", url))
		metrics.ObserveDetail(metrics.OutcomeStructure)
		return Record{}, false
	}
	target, ok := section.Child(e.selectors.SectionChild, e.selectors.SectionChildIndex)
	if !ok {
		e.logger.Warn("Expected content block not found",
			zap.String("url", url),
			zap.Int("child_index", e.selectors.SectionChildIndex),
		)
		metrics.ObserveDetail(metrics.OutcomeStructure)
		return Record{}, false
	}

	values := make(map[string]string, len(e.fields))
	for _, rule := range e.fields {
		value, found := rule.Extract(doc, target)
		if !found {
			e.logger.Warn("Field not found", zap.String("url", url), zap.String("field", rule.Name))
			metrics.ObserveMissingField(rule.Name)
			continue
		}
		values[rule.Name] = value
	}

	record, ok := NewRecord(values[FieldTitle], values[FieldDate], values[FieldRating], values[FieldPlot])
	if !ok {
		e.logger.Warn("Missing required data",
			zap.String("url", url),
			zap.Bool(FieldTitle, values[FieldTitle] != ""),
			zap.Bool(FieldDate, values[FieldDate] != ""),
			zap.Bool(FieldRating, values[FieldRating] != ""),
			zap.Bool(FieldPlot, values[FieldPlot] != ""),
		)
		metrics.ObserveDetail(metrics.OutcomeIncomplete)
		return Record{}, false
	}
	metrics.ObserveDetail(metrics.OutcomeOK)
	return record, true
}
