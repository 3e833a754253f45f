// Package scraper implements the chart scraping pipeline: catalog discovery,
// per-title detail extraction, bounded fan-out across workers, and hand-off of
// the extracted records to a sink.
package scraper
