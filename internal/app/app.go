// Package app builds the scraper's long-lived services from configuration and
// runs a single scrape pass.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/JakeFAU/chart-scraper/internal/api"
	"github.com/JakeFAU/chart-scraper/internal/clock/system"
	"github.com/JakeFAU/chart-scraper/internal/config"
	collyfetcher "github.com/JakeFAU/chart-scraper/internal/fetcher/colly"
	"github.com/JakeFAU/chart-scraper/internal/id/uuid"
	"github.com/JakeFAU/chart-scraper/internal/logging"
	"github.com/JakeFAU/chart-scraper/internal/scraper"
	csvsink "github.com/JakeFAU/chart-scraper/internal/sink/csv"
	pgsink "github.com/JakeFAU/chart-scraper/internal/sink/postgres"
)

// App holds the services for one scraper process.
type App struct {
	cfg         config.Config
	logger      *zap.Logger
	sink        scraper.Sink
	coordinator *scraper.Coordinator
	apiServer   *api.Server
	closers     []func()
	closeOnce   sync.Once
}

// Build creates a logger from cfg and then the remaining dependencies.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	return New(ctx, cfg, logger)
}

// New creates the application's dependencies around an existing logger.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}

	clock := system.New()
	if err := a.setupSink(ctx, clock); err != nil {
		return nil, err
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:      cfg.HTTP.UserAgent,
		AcceptLanguage: cfg.HTTP.AcceptLanguage,
		Timeout:        cfg.HTTP.RequestTimeout,
	})
	logger.Debug("using colly fetcher",
		zap.String("user_agent", cfg.HTTP.UserAgent),
		zap.String("accept_language", cfg.HTTP.AcceptLanguage),
		zap.Duration("request_timeout", cfg.HTTP.RequestTimeout),
	)

	a.coordinator = scraper.NewCoordinator(
		scraper.CoordinatorConfig{
			CatalogURL:     cfg.Scraper.CatalogURL,
			BaseURL:        cfg.Scraper.BaseURL,
			MaxConcurrency: cfg.Scraper.MaxConcurrency,
			Extractor: scraper.ExtractorConfig{
				JitterMax: cfg.Scraper.JitterMax,
				Selectors: cfg.Selectors,
			},
		},
		fetcher,
		a.sink,
		clock,
		uuid.New(),
		logger.Named("scraper"),
	)

	if cfg.Metrics.Addr != "" {
		a.apiServer = api.NewServer(logger.Named("api"))
	}
	return a, nil
}

func (a *App) setupSink(ctx context.Context, clock scraper.Clock) error {
	switch a.cfg.Sink.Kind {
	case config.SinkPostgres:
		sink, err := pgsink.New(ctx, pgsink.Config{
			DSN:      a.cfg.Sink.Postgres.DSN,
			Table:    a.cfg.Sink.Postgres.Table,
			MaxConns: a.cfg.Sink.Postgres.MaxConns,
		}, clock, a.logger.Named("sink"))
		if err != nil {
			return fmt.Errorf("postgres sink init failed: %w", err)
		}
		a.sink = sink
		a.closers = append(a.closers, sink.Close)
		a.logger.Info("using postgres sink", zap.String("table", sink.Table()))
	case config.SinkCSV, "":
		sink, err := csvsink.New(csvsink.Config{
			Path:      a.cfg.Sink.CSV.Path,
			Delimiter: a.cfg.Sink.CSV.DelimiterRune(),
			Quote:     a.cfg.Sink.CSV.QuoteRune(),
		}, a.logger.Named("sink"))
		if err != nil {
			return fmt.Errorf("csv sink init failed: %w", err)
		}
		a.sink = sink
		a.logger.Info("using csv sink", zap.String("path", sink.Path()))
	default:
		return fmt.Errorf("unknown sink kind: %s", a.cfg.Sink.Kind)
	}
	return nil
}

// Logger returns the process logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Run performs one scrape pass, serving /healthz and /metrics for its
// duration when a metrics address is configured.
func (a *App) Run(ctx context.Context) error {
	if a.apiServer != nil {
		if _, err := a.apiServer.Start(a.cfg.Metrics.Addr); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			if err := a.apiServer.Shutdown(context.WithoutCancel(ctx)); err != nil {
				a.logger.Warn("metrics server shutdown failed", zap.Error(err))
			}
		}()
	}
	if err := a.coordinator.Run(ctx); err != nil {
		return fmt.Errorf("scrape run: %w", err)
	}
	return nil
}

// Close releases the sink and flushes the logger. Calls after the first are
// no-ops.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			a.closers[i]()
		}
		if err := a.logger.Sync(); err != nil && !isHarmlessSyncError(err) {
			a.logger.Warn("logger sync failed", zap.Error(err))
		}
	})
}

// isHarmlessSyncError matches the error zap returns when syncing a terminal
// or pipe on stdout/stderr.
func isHarmlessSyncError(err error) bool {
	var pathErr *fs.PathError
	return errors.As(err, &pathErr) &&
		(errors.Is(pathErr.Err, syscall.EINVAL) || errors.Is(pathErr.Err, syscall.ENOTTY))
}
