// Package csvsink appends records to a delimited text file.
package csvsink

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/JakeFAU/chart-scraper/internal/metrics"
	"github.com/JakeFAU/chart-scraper/internal/scraper"
)

// Name is the metrics label for this sink.
const Name = "csv"

// Config controls the output file and its dialect.
type Config struct {
	Path      string
	Delimiter rune
	Quote     rune
}

// Sink appends rows to a single file. It is safe for concurrent use.
type Sink struct {
	cfg    Config
	logger *zap.Logger
	mu     sync.Mutex
}

// New validates cfg and returns a Sink. The file is not touched until Append.
func New(cfg Config, logger *zap.Logger) (*Sink, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("csv path is required")
	}
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	if cfg.Quote == 0 {
		cfg.Quote = '"'
	}
	if err := validDialect(cfg.Delimiter, cfg.Quote); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Sink{cfg: cfg, logger: logger}, nil
}

func validDialect(delimiter, quote rune) error {
	for _, r := range []rune{delimiter, quote} {
		if r == '\r' || r == '\n' || r == utf8.RuneError {
			return fmt.Errorf("invalid csv dialect rune %q", r)
		}
	}
	if delimiter == quote {
		return fmt.Errorf("csv delimiter and quote must differ")
	}
	return nil
}

// Path returns the output file path.
func (s *Sink) Path() string {
	return s.cfg.Path
}

// Append writes records in order, preceded by the header when the file is
// new or empty. Rows already written stay on disk if a later row fails.
func (s *Sink) Append(ctx context.Context, records []scraper.Record) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // report file is meant to be readable
	if err != nil {
		return fmt.Errorf("open %s: %w", s.cfg.Path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", s.cfg.Path, cerr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", s.cfg.Path, err)
	}
	if info.Size() == 0 {
		if err := s.writeRow(f, scraper.Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	written := 0
	defer func() { metrics.ObserveRecordsWritten(Name, written) }()
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("append canceled after %d rows: %w", written, err)
		}
		if err := s.writeRow(f, rec.Row()); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
		written++
		s.logger.Info("Saved",
			zap.String("title", rec.Title),
			zap.String("date", rec.Date),
			zap.String("rating", rec.Rating),
		)
	}
	return nil
}

// writeRow encodes the whole row before writing so a bad field never leaves
// half a line behind.
func (s *Sink) writeRow(f *os.File, fields []string) error {
	line, err := s.encodeRow(fields)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write %s: %w", s.cfg.Path, err)
	}
	return nil
}

func (s *Sink) encodeRow(fields []string) (string, error) {
	if len(fields) != len(scraper.Header) {
		return "", fmt.Errorf("%w: got %d fields, want %d", scraper.ErrMalformedRow, len(fields), len(scraper.Header))
	}
	var b strings.Builder
	for i, field := range fields {
		if !utf8.ValidString(field) {
			return "", fmt.Errorf("field %d: %w", i, scraper.ErrEncoding)
		}
		if i > 0 {
			b.WriteRune(s.cfg.Delimiter)
		}
		s.writeField(&b, field)
	}
	b.WriteString("\r\n")
	return b.String(), nil
}

func (s *Sink) writeField(b *strings.Builder, field string) {
	if !s.needsQuotes(field) {
		b.WriteString(field)
		return
	}
	b.WriteRune(s.cfg.Quote)
	for _, r := range field {
		if r == s.cfg.Quote {
			b.WriteRune(r)
		}
		b.WriteRune(r)
	}
	b.WriteRune(s.cfg.Quote)
}

// needsQuotes reports whether field contains the delimiter, the quote
// character or a line break.
func (s *Sink) needsQuotes(field string) bool {
	return strings.ContainsFunc(field, func(r rune) bool {
		return r == s.cfg.Delimiter || r == s.cfg.Quote || r == '\r' || r == '\n'
	})
}
