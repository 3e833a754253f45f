package scraper

import (
	"context"
	"time"
)

// Header is the column order used by every tabular sink.
var Header = []string{"Title", "Release Date", "Rating", "Plot"}

// Record is one fully extracted title. Values are kept exactly as extracted.
type Record struct {
	Title  string `json:"title"`
	Date   string `json:"date"`
	Rating string `json:"rating"`
	Plot   string `json:"plot"`
}

// NewRecord returns a Record only when all four fields are non-empty.
func NewRecord(title, date, rating, plot string) (Record, bool) {
	if title == "" || date == "" || rating == "" || plot == "" {
		return Record{}, false
	}
	return Record{Title: title, Date: date, Rating: rating, Plot: plot}, true
}

// Row returns the record fields in Header order.
func (r Record) Row() []string {
	return []string{r.Title, r.Date, r.Rating, r.Plot}
}

// Page is the raw result of a successful GET.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher fetches a URL and returns the body plus status.
// Non-2xx responses are reported as *StatusError.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// Sink persists a batch of records.
type Sink interface {
	Append(ctx context.Context, records []Record) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

type runIDKey struct{}

// WithRunID stores the run ID on ctx so sinks can tag what they write.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the run ID set by WithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
