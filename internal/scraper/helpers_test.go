package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type detailFixture struct {
	title, date, rating, plot string
	omit                      []string
}

func fullDetail() detailFixture {
	return detailFixture{
		title:  "Dune: Part Two",
		date:   "1 de março de 2024",
		rating: "8,5",
		plot:   "Paul Atreides unites with the Fremen.",
	}
}

func (f detailFixture) without(fields ...string) detailFixture {
	f.omit = append(append([]string(nil), f.omit...), fields...)
	return f
}

func (f detailFixture) has(field string) bool {
	for _, o := range f.omit {
		if o == field {
			return false
		}
	}
	return true
}

func (f detailFixture) HTML() string {
	var b strings.Builder
	b.WriteString(`<html><head><title>page</title></head><body>`)
	b.WriteString(`<section class="ipc-page-section ipc-page-section--base">`)
	b.WriteString(`<div class="decoy"><h1><span>Decoy Title</span></h1><a href="/decoy/releaseinfo">decoy date</a></div>`)
	b.WriteString(`<div class="hero">`)
	if f.has(FieldTitle) {
		fmt.Fprintf(&b, `<h1 data-testid="hero__pageTitle"><span class="hero__primary-text">%s</span></h1>`, f.title)
	}
	b.WriteString(`<ul><li><a href="/title/tt0/parentalguide">Classificação</a></li>`)
	if f.has(FieldDate) {
		fmt.Fprintf(&b, `<li><a href="/title/tt0/releaseinfo?ref_=tt_ov_rdat">  %s  </a></li>`, f.date)
	}
	b.WriteString(`</ul></div></section>`)
	if f.has(FieldRating) {
		fmt.Fprintf(&b, `<div data-testid="hero-rating-bar__aggregate-rating__score"><span>%s</span></div>`, f.rating)
	}
	if f.has(FieldPlot) {
		fmt.Fprintf(&b, `<p><span data-testid="plot-xs_to_m">
			%s
		</span></p>`, f.plot)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func catalogHTML(hrefs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div data-testid="chart-layout-main-column"><ul class="ipc-metadata-list">`)
	for _, href := range hrefs {
		fmt.Fprintf(&b, `<li class="ipc-metadata-list-summary-item"><a href="%s">item</a></li>`, href)
	}
	b.WriteString(`</ul></div></body></html>`)
	return b.String()
}

type fakeResponse struct {
	body   string
	status int
	err    error
}

// fakeFetcher serves canned responses and tracks concurrency.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	calls     []string
	delay     time.Duration

	inFlight atomic.Int32
	peak     atomic.Int32
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{responses: make(map[string]fakeResponse)}
}

func (f *fakeFetcher) serve(url, body string) {
	f.responses[url] = fakeResponse{body: body, status: 200}
}

func (f *fakeFetcher) fail(url string, err error) {
	f.responses[url] = fakeResponse{err: err}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (Page, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		old := f.peak.Load()
		if cur <= old || f.peak.CompareAndSwap(old, cur) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, url)
	resp, ok := f.responses[url]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if !ok {
		return Page{URL: url, StatusCode: 404}, &StatusError{URL: url, StatusCode: 404}
	}
	if resp.err != nil {
		return Page{URL: url, StatusCode: resp.status}, resp.err
	}
	return Page{URL: url, StatusCode: resp.status, Body: []byte(resp.body)}, nil
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type memorySink struct {
	mu      sync.Mutex
	batches [][]Record
	runIDs  []string
	err     error
}

func (s *memorySink) Append(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]Record(nil), records...))
	s.runIDs = append(s.runIDs, RunIDFromContext(ctx))
	return s.err
}

type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

type fakeIDGen struct {
	id  string
	err error
}

func (g fakeIDGen) NewID() (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.id, nil
}

type noPause struct{}

func (noPause) Pause(context.Context, time.Duration) {}

var errBoom = errors.New("boom")
