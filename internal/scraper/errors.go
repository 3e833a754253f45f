package scraper

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"syscall"
)

var (
	// ErrCatalogShape means the catalog page no longer has the chart container or list.
	ErrCatalogShape = errors.New("catalog page structure not recognized")
	// ErrEmptyDocument means a response body could not be used as HTML.
	ErrEmptyDocument = errors.New("empty html document")
	// ErrEncoding is returned by sinks when a value cannot be written as UTF-8.
	ErrEncoding = errors.New("record is not valid utf-8")
	// ErrMalformedRow is returned by sinks when a row does not match the header.
	ErrMalformedRow = errors.New("malformed row")
)

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	if e == nil {
		return "http status error"
	}
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// Fetch failure categories, used as log fields and metric labels.
const (
	CategoryHTTPStatus = "http_status"
	CategoryConnection = "connection"
	CategoryTimeout    = "timeout"
	CategoryRequest    = "request"
)

// FetchCategory classifies a fetch error.
func FetchCategory(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return CategoryHTTPStatus
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &opErr), errors.As(err, &dnsErr),
		errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return CategoryConnection
	}
	return CategoryRequest
}

// Sink failure categories.
const (
	SinkNotFound     = "not_found"
	SinkPermission   = "permission"
	SinkEncoding     = "encoding"
	SinkMalformedRow = "malformed_row"
	SinkIO           = "io"
)

// SinkCategory classifies an error returned by Sink.Append.
func SinkCategory(err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return SinkNotFound
	case errors.Is(err, fs.ErrPermission):
		return SinkPermission
	case errors.Is(err, ErrEncoding):
		return SinkEncoding
	case errors.Is(err, ErrMalformedRow):
		return SinkMalformedRow
	default:
		return SinkIO
	}
}
