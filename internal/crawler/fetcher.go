package crawler

import (
	"context"
	"fmt"

	"github.com/mindlex/lexcrawl/internal/checkpoint"
)

// Fetcher is the fetch-and-expand collaborator. Given a normalized URL
// key it fetches the page and returns its metadata together with the
// raw child URLs found on it. The core treats it as opaque: on failure
// it must return a classified *FetchError and never panic across the
// call boundary.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// FetchResult is the outcome of one successful fetch-and-expand call.
type FetchResult struct {
	// URL is the key that was fetched.
	URL string

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// ContentType is the response Content-Type header.
	ContentType string

	// Title is the extracted page title, empty when none was found.
	Title string

	// Breadcrumb is the extracted breadcrumb trail, empty when none.
	Breadcrumb string

	// ChildURLs are the raw URLs discovered on the page. They are not
	// normalized or filtered; the dispatcher does both.
	ChildURLs []string
}

// ErrorKind classifies a fetch failure.
type ErrorKind int

const (
	// ErrKindOther covers failures that fit no other class.
	ErrKindOther ErrorKind = iota

	// ErrKindTimeout is a fetch that exceeded its deadline.
	ErrKindTimeout

	// ErrKindNetwork is a transport-level failure (DNS, connect,
	// reset).
	ErrKindNetwork

	// ErrKindParse is a response that could not be decoded or parsed.
	ErrKindParse
)

// String returns the kind name for logging.
func (k ErrorKind) String() string {
	switch k {
	case ErrKindTimeout:
		return "timeout"
	case ErrKindNetwork:
		return "network"
	case ErrKindParse:
		return "parse"
	default:
		return "other"
	}
}

// FetchError is the classified failure a Fetcher returns. The URL it
// carries is already marked visited by the time the error is observed,
// so failed fetches are not retried within a run.
type FetchError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// URL is the key whose fetch failed.
	URL string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed (%s): %v", e.URL, e.Kind, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Page is the metadata of one fetched page handed to the Recorder.
type Page struct {
	// URL is the normalized key of the page.
	URL string

	// ParentURL is the key of the page it was discovered on.
	ParentURL string

	// Domain is the crawl boundary the page belongs to.
	Domain string

	// Title is the page title.
	Title string

	// Breadcrumb is the breadcrumb trail of the page.
	Breadcrumb string

	// StatusCode is the HTTP status of the fetch.
	StatusCode int

	// Depth is the crawl depth the page was reached at.
	Depth int
}

// Recorder persists fetched page metadata. Recording failures are
// logged by the dispatcher and never stop the crawl.
type Recorder interface {
	RecordPage(ctx context.Context, page Page) error
}

// RecordSource exposes the external ledger of URL keys already
// recorded for a domain. It may be slow; the dispatcher consults it
// exactly once per domain at startup, never in the dispatch loop.
type RecordSource interface {
	FetchKeys(ctx context.Context, domain string) ([]string, error)
}

// CheckpointStore is the durable progress store the dispatcher loads
// from at startup and saves to while crawling. The concrete
// implementation is checkpoint.Store; tests substitute doubles.
type CheckpointStore interface {
	Load(domain string) (checkpoint.Record, error)
	Save(rec checkpoint.Record) error
}
