package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/mindlex/lexcrawl/internal/crawler"
)

const (
	// defaultUserAgent identifies the crawler to the portals it visits.
	defaultUserAgent = "lexcrawl/1.0 (+https://github.com/mindlex/lexcrawl)"

	// defaultMaxBodySize caps how much of a response body is read.
	defaultMaxBodySize = 5 << 20 // 5 MiB
)

// Client fetches pages over HTTP and parses them into fetch results.
// It implements crawler.Fetcher. A Client is safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	userAgent   string
	cookie      string
	headers     map[string]string
	maxBodySize int64
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithCookie sets a Cookie header sent with every request. Some portals
// gate their listings behind a session or consent cookie.
func WithCookie(cookie string) Option {
	return func(c *Client) {
		c.cookie = cookie
	}
}

// WithHeaders sets additional headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithMaxBodySize caps how many bytes of a response body are read.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		c.maxBodySize = n
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a fetch client. Per-request deadlines come from the
// caller's context; the client itself sets no timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{},
		userAgent:   defaultUserAgent,
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves one page and extracts its title, breadcrumb, and
// outgoing links. Failures are classified so the dispatcher can log
// timeouts, network errors, and parse errors distinctly.
func (c *Client) Fetch(ctx context.Context, pageURL string) (*crawler.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &crawler.FetchError{Kind: crawler.ErrKindOther, URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &crawler.FetchError{Kind: classifyError(err), URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &crawler.FetchError{
			Kind: crawler.ErrKindNetwork,
			URL:  pageURL,
			Err:  fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	result := &crawler.FetchResult{
		URL:         pageURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}

	// Non-HTML responses are recorded but not expanded.
	if !isHTML(result.ContentType) {
		return result, nil
	}

	body := io.LimitReader(resp.Body, c.maxBodySize)
	decoded, err := charset.NewReader(body, result.ContentType)
	if err != nil {
		return nil, &crawler.FetchError{Kind: crawler.ErrKindParse, URL: pageURL, Err: err}
	}

	// The final URL after redirects is the base for relative links.
	base := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL.String()
	}
	parser, err := NewParser(base)
	if err != nil {
		return nil, &crawler.FetchError{Kind: crawler.ErrKindParse, URL: pageURL, Err: err}
	}
	parsed, err := parser.Parse(decoded)
	if err != nil {
		return nil, &crawler.FetchError{Kind: crawler.ErrKindParse, URL: pageURL, Err: err}
	}

	result.Title = parsed.Title
	result.Breadcrumb = parsed.Breadcrumb
	result.ChildURLs = parsed.Links
	return result, nil
}

// classifyError sorts transport failures into timeout and network
// kinds.
func classifyError(err error) crawler.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return crawler.ErrKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return crawler.ErrKindTimeout
		}
		return crawler.ErrKindNetwork
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return crawler.ErrKindNetwork
	}
	return crawler.ErrKindOther
}

// isHTML reports whether a Content-Type header denotes an HTML page.
// An absent header is treated as HTML; servers that omit it mostly
// serve markup.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
