package fetch

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// breadcrumbSeparator joins breadcrumb trail segments.
const breadcrumbSeparator = " > "

// Parser extracts information from HTML content: the title, the
// breadcrumb trail, and the outgoing links.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. Provides a proper DOM-like structure
//  3. More maintainable than complex regex patterns
//  4. Standard library extension, well-maintained
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// ParseResult contains the information extracted from an HTML page.
type ParseResult struct {
	// Title is the page title. The <title> tag wins; pages without one
	// fall back to the first <h1>, then to the og:title meta tag.
	Title string

	// Breadcrumb is the navigation trail, segments joined by " > ".
	// Empty when the page carries no recognizable breadcrumb markup.
	Breadcrumb string

	// Links contains all discovered href targets, resolved against the
	// page URL. Non-navigational schemes (javascript:, mailto:, tel:,
	// data:) are dropped.
	Links []string
}

// NewParser creates a parser for a page at baseURL. The base URL is
// used to resolve relative links.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content in a single pass.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links: make([]string, 0),
	}

	var title, h1, metaTitle string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if title == "" {
					title = collapseSpace(nodeText(n))
				}

			case "h1":
				if h1 == "" {
					h1 = collapseSpace(nodeText(n))
				}

			case "meta":
				name := getAttr(n, "name")
				if name == "" {
					name = getAttr(n, "property") // OpenGraph uses property
				}
				if name == "og:title" && metaTitle == "" {
					metaTitle = collapseSpace(getAttr(n, "content"))
				}

			case "a":
				if href := getAttr(n, "href"); href != "" {
					if resolved := p.resolveURL(href); resolved != "" {
						result.Links = append(result.Links, resolved)
					}
				}
			}

			if result.Breadcrumb == "" && isBreadcrumbContainer(n) {
				result.Breadcrumb = extractBreadcrumb(n)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	switch {
	case title != "":
		result.Title = title
	case h1 != "":
		result.Title = h1
	default:
		result.Title = metaTitle
	}
	return result, nil
}

// resolveURL resolves a relative URL against the base URL.
//
// Design decision: We resolve URLs rather than storing them as-is because:
//  1. Makes deduplication easier
//  2. Allows proper link classification
//  3. Reduces ambiguity in results
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") ||
		href == "#" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return p.baseURL.ResolveReference(u).String()
}

// isBreadcrumbContainer reports whether a node is breadcrumb markup:
// an element whose class names include "breadcrumb", or a nav element
// with aria-label "breadcrumb".
func isBreadcrumbContainer(n *html.Node) bool {
	for _, class := range strings.Fields(strings.ToLower(getAttr(n, "class"))) {
		if strings.Contains(class, "breadcrumb") {
			return true
		}
	}
	if n.Data == "nav" &&
		strings.EqualFold(strings.TrimSpace(getAttr(n, "aria-label")), "breadcrumb") {
		return true
	}
	return false
}

// extractBreadcrumb joins the text of a breadcrumb container's list
// items and anchors into a single trail. Pure separator segments
// ("/", ">", "»") between items are dropped.
func extractBreadcrumb(container *html.Node) string {
	var segments []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "li" || n.Data == "a" || n.Data == "span") {
			text := collapseSpace(nodeText(n))
			switch text {
			case "", "/", ">", "»", "|":
			default:
				segments = append(segments, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}

	return strings.Join(segments, breadcrumbSeparator)
}

// nodeText returns the concatenated text of a node's subtree.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// collapseSpace trims a string and collapses internal whitespace runs
// to single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
