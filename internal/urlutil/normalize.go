package urlutil

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned by Normalize for URLs that cannot serve as
// crawl targets: relative references, missing hosts, or non-HTTP schemes.
// Callers must drop such URLs rather than enqueue them.
var ErrInvalidURL = errors.New("invalid URL: absolute http(s) URL required")

// Normalize canonicalizes a URL string into a deduplication key.
//
// The canonical form lowercases the scheme and host, strips a leading
// "www." from the host, removes default ports, drops the fragment, and
// removes a trailing slash except at the root. The query string is
// preserved because the target portals encode document identity in it.
//
// Normalize is pure: same input, same output, no side effects. It is
// the sole basis of deduplication, so any change here changes what
// "already crawled" means.
func Normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidURL
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", ErrInvalidURL
	}
	u.Scheme = scheme

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", ErrInvalidURL
	}
	host = strings.TrimPrefix(host, "www.")

	// Drop default ports; keep non-standard ones since they address
	// a different server.
	if port := u.Port(); port != "" {
		if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
			u.Host = host
		} else {
			u.Host = host + ":" + port
		}
	} else {
		u.Host = host
	}

	u.Fragment = ""
	u.RawFragment = ""

	// Empty path and "/" are the same resource. Elsewhere a trailing
	// slash is stripped so "/a/" and "/a" collapse to one key. RawPath
	// must be edited in step with Path, or String() would re-escape
	// the path and change keys containing encoded separators.
	switch {
	case u.Path == "" || u.Path == "/":
		u.Path = "/"
		u.RawPath = ""
	case strings.HasSuffix(u.Path, "/"):
		u.Path = strings.TrimRight(u.Path, "/")
		if u.RawPath != "" {
			u.RawPath = strings.TrimRight(u.RawPath, "/")
		}
	}

	return u.String(), nil
}

// SameDomain reports whether the key's host belongs to domain.
// Subdomains count as part of the domain, matching how the portal
// configurations name their crawl boundary (e.g. "curia.europa.eu").
func SameDomain(key, domain string) bool {
	u, err := url.Parse(key)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// HasExcludedExtension reports whether the key's path ends in one of
// the configured non-HTML extensions (".pdf", ".zip", ...). Matching is
// case-insensitive on the path only; query strings are ignored.
func HasExcludedExtension(key string, extensions []string) bool {
	u, err := url.Parse(key)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, ext := range extensions {
		if ext == "" {
			continue
		}
		if strings.HasSuffix(path, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
