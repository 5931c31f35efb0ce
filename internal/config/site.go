package config

import "fmt"

// SiteConfig holds per-portal crawl settings. A site is one legal
// information portal: one domain, one start URL, and any overrides the
// portal needs.
type SiteConfig struct {
	// Domain is the crawl boundary. Subdomains of it are in scope.
	Domain string `yaml:"domain"`

	// StartURL is where the crawl begins, usually the portal's search
	// or listing entry point.
	StartURL string `yaml:"startUrl"`

	// MaxDepth overrides the global maximum depth for this site.
	// If zero, the global value is used.
	MaxDepth int `yaml:"maxDepth,omitempty"`

	// BFSDepthLimit overrides the global breadth-first depth limit.
	// If zero, the global value is used.
	BFSDepthLimit int `yaml:"bfsDepthLimit,omitempty"`

	// Cookie is an HTTP cookie sent with every request to this site.
	// Format: "name=value" or "name1=value1; name2=value2". Portals
	// with consent banners usually need one.
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// ExcludeExtensions overrides the global excluded URL suffixes.
	ExcludeExtensions []string `yaml:"excludeExtensions,omitempty"`
}

// File represents the structure of the lexcrawl configuration file.
type File struct {
	// Sites maps site names to their configurations. The name is the
	// handle used on the command line (e.g., "eur-lex").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all
	// sites unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a named site, merged
// with the file's defaults. The boolean reports whether the site
// exists.
func (cf *File) GetSiteConfig(name string) (SiteConfig, bool) {
	site, ok := cf.Sites[name]
	if !ok {
		return SiteConfig{}, false
	}

	result := cf.Defaults
	if site.Domain != "" {
		result.Domain = site.Domain
	}
	if site.StartURL != "" {
		result.StartURL = site.StartURL
	}
	if site.MaxDepth != 0 {
		result.MaxDepth = site.MaxDepth
	}
	if site.BFSDepthLimit != 0 {
		result.BFSDepthLimit = site.BFSDepthLimit
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		for k, v := range site.Headers {
			result.Headers[k] = v
		}
	}
	if len(site.ExcludeExtensions) > 0 {
		result.ExcludeExtensions = site.ExcludeExtensions
	}
	return result, true
}

// SiteNames returns the configured site names in map order.
func (cf *File) SiteNames() []string {
	names := make([]string, 0, len(cf.Sites))
	for name := range cf.Sites {
		names = append(names, name)
	}
	return names
}

// Validate checks that every configured site can be crawled.
func (cf *File) Validate() error {
	for name := range cf.Sites {
		site, _ := cf.GetSiteConfig(name)
		if site.Domain == "" {
			return fmt.Errorf("site %q: %w", name, ErrSiteMissingDomain)
		}
		if site.StartURL == "" {
			return fmt.Errorf("site %q: %w", name, ErrSiteMissingStartURL)
		}
	}
	return nil
}
