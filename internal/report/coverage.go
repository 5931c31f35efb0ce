package report

import (
	"time"

	"github.com/mindlex/lexcrawl/internal/checkpoint"
	"github.com/mindlex/lexcrawl/internal/crawler"
	"github.com/mindlex/lexcrawl/internal/database"
)

// Coverage summarizes what the crawler has collected across all
// configured domains.
type Coverage struct {
	// GeneratedAt is when the report was assembled.
	GeneratedAt time.Time `json:"generated_at"`

	// Domains holds one entry per known domain, sorted by domain.
	Domains []DomainCoverage `json:"domains"`
}

// DomainCoverage is the coverage picture for one domain, combining the
// page database (what was stored) with the checkpoint (where the crawl
// stands).
type DomainCoverage struct {
	// Domain is the crawl boundary.
	Domain string `json:"domain"`

	// Phase is the checkpointed crawl state tag.
	Phase string `json:"phase"`

	// PageCount is how many pages the database holds.
	PageCount int `json:"page_count"`

	// VisitedCount is the checkpointed visited-set size. It can exceed
	// PageCount because failed fetches are visited but never stored.
	VisitedCount int `json:"visited_count"`

	// MaxDepth is the deepest stored page.
	MaxDepth int `json:"max_depth"`

	// PendingSeeds is how many phase-two seeds await dispatch.
	PendingSeeds int `json:"pending_seeds"`

	// LastCrawledAt is the most recent stored fetch.
	LastCrawledAt time.Time `json:"last_crawled_at,omitempty"`

	// LastSavedAt is when the checkpoint was last written.
	LastSavedAt time.Time `json:"last_saved_at,omitempty"`
}

// TotalPages returns the stored page count across all domains.
func (c *Coverage) TotalPages() int {
	total := 0
	for _, d := range c.Domains {
		total += d.PageCount
	}
	return total
}

// Done reports whether every known domain has finished crawling.
func (c *Coverage) Done() bool {
	for _, d := range c.Domains {
		if crawler.ParseState(d.Phase) != crawler.StateDone {
			return false
		}
	}
	return true
}

// BuildCoverage merges database statistics with checkpoint records into
// one report. Domains present in only one source still get an entry;
// either can lag the other after a crash or a manual cleanup.
func BuildCoverage(stats []database.DomainStats, records []checkpoint.Record) *Coverage {
	byDomain := make(map[string]*DomainCoverage)
	var order []string

	for _, s := range stats {
		byDomain[s.Domain] = &DomainCoverage{
			Domain:        s.Domain,
			Phase:         crawler.StateInit.String(),
			PageCount:     s.PageCount,
			MaxDepth:      s.MaxDepth,
			LastCrawledAt: s.LastCrawledAt,
		}
		order = append(order, s.Domain)
	}

	for _, rec := range records {
		entry, ok := byDomain[rec.Domain]
		if !ok {
			entry = &DomainCoverage{Domain: rec.Domain}
			byDomain[rec.Domain] = entry
			order = insertSorted(order, rec.Domain)
		}
		entry.Phase = rec.Phase
		entry.VisitedCount = len(rec.VisitedKeys)
		entry.PendingSeeds = len(rec.PendingSeeds)
		entry.LastSavedAt = rec.SavedAt
		if rec.CurrentDepth > entry.MaxDepth {
			entry.MaxDepth = rec.CurrentDepth
		}
	}

	cov := &Coverage{GeneratedAt: time.Now().UTC()}
	for _, domain := range order {
		cov.Domains = append(cov.Domains, *byDomain[domain])
	}
	return cov
}

// insertSorted inserts a domain into an already-sorted slice.
func insertSorted(sorted []string, domain string) []string {
	for i, d := range sorted {
		if domain < d {
			return append(sorted[:i], append([]string{domain}, sorted[i:]...)...)
		}
	}
	return append(sorted, domain)
}
