package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// PhaseInit is the phase tag of the zero Record, meaning "no prior
// crawl". The crawler supplies the other tags; the store treats the
// phase as an opaque string.
const PhaseInit = "init"

// Record is the durable snapshot of one domain's crawl progress.
// Records are overwritten on each save, never appended; records for
// other domains live in separate files and are untouched.
type Record struct {
	// Domain is the crawl boundary this record belongs to.
	Domain string `json:"domain"`

	// VisitedKeys holds every normalized URL key dispatched so far.
	VisitedKeys []string `json:"visited_keys"`

	// CurrentDepth is the deepest depth dispatched so far.
	CurrentDepth int `json:"current_depth"`

	// Phase is the crawl phase at save time.
	Phase string `json:"phase"`

	// PendingSeeds holds URLs queued for the depth-first phase. They
	// are persisted so a manually triggered phase two can start after
	// a process restart.
	PendingSeeds []string `json:"pending_seeds,omitempty"`

	// SavedAt is the save timestamp.
	SavedAt time.Time `json:"saved_at"`
}

// EmptyRecord returns the record used when a domain has never been
// crawled: no visited keys, depth zero, initial phase.
func EmptyRecord(domain string) Record {
	return Record{Domain: domain, Phase: PhaseInit}
}

// Store reads and writes Records under a single directory, one file
// per domain. Files for different domains are fully independent.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating the directory if
// needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory the store persists into.
func (s *Store) Dir() string {
	return s.dir
}

// Load returns the last successfully saved record for the domain.
// A missing or corrupt file yields the empty record: "no prior crawl"
// is not an error, and a half-written file from a crash must never
// poison a new run.
func (s *Store) Load(domain string) (Record, error) {
	data, err := os.ReadFile(s.path(domain))
	if err != nil {
		if os.IsNotExist(err) {
			return EmptyRecord(domain), nil
		}
		return EmptyRecord(domain), fmt.Errorf("failed to read checkpoint for %s: %w", domain, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		// Corrupt record: treat as no prior crawl.
		return EmptyRecord(domain), nil
	}
	if rec.Domain == "" {
		rec.Domain = domain
	}
	if rec.Phase == "" {
		rec.Phase = PhaseInit
	}
	return rec, nil
}

// Save durably replaces the domain's record. The record is written to
// a temporary file in the same directory and renamed over the old one,
// so a concurrent Load observes either the previous record or the new
// one, never a partial write.
func (s *Store) Save(rec Record) error {
	if rec.Domain == "" {
		return fmt.Errorf("checkpoint record has no domain")
	}
	if rec.SavedAt.IsZero() {
		rec.SavedAt = time.Now().UTC()
	}
	sort.Strings(rec.VisitedKeys)
	sort.Strings(rec.PendingSeeds)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint for %s: %w", rec.Domain, err)
	}

	target := s.path(rec.Domain)
	tmp, err := os.CreateTemp(s.dir, filename(rec.Domain)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write checkpoint for %s: %w", rec.Domain, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace checkpoint for %s: %w", rec.Domain, err)
	}
	return nil
}

// Clear removes the domain's record. Clearing a domain that has no
// record is not an error.
func (s *Store) Clear(domain string) error {
	err := os.Remove(s.path(domain))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear checkpoint for %s: %w", domain, err)
	}
	return nil
}

// ClearAll removes every record in the store.
func (s *Store) ClearAll() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove checkpoint %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// List returns every readable record in the store, sorted by domain.
// Corrupt files are skipped.
func (s *Store) List() ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	var records []Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil || rec.Domain == "" {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Domain < records[j].Domain })
	return records, nil
}

// path returns the record file path for a domain.
func (s *Store) path(domain string) string {
	return filepath.Join(s.dir, filename(domain)+".json")
}

// filename derives a filesystem-safe name from a domain. Domains are
// host names, so replacing path separators and colons is sufficient.
func filename(domain string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_")
	return r.Replace(strings.ToLower(domain))
}
