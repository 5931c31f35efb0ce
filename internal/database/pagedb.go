package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mindlex/lexcrawl/internal/crawler"
)

// dbFileName is the SQLite file created under the data directory.
const dbFileName = "lexcrawl.db"

// PageDB provides SQLite-based storage for crawled pages.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for all domains rather
// than one file per domain. This keeps cross-domain coverage queries in
// SQL and simplifies backup/restore operations.
type PageDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures PageDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a PageDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*PageDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite uses mode=rw to prevent creating new files and
	// mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pdb := &PageDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := pdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return pdb, nil
}

// Close closes the database connection.
func (pdb *PageDB) Close() error {
	return pdb.db.Close()
}

// Path returns the location of the database file.
func (pdb *PageDB) Path() string {
	return pdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (pdb *PageDB) createTables() error {
	schema := `
	-- Pages store one row per fetched URL per domain
	CREATE TABLE IF NOT EXISTS pages (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		domain TEXT NOT NULL,
		parent_url TEXT,
		title TEXT,
		breadcrumb TEXT,
		status_code INTEGER,
		depth INTEGER DEFAULT 0,
		crawled_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(url, domain)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_domain ON pages(domain);
	CREATE INDEX IF NOT EXISTS idx_pages_crawled_at ON pages(crawled_at);
	`

	_, err := pdb.db.ExecContext(context.Background(), schema)
	return err
}

// PageRecord represents a stored page row.
type PageRecord struct {
	ID         string
	URL        string
	Domain     string
	ParentURL  string
	Title      string
	Breadcrumb string
	StatusCode int
	Depth      int
	CrawledAt  time.Time
	UpdatedAt  time.Time
}

// RecordPage inserts or updates a page row. Re-crawling a URL refreshes
// its metadata in place; the row keeps its original id and crawled_at.
// RecordPage implements crawler.Recorder.
func (pdb *PageDB) RecordPage(ctx context.Context, page crawler.Page) error {
	query := `
	INSERT INTO pages (id, url, domain, parent_url, title, breadcrumb, status_code, depth)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url, domain) DO UPDATE SET
		parent_url = excluded.parent_url,
		title = excluded.title,
		breadcrumb = excluded.breadcrumb,
		status_code = excluded.status_code,
		depth = excluded.depth,
		updated_at = CURRENT_TIMESTAMP
	`

	_, err := pdb.db.ExecContext(ctx, query,
		uuid.NewString(),
		page.URL,
		page.Domain,
		page.ParentURL,
		page.Title,
		page.Breadcrumb,
		page.StatusCode,
		page.Depth,
	)
	if err != nil {
		return fmt.Errorf("failed to record page: %w", err)
	}
	return nil
}

// FetchKeys returns every stored URL for a domain. The crawler merges
// these into its visited set at startup so pages recorded by earlier
// runs are not fetched again. FetchKeys implements crawler.RecordSource.
func (pdb *PageDB) FetchKeys(ctx context.Context, domain string) ([]string, error) {
	query := `
	SELECT url FROM pages
	WHERE domain = ?
	ORDER BY url
	`

	rows, err := pdb.db.QueryContext(ctx, query, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, url)
	}

	return keys, rows.Err()
}

// GetPage retrieves a page by URL and domain. A missing page returns
// nil with no error.
func (pdb *PageDB) GetPage(ctx context.Context, url, domain string) (*PageRecord, error) {
	query := `
	SELECT id, url, domain, parent_url, title, breadcrumb, status_code, depth, crawled_at, updated_at
	FROM pages
	WHERE url = ? AND domain = ?
	`

	var rec PageRecord
	var parentURL, title, breadcrumb sql.NullString
	var crawledAt, updatedAt string

	err := pdb.db.QueryRowContext(ctx, query, url, domain).Scan(
		&rec.ID,
		&rec.URL,
		&rec.Domain,
		&parentURL,
		&title,
		&breadcrumb,
		&rec.StatusCode,
		&rec.Depth,
		&crawledAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	rec.ParentURL = parentURL.String
	rec.Title = title.String
	rec.Breadcrumb = breadcrumb.String
	rec.CrawledAt = parseTimestamp(crawledAt)
	rec.UpdatedAt = parseTimestamp(updatedAt)
	return &rec, nil
}

// ListPages returns all pages for a domain ordered by URL.
func (pdb *PageDB) ListPages(ctx context.Context, domain string) ([]PageRecord, error) {
	query := `
	SELECT id, url, domain, parent_url, title, breadcrumb, status_code, depth, crawled_at, updated_at
	FROM pages
	WHERE domain = ?
	ORDER BY url
	`

	rows, err := pdb.db.QueryContext(ctx, query, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var results []PageRecord
	for rows.Next() {
		var rec PageRecord
		var parentURL, title, breadcrumb sql.NullString
		var crawledAt, updatedAt string

		if err := rows.Scan(
			&rec.ID,
			&rec.URL,
			&rec.Domain,
			&parentURL,
			&title,
			&breadcrumb,
			&rec.StatusCode,
			&rec.Depth,
			&crawledAt,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}

		rec.ParentURL = parentURL.String
		rec.Title = title.String
		rec.Breadcrumb = breadcrumb.String
		rec.CrawledAt = parseTimestamp(crawledAt)
		rec.UpdatedAt = parseTimestamp(updatedAt)
		results = append(results, rec)
	}

	return results, rows.Err()
}

// DomainStats summarizes stored coverage for one domain.
type DomainStats struct {
	// Domain is the crawl boundary the stats cover.
	Domain string

	// PageCount is how many pages are stored for the domain.
	PageCount int

	// MaxDepth is the deepest stored page.
	MaxDepth int

	// LastCrawledAt is the most recent fetch time.
	LastCrawledAt time.Time
}

// Stats returns per-domain coverage summaries, ordered by domain.
func (pdb *PageDB) Stats(ctx context.Context) ([]DomainStats, error) {
	query := `
	SELECT domain, COUNT(*), COALESCE(MAX(depth), 0), COALESCE(MAX(crawled_at), '')
	FROM pages
	GROUP BY domain
	ORDER BY domain
	`

	rows, err := pdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var results []DomainStats
	for rows.Next() {
		var stats DomainStats
		var lastCrawled string

		if err := rows.Scan(&stats.Domain, &stats.PageCount, &stats.MaxDepth, &lastCrawled); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}

		stats.LastCrawledAt = parseTimestamp(lastCrawled)
		results = append(results, stats)
	}

	return results, rows.Err()
}

// CountPages returns how many pages are stored for a domain.
func (pdb *PageDB) CountPages(ctx context.Context, domain string) (int, error) {
	var count int
	err := pdb.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pages WHERE domain = ?", domain).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return count, nil
}

// DeleteDomain removes every stored page for a domain and returns how
// many rows were deleted.
func (pdb *PageDB) DeleteDomain(ctx context.Context, domain string) (int64, error) {
	result, err := pdb.db.ExecContext(ctx, "DELETE FROM pages WHERE domain = ?", domain)
	if err != nil {
		return 0, fmt.Errorf("failed to delete domain pages: %w", err)
	}
	return result.RowsAffected()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
