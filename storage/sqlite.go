// SQLite analysis cache.
//
// Reports are stored as JSON; sql.DB handles connection pooling and
// concurrent access.

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/richinex/mentorspace/model"
)

// SqliteCache implements AnalysisCache on a SQLite database file.
type SqliteCache struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSqlite opens or creates a SQLite cache at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteCache, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return newSqliteCache(db)
}

// NewSqliteInMemory creates an in-memory cache (useful for testing).
func NewSqliteInMemory() (*SqliteCache, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return newSqliteCache(db)
}

func newSqliteCache(db *sql.DB) (*SqliteCache, error) {
	c := &SqliteCache{db: db, now: time.Now}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return c, nil
}

// Close closes the database connection.
func (c *SqliteCache) Close() error {
	return c.db.Close()
}

func (c *SqliteCache) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS analysis_cache (
			key TEXT PRIMARY KEY,
			report TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0,
			hit_count INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_analysis_cache_expires
		ON analysis_cache(expires_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Get returns the cached report and bumps its hit count.
func (c *SqliteCache) Get(ctx context.Context, key string) (model.AnalysisReport, bool, error) {
	var (
		raw       string
		expiresAt int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT report, expires_at FROM analysis_cache WHERE key = ?`, key,
	).Scan(&raw, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AnalysisReport{}, false, nil
	}
	if err != nil {
		return model.AnalysisReport{}, false, fmt.Errorf("failed to query cache: %w", err)
	}
	if expired(fromUnixNano(expiresAt), c.now()) {
		return model.AnalysisReport{}, false, nil
	}

	var report model.AnalysisReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return model.AnalysisReport{}, false, fmt.Errorf("failed to decode cached report: %w", err)
	}

	if _, err := c.db.ExecContext(ctx,
		`UPDATE analysis_cache SET hit_count = hit_count + 1 WHERE key = ?`, key,
	); err != nil {
		return model.AnalysisReport{}, false, fmt.Errorf("failed to update hit count: %w", err)
	}
	return report, true, nil
}

// Put upserts report under key.
func (c *SqliteCache) Put(ctx context.Context, key string, report model.AnalysisReport, ttl time.Duration) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	now := c.now()
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO analysis_cache (key, report, created_at, expires_at, hit_count)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(key) DO UPDATE SET
			report = excluded.report,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			hit_count = 0
	`, key, string(raw), now.UnixNano(), toUnixNano(expiry(now, ttl)))
	if err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	return nil
}

// Purge deletes expired rows.
func (c *SqliteCache) Purge(ctx context.Context) (int, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM analysis_cache WHERE expires_at != 0 AND expires_at <= ?`, c.now().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged rows: %w", err)
	}
	return int(n), nil
}

// Hits returns how many times key was served.
func (c *SqliteCache) Hits(ctx context.Context, key string) (int, error) {
	var hits int
	err := c.db.QueryRowContext(ctx,
		`SELECT hit_count FROM analysis_cache WHERE key = ?`, key,
	).Scan(&hits)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query hit count: %w", err)
	}
	return hits, nil
}

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

var _ AnalysisCache = (*SqliteCache)(nil)
