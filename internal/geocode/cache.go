package geocode

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// dialect holds the statements that differ between the supported databases
type dialect struct {
	driver string
	schema string
	get    string
	put    string
	del    string
}

var sqliteDialect = dialect{
	driver: "sqlite",
	schema: `CREATE TABLE IF NOT EXISTS geocode_cache (
		query TEXT PRIMARY KEY,
		json TEXT NOT NULL,
		fetched_at TIMESTAMP NOT NULL
	)`,
	get: `SELECT json FROM geocode_cache WHERE query = ?`,
	put: `INSERT OR REPLACE INTO geocode_cache(query, json, fetched_at) VALUES(?,?,CURRENT_TIMESTAMP)`,
	del: `DELETE FROM geocode_cache WHERE query = ?`,
}

var postgresDialect = dialect{
	driver: "postgres",
	schema: `CREATE TABLE IF NOT EXISTS geocode_cache (
		query TEXT PRIMARY KEY,
		json TEXT NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL
	)`,
	get: `SELECT json FROM geocode_cache WHERE query = $1`,
	put: `INSERT INTO geocode_cache(query, json, fetched_at) VALUES($1,$2,now())
		ON CONFLICT (query) DO UPDATE SET json = EXCLUDED.json, fetched_at = EXCLUDED.fetched_at`,
	del: `DELETE FROM geocode_cache WHERE query = $1`,
}

// Cache stores geocoder responses keyed by query. Only successful responses
// are stored.
type Cache struct {
	db *sql.DB
	d  dialect
}

// OpenCache opens the response cache. A postgres:// DSN selects Postgres,
// otherwise path names a sqlite file that is created on demand.
func OpenCache(path, dsn string) (*Cache, error) {
	d := sqliteDialect
	source := path
	if isPostgresDSN(dsn) {
		d = postgresDialect
		source = dsn
	} else if dsn != "" {
		return nil, fmt.Errorf("unsupported cache DSN %q", dsn)
	} else if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open(d.driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open geocode cache: %w", err)
	}
	if d.driver == "sqlite" {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(d.schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize geocode cache: %w", err)
	}
	return &Cache{db: db, d: d}, nil
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Get decodes the cached response for key into v. found is false on a miss.
func (c *Cache) Get(ctx context.Context, key string, v any) (found bool, err error) {
	var raw string
	err = c.db.QueryRowContext(ctx, c.d.get, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		// a corrupt row is treated as a miss and overwritten on the next Put
		return false, nil
	}
	return true, nil
}

// Put stores v under key, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %q: %w", key, err)
	}
	if _, err := c.db.ExecContext(ctx, c.d.put, key, string(raw)); err != nil {
		return fmt.Errorf("failed to write cache entry %q: %w", key, err)
	}
	return nil
}

// Delete removes the entry for key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, c.d.del, key); err != nil {
		return fmt.Errorf("failed to delete cache entry %q: %w", key, err)
	}
	return nil
}

// Close releases the database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}
