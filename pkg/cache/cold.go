package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/packradar/packradar/pkg/compress"
	"github.com/packradar/packradar/pkg/core"
)

// coldTier is the durable SQLite-backed store, grounded on rediverio-sdk's
// pkg/chunk.Storage: same WAL pragmas, same idempotent schema-on-open, same
// single *sql.DB shared across goroutines (database/sql pools connections
// internally, so there is no separate pool to manage here).
type coldTier struct {
	db     *sql.DB
	logger core.Logger
}

// DefaultDatabasePath returns the SQLite file under the host's standard
// cache directory, e.g. ~/.cache/packradar/cache.db on Linux.
func DefaultDatabasePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve user cache dir: %w", err)
	}
	return filepath.Join(dir, "packradar", "cache.db"), nil
}

func openColdTier(path string, logger core.Logger) (*coldTier, error) {
	if logger == nil {
		logger = core.NopLogger{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}

	c := &coldTier{db: db, logger: logger}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return c, nil
}

func (c *coldTier) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS cache_entries (
		cache_key   TEXT PRIMARY KEY,
		ecosystem   TEXT NOT NULL,
		payload     BLOB NOT NULL,
		fetched_at  INTEGER NOT NULL,
		ttl_seconds INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cache_entries_ecosystem ON cache_entries(ecosystem);
	`
	_, err := c.db.Exec(schema)
	return err
}

// get returns a miss on any read or decode error rather than propagating
// it, per the failure semantics of the hybrid cache: a cold-tier problem
// degrades to a miss, it never fails the surrounding lookup.
func (c *coldTier) get(k Key) (Entry, bool) {
	var payload []byte
	var fetchedAtUnix int64
	var ttlSeconds int64

	err := c.db.QueryRow(
		`SELECT payload, fetched_at, ttl_seconds FROM cache_entries WHERE cache_key = ?`,
		k.String(),
	).Scan(&payload, &fetchedAtUnix, &ttlSeconds)
	if err == sql.ErrNoRows {
		return Entry{}, false
	}
	if err != nil {
		c.logger.Warn("cold cache read failed for key %s, degrading to miss: %v", k.String(), err)
		return Entry{}, false
	}

	raw, err := compress.Decompress(payload)
	if err != nil {
		c.logger.Warn("cold cache payload corrupt for key %s, degrading to miss: %v", k.String(), err)
		return Entry{}, false
	}

	return Entry{
		Payload:   raw,
		FetchedAt: time.Unix(fetchedAtUnix, 0).UTC(),
		TTL:       time.Duration(ttlSeconds) * time.Second,
	}, true
}

// put writes through synchronously; by the time it returns, the record is
// durable (WAL fsync happens on commit of the implicit transaction).
func (c *coldTier) put(k Key, e Entry) error {
	compressed, err := compress.Compress(e.Payload)
	if err != nil {
		return fmt.Errorf("compress cache payload: %w", err)
	}

	_, err = c.db.Exec(`
		INSERT INTO cache_entries (cache_key, ecosystem, payload, fetched_at, ttl_seconds)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at,
			ttl_seconds = excluded.ttl_seconds
	`, k.String(), string(k.Ecosystem), compressed, e.FetchedAt.Unix(), int64(e.TTL/time.Second))
	if err != nil {
		c.logger.Warn("cold cache write failed for key %s: %v", k.String(), err)
	}
	return err
}

func (c *coldTier) invalidate(k Key) {
	if _, err := c.db.Exec(`DELETE FROM cache_entries WHERE cache_key = ?`, k.String()); err != nil {
		c.logger.Warn("cold cache invalidate failed for key %s: %v", k.String(), err)
	}
}

func (c *coldTier) clear() {
	if _, err := c.db.Exec(`DELETE FROM cache_entries`); err != nil {
		c.logger.Warn("cold cache clear failed: %v", err)
	}
}

func (c *coldTier) sweepExpired(now time.Time) (int64, error) {
	res, err := c.db.Exec(
		`DELETE FROM cache_entries WHERE fetched_at + ttl_seconds < ?`,
		now.Unix(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *coldTier) close() error {
	return c.db.Close()
}
