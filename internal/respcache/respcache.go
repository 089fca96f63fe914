package respcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"reelforge/internal/config"
	"reelforge/internal/logging"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS responses (
    cache_key  TEXT PRIMARY KEY,
    response   TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_responses_created_at ON responses(created_at);
`

// Cache stores provider responses keyed by a fingerprint of the request.
type Cache struct {
	db     *sql.DB
	path   string
	ttl    time.Duration
	logger *slog.Logger
}

// Option customizes cache construction.
type Option func(*Cache)

// WithLogger attaches a logger used when lookups degrade to a miss.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logging.NewComponentLogger(logger, "respcache")
	}
}

// Open initializes or connects to the response cache database. The cache
// lives beside the queue database but in its own file so queue maintenance
// never touches cached responses.
func Open(cfg *config.Config, opts ...Option) (*Cache, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.CacheDatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	cache := &Cache{
		db:     db,
		path:   dbPath,
		ttl:    time.Duration(cfg.Cache.TTLDays) * 24 * time.Hour,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache, nil
}

// Key computes the fingerprint for an operation kind and its parameters.
// Serialization sorts map keys, so semantically identical calls produce the
// same fingerprint regardless of how the parameter map was built.
func Key(kind string, params map[string]any) (string, error) {
	payload := make(map[string]any, len(params)+1)
	for name, value := range params {
		payload[name] = value
	}
	payload["kind"] = kind

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("serialize cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Get returns the cached response for an operation if present and not past
// the TTL. Every failure mode reports a miss so callers never abort on cache
// problems; expired rows are left in place for ClearExpired.
func (c *Cache) Get(ctx context.Context, kind string, params map[string]any) (string, bool) {
	if c == nil || c.db == nil {
		return "", false
	}

	key, err := Key(kind, params)
	if err != nil {
		c.degrade("compute cache key", err)
		return "", false
	}

	row := c.db.QueryRowContext(ctx, `SELECT response, created_at FROM responses WHERE cache_key = ?`, key)
	var response string
	var createdAt int64
	if err := row.Scan(&response, &createdAt); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.degrade("read cache entry", err)
		}
		return "", false
	}

	if time.Since(time.Unix(createdAt, 0)) >= c.ttl {
		return "", false
	}
	return response, true
}

// Set upserts a response under the fingerprint of (kind, params) with the
// current timestamp. Callers treat errors as non-fatal.
func (c *Cache) Set(ctx context.Context, kind, response string, params map[string]any) error {
	if c == nil || c.db == nil {
		return nil
	}

	key, err := Key(kind, params)
	if err != nil {
		return err
	}

	_, err = c.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO responses (cache_key, response, created_at) VALUES (?, ?, ?)`,
		key, response, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}

// ClearExpired deletes entries older than the TTL and reports how many rows
// were removed.
func (c *Cache) ClearExpired(ctx context.Context) (int64, error) {
	if c == nil || c.db == nil {
		return 0, nil
	}

	cutoff := time.Now().Add(-c.ttl).Unix()
	res, err := c.db.ExecContext(ctx, `DELETE FROM responses WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("clear expired cache entries: %w", err)
	}
	return res.RowsAffected()
}

// Clear deletes every entry.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	if c == nil || c.db == nil {
		return 0, nil
	}

	res, err := c.db.ExecContext(ctx, `DELETE FROM responses`)
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored entries, expired rows included.
func (c *Cache) Count(ctx context.Context) (int, error) {
	if c == nil || c.db == nil {
		return 0, nil
	}

	var count int
	row := c.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM responses`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return count, nil
}

// Path returns the location of the backing database file.
func (c *Cache) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Cache) degrade(op string, err error) {
	logging.WarnWithContext(c.logger, "response cache degraded to miss", "cache_degraded",
		logging.String("op", op),
		logging.Error(err),
		logging.String(logging.FieldImpact, "upstream call will be repeated"))
}
