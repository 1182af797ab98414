package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/leaflet-scanner/constants"
	"github.com/joseph-ayodele/leaflet-scanner/internal/common"
	"github.com/joseph-ayodele/leaflet-scanner/internal/entity"
)

type Config struct {
	Path          string
	FlushEvery    int
	QueryChunkLen int
}

// Cache is the durable recognition cache: one row per page-image URL plus an
// FTS5 index over the recognized text. Reads go through the connection pool
// and may run concurrently with the writer under WAL; all writes serialize
// through a single buffered transaction guarded by mu.
type Cache struct {
	db         *sql.DB
	logger     *slog.Logger
	chunkLen   int
	flushEvery int

	mu      sync.Mutex
	tx      *sql.Tx
	pending int
}

const schema = `
CREATE TABLE IF NOT EXISTS pages (
	image_url       TEXT PRIMARY KEY,
	document_id     TEXT NOT NULL,
	document_name   TEXT NOT NULL,
	page_number     INTEGER NOT NULL,
	recognized_text TEXT NOT NULL,
	indexed_at      TIMESTAMP NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS pages_fts USING fts5(
	recognized_text,
	content='pages',
	content_rowid='rowid',
	tokenize='unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS pages_ai AFTER INSERT ON pages BEGIN
	INSERT INTO pages_fts(rowid, recognized_text)
	VALUES (new.rowid, new.recognized_text);
END;

CREATE TRIGGER IF NOT EXISTS pages_ad AFTER DELETE ON pages BEGIN
	INSERT INTO pages_fts(pages_fts, rowid, recognized_text)
	VALUES ('delete', old.rowid, old.recognized_text);
END;

CREATE TRIGGER IF NOT EXISTS pages_au AFTER UPDATE ON pages BEGIN
	INSERT INTO pages_fts(pages_fts, rowid, recognized_text)
	VALUES ('delete', old.rowid, old.recognized_text);
	INSERT INTO pages_fts(rowid, recognized_text)
	VALUES (new.rowid, new.recognized_text);
END;
`

// Open opens (creating if needed) the cache file and prepares the schema.
// WAL mode keeps readers usable while the write transaction is open.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = 25
	}
	if cfg.QueryChunkLen <= 0 || cfg.QueryChunkLen > constants.CacheQueryChunkSize {
		cfg.QueryChunkLen = constants.CacheQueryChunkSize
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, common.WrapError(err, "open cache")
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, common.WrapError(err, "configure cache")
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, common.WrapError(err, "prepare cache schema")
	}

	logger.Info("cache.open", "path", cfg.Path, "flush_every", cfg.FlushEvery)
	return &Cache{
		db:         db,
		logger:     logger,
		chunkLen:   cfg.QueryChunkLen,
		flushEvery: cfg.FlushEvery,
	}, nil
}

// Exists returns the subset of urls that already have a cache row. Queries
// are chunked to stay under the storage engine's bound-parameter limit.
func (c *Cache) Exists(ctx context.Context, urls []string) (map[string]struct{}, error) {
	found := make(map[string]struct{}, len(urls))
	for _, chunk := range chunkStrings(urls, c.chunkLen) {
		query := "SELECT image_url FROM pages WHERE image_url IN (" + placeholders(len(chunk)) + ")"
		rows, err := c.db.QueryContext(ctx, query, asAny(chunk)...)
		if err != nil {
			return nil, common.WrapError(err, "cache exists query")
		}
		for rows.Next() {
			var url string
			if err := rows.Scan(&url); err != nil {
				_ = rows.Close()
				return nil, common.WrapError(err, "cache exists scan")
			}
			found[url] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, common.WrapError(err, "cache exists rows")
		}
		_ = rows.Close()
	}
	c.logger.Debug("cache.exists", "asked", len(urls), "hit", len(found))
	return found, nil
}

// LookupKeyword returns cached rows whose indexed text matches the keyword,
// optionally restricted to a URL set. The FTS match is a prefilter; callers
// apply the canonical whole-word matcher to RecognizedText.
func (c *Cache) LookupKeyword(ctx context.Context, urls []string, keyword string) ([]entity.KeywordHit, error) {
	match := ftsQuote(keyword)
	if urls == nil {
		return c.lookupChunk(ctx, nil, match)
	}
	var hits []entity.KeywordHit
	for _, chunk := range chunkStrings(urls, c.chunkLen) {
		part, err := c.lookupChunk(ctx, chunk, match)
		if err != nil {
			return nil, err
		}
		hits = append(hits, part...)
	}
	return hits, nil
}

func (c *Cache) lookupChunk(ctx context.Context, urls []string, match string) ([]entity.KeywordHit, error) {
	query := `SELECT p.image_url, p.document_name, p.page_number, p.recognized_text, p.indexed_at
		FROM pages_fts f
		JOIN pages p ON p.rowid = f.rowid
		WHERE pages_fts MATCH ?`
	args := []any{match}
	if len(urls) > 0 {
		query += " AND p.image_url IN (" + placeholders(len(urls)) + ")"
		args = append(args, asAny(urls)...)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.WrapError(err, "cache keyword query")
	}
	defer rows.Close()

	var hits []entity.KeywordHit
	for rows.Next() {
		var h entity.KeywordHit
		if err := rows.Scan(&h.ImageURL, &h.DocumentName, &h.PageNumber, &h.RecognizedText, &h.IndexedAt); err != nil {
			return nil, common.WrapError(err, "cache keyword scan")
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(err, "cache keyword rows")
	}
	return hits, nil
}

// Upsert inserts or overwrites the row for rec.ImageURL inside the buffered
// write transaction. The FTS index row is re-derived by triggers in the same
// transaction, so readers never observe the two out of sync. The transaction
// commits automatically every FlushEvery upserts.
func (c *Cache) Upsert(ctx context.Context, rec entity.CacheRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx == nil {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return common.NewAppError("CACHE_WRITE", "begin write transaction", common.ErrCacheWrite)
		}
		c.tx = tx
	}

	const stmt = `INSERT INTO pages
		(image_url, document_id, document_name, page_number, recognized_text, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(image_url) DO UPDATE SET
			document_id     = excluded.document_id,
			document_name   = excluded.document_name,
			page_number     = excluded.page_number,
			recognized_text = excluded.recognized_text,
			indexed_at      = excluded.indexed_at`
	if _, err := c.tx.ExecContext(ctx, stmt,
		rec.ImageURL, rec.DocumentID, rec.DocumentName, rec.PageNumber, rec.RecognizedText, rec.IndexedAt,
	); err != nil {
		_ = c.tx.Rollback()
		c.tx = nil
		c.pending = 0
		c.logger.Error("cache.upsert", "image_url", rec.ImageURL, "error", err)
		return common.NewAppError("CACHE_WRITE", fmt.Sprintf("upsert %s", rec.ImageURL), common.ErrCacheWrite)
	}

	c.pending++
	c.logger.Debug("cache.upsert", "image_url", rec.ImageURL, "pending", c.pending)
	if c.pending >= c.flushEvery {
		return c.flushLocked()
	}
	return nil
}

// Flush durably commits any buffered upserts.
func (c *Cache) Flush(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

func (c *Cache) flushLocked() error {
	if c.tx == nil {
		return nil
	}
	n := c.pending
	err := c.tx.Commit()
	c.tx = nil
	c.pending = 0
	if err != nil {
		c.logger.Error("cache.flush", "records", n, "error", err)
		return common.NewAppError("CACHE_WRITE", "commit write transaction", common.ErrCacheWrite)
	}
	c.logger.Debug("cache.flush", "records", n)
	return nil
}

// Count returns the number of cached pages.
func (c *Cache) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pages").Scan(&n); err != nil {
		return 0, common.WrapError(err, "cache count")
	}
	return n, nil
}

// Close flushes buffered writes and closes the store.
func (c *Cache) Close() error {
	c.mu.Lock()
	flushErr := c.flushLocked()
	c.mu.Unlock()
	if err := c.db.Close(); err != nil {
		return err
	}
	return flushErr
}

// ftsQuote wraps the keyword in FTS5 string-literal quotes so it is always
// treated as a single term, never query syntax.
func ftsQuote(keyword string) string {
	return `"` + strings.ReplaceAll(keyword, `"`, `""`) + `"`
}

func chunkStrings(in []string, size int) [][]string {
	if len(in) == 0 {
		return nil
	}
	var out [][]string
	for start := 0; start < len(in); start += size {
		end := start + size
		if end > len(in) {
			end = len(in)
		}
		out = append(out, in[start:end])
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func asAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
