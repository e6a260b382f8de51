package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"iptv-viewer/internal/channel"
	"iptv-viewer/internal/logging"
	"iptv-viewer/internal/metrics"
)

// FormatVersion identifies the on-disk snapshot encoding. Bump it on any
// incompatible change to the blob layout; old rows then read as misses.
const FormatVersion = 1

// DefaultMaxSnapshots bounds retained snapshots when no limit is configured.
const DefaultMaxSnapshots = 8

// ErrMiss reports that no usable snapshot exists for a fingerprint.
// A miss is normal control flow, not a failure.
var ErrMiss = errors.New("cache: snapshot not found")

// Default timeout for cache database operations
const defaultTimeout = 5 * time.Second

// Store is the snapshot cache. Writes are serialized by SQLite; reads
// need no exclusion against other reads.
type Store struct {
	db           *sql.DB
	maxSnapshots int
}

// Open opens (creating if necessary) the snapshot cache at dbPath.
// maxSnapshots bounds retention; values < 1 fall back to the default.
func Open(ctx context.Context, dbPath string, maxSnapshots int) (*Store, error) {
	if maxSnapshots < 1 {
		maxSnapshots = DefaultMaxSnapshots
	}

	// WAL mode and a busy timeout, same as any concurrent SQLite use:
	// parses may store while the display layer triggers loads.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot cache: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close cache after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to snapshot cache: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, maxSnapshots: maxSnapshots}
	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close cache after schema failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	logging.Info("Snapshot cache ready at %s (retaining up to %d snapshots)", dbPath, maxSnapshots)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		fingerprint TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		parsed_at INTEGER NOT NULL,
		record_count INTEGER NOT NULL,
		data BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_parsed_at ON snapshots(parsed_at);
	`

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the cache database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the snapshot stored under fingerprint, or ErrMiss.
// Corrupt or version-incompatible rows are deleted and reported as a
// miss, never as an error.
func (s *Store) Load(ctx context.Context, fp string) (*channel.Snapshot, error) {
	start := time.Now()
	defer func() {
		metrics.CacheOperationDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var (
		version  int
		parsedAt int64
		data     []byte
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT version, parsed_at, data FROM snapshots WHERE fingerprint = ?", fp,
	).Scan(&version, &parsedAt, &data)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.CacheMissesTotal.Inc()
		return nil, ErrMiss
	}
	if err != nil {
		// A broken cache read must not fail the load path either.
		logging.Warn("Snapshot cache read failed for %s: %v", fp, err)
		metrics.CacheMissesTotal.Inc()
		return nil, ErrMiss
	}

	if version != FormatVersion {
		logging.Info("Discarding cached snapshot %s: format version %d, want %d", fp, version, FormatVersion)
		s.delete(fp)
		metrics.CacheMissesTotal.Inc()
		return nil, ErrMiss
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		logging.Warn("Discarding undecodable cached snapshot %s: %v", fp, err)
		s.delete(fp)
		metrics.CacheMissesTotal.Inc()
		return nil, ErrMiss
	}

	snap.Fingerprint = fp
	snap.ParsedAt = time.Unix(parsedAt, 0).UTC()

	metrics.CacheHitsTotal.Inc()
	logging.Debug("Cache hit for %s: %d records", fp, len(snap.Records))
	return snap, nil
}

// Store persists a snapshot under its fingerprint and evicts the oldest
// rows beyond the retention bound. The returned error is for logging and
// metrics only; callers continue without the cache on failure.
func (s *Store) Store(ctx context.Context, snap *channel.Snapshot) error {
	start := time.Now()
	defer func() {
		metrics.CacheOperationDuration.WithLabelValues("store").Observe(time.Since(start).Seconds())
	}()

	data, err := encodeSnapshot(snap)
	if err != nil {
		metrics.CacheWriteFailuresTotal.Inc()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (fingerprint, version, parsed_at, record_count, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			version = excluded.version,
			parsed_at = excluded.parsed_at,
			record_count = excluded.record_count,
			data = excluded.data
	`, snap.Fingerprint, FormatVersion, snap.ParsedAt.Unix(), len(snap.Records), data)
	if err != nil {
		metrics.CacheWriteFailuresTotal.Inc()
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	if err := s.evict(ctx); err != nil {
		logging.Warn("Snapshot eviction failed: %v", err)
	}

	logging.Debug("Cached snapshot %s: %d records, %d bytes", snap.Fingerprint, len(snap.Records), len(data))
	return nil
}

// evict removes the oldest snapshots beyond the retention bound.
func (s *Store) evict(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.CacheOperationDuration.WithLabelValues("evict").Observe(time.Since(start).Seconds())
	}()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots WHERE fingerprint IN (
			SELECT fingerprint FROM snapshots
			ORDER BY parsed_at DESC
			LIMIT -1 OFFSET ?
		)
	`, s.maxSnapshots)
	if err != nil {
		return err
	}

	if evicted, err := result.RowsAffected(); err == nil && evicted > 0 {
		metrics.CacheEvictionsTotal.Add(float64(evicted))
		logging.Info("Evicted %d old snapshots from cache", evicted)
	}
	return nil
}

// delete drops a single row; failures only get logged since the row will
// be overwritten or evicted eventually anyway.
func (s *Store) delete(fp string) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE fingerprint = ?", fp); err != nil {
		logging.Warn("Failed to delete cache row %s: %v", fp, err)
	}
}

// Count returns the number of retained snapshots.
func (s *Store) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&n)
	return n, err
}
