package transfer

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	// Pure-Go SQLite driver (no CGO), registers as "sqlite".
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// StaleSessionAge is the default age after which a stored upload session is
// discarded. The service expires idle sessions well before this.
const StaleSessionAge = 7 * 24 * time.Hour

const (
	sqlLoadSession = `SELECT scope, remote_path, upload_url, fingerprint, size,
		next_offset, expires_at, created_at, updated_at
		FROM upload_sessions WHERE scope = ? AND remote_path = ?`

	sqlListSessions = `SELECT scope, remote_path, upload_url, fingerprint, size,
		next_offset, expires_at, created_at, updated_at
		FROM upload_sessions ORDER BY updated_at DESC`

	sqlUpsertSession = `INSERT INTO upload_sessions
		(scope, remote_path, upload_url, fingerprint, size, next_offset,
		 expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scope, remote_path) DO UPDATE SET
		 upload_url = excluded.upload_url,
		 fingerprint = excluded.fingerprint,
		 size = excluded.size,
		 next_offset = excluded.next_offset,
		 expires_at = excluded.expires_at,
		 created_at = excluded.created_at,
		 updated_at = excluded.updated_at`

	sqlUpdateOffset = `UPDATE upload_sessions SET next_offset = ?, updated_at = ?
		WHERE scope = ? AND remote_path = ?`

	sqlDeleteSession = `DELETE FROM upload_sessions WHERE scope = ? AND remote_path = ?`

	sqlDeleteStale = `DELETE FROM upload_sessions
		WHERE updated_at < ? OR (expires_at > 0 AND expires_at < ?)`
)

// SessionRecord is a persisted upload session. The upload URL is
// pre-authenticated and must never be logged.
type SessionRecord struct {
	Scope       string
	RemotePath  string
	UploadURL   string
	Fingerprint string
	Size        int64
	NextOffset  int64
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SessionStore persists in-flight upload sessions in SQLite so an
// interrupted large upload can continue in a later invocation. Records are
// keyed by drive scope and remote path.
type SessionStore struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time
}

// OpenSessionStore opens (creating if needed) the database at dbPath and
// applies pending migrations.
func OpenSessionStore(ctx context.Context, dbPath string, logger *slog.Logger) (*SessionStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("transfer: opening session store %s: %w", dbPath, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("session store opened", slog.String("db_path", dbPath))

	return &SessionStore{db: db, logger: logger, nowFunc: time.Now}, nil
}

// runMigrations applies all pending schema migrations with the goose v3
// Provider API.
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("transfer: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("transfer: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("transfer: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Close releases the database.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

// Load returns the record for scope and remotePath, or nil, nil if none.
func (s *SessionStore) Load(ctx context.Context, scope, remotePath string) (*SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, sqlLoadSession, scope, remotePath)

	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("transfer: loading session for %s: %w", remotePath, err)
	}

	return rec, nil
}

// List returns every stored record, most recently updated first.
func (s *SessionStore) List(ctx context.Context) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, sqlListSessions)
	if err != nil {
		return nil, fmt.Errorf("transfer: listing sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord

	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("transfer: scanning session row: %w", err)
		}

		out = append(out, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transfer: iterating session rows: %w", err)
	}

	return out, nil
}

// Save inserts or replaces rec. CreatedAt defaults to now.
func (s *SessionStore) Save(ctx context.Context, rec *SessionRecord) error {
	now := s.nowFunc().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}

	rec.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, sqlUpsertSession,
		rec.Scope, rec.RemotePath, rec.UploadURL, rec.Fingerprint, rec.Size, rec.NextOffset,
		unixNanoOrZero(rec.ExpiresAt), rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("transfer: saving session for %s: %w", rec.RemotePath, err)
	}

	return nil
}

// UpdateOffset records that the service has accepted offset bytes.
func (s *SessionStore) UpdateOffset(ctx context.Context, scope, remotePath string, offset int64) error {
	_, err := s.db.ExecContext(ctx, sqlUpdateOffset, offset, s.nowFunc().UTC().UnixNano(), scope, remotePath)
	if err != nil {
		return fmt.Errorf("transfer: updating session offset for %s: %w", remotePath, err)
	}

	return nil
}

// Delete removes the record for scope and remotePath. No error if absent.
func (s *SessionStore) Delete(ctx context.Context, scope, remotePath string) error {
	if _, err := s.db.ExecContext(ctx, sqlDeleteSession, scope, remotePath); err != nil {
		return fmt.Errorf("transfer: deleting session for %s: %w", remotePath, err)
	}

	return nil
}

// CleanStale removes records not updated within maxAge and records whose
// remote session has expired. Returns the number removed.
func (s *SessionStore) CleanStale(ctx context.Context, maxAge time.Duration) (int, error) {
	now := s.nowFunc().UTC()

	res, err := s.db.ExecContext(ctx, sqlDeleteStale, now.Add(-maxAge).UnixNano(), now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("transfer: cleaning stale sessions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("transfer: counting cleaned sessions: %w", err)
	}

	if n > 0 {
		s.logger.Info("deleted stale upload sessions", slog.Int64("count", n))
	}

	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*SessionRecord, error) {
	var rec SessionRecord

	var expiresAt, createdAt, updatedAt int64

	err := row.Scan(&rec.Scope, &rec.RemotePath, &rec.UploadURL, &rec.Fingerprint, &rec.Size,
		&rec.NextOffset, &expiresAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if expiresAt > 0 {
		rec.ExpiresAt = time.Unix(0, expiresAt).UTC()
	}

	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.UpdatedAt = time.Unix(0, updatedAt).UTC()

	return &rec, nil
}

func unixNanoOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixNano()
}
