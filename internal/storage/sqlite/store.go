// Package sqlite provides the SQLite-backed append-only result store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/Daethyra/ExecEye/internal/search"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "async_serp_results.db"

// DefaultHistoryLimit caps History when the caller passes no limit.
const DefaultHistoryLimit = 50

//go:embed schema.sql
var schemaSQL string

// Session is the subset of database/sql shared by *sql.Conn, *sql.DB and
// *sql.Tx that the store needs. Pooled connections are *sql.Conn.
type Session interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txSession is a Session that can also open transactions.
type txSession interface {
	Session
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Row is one persisted result.
type Row struct {
	ID        int64
	Query     string
	Title     string
	Link      string
	Snippet   string
	CreatedAt time.Time
}

// Record returns the row's result fields.
func (r Row) Record() search.Record {
	return search.Record{Title: r.Title, Link: r.Link, Snippet: r.Snippet}
}

// HistoryQuery filters History.
type HistoryQuery struct {
	// Key restricts rows to one cache key. Empty returns all keys.
	Key string

	// Limit caps the number of rows. Zero uses DefaultHistoryLimit.
	Limit int
}

// Store persists result records in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the SQLite database at path. maxConns bounds the driver's own
// connection pool so it never exceeds the application pool in front of it.
func Open(path string, maxConns int) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	if maxConns < 1 {
		maxConns = 1
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.sqlDB
}

// OpenConn opens a dedicated session. It is the opener for the connection pool.
func (s *Store) OpenConn(ctx context.Context) (*sql.Conn, error) {
	if s == nil || s.sqlDB == nil {
		return nil, errors.New("storage is not configured")
	}
	conn, err := s.sqlDB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("open sqlite session: %w", err)
	}
	return conn, nil
}

// EnsureSchema creates the results table and its index if they are missing.
// It is safe to call repeatedly and from concurrent sessions: an "already
// exists" failure from a racing creator counts as success.
func (s *Store) EnsureSchema(ctx context.Context, sess Session) error {
	if sess == nil {
		return &PersistenceError{Op: OpEnsureSchema, Err: errors.New("session is required")}
	}
	if _, err := sess.ExecContext(ctx, schemaSQL); err != nil {
		if IsAlreadyExistsError(err) {
			return nil
		}
		return &PersistenceError{Op: OpEnsureSchema, Err: err}
	}
	return nil
}

// Append writes one row per record under key in a single transaction and
// returns the number of rows written. Either every row is committed or none
// is.
func (s *Store) Append(ctx context.Context, sess Session, key string, records []search.Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, &PersistenceError{Op: OpAppend, Key: key, Err: err}
	}
	if strings.TrimSpace(key) == "" {
		return 0, &PersistenceError{Op: OpAppend, Err: errors.New("query key is required")}
	}
	if len(records) == 0 {
		return 0, nil
	}
	txs, ok := sess.(txSession)
	if !ok {
		return 0, &PersistenceError{Op: OpAppend, Key: key, Err: errors.New("session does not support transactions")}
	}

	tx, err := txs.BeginTx(ctx, nil)
	if err != nil {
		return 0, &PersistenceError{Op: OpAppend, Key: key, Err: fmt.Errorf("begin transaction: %w", err)}
	}

	written, err := insertRecords(ctx, tx, key, records, toMillis(s.now()))
	if err != nil {
		_ = tx.Rollback()
		return 0, &PersistenceError{Op: OpAppend, Key: key, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return 0, &PersistenceError{Op: OpAppend, Key: key, Err: fmt.Errorf("commit: %w", err)}
	}
	return written, nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, key string, records []search.Record, createdAt int64) (int, error) {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (query, title, link, snippet, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx, key, rec.Title, rec.Link, rec.Snippet, createdAt); err != nil {
			return 0, fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	return len(records), nil
}

// History returns persisted rows, newest first.
func (s *Store) History(ctx context.Context, sess Session, q HistoryQuery) ([]Row, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if q.Key == "" {
		rows, err = sess.QueryContext(ctx,
			`SELECT id, query, title, link, snippet, created_at FROM results ORDER BY id DESC LIMIT ?`, limit)
	} else {
		rows, err = sess.QueryContext(ctx,
			`SELECT id, query, title, link, snippet, created_at FROM results WHERE query = ? ORDER BY id DESC LIMIT ?`,
			q.Key, limit)
	}
	if err != nil {
		return nil, &PersistenceError{Op: OpHistory, Key: q.Key, Err: err}
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			row     Row
			created int64
		)
		if err := rows.Scan(&row.ID, &row.Query, &row.Title, &row.Link, &row.Snippet, &created); err != nil {
			return nil, &PersistenceError{Op: OpHistory, Key: q.Key, Err: fmt.Errorf("scan row: %w", err)}
		}
		row.CreatedAt = fromMillis(created)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: OpHistory, Key: q.Key, Err: err}
	}
	return out, nil
}

// Count returns the number of rows stored under key, or all rows if key is
// empty.
func (s *Store) Count(ctx context.Context, sess Session, key string) (int, error) {
	var (
		n   int
		row *sql.Row
	)
	if key == "" {
		row = sess.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`)
	} else {
		row = sess.QueryRowContext(ctx, `SELECT COUNT(*) FROM results WHERE query = ?`, key)
	}
	if err := row.Scan(&n); err != nil {
		return 0, &PersistenceError{Op: OpCount, Key: key, Err: err}
	}
	return n, nil
}

// IsAlreadyExistsError reports whether err indicates idempotent DDL success.
func IsAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "already exists")
}

// IsBusyError reports whether err is a SQLite lock contention failure.
func IsBusyError(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return true
		}
	}
	return false
}

// IsConstraintError reports whether err is a SQLite constraint violation.
func IsConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3lib.SQLITE_CONSTRAINT
	}
	return false
}
