package storage

import (
	"database/sql"
	"math"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"rightskeeper/internal/domain"
)

// driverName is the sqlite3 driver with the fold() SQL function installed
// on every connection. fold lower-cases Unicode text, unlike SQLite's
// built-in LIKE which only folds ASCII.
const driverName = "sqlite3_rightskeeper"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", strings.ToLower, true)
		},
	})
}

// New opens a SQLite database connection at the given path.
// Foreign keys are enforced on every pooled connection through the DSN.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// One writer; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Open migrates the schema at path and returns a ready connection.
func Open(path string) (*sql.DB, error) {
	if err := NewMigration(path, DefaultEngine).Up(); err != nil {
		return nil, err
	}
	return New(path)
}

// Timestamps are stored as Unix nanoseconds, which covers 1678 to 2262.
var (
	minStoredTime = time.Unix(0, math.MinInt64)
	maxStoredTime = time.Unix(0, math.MaxInt64)
)

// checkStorable rejects a time that toUnix would silently wrap.
func checkStorable(field string, t time.Time) error {
	if t.Before(minStoredTime) || t.After(maxStoredTime) {
		return &domain.ValidationError{Field: field, Message: "is outside the supported date range"}
	}
	return nil
}

func toUnix(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n)
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
