package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// timeLayout sorts lexicographically, so range filters can compare text.
const timeLayout = "2006-01-02 15:04:05.000000"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS subscribers (
		id INTEGER PRIMARY KEY,
		label TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS targets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subscriber_id INTEGER NOT NULL REFERENCES subscribers (id),
		name TEXT NOT NULL,
		pair_address TEXT NOT NULL,
		chain TEXT NOT NULL,
		threshold_pct REAL NOT NULL,
		current_price REAL NOT NULL DEFAULT 0,
		last_change_pct REAL NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		added_at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_targets_subscriber_active ON targets (subscriber_id, active);`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subscriber_id INTEGER NOT NULL,
		target_id INTEGER,
		name TEXT NOT NULL,
		change_pct REAL NOT NULL,
		price REAL NOT NULL,
		alert_time TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_subscriber_name_time ON alerts (subscriber_id, name, alert_time);`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_target_time ON alerts (target_id, alert_time);`,
	`CREATE TABLE IF NOT EXISTS metrics (
		metric_name TEXT NOT NULL,
		label_key TEXT NOT NULL DEFAULT '',
		label_value TEXT NOT NULL DEFAULT '',
		metric_value REAL NOT NULL,
		PRIMARY KEY (metric_name, label_key, label_value)
	);`,
}

// Store owns subscribers, targets and alert history. It is the only
// component that mutates them; callers get copies.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures Store.
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open connects to the SQLite file at dbPath and creates the schema.
func Open(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	// one connection serialises writers and keeps every statement on the same file handle
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()
	for _, stmt := range append([]string{`PRAGMA foreign_keys = ON;`}, schema...) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to create schema")
		}
	}

	log.Info("Database initialized successfully.")
	return s, nil
}

// Ping reports whether the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.ParseInLocation(timeLayout, v, time.UTC)
	if err != nil {
		log.Warnf("unparseable timestamp %q: %v", v, err)
		return time.Time{}
	}
	return t
}
