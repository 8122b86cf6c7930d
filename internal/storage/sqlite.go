package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"webappbot/internal/platform/sqlite"
	"webappbot/internal/storage/migrations"
)

const upsertVisitorSQLite = `
INSERT INTO visitors (id, first_name, username, referral, start_count, first_seen, last_seen)
VALUES (?, ?, ?, ?, 1, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    first_name  = excluded.first_name,
    username    = excluded.username,
    referral    = CASE WHEN visitors.referral = '' THEN excluded.referral ELSE visitors.referral END,
    start_count = visitors.start_count + 1,
    last_seen   = excluded.last_seen`

// SQLite stores visits in an embedded database. Timestamps are unix seconds.
type SQLite struct {
	db *sqlx.DB
	tx *sqlite.TxRunner
}

type visitorRow struct {
	ID         int64  `db:"id"`
	FirstName  string `db:"first_name"`
	Username   string `db:"username"`
	Referral   string `db:"referral"`
	StartCount int64  `db:"start_count"`
	FirstSeen  int64  `db:"first_seen"`
	LastSeen   int64  `db:"last_seen"`
}

// OpenSQLite opens the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sqlite.NewDB(ctx, path)
	if err != nil {
		return nil, storeErr(err, "open sqlite")
	}
	return NewSQLite(db)
}

// NewSQLite applies the schema to an open database and wraps it.
func NewSQLite(db *sqlx.DB) (*SQLite, error) {
	if err := sqlite.ApplyMigrations(db, migrations.FS, "sqlite"); err != nil {
		_ = db.Close()
		return nil, storeErr(err, "migrate sqlite")
	}
	return &SQLite{db: db, tx: sqlite.NewTxRunner(db)}, nil
}

func (s *SQLite) RecordVisit(ctx context.Context, v Visit) error {
	at := v.At.UTC().Unix()
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		q := s.tx.GetQuerier(ctx)
		if _, err := q.ExecContext(ctx, upsertVisitorSQLite, v.UserID, v.FirstName, v.Username, v.Referral, at, at); err != nil {
			return err
		}
		_, err := q.ExecContext(ctx, `INSERT INTO visits (visitor_id, at) VALUES (?, ?)`, v.UserID, at)
		return err
	})
	return storeErr(err, "record visit")
}

func (s *SQLite) Visitor(ctx context.Context, id int64) (Visitor, error) {
	var r visitorRow
	err := s.db.GetContext(ctx, &r, `SELECT id, first_name, username, referral, start_count, first_seen, last_seen FROM visitors WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Visitor{}, notFound(id)
	}
	if err != nil {
		return Visitor{}, storeErr(err, "get visitor")
	}
	return Visitor{
		ID:         r.ID,
		FirstName:  r.FirstName,
		Username:   r.Username,
		Referral:   r.Referral,
		StartCount: r.StartCount,
		FirstSeen:  time.Unix(r.FirstSeen, 0).UTC(),
		LastSeen:   time.Unix(r.LastSeen, 0).UTC(),
	}, nil
}

func (s *SQLite) CountVisitors(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM visitors`)
	return n, storeErr(err, "count visitors")
}

func (s *SQLite) CountVisitsSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM visits WHERE at >= ?`, since.UTC().Unix())
	return n, storeErr(err, "count visits")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
