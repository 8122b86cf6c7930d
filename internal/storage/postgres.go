package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"webappbot/internal/platform/pg"
	"webappbot/internal/storage/migrations"
)

const upsertVisitorPostgres = `
INSERT INTO visitors (id, first_name, username, referral, start_count, first_seen, last_seen)
VALUES ($1, $2, $3, $4, 1, $5, $5)
ON CONFLICT (id) DO UPDATE SET
    first_name  = EXCLUDED.first_name,
    username    = EXCLUDED.username,
    referral    = CASE WHEN visitors.referral = '' THEN EXCLUDED.referral ELSE visitors.referral END,
    start_count = visitors.start_count + 1,
    last_seen   = EXCLUDED.last_seen`

// Postgres stores visits in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
	tx   *pg.TxRunner
}

// OpenPostgres applies the schema, then connects a pool to dsn.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pg.NewPool(ctx, dsn)
	if err != nil {
		return nil, storeErr(err, "connect postgres")
	}
	if _, err := pg.ApplyMigrationsFromFS(dsn, migrations.FS, "postgres"); err != nil {
		pool.Close()
		return nil, storeErr(err, "migrate postgres")
	}
	return &Postgres{pool: pool, tx: pg.NewTxRunner(pool)}, nil
}

func (p *Postgres) RecordVisit(ctx context.Context, v Visit) error {
	at := v.At.UTC()
	err := p.tx.WithinTx(ctx, func(ctx context.Context) error {
		q := p.tx.GetQuerier(ctx)
		if _, err := q.Exec(ctx, upsertVisitorPostgres, v.UserID, v.FirstName, v.Username, v.Referral, at); err != nil {
			return err
		}
		_, err := q.Exec(ctx, `INSERT INTO visits (visitor_id, at) VALUES ($1, $2)`, v.UserID, at)
		return err
	})
	return storeErr(err, "record visit")
}

func (p *Postgres) Visitor(ctx context.Context, id int64) (Visitor, error) {
	var v Visitor
	err := p.pool.QueryRow(ctx,
		`SELECT id, first_name, username, referral, start_count, first_seen, last_seen FROM visitors WHERE id = $1`, id,
	).Scan(&v.ID, &v.FirstName, &v.Username, &v.Referral, &v.StartCount, &v.FirstSeen, &v.LastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return Visitor{}, notFound(id)
	}
	if err != nil {
		return Visitor{}, storeErr(err, "get visitor")
	}
	v.FirstSeen, v.LastSeen = v.FirstSeen.UTC(), v.LastSeen.UTC()
	return v, nil
}

func (p *Postgres) CountVisitors(ctx context.Context) (int64, error) {
	var n int64
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM visitors`).Scan(&n)
	return n, storeErr(err, "count visitors")
}

func (p *Postgres) CountVisitsSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM visits WHERE at >= $1`, since.UTC()).Scan(&n)
	return n, storeErr(err, "count visits")
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
