package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"webappbot/pkg/retry"
)

// PoolOptions содержит настройки для пула подключений PostgreSQL.
type PoolOptions struct {
	// MaxConns - максимальное количество соединений в пуле
	MaxConns int32
	// MinConns - минимальное количество соединений в пуле
	MinConns int32
	// HealthCheckPeriod - интервал проверки здоровья соединений
	HealthCheckPeriod time.Duration
	// MaxConnLifetime - максимальное время жизни соединения
	MaxConnLifetime time.Duration
	// MaxConnIdleTime - максимальное время простоя соединения
	MaxConnIdleTime time.Duration
	// PingTimeout - таймаут одной попытки ping
	PingTimeout time.Duration
	// Wait - политика ожидания БД при старте (MaxAttempts=1 - без ожидания)
	Wait retry.Config
}

// DefaultPoolOptions возвращает настройки по умолчанию.
// Бот пишет по одной строке на /start, поэтому пул небольшой.
func DefaultPoolOptions() PoolOptions {
	wait := retry.DefaultConfig()
	wait.MaxAttempts = 10
	wait.InitialDelay = 500 * time.Millisecond
	wait.MaxDelay = 10 * time.Second
	return PoolOptions{
		MaxConns:          8,
		MinConns:          1,
		HealthCheckPeriod: 30 * time.Second,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   10 * time.Minute,
		PingTimeout:       5 * time.Second,
		Wait:              wait,
	}
}

// NewPool создает пул подключений с настройками по умолчанию.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return NewPoolWithOptions(ctx, dsn, DefaultPoolOptions())
}

// NewPoolWithOptions создает пул и ждет, пока БД ответит на ping.
func NewPoolWithOptions(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = opts.MaxConns
	cfg.MinConns = opts.MinConns
	cfg.HealthCheckPeriod = opts.HealthCheckPeriod
	cfg.MaxConnLifetime = opts.MaxConnLifetime
	cfg.MaxConnIdleTime = opts.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := WaitForDB(ctx, pool, opts); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// WaitForDB пингует пул, пока БД не станет доступна или не кончатся попытки.
// Каждая попытка ограничена PingTimeout.
func WaitForDB(ctx context.Context, pool *pgxpool.Pool, opts PoolOptions) error {
	wait := opts.Wait
	if wait.MaxAttempts == 0 {
		wait = DefaultPoolOptions().Wait
	}
	err := retry.DoWithRetryable(ctx, wait, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
		defer cancel()
		return pool.Ping(pingCtx)
	}, func(error) bool { return true })
	if err != nil {
		return fmt.Errorf("database not available: %w", err)
	}
	return nil
}
