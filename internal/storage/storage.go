// Package storage keeps the registry of users who opened the bot with /start.
package storage

import (
	"context"
	"time"
)

// Visit is one /start received from a user.
type Visit struct {
	UserID    int64
	FirstName string
	Username  string
	// Referral is the /start payload of a deep link, if any.
	Referral string
	At       time.Time
}

// Visitor is the aggregated record of a user.
type Visitor struct {
	ID         int64
	FirstName  string
	Username   string
	Referral   string
	StartCount int64
	FirstSeen  time.Time
	LastSeen   time.Time
}

// Store records visits and answers the stats queries.
type Store interface {
	// RecordVisit upserts the visitor and appends the visit. The first
	// non-empty referral of a visitor is kept.
	RecordVisit(ctx context.Context, v Visit) error
	// Visitor returns shared.ErrNotFound for unknown ids.
	Visitor(ctx context.Context, id int64) (Visitor, error)
	CountVisitors(ctx context.Context) (int64, error)
	CountVisitsSince(ctx context.Context, since time.Time) (int64, error)
	Close() error
}

// Nop is a Store that keeps nothing.
type Nop struct{}

func (Nop) RecordVisit(context.Context, Visit) error { return nil }
func (Nop) CountVisitors(context.Context) (int64, error) { return 0, nil }
func (Nop) CountVisitsSince(context.Context, time.Time) (int64, error) { return 0, nil }
func (Nop) Close() error { return nil }
func (Nop) Visitor(_ context.Context, id int64) (Visitor, error) { return Visitor{}, notFound(id) }
