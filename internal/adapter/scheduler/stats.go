package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"webappbot/internal/platform/metrics"
)

// VisitCounter answers the stats queries. storage.Store implements it.
type VisitCounter interface {
	CountVisitors(ctx context.Context) (int64, error)
	CountVisitsSince(ctx context.Context, since time.Time) (int64, error)
}

// StatsWindow is the period covered by the recent visits figure.
const StatsWindow = 24 * time.Hour

// StatsJob logs how many users opened the bot in total and within the last
// day, and publishes the total on the visitors gauge.
func StatsJob(store VisitCounter, m *metrics.Metrics, log *slog.Logger) JobFunc {
	return statsJob(store, m, log, time.Now)
}

func statsJob(store VisitCounter, m *metrics.Metrics, log *slog.Logger, now func() time.Time) JobFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx context.Context) error {
		total, err := store.CountVisitors(ctx)
		if err != nil {
			return fmt.Errorf("count visitors: %w", err)
		}
		recent, err := store.CountVisitsSince(ctx, now().Add(-StatsWindow))
		if err != nil {
			return fmt.Errorf("count recent visits: %w", err)
		}
		m.SetVisitors(total)
		log.InfoContext(ctx, "visitor stats", slog.Int64("visitors", total), slog.Int64("visits_24h", recent))
		return nil
	}
}
