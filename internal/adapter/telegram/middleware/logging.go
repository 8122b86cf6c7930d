package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"webappbot/internal/adapter/telegram"
	"webappbot/internal/platform/metrics"
)

type ctxKey struct{}

// CorrelationID returns the id attached by Logging, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Logging tags every update with a correlation id, logs how long it took and
// feeds the update counters.
func Logging(log *slog.Logger, m *metrics.Metrics) Middleware {
	if log == nil {
		log = slog.Default()
	}
	return func(next telegram.HandlerFunc) telegram.HandlerFunc {
		return func(ctx context.Context, s telegram.Sender, upd *models.Update) {
			cid := uuid.NewString()
			ctx = context.WithValue(ctx, ctxKey{}, cid)
			start := time.Now()

			next(ctx, s, upd)

			elapsed := time.Since(start)
			kind := UpdateKind(upd)
			m.ObserveUpdate(kind, elapsed.Seconds())
			log.DebugContext(ctx, "update handled",
				slog.String("cid", cid),
				slog.Int64("update_id", upd.ID),
				slog.String("kind", kind),
				slog.Int64("chat_id", telegram.ChatID(upd)),
				slog.Duration("took", elapsed),
			)
		}
	}
}

// UpdateKind names the payload of an update for metrics.
func UpdateKind(upd *models.Update) string {
	switch {
	case upd.Message != nil:
		return "message"
	case upd.EditedMessage != nil:
		return "edited_message"
	case upd.CallbackQuery != nil:
		return "callback_query"
	case upd.MyChatMember != nil:
		return "my_chat_member"
	default:
		return "other"
	}
}
