package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/go-telegram/bot/models"

	"webappbot/internal/adapter/telegram"
)

// Recover turns a panic in the handler into an error log so the worker keeps
// running.
func Recover(log *slog.Logger) Middleware {
	if log == nil {
		log = slog.Default()
	}
	return func(next telegram.HandlerFunc) telegram.HandlerFunc {
		return func(ctx context.Context, s telegram.Sender, upd *models.Update) {
			defer func() {
				if rec := recover(); rec != nil {
					log.ErrorContext(ctx, "handler panic",
						slog.Int64("update_id", upd.ID),
						slog.Any("panic", rec),
						slog.String("stack", string(debug.Stack())),
					)
				}
			}()
			next(ctx, s, upd)
		}
	}
}
