package telegram

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/go-telegram/bot/models"

	"webappbot/internal/platform/metrics"
	"webappbot/internal/shared"
)

// UnknownCommand is the metrics label shared by all unregistered commands.
const UnknownCommand = "unknown"

// CommandHandler handles one command. args is the text after the command word.
type CommandHandler func(ctx context.Context, s Sender, msg *models.Message, args string) error

// Router maps command names to handlers. Unknown commands and plain text are
// ignored without a reply.
type Router struct {
	handlers map[string]CommandHandler
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewRouter creates an empty router. m may be nil.
func NewRouter(log *slog.Logger, m *metrics.Metrics) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{handlers: make(map[string]CommandHandler), log: log, metrics: m}
}

// Handle registers h for command name (without the leading slash). Names
// are matched case-sensitively.
func (r *Router) Handle(name string, h CommandHandler) {
	r.handlers[name] = h
}

// Commands returns the registered command names, sorted.
func (r *Router) Commands() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Serve is a HandlerFunc that runs the handler registered for the message's command.
func (r *Router) Serve(ctx context.Context, s Sender, upd *models.Update) {
	msg := upd.Message
	if msg == nil {
		return
	}
	name, args, ok := ParseCommand(msg.Text)
	if !ok {
		return
	}
	h, ok := r.handlers[name]
	if !ok {
		r.log.Debug("unknown command", slog.String("command", name), slog.Int64("chat_id", msg.Chat.ID))
		r.metrics.ObserveCommand(UnknownCommand, metrics.ResultIgnored)
		return
	}

	if err := h(ctx, s, msg, args); err != nil {
		r.log.Error("command failed",
			slog.String("command", name),
			slog.Int64("chat_id", msg.Chat.ID),
			slog.String("kind", shared.KindOf(err).String()),
			slog.Any("error", err),
		)
		r.metrics.ObserveCommand(name, metrics.ResultError)
		return
	}
	r.metrics.ObserveCommand(name, metrics.ResultOK)
}

// ParseCommand splits "/start@MyBot ref42" into ("start", "ref42", true).
// The command word ends at the first whitespace of any kind.
func ParseCommand(text string) (name, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	word, rest := text[1:], ""
	if i := strings.IndexFunc(word, unicode.IsSpace); i >= 0 {
		word, rest = word[:i], word[i:]
	}
	word, _, _ = strings.Cut(word, "@")
	if word == "" {
		return "", "", false
	}
	return word, strings.TrimSpace(rest), true
}
