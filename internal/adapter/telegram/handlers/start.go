package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"webappbot/internal/adapter/telegram"
	"webappbot/internal/shared"
	"webappbot/internal/storage"
	"webappbot/internal/weblink"
)

// VisitRecorder stores a /start. storage.Store implements it.
type VisitRecorder interface {
	RecordVisit(ctx context.Context, v storage.Visit) error
}

// Start replies to /start with a greeting and a button opening the web app.
type Start struct {
	links  weblink.Builder
	visits VisitRecorder
	log    *slog.Logger
	now    func() time.Time
}

// NewStart creates the /start handler. visits and log may be nil.
func NewStart(links weblink.Builder, visits VisitRecorder, log *slog.Logger) *Start {
	if visits == nil {
		visits = storage.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Start{links: links, visits: visits, log: log, now: time.Now}
}

// Handle sends exactly one message to the originating chat. The visit is
// recorded only after the reply went out; a failed write is logged.
func (h *Start) Handle(ctx context.Context, s telegram.Sender, msg *models.Message, payload string) error {
	if msg.From == nil {
		return shared.MarkKind(errors.New("start: message has no sender"), shared.KindValidation)
	}
	id := weblink.Identity{
		ID:        msg.From.ID,
		FirstName: msg.From.FirstName,
		Username:  msg.From.Username,
	}

	_, err := s.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      msg.Chat.ID,
		Text:        weblink.Greeting(id.FirstName),
		ReplyMarkup: WebAppKeyboard(h.links.Build(id)),
	})
	if err != nil {
		return sendErr(err)
	}

	visit := storage.Visit{
		UserID:    id.ID,
		FirstName: id.FirstName,
		Username:  id.Username,
		Referral:  payload,
		At:        h.now(),
	}
	if err := h.visits.RecordVisit(ctx, visit); err != nil {
		h.log.Warn("record visit", slog.Int64("user_id", id.ID), slog.Any("error", err))
	}
	return nil
}

// WebAppKeyboard is an inline keyboard with one button opening url in the
// embedded web-app viewer.
func WebAppKeyboard(url string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: weblink.ButtonText, WebApp: &models.WebAppInfo{URL: url}},
		}},
	}
}

func sendErr(err error) error {
	err = shared.Wrap(err, "send start reply")
	if errors.Is(err, bot.ErrorUnauthorized) {
		return shared.MarkKind(err, shared.KindUnauthorized)
	}
	return shared.MarkKind(err, shared.KindDependencyFailure)
}
