package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webappbot/internal/adapter/telegram"
	"webappbot/internal/shared"
	"webappbot/internal/storage"
	"webappbot/internal/weblink"
)

type fakeSender struct {
	sent []*bot.SendMessageParams
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, p)
	return &models.Message{ID: len(f.sent)}, nil
}

type fakeVisits struct {
	visits []storage.Visit
	err    error
}

func (f *fakeVisits) RecordVisit(_ context.Context, v storage.Visit) error {
	f.visits = append(f.visits, v)
	return f.err
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func message(chatID int64, from *models.User, text string) *models.Message {
	return &models.Message{Chat: models.Chat{ID: chatID}, From: from, Text: text}
}

func buttonURL(t *testing.T, p *bot.SendMessageParams) string {
	t.Helper()
	kb, ok := p.ReplyMarkup.(*models.InlineKeyboardMarkup)
	require.True(t, ok, "reply markup must be an inline keyboard")
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 1)
	btn := kb.InlineKeyboard[0][0]
	assert.Equal(t, "Open App 🚀", btn.Text)
	require.NotNil(t, btn.WebApp)
	return btn.WebApp.URL
}

func TestStart_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		from     *models.User
		wantText string
		wantURL  string
	}{
		{
			name:     "full identity",
			from:     &models.User{ID: 42, FirstName: "Alice", Username: "alice99"},
			wantText: "Hello Alice! Welcome to our app.",
			wantURL:  "https://yourblog.blogspot.com/?id=42&name=Alice&username=alice99",
		},
		{
			name:     "no handle",
			from:     &models.User{ID: 7, FirstName: "Bob"},
			wantText: "Hello Bob! Welcome to our app.",
			wantURL:  "https://yourblog.blogspot.com/?id=7&name=Bob&username=User",
		},
		{
			name:     "no name",
			from:     &models.User{ID: 9, Username: "ghost"},
			wantText: "Hello! Welcome to our app.",
			wantURL:  "https://yourblog.blogspot.com/?id=9&name=&username=ghost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSender{}
			h := NewStart(weblink.NewBuilder("", false), nil, discard)

			err := h.Handle(context.Background(), s, message(1000, tt.from, "/start"), "")
			require.NoError(t, err)
			require.Len(t, s.sent, 1)
			assert.Equal(t, int64(1000), s.sent[0].ChatID)
			assert.Equal(t, tt.wantText, s.sent[0].Text)
			assert.Equal(t, tt.wantURL, buttonURL(t, s.sent[0]))
		})
	}
}

func TestStart_RecordsVisitAfterReply(t *testing.T) {
	s := &fakeSender{}
	v := &fakeVisits{}
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	h := NewStart(weblink.NewBuilder("", false), v, discard)
	h.now = func() time.Time { return now }

	err := h.Handle(context.Background(), s, message(42, &models.User{ID: 42, FirstName: "Alice", Username: "alice99"}, "/start ads"), "ads")
	require.NoError(t, err)

	require.Len(t, v.visits, 1)
	assert.Equal(t, storage.Visit{UserID: 42, FirstName: "Alice", Username: "alice99", Referral: "ads", At: now}, v.visits[0])
}

func TestStart_StoreFailureStillReplies(t *testing.T) {
	s := &fakeSender{}
	v := &fakeVisits{err: errors.New("disk full")}
	h := NewStart(weblink.NewBuilder("", false), v, discard)

	err := h.Handle(context.Background(), s, message(1, &models.User{ID: 1, FirstName: "Eve"}, "/start"), "")
	require.NoError(t, err)
	assert.Len(t, s.sent, 1)
}

func TestStart_SendFailure(t *testing.T) {
	v := &fakeVisits{}
	h := NewStart(weblink.NewBuilder("", false), v, discard)

	err := h.Handle(context.Background(), &fakeSender{err: errors.New("connection reset")}, message(1, &models.User{ID: 1}, "/start"), "")
	require.Error(t, err)
	assert.True(t, shared.IsDependencyFailure(err))
	assert.Empty(t, v.visits, "no visit without a reply")

	err = h.Handle(context.Background(), &fakeSender{err: bot.ErrorUnauthorized}, message(1, &models.User{ID: 1}, "/start"), "")
	assert.True(t, shared.IsUnauthorized(err))
}

func TestStart_NoSender(t *testing.T) {
	s := &fakeSender{}
	h := NewStart(weblink.NewBuilder("", false), nil, discard)

	err := h.Handle(context.Background(), s, message(-100, nil, "/start"), "")
	assert.True(t, shared.IsValidation(err))
	assert.Empty(t, s.sent)
}

func TestRegister_OnlyStartReplies(t *testing.T) {
	s := &fakeSender{}
	r := telegram.NewRouter(discard, nil)
	Register(r, NewStart(weblink.NewBuilder("", false), nil, discard))

	assert.Equal(t, []string{"start"}, r.Commands())

	from := &models.User{ID: 42, FirstName: "Alice", Username: "alice99"}
	for _, text := range []string{"/help", "/ping", "hello", "/stop", "/START", ""} {
		r.Serve(context.Background(), s, &models.Update{Message: message(42, from, text)})
	}
	assert.Empty(t, s.sent)

	r.Serve(context.Background(), s, &models.Update{Message: message(42, from, "/start@WebAppBot")})
	require.Len(t, s.sent, 1)
	assert.Equal(t, "https://yourblog.blogspot.com/?id=42&name=Alice&username=alice99", buttonURL(t, s.sent[0]))
}

func TestBotCommands(t *testing.T) {
	cmds := BotCommands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "start", cmds[0].Command)
}
