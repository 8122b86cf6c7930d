package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webappbot/internal/platform/metrics"
)

type nopSender struct{}

func (nopSender) SendMessage(context.Context, *bot.SendMessageParams) (*models.Message, error) {
	return &models.Message{}, nil
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text     string
		wantName string
		wantArgs string
		wantOK   bool
	}{
		{"/start", "start", "", true},
		{"/start ref42", "start", "ref42", true},
		{"/start@WebAppBot  promo ", "start", "promo", true},
		{"/start\nref", "start", "ref", true},
		{"/start\tref", "start", "ref", true},
		{"/start\n", "start", "", true},
		{"/START", "START", "", true},
		{"/help", "help", "", true},
		{"start", "", "", false},
		{"/", "", "", false},
		{"/@bot", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			name, args, ok := ParseCommand(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestRouter_Serve(t *testing.T) {
	m := metrics.New()
	r := NewRouter(quiet, m)

	var gotArgs []string
	r.Handle("start", func(_ context.Context, _ Sender, _ *models.Message, args string) error {
		gotArgs = append(gotArgs, args)
		return nil
	})
	r.Handle("fail", func(context.Context, Sender, *models.Message, string) error {
		return errors.New("boom")
	})

	serve := func(text string) {
		r.Serve(context.Background(), nopSender{}, &models.Update{Message: &models.Message{Text: text}})
	}
	serve("/start")
	serve("/start@bot ref")
	serve("/help")
	serve("/Start")
	serve("plain text")
	serve("/fail")
	r.Serve(context.Background(), nopSender{}, &models.Update{})

	assert.Equal(t, []string{"", "ref"}, gotArgs)
	assert.Equal(t, []string{"fail", "start"}, r.Commands())

	expected := `
# HELP webappbot_commands_total Commands handled by name and result.
# TYPE webappbot_commands_total counter
webappbot_commands_total{command="fail",result="error"} 1
webappbot_commands_total{command="unknown",result="ignored"} 2
webappbot_commands_total{command="start",result="ok"} 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "webappbot_commands_total"))
}

func TestRouter_UnknownCommandsShareOneSeries(t *testing.T) {
	m := metrics.New()
	r := NewRouter(quiet, m)
	r.Handle("start", func(context.Context, Sender, *models.Message, string) error { return nil })

	for i := range 500 {
		r.Serve(context.Background(), nopSender{}, &models.Update{Message: &models.Message{Text: fmt.Sprintf("/x%d", i)}})
	}

	assert.Equal(t, 1, mustCount(t, m))
}

func mustCount(t *testing.T, m *metrics.Metrics) int {
	t.Helper()
	n, err := testutil.GatherAndCount(m.Registry(), "webappbot_commands_total")
	require.NoError(t, err)
	return n
}
