package telegram

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msgUpdate(id, chatID, userID int64) *models.Update {
	return &models.Update{
		ID:      id,
		Message: &models.Message{Chat: models.Chat{ID: chatID}, From: &models.User{ID: userID}},
	}
}

func TestDispatcher_SequentialWithOneWorker(t *testing.T) {
	var (
		mu      sync.Mutex
		order   []int64
		running atomic.Int32
		overlap atomic.Bool
	)
	h := func(_ context.Context, _ Sender, upd *models.Update) {
		if running.Add(1) > 1 {
			overlap.Store(true)
		}
		time.Sleep(time.Millisecond)
		mu.Lock()
		order = append(order, upd.ID)
		mu.Unlock()
		running.Add(-1)
	}

	d := NewDispatcher(nopSender{}, 1, h, quiet)
	for i := int64(1); i <= 20; i++ {
		d.Dispatch(context.Background(), msgUpdate(i, i, i))
	}
	d.Close()

	require.Len(t, order, 20)
	for i, id := range order {
		assert.Equal(t, int64(i+1), id)
	}
	assert.False(t, overlap.Load(), "handlers must not overlap")
}

func TestDispatcher_KeepsChatOrder(t *testing.T) {
	var (
		mu     sync.Mutex
		byChat = map[int64][]int64{}
	)
	h := func(_ context.Context, _ Sender, upd *models.Update) {
		mu.Lock()
		defer mu.Unlock()
		chat := ChatID(upd)
		byChat[chat] = append(byChat[chat], upd.ID)
	}

	d := NewDispatcher(nopSender{}, 4, h, quiet)
	var id int64
	for round := 0; round < 10; round++ {
		for _, chat := range []int64{1, 2, -3, 4, 5} {
			id++
			d.Dispatch(context.Background(), msgUpdate(id, chat, chat))
		}
	}
	d.Close()

	for chat, ids := range byChat {
		require.Len(t, ids, 10, "chat %d", chat)
		for i := 1; i < len(ids); i++ {
			assert.Less(t, ids[i-1], ids[i], "chat %d out of order", chat)
		}
	}
}

func TestDispatcher_DropsAfterClose(t *testing.T) {
	var calls atomic.Int32
	d := NewDispatcher(nopSender{}, 0, func(context.Context, Sender, *models.Update) { calls.Add(1) }, nil)
	d.Close()
	d.Close()

	assert.NotPanics(t, func() { d.Dispatch(context.Background(), msgUpdate(1, 1, 1)) })
	assert.Zero(t, calls.Load())
}

func TestChatAndUserID(t *testing.T) {
	u := msgUpdate(1, -100, 7)
	assert.Equal(t, int64(-100), ChatID(u))
	assert.Equal(t, int64(7), UserID(u))

	cb := &models.Update{CallbackQuery: &models.CallbackQuery{
		From:    models.User{ID: 9},
		Message: models.MaybeInaccessibleMessage{Message: &models.Message{Chat: models.Chat{ID: 5}}},
	}}
	assert.Equal(t, int64(5), ChatID(cb))
	assert.Equal(t, int64(9), UserID(cb))

	assert.Zero(t, ChatID(&models.Update{}))
	assert.Zero(t, UserID(&models.Update{}))
}
