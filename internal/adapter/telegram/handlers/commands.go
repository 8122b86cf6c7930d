package handlers

import (
	"github.com/go-telegram/bot/models"

	"webappbot/internal/adapter/telegram"
)

// Register binds the bot's commands to r. Only /start exists.
func Register(r *telegram.Router, start *Start) {
	r.Handle("start", start.Handle)
}

// BotCommands describes the registered commands for setMyCommands.
func BotCommands() []models.BotCommand {
	return []models.BotCommand{
		{Command: "start", Description: "Open the app"},
	}
}
