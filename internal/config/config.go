package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"webappbot/internal/adapter/scheduler"
	"webappbot/internal/shared"
	"webappbot/internal/weblink"
)

// Config holds application configuration values.
type Config struct {
	Env      string `validate:"required,oneof=dev prod"`
	Telegram struct {
		Token         string `validate:"required"`
		WebhookURL    string `validate:"omitempty,url"`
		WebhookSecret string
		Workers       int `validate:"min=1,max=64"`
	}
	WebApp struct {
		BaseURL     string `validate:"required,url"`
		EncodeQuery bool
	}
	HTTP struct {
		Addr string
	}
	Log struct {
		ConsoleLevel string `validate:"required,oneof=debug info warn error"`
		FileLevel    string `validate:"required,oneof=debug info warn error"`
		File         string
	}
	Storage struct {
		Driver      string `validate:"required,oneof=sqlite postgres none"`
		SQLitePath  string `validate:"required_if=Driver sqlite"`
		DatabaseURL string `validate:"required_if=Driver postgres"`
	}
	RateLimit     time.Duration
	StatsSchedule string
}

var validate = validator.New()

// Load reads configuration from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	c.Env = getenv("ENV", "prod")
	c.Telegram.Token = os.Getenv("BOT_TOKEN")
	c.Telegram.WebhookURL = os.Getenv("TELEGRAM_WEBHOOK_URL")
	c.Telegram.WebhookSecret = os.Getenv("TELEGRAM_WEBHOOK_SECRET")
	c.WebApp.BaseURL = getenv("WEBAPP_BASE_URL", weblink.DefaultBaseURL)
	c.HTTP.Addr = getenv("HTTP_ADDR", ":8080")
	c.Log.ConsoleLevel = strings.ToLower(getenv("LOG_CONSOLE_LEVEL", "info"))
	c.Log.FileLevel = strings.ToLower(getenv("LOG_FILE_LEVEL", "debug"))
	c.Log.File = getenv("LOG_FILE", "data/logs/bot.log")
	c.Storage.Driver = strings.ToLower(getenv("STORAGE_DRIVER", "sqlite"))
	c.Storage.SQLitePath = getenv("SQLITE_PATH", "data/bot.db")
	c.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
	c.StatsSchedule = "@every 1h"
	if v, ok := os.LookupEnv("STATS_SCHEDULE"); ok {
		c.StatsSchedule = strings.TrimSpace(v)
	}

	var err error
	if c.Telegram.Workers, err = getint("TELEGRAM_WORKERS", 1); err != nil {
		return Config{}, err
	}
	if c.WebApp.EncodeQuery, err = getbool("WEBAPP_ENCODE_QUERY", false); err != nil {
		return Config{}, err
	}
	if c.RateLimit, err = getduration("RATE_LIMIT_INTERVAL", 0); err != nil {
		return Config{}, err
	}

	if err := validate.Struct(c); err != nil {
		return Config{}, shared.MarkKind(err, shared.KindValidation)
	}
	if c.Telegram.WebhookURL != "" && c.Telegram.WebhookSecret == "" {
		return Config{}, shared.MarkKind(errors.New("TELEGRAM_WEBHOOK_SECRET required when TELEGRAM_WEBHOOK_URL is set"), shared.KindValidation)
	}
	if c.RateLimit < 0 {
		return Config{}, shared.MarkKind(errors.New("RATE_LIMIT_INTERVAL must not be negative"), shared.KindValidation)
	}
	if c.StatsSchedule != "" {
		if err := scheduler.ValidateSchedule(c.StatsSchedule); err != nil {
			return Config{}, shared.MarkKind(fmt.Errorf("STATS_SCHEDULE: %w", err), shared.KindValidation)
		}
	}
	if c.Telegram.WebhookURL != "" && c.HTTP.Addr == "" {
		return Config{}, shared.MarkKind(errors.New("HTTP_ADDR required when TELEGRAM_WEBHOOK_URL is set"), shared.KindValidation)
	}
	return c, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, shared.MarkKind(fmt.Errorf("%s: %w", k, err), shared.KindValidation)
	}
	return n, nil
}

func getbool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, shared.MarkKind(fmt.Errorf("%s: %w", k, err), shared.KindValidation)
	}
	return b, nil
}

func getduration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, shared.MarkKind(fmt.Errorf("%s: %w", k, err), shared.KindValidation)
	}
	return d, nil
}
