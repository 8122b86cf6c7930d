package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/sync/errgroup"

	"webappbot/internal/adapter/httpapi"
	"webappbot/internal/adapter/scheduler"
	"webappbot/internal/adapter/telegram"
	"webappbot/internal/adapter/telegram/handlers"
	"webappbot/internal/adapter/telegram/middleware"
	"webappbot/internal/config"
	"webappbot/internal/platform/httpclient"
	"webappbot/internal/platform/logger"
	"webappbot/internal/platform/metrics"
	"webappbot/internal/shared"
	"webappbot/internal/storage"
	"webappbot/internal/weblink"
	"webappbot/pkg/retry"
)

const (
	pollTimeout   = time.Minute
	shutdownGrace = 10 * time.Second
)

// App wires application components.
type App struct {
	cfg config.Config
	log *slog.Logger
}

// New creates a new App instance and loads configuration.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          "webappbot",
	})
	return &App{cfg: cfg, log: log}, nil
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	defer logger.Close(a.log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storage.Options{
		Driver:      a.cfg.Storage.Driver,
		SQLitePath:  a.cfg.Storage.SQLitePath,
		DatabaseURL: a.cfg.Storage.DatabaseURL,
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	m := metrics.New()
	webhook := a.cfg.Telegram.WebhookURL != ""

	router := telegram.NewRouter(a.log, m)
	handlers.Register(router, handlers.NewStart(
		weblink.NewBuilder(a.cfg.WebApp.BaseURL, a.cfg.WebApp.EncodeQuery),
		store,
		a.log,
	))
	limiter := middleware.NewRateLimiter(a.cfg.RateLimit, a.log)
	handler := middleware.Chain(router.Serve,
		middleware.Recover(a.log),
		middleware.Logging(a.log, m),
		limiter.Middleware,
	)

	client := httpclient.New(
		httpclient.WithLogger(a.log),
		httpclient.WithTimeout(pollTimeout+15*time.Second),
		httpclient.WithRetries(3, 500*time.Millisecond),
		httpclient.WithMaxBackoff(10*time.Second),
		httpclient.WithRetryIf(httpclient.RetryPaths("/getMe", "/getUpdates")),
	)

	var disp *telegram.Dispatcher
	opts := []bot.Option{
		bot.WithDefaultHandler(func(ctx context.Context, _ *bot.Bot, upd *models.Update) {
			disp.Dispatch(ctx, upd)
		}),
		bot.WithHTTPClient(pollTimeout, client.Std()),
		bot.WithAllowedUpdates([]string{"message"}),
		bot.WithErrorsHandler(func(err error) {
			a.log.Warn("telegram", slog.Any("error", err))
		}),
	}
	if webhook {
		opts = append(opts, bot.WithWebhookSecretToken(a.cfg.Telegram.WebhookSecret))
	}

	b, err := newBot(ctx, a.cfg.Telegram.Token, startupRetry(a.log), opts...)
	if err != nil {
		return err
	}
	disp = telegram.NewDispatcher(b, a.cfg.Telegram.Workers, handler, a.log)
	defer disp.Close()

	if _, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: handlers.BotCommands()}); err != nil {
		a.log.Warn("set commands", slog.Any("error", err))
	}

	g, gctx := errgroup.WithContext(ctx)

	if webhook {
		if _, err := b.SetWebhook(ctx, &bot.SetWebhookParams{
			URL:            a.cfg.Telegram.WebhookURL,
			SecretToken:    a.cfg.Telegram.WebhookSecret,
			AllowedUpdates: []string{"message"},
		}); err != nil {
			return shared.MarkKind(fmt.Errorf("set webhook: %w", err), shared.KindDependencyFailure)
		}
		g.Go(func() error {
			b.StartWebhook(gctx)
			return nil
		})
	} else {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
			a.log.Warn("delete webhook", slog.Any("error", err))
		}
		g.Go(func() error {
			b.Start(gctx)
			return nil
		})
	}

	if a.cfg.HTTP.Addr != "" {
		srvOpts := httpapi.Options{
			Addr:    a.cfg.HTTP.Addr,
			Release: a.cfg.Env == "prod",
			Log:     a.log,
			Metrics: m.Handler(),
			Health: func(ctx context.Context) error {
				_, err := store.CountVisitors(ctx)
				return err
			},
		}
		if webhook {
			srvOpts.Webhook = b.WebhookHandler()
		}
		srv := httpapi.New(srvOpts)
		g.Go(func() error { return srv.Run(gctx) })
	}

	sched, err := a.newScheduler(store, m, limiter)
	if err != nil {
		return err
	}
	if sched.Len() > 0 {
		g.Go(func() error { return sched.Run(gctx, shutdownGrace) })
	}

	a.log.Info("bot started", slog.Bool("webhook", webhook), slog.Int("workers", a.cfg.Telegram.Workers), slog.String("storage", a.cfg.Storage.Driver))
	err = g.Wait()
	a.log.Info("stopping")
	return err
}

func (a *App) newScheduler(store storage.Store, m *metrics.Metrics, limiter *middleware.RateLimiter) (*scheduler.Scheduler, error) {
	s := scheduler.New(scheduler.Config{Logger: a.log})
	if a.cfg.StatsSchedule != "" {
		_, err := s.AddJob(a.cfg.StatsSchedule, scheduler.StatsJob(store, m, a.log), scheduler.JobOptions{
			Name:          "stats",
			Timeout:       30 * time.Second,
			OverlapPolicy: scheduler.SkipIfRunning,
			RunOnStart:    true,
		})
		if err != nil {
			return nil, shared.MarkKind(fmt.Errorf("STATS_SCHEDULE: %w", err), shared.KindValidation)
		}
	}
	if a.cfg.RateLimit > 0 {
		idle := max(a.cfg.RateLimit, time.Minute)
		_, err := s.AddJob("@every 10m", func(context.Context) error {
			if n := limiter.Prune(idle); n > 0 {
				a.log.Debug("rate limiter pruned", slog.Int("users", n))
			}
			return nil
		}, scheduler.JobOptions{Name: "ratelimit-prune", OverlapPolicy: scheduler.SkipIfRunning})
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func startupRetry(log *slog.Logger) retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = 5
	rc.InitialDelay = time.Second
	rc.MaxDelay = 30 * time.Second
	rc.OnRetry = func(attempt int, err error, next time.Duration) {
		log.Warn("bot init failed, retrying", slog.Int("attempt", attempt), slog.Duration("next", next), slog.Any("error", err))
	}
	return rc
}

// apiErrors are answers of the Bot API itself. Another attempt cannot change them.
var apiErrors = []error{bot.ErrorUnauthorized, bot.ErrorBadRequest, bot.ErrorForbidden, bot.ErrorNotFound}

// retryableInit reports whether bot creation may be attempted again. The
// client library flattens transport errors into plain strings, so anything
// that is not an API answer or a cancellation counts as a network failure.
func retryableInit(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	for _, target := range apiErrors {
		if errors.Is(err, target) {
			return false
		}
	}
	return true
}

// newBot creates the client, which calls getMe. Network failures are retried
// with rc, a rejected token fails at once.
func newBot(ctx context.Context, token string, rc retry.Config, opts ...bot.Option) (*bot.Bot, error) {
	var b *bot.Bot
	err := retry.DoWithRetryable(ctx, rc, func(context.Context) error {
		var err error
		b, err = bot.New(token, opts...)
		return err
	}, retryableInit)
	switch {
	case err == nil:
		return b, nil
	case errors.Is(err, bot.ErrorUnauthorized):
		return nil, shared.MarkKind(fmt.Errorf("bot token rejected: %w", err), shared.KindUnauthorized)
	default:
		return nil, shared.MarkKind(fmt.Errorf("create bot: %w", err), shared.KindDependencyFailure)
	}
}
