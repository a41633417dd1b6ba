package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/danielstefank/goodwill-alert/pkg/config"
	"github.com/danielstefank/goodwill-alert/pkg/marketplace"
	"github.com/danielstefank/goodwill-alert/pkg/notify"
	"github.com/danielstefank/goodwill-alert/pkg/search"
	"github.com/danielstefank/goodwill-alert/pkg/storage"
	"github.com/rs/zerolog"
)

// app is everything a command needs, built from the config
type app struct {
	cfg     *config.Config
	store   *storage.Storage
	service *search.Service
	log     zerolog.Logger
}

func newApp(opts *RootOptions) (*app, error) {
	env := opts.Env
	if env == nil {
		env = os.LookupEnv
	}
	cfg, err := config.LoadWithEnv(opts.ConfigPath, env)
	if err != nil {
		return nil, WrapExitError(ExitConfigError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	log := opts.logger
	log.Debug().Str("path", cfg.Database).Msg("opening database")
	store, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	var client marketplace.Client
	if opts.NewClient != nil {
		client = opts.NewClient(cfg)
	} else {
		client = marketplace.NewShopGoodwill(marketplace.ShopGoodwillOptions{
			BaseURL:   cfg.Marketplace.BaseURL,
			UserAgent: cfg.Marketplace.UserAgent,
			Timeout:   cfg.Marketplace.Timeout,
		})
	}

	execLog := log.With().Str("component", "executor").Logger()
	executor := search.NewExecutor(client, search.ExecutorOptions{
		Retry: search.RetryPolicy{
			Attempts: cfg.Run.Attempts,
			Backoff:  cfg.Run.Backoff,
		},
		Timeout:           cfg.Marketplace.Timeout,
		RequestsPerSecond: cfg.Marketplace.RequestsPerSecond,
		Logger:            &execLog,
	})

	notifiers := buildNotifiers(cfg, log)
	notifiers = append(notifiers, opts.Notifiers...)
	dispatcher := notify.NewDispatcher(log.With().Str("component", "notify").Logger(), notifiers...)

	serviceLog := log.With().Str("component", "search").Logger()
	service := search.NewService(store, executor, dispatcher, search.Options{
		Concurrency: cfg.Run.Concurrency,
		Deadline:    cfg.Run.Deadline,
		Logger:      &serviceLog,
	})

	return &app{cfg: cfg, store: store, service: service, log: log}, nil
}

func buildNotifiers(cfg *config.Config, log zerolog.Logger) []notify.Notifier {
	notifiers := make([]notify.Notifier, 0, 2)
	if cfg.Pushover.Enabled() {
		notifiers = append(notifiers, notify.NewPushoverNotifier(cfg.Pushover.Token, cfg.Pushover.User))
	}
	if cfg.Telegram.Enabled() {
		notifiers = append(notifiers, notify.DialTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID))
	}
	if len(notifiers) == 0 {
		log.Debug().Msg("no notifier configured")
	}
	return notifiers
}

// authenticate logs in with the configured credentials
func (a *app) authenticate(ctx context.Context) error {
	creds, err := a.cfg.Credentials()
	if err != nil {
		return WrapExitError(ExitConfigError, "marketplace login not configured", err)
	}
	if err := a.service.Authenticate(ctx, creds); err != nil {
		return WrapExitError(ExitFailure, "marketplace login failed", err)
	}
	return nil
}

func (a *app) Close() {
	if err := a.store.CloseDB(); err != nil {
		a.log.Error().Err(err).Msg("error closing database")
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
