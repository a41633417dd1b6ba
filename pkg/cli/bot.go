package cli

import (
	"errors"
	"fmt"

	"github.com/danielstefank/goodwill-alert/pkg/model"
	"github.com/danielstefank/goodwill-alert/pkg/telegram"
	"github.com/spf13/cobra"
)

// NewBotCommand creates the bot command.
func NewBotCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Serve search commands over Telegram",
		Long: `Answer /list, /add, /remove, /run and /results in Telegram.

Needs telegram.token (or TELEGRAM_APITOKEN). With telegram.chat_id set only
that chat is served.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.Telegram.Token == "" {
				return WrapExitError(ExitConfigError, "telegram bot not configured",
					fmt.Errorf("%w: telegram.token is empty", model.ErrConfig))
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			if err := a.authenticate(ctx); err != nil {
				// list/add/remove/results still work without a login
				if !errors.Is(err, model.ErrConfig) {
					return err
				}
				a.log.Warn().Err(err).Msg("running without marketplace login")
			}

			bot := telegram.CreateBot(a.cfg.Telegram.Token, a.cfg.Telegram.ChatID, a.service,
				a.log.With().Str("component", "telegram").Logger())
			if err := bot.Init(); err != nil {
				return WrapExitError(ExitFailure, "failed to start bot", err)
			}

			a.log.Info().Msg("bot started")
			fmt.Fprintln(cmd.OutOrStdout(), "Bot started. Press Ctrl-C to stop.")
			return bot.Start(ctx)
		},
	}
}
