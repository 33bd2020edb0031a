package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/promptforge/internal/handler"
	"github.com/set-night/promptforge/internal/middleware"
	"github.com/set-night/promptforge/internal/session"
	"github.com/set-night/promptforge/internal/telegram"
	"github.com/spf13/cobra"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd.Context())
	},
}

func runBot(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(os.Stdout, cfg.Level())

	if cfg.BotToken == "" {
		return errors.New("BOT_TOKEN is required for the bot")
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Hooks and the default handler are bound before the bot exists.
	var (
		h        *handler.Handler
		tgLogger *telegram.TelegramLogger
	)

	a, err := newApp(ctx, cfg, session.Hooks{
		OnFailure: func(scope, op string, err error) { tgLogger.LogFailure(scope, op, err) },
		OnReset:   func(scope string) { tgLogger.LogSessionReset(scope) },
	})
	if err != nil {
		return err
	}
	defer a.Close()

	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(func(r any) {
				tgLogger.LogError(fmt.Errorf("panic: %v", r), "update handler")
			}),
			middleware.SessionLoader(a.sessions),
			middleware.Logging(),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil {
				return
			}
			h.HandleDefault(ctx, b, update)
		}),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("get bot info: %w", err)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	tgLogger = telegram.NewTelegramLogger(b, cfg)

	h = handler.New(handler.Deps{
		Bot:         b,
		Cfg:         cfg,
		Sessions:    a.sessions,
		TgLogger:    tgLogger,
		BotUsername: me.Username,
	})
	h.Register()

	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Warn("drop pending updates", "error", err)
		}
	}

	slog.Info("starting bot", "username", me.Username, "id", me.ID)
	b.Start(ctx)

	slog.Info("bot stopped gracefully")
	return nil
}
