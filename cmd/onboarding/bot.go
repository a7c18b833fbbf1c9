package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ad/persona-onboarding/internal/handlers"
	"github.com/ad/persona-onboarding/internal/services"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/spf13/cobra"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the onboarding wizard as a Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.ValidateBot(); err != nil {
			return err
		}

		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		httpClient := &http.Client{
			Timeout: 30 * time.Second,
		}

		b, err := bot.New(cfg.BotToken, bot.WithHTTPClient(15*time.Second, httpClient))
		if err != nil {
			return fmt.Errorf("create bot: %w", err)
		}

		if err := connect(ctx, b); err != nil {
			return err
		}

		a := newApp(cfg, s)
		errorManager := services.NewErrorManager(b, cfg.AdminID)
		msgManager := services.NewMessageManager(b, s, errorManager)

		handler := handlers.NewBotHandler(
			b,
			cfg.AdminID,
			errorManager,
			msgManager,
			a.personas,
			a.sessions,
			s,
			a.registry,
			services.NewTelegramFileFetcher(b),
			cfg.MaxUploadSize,
		)

		b.RegisterHandlerMatchFunc(func(update *tgmodels.Update) bool {
			return true
		}, handler.HandleUpdate, logMiddleware)

		log.Printf("[BOT] Bot started. Admin ID: %d, DB driver: %s", cfg.AdminID, cfg.DBDriver)
		b.Start(ctx)
		return nil
	},
}

// connect retries getMe so a slow Telegram API does not kill startup.
func connect(ctx context.Context, b *bot.Bot) error {
	var err error
	for i := 0; i < 3; i++ {
		log.Printf("[BOT] Attempting to connect to Telegram API (attempt %d/3)...", i+1)
		getMeCtx, getMeCancel := context.WithTimeout(ctx, 10*time.Second)
		var me *tgmodels.User
		me, err = b.GetMe(getMeCtx)
		getMeCancel()
		if err == nil {
			log.Printf("[BOT] Connected as @%s", me.Username)
			return nil
		}
		log.Printf("[BOT] Failed to get bot info (attempt %d/3): %v", i+1, err)
		if i < 2 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
	return fmt.Errorf("get bot info after 3 attempts: %w", err)
}

func formatUser(u tgmodels.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if u.Username != "" {
		name += " @" + u.Username
	}
	return fmt.Sprintf("%s [%d]", name, u.ID)
}

func logMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
		if update.Message != nil && update.Message.From != nil {
			text := update.Message.Text
			if update.Message.Document != nil {
				text = "[document] " + update.Message.Document.FileName
			}
			log.Printf("[MSG] from=%s text=%q", formatUser(*update.Message.From), text)
		}
		if update.CallbackQuery != nil {
			log.Printf("[CALLBACK] from=%s data=%q", formatUser(update.CallbackQuery.From), update.CallbackQuery.Data)
		}
		next(ctx, b, update)
	}
}
