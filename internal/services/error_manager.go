package services

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type ErrorManager struct {
	bot     TelegramAPI
	adminID int64
}

func NewErrorManager(b TelegramAPI, adminID int64) *ErrorManager {
	return &ErrorManager{
		bot:     b,
		adminID: adminID,
	}
}

func (e *ErrorManager) NotifyAdmin(ctx context.Context, panicValue interface{}, update *models.Update, stepInfo string) {
	if stepInfo == "" {
		stepInfo = "unknown"
	}

	msg := fmt.Sprintf("🚨 Panic in handler\nUser: %s\nStep: %s\nError: %v\n\nStack trace:\n%s",
		describeUpdateSender(update), stepInfo, panicValue, string(debug.Stack()))

	e.send(ctx, msg)
}

func (e *ErrorManager) NotifyAdminWithCurl(ctx context.Context, chatID int64, request interface{}, err error) {
	curl := e.buildCurlCommand(request)

	msg := fmt.Sprintf("❌ Failed to send message\nUser: [%d]\nError: %v\n\nCurl:\n%s",
		chatID, err, curl)

	e.send(ctx, msg)
}

func (e *ErrorManager) send(ctx context.Context, msg string) {
	if len(msg) > 4000 {
		msg = msg[:4000] + "\n... (truncated)"
	}

	_, _ = e.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: e.adminID,
		Text:   msg,
	})
}

func (e *ErrorManager) buildCurlCommand(request interface{}) string {
	jsonData, err := json.MarshalIndent(request, "", "  ")
	if err != nil {
		return fmt.Sprintf("# Failed to serialize request: %v", err)
	}

	return fmt.Sprintf("curl -X POST 'https://api.telegram.org/bot[BOT_TOKEN]/sendMessage' \\\n  -H 'Content-Type: application/json' \\\n  -d '%s'",
		string(jsonData))
}

func describeUpdateSender(update *models.Update) string {
	if update == nil {
		return "unknown"
	}

	var from *models.User
	switch {
	case update.Message != nil && update.Message.From != nil:
		from = update.Message.From
	case update.CallbackQuery != nil && update.CallbackQuery.From.ID != 0:
		from = &update.CallbackQuery.From
	default:
		return "unknown"
	}

	info := fmt.Sprintf("[%d]", from.ID)
	if from.FirstName != "" {
		info = from.FirstName + " " + info
	}
	if from.Username != "" {
		info = info + " @" + from.Username
	}
	return info
}
