package services

import (
	"context"
	"errors"
	"log"

	"github.com/ad/persona-onboarding/internal/models"
	"github.com/ad/persona-onboarding/internal/store"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

type MessageManager struct {
	bot        TelegramAPI
	chatStates store.ChatStateStore
	errMgr     *ErrorManager
	maxRetry   int
}

func NewMessageManager(b TelegramAPI, chatStates store.ChatStateStore, errMgr *ErrorManager) *MessageManager {
	return &MessageManager{
		bot:        b,
		chatStates: chatStates,
		errMgr:     errMgr,
		maxRetry:   2,
	}
}

func (m *MessageManager) SendWithRetry(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	var lastErr error
	for attempt := 0; attempt < m.maxRetry; attempt++ {
		msg, err := m.bot.SendMessage(ctx, params)
		if err == nil {
			return msg, nil
		}
		lastErr = err
	}
	chatID, _ := params.ChatID.(int64)
	m.errMgr.NotifyAdminWithCurl(ctx, chatID, params, lastErr)
	return nil, lastErr
}

func (m *MessageManager) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := m.SendWithRetry(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

// SendPrompt replaces the previous step prompt in the chat with a new one,
// so only the current step keeps its buttons.
func (m *MessageManager) SendPrompt(ctx context.Context, userID int64, text string, keyboard *tgmodels.InlineKeyboardMarkup) error {
	m.DeletePreviousPrompt(ctx, userID)

	params := &bot.SendMessageParams{
		ChatID: userID,
		Text:   text,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	msg, err := m.SendWithRetry(ctx, params)
	if err != nil {
		return err
	}

	if err := m.chatStates.UpdatePromptMessageID(ctx, userID, msg.ID); err != nil {
		log.Printf("[BOT] Failed to remember prompt message for user %d: %v", userID, err)
	}
	return nil
}

func (m *MessageManager) DeletePreviousPrompt(ctx context.Context, userID int64) {
	state, err := m.chatStates.GetChatState(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[BOT] Failed to load chat state for user %d: %v", userID, err)
		}
		return
	}
	if state.LastPromptMessageID != 0 {
		_ = m.DeleteMessage(ctx, userID, state.LastPromptMessageID)
	}
}

func (m *MessageManager) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := m.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	})
	return err
}

// BindChat records which persona a Telegram user is onboarding.
func (m *MessageManager) BindChat(ctx context.Context, userID int64, personaID string) error {
	state, err := m.chatStates.GetChatState(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	next := &models.ChatState{TelegramUserID: userID, PersonaID: personaID}
	if state != nil && state.PersonaID == personaID {
		next.LastPromptMessageID = state.LastPromptMessageID
	}
	return m.chatStates.SaveChatState(ctx, next)
}
