package db

import (
	"context"
	"database/sql"

	"github.com/ad/persona-onboarding/internal/models"
)

type ChatStateRepository struct {
	queue *DBQueue
}

func NewChatStateRepository(queue *DBQueue) *ChatStateRepository {
	return &ChatStateRepository{queue: queue}
}

func (r *ChatStateRepository) Save(ctx context.Context, state *models.ChatState) error {
	_, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		_, err := db.ExecContext(ctx, `
			INSERT INTO telegram_chat_state (telegram_user_id, persona_id, last_prompt_message_id)
			VALUES (?, ?, ?)
			ON CONFLICT(telegram_user_id) DO UPDATE SET
				persona_id = excluded.persona_id,
				last_prompt_message_id = excluded.last_prompt_message_id
		`, state.TelegramUserID, state.PersonaID, state.LastPromptMessageID)
		return nil, err
	})
	return err
}

func (r *ChatStateRepository) Get(ctx context.Context, telegramUserID int64) (*models.ChatState, error) {
	result, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		var state models.ChatState
		var promptMsgID sql.NullInt64
		err := db.QueryRowContext(ctx, `
			SELECT telegram_user_id, persona_id, last_prompt_message_id
			FROM telegram_chat_state WHERE telegram_user_id = ?
		`, telegramUserID).Scan(&state.TelegramUserID, &state.PersonaID, &promptMsgID)
		if err != nil {
			return nil, err
		}
		state.LastPromptMessageID = int(promptMsgID.Int64)
		return &state, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.ChatState), nil
}

func (r *ChatStateRepository) UpdatePromptMessageID(ctx context.Context, telegramUserID int64, messageID int) error {
	_, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		_, err := db.ExecContext(ctx, `
			UPDATE telegram_chat_state SET last_prompt_message_id = ?
			WHERE telegram_user_id = ?
		`, messageID, telegramUserID)
		return nil, err
	})
	return err
}
