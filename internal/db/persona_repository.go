package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/ad/persona-onboarding/internal/models"
)

type PersonaRepository struct {
	queue *DBQueue
}

func NewPersonaRepository(queue *DBQueue) *PersonaRepository {
	return &PersonaRepository{queue: queue}
}

func (r *PersonaRepository) Create(ctx context.Context, persona *models.Persona) error {
	if persona.CreatedAt.IsZero() {
		persona.CreatedAt = time.Now().UTC()
	}
	_, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		_, err := db.ExecContext(ctx, `
			INSERT INTO personas (id, display_name, telegram_user_id, created_at)
			VALUES (?, ?, ?, ?)
		`, persona.ID, persona.DisplayName, nullableTelegramID(persona.TelegramUserID), persona.CreatedAt)
		return nil, err
	})
	return err
}

func (r *PersonaRepository) UpdateDisplayName(ctx context.Context, id, displayName string) error {
	_, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		res, err := db.ExecContext(ctx, `UPDATE personas SET display_name = ? WHERE id = ?`, displayName, id)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, sql.ErrNoRows
		}
		return nil, nil
	})
	return err
}

func (r *PersonaRepository) GetByID(ctx context.Context, id string) (*models.Persona, error) {
	return r.getOne(ctx, `
		SELECT id, display_name, telegram_user_id, created_at
		FROM personas WHERE id = ?
	`, id)
}

func (r *PersonaRepository) GetByTelegramUserID(ctx context.Context, telegramUserID int64) (*models.Persona, error) {
	return r.getOne(ctx, `
		SELECT id, display_name, telegram_user_id, created_at
		FROM personas WHERE telegram_user_id = ?
	`, telegramUserID)
}

func (r *PersonaRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.Persona, error) {
	result, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		var persona models.Persona
		var displayName sql.NullString
		var telegramUserID sql.NullInt64
		err := db.QueryRowContext(ctx, query, arg).Scan(&persona.ID, &displayName, &telegramUserID, &persona.CreatedAt)
		if err != nil {
			return nil, err
		}
		persona.DisplayName = displayName.String
		persona.TelegramUserID = telegramUserID.Int64
		return &persona, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Persona), nil
}

func nullableTelegramID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
