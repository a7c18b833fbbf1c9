package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ad/persona-onboarding/internal/models"
)

type CheckpointRepository struct {
	queue *DBQueue
}

func NewCheckpointRepository(queue *DBQueue) *CheckpointRepository {
	return &CheckpointRepository{queue: queue}
}

// LoadCheckpoint returns nil without error when the persona has no checkpoint.
func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, personaID string) (*models.Checkpoint, error) {
	result, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		var cp models.Checkpoint
		err := db.QueryRowContext(ctx, `
			SELECT persona_id, last_completed_step, updated_at
			FROM onboarding_checkpoints WHERE persona_id = ?
		`, personaID).Scan(&cp.PersonaID, &cp.LastCompletedStep, &cp.UpdatedAt)
		if err != nil {
			return nil, err
		}
		return &cp, nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result.(*models.Checkpoint), nil
}

// SaveCheckpoint upserts the checkpoint. A lower step never overwrites a
// higher one, so repeated or stale writes are harmless.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, personaID string, lastCompletedStep int) error {
	_, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		_, err := db.ExecContext(ctx, `
			INSERT INTO onboarding_checkpoints (persona_id, last_completed_step, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(persona_id) DO UPDATE SET
				last_completed_step = MAX(last_completed_step, excluded.last_completed_step),
				updated_at = excluded.updated_at
		`, personaID, lastCompletedStep, time.Now().UTC())
		return nil, err
	})
	return err
}
