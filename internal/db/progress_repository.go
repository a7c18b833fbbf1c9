package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/ad/persona-onboarding/internal/models"
)

type ProgressRepository struct {
	queue *DBQueue
}

func NewProgressRepository(queue *DBQueue) *ProgressRepository {
	return &ProgressRepository{queue: queue}
}

func (r *ProgressRepository) MarkSubmitted(ctx context.Context, personaID string, step int) error {
	return r.mark(ctx, personaID, step, models.StatusSubmitted)
}

// MarkSkipped never downgrades a step that already has submitted data.
func (r *ProgressRepository) MarkSkipped(ctx context.Context, personaID string, step int) error {
	_, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		_, err := db.ExecContext(ctx, `
			INSERT INTO step_progress (persona_id, step_index, status, completed_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(persona_id, step_index) DO UPDATE SET
				completed_at = excluded.completed_at
			WHERE step_progress.status = excluded.status
		`, personaID, step, models.StatusSkipped, time.Now().UTC())
		return nil, err
	})
	return err
}

func (r *ProgressRepository) mark(ctx context.Context, personaID string, step int, status models.ProgressStatus) error {
	_, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		_, err := db.ExecContext(ctx, `
			INSERT INTO step_progress (persona_id, step_index, status, completed_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(persona_id, step_index) DO UPDATE SET
				status = excluded.status,
				completed_at = excluded.completed_at
		`, personaID, step, status, time.Now().UTC())
		return nil, err
	})
	return err
}

func (r *ProgressRepository) GetByPersonaAndStep(ctx context.Context, personaID string, step int) (*models.StepProgress, error) {
	result, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		row := db.QueryRowContext(ctx, `
			SELECT persona_id, step_index, status, completed_at
			FROM step_progress WHERE persona_id = ? AND step_index = ?
		`, personaID, step)
		return scanProgress(row)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.StepProgress), nil
}

func (r *ProgressRepository) GetPersonaProgress(ctx context.Context, personaID string) ([]*models.StepProgress, error) {
	result, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		rows, err := db.QueryContext(ctx, `
			SELECT persona_id, step_index, status, completed_at
			FROM step_progress WHERE persona_id = ?
			ORDER BY step_index
		`, personaID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var progresses []*models.StepProgress
		for rows.Next() {
			progress, err := scanProgress(rows)
			if err != nil {
				return nil, err
			}
			progresses = append(progresses, progress)
		}
		return progresses, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.StepProgress), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProgress(row rowScanner) (*models.StepProgress, error) {
	var progress models.StepProgress
	var completedAt sql.NullTime
	if err := row.Scan(&progress.PersonaID, &progress.StepIndex, &progress.Status, &completedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		progress.CompletedAt = &completedAt.Time
	}
	return &progress, nil
}
