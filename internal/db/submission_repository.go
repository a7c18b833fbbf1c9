package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/ad/persona-onboarding/internal/models"
)

type SubmissionRepository struct {
	queue *DBQueue
}

func NewSubmissionRepository(queue *DBQueue) *SubmissionRepository {
	return &SubmissionRepository{queue: queue}
}

// Upsert keeps one row per persona and step, so resubmitting the same
// payload is a no-op in effect.
func (r *SubmissionRepository) Upsert(ctx context.Context, personaID string, step int, payload json.RawMessage) error {
	_, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		_, err := db.ExecContext(ctx, `
			INSERT INTO step_submissions (persona_id, step_index, payload, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(persona_id, step_index) DO UPDATE SET
				payload = excluded.payload,
				updated_at = excluded.updated_at
		`, personaID, step, string(payload), time.Now().UTC())
		return nil, err
	})
	return err
}

func (r *SubmissionRepository) Get(ctx context.Context, personaID string, step int) (*models.StepSubmission, error) {
	result, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		row := db.QueryRowContext(ctx, `
			SELECT persona_id, step_index, payload, updated_at
			FROM step_submissions WHERE persona_id = ? AND step_index = ?
		`, personaID, step)
		return scanSubmission(row)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.StepSubmission), nil
}

func (r *SubmissionRepository) ListByPersona(ctx context.Context, personaID string) ([]*models.StepSubmission, error) {
	result, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		rows, err := db.QueryContext(ctx, `
			SELECT persona_id, step_index, payload, updated_at
			FROM step_submissions WHERE persona_id = ?
			ORDER BY step_index
		`, personaID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var submissions []*models.StepSubmission
		for rows.Next() {
			submission, err := scanSubmission(rows)
			if err != nil {
				return nil, err
			}
			submissions = append(submissions, submission)
		}
		return submissions, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.StepSubmission), nil
}

func scanSubmission(row rowScanner) (*models.StepSubmission, error) {
	var submission models.StepSubmission
	var payload string
	if err := row.Scan(&submission.PersonaID, &submission.StepIndex, &payload, &submission.UpdatedAt); err != nil {
		return nil, err
	}
	submission.Payload = json.RawMessage(payload)
	return &submission, nil
}
