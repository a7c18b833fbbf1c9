package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/ad/persona-onboarding/internal/models"
)

type UploadRepository struct {
	queue *DBQueue
}

func NewUploadRepository(queue *DBQueue) *UploadRepository {
	return &UploadRepository{queue: queue}
}

// Save stores the persona's resume. It reports false when the stored file
// already has the same hash and nothing was written.
func (r *UploadRepository) Save(ctx context.Context, upload *models.ResumeUpload) (bool, error) {
	if upload.UploadedAt.IsZero() {
		upload.UploadedAt = time.Now().UTC()
	}
	result, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		res, err := db.ExecContext(ctx, `
			INSERT INTO resume_uploads (persona_id, file_name, content_type, size, sha256, content, uploaded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(persona_id) DO UPDATE SET
				file_name = excluded.file_name,
				content_type = excluded.content_type,
				size = excluded.size,
				sha256 = excluded.sha256,
				content = excluded.content,
				uploaded_at = excluded.uploaded_at
			WHERE resume_uploads.sha256 != excluded.sha256
		`, upload.PersonaID, upload.FileName, upload.ContentType, upload.Size, upload.SHA256, upload.Content, upload.UploadedAt)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		return n > 0, nil
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

func (r *UploadRepository) Get(ctx context.Context, personaID string) (*models.ResumeUpload, error) {
	result, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		var upload models.ResumeUpload
		err := db.QueryRowContext(ctx, `
			SELECT persona_id, file_name, content_type, size, sha256, content, uploaded_at
			FROM resume_uploads WHERE persona_id = ?
		`, personaID).Scan(&upload.PersonaID, &upload.FileName, &upload.ContentType, &upload.Size, &upload.SHA256, &upload.Content, &upload.UploadedAt)
		if err != nil {
			return nil, err
		}
		return &upload, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.ResumeUpload), nil
}
