// Package pgstore is the postgres implementation of store.Store, built on gorm.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/ad/persona-onboarding/internal/models"
	"github.com/ad/persona-onboarding/internal/store"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	s := New(db)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	log.Println("[DB] Postgres connection established")
	return s, nil
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Persona{}, &Checkpoint{}, &StepProgress{}, &StepSubmission{}, &ResumeUpload{}, &TelegramChatState{})
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) LoadCheckpoint(ctx context.Context, personaID string) (*models.Checkpoint, error) {
	var row Checkpoint
	err := s.db.WithContext(ctx).Where("persona_id = ?", personaID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.Checkpoint{PersonaID: row.PersonaID, LastCompletedStep: row.LastCompletedStep, UpdatedAt: row.UpdatedAt}, nil
}

func (s *Store) SaveCheckpoint(ctx context.Context, personaID string, lastCompletedStep int) error {
	row := Checkpoint{PersonaID: personaID, LastCompletedStep: lastCompletedStep, UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "persona_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_completed_step": gorm.Expr("GREATEST(onboarding_checkpoints.last_completed_step, EXCLUDED.last_completed_step)"),
			"updated_at":          gorm.Expr("EXCLUDED.updated_at"),
		}),
	}).Create(&row).Error
}

func (s *Store) CreatePersona(ctx context.Context, persona *models.Persona) error {
	if persona.CreatedAt.IsZero() {
		persona.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(fromPersona(persona)).Error
}

func (s *Store) GetPersona(ctx context.Context, id string) (*models.Persona, error) {
	return s.getPersona(ctx, "id = ?", id)
}

func (s *Store) GetPersonaByTelegramUserID(ctx context.Context, telegramUserID int64) (*models.Persona, error) {
	return s.getPersona(ctx, "telegram_user_id = ?", telegramUserID)
}

func (s *Store) UpdatePersonaName(ctx context.Context, id, displayName string) error {
	res := s.db.WithContext(ctx).Model(&Persona{}).Where("id = ?", id).Update("display_name", displayName)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) getPersona(ctx context.Context, query string, arg interface{}) (*models.Persona, error) {
	var row Persona
	if err := s.db.WithContext(ctx).Where(query, arg).Take(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

func (s *Store) SaveSubmission(ctx context.Context, personaID string, step int, payload json.RawMessage) error {
	row := StepSubmission{PersonaID: personaID, StepIndex: step, Payload: string(payload), UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "persona_id"}, {Name: "step_index"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
}

func (s *Store) ListSubmissions(ctx context.Context, personaID string) ([]*models.StepSubmission, error) {
	var rows []StepSubmission
	if err := s.db.WithContext(ctx).Where("persona_id = ?", personaID).Order("step_index").Find(&rows).Error; err != nil {
		return nil, err
	}
	submissions := make([]*models.StepSubmission, 0, len(rows))
	for _, row := range rows {
		submissions = append(submissions, &models.StepSubmission{
			PersonaID: row.PersonaID,
			StepIndex: row.StepIndex,
			Payload:   json.RawMessage(row.Payload),
			UpdatedAt: row.UpdatedAt,
		})
	}
	return submissions, nil
}

func (s *Store) SaveUpload(ctx context.Context, upload *models.ResumeUpload) (bool, error) {
	if upload.UploadedAt.IsZero() {
		upload.UploadedAt = time.Now().UTC()
	}
	row := ResumeUpload{
		PersonaID:   upload.PersonaID,
		FileName:    upload.FileName,
		ContentType: upload.ContentType,
		Size:        upload.Size,
		SHA256:      upload.SHA256,
		Content:     upload.Content,
		UploadedAt:  upload.UploadedAt,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "persona_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"file_name", "content_type", "size", "sha256", "content", "uploaded_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("resume_uploads.sha256 <> EXCLUDED.sha256"),
		}},
	}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) GetUpload(ctx context.Context, personaID string) (*models.ResumeUpload, error) {
	var row ResumeUpload
	if err := s.db.WithContext(ctx).Where("persona_id = ?", personaID).Take(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &models.ResumeUpload{
		PersonaID:   row.PersonaID,
		FileName:    row.FileName,
		ContentType: row.ContentType,
		Size:        row.Size,
		SHA256:      row.SHA256,
		Content:     row.Content,
		UploadedAt:  row.UploadedAt,
	}, nil
}

func (s *Store) MarkSubmitted(ctx context.Context, personaID string, step int) error {
	now := time.Now().UTC()
	row := StepProgress{PersonaID: personaID, StepIndex: step, Status: string(models.StatusSubmitted), CompletedAt: &now}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "persona_id"}, {Name: "step_index"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "completed_at"}),
	}).Create(&row).Error
}

func (s *Store) MarkSkipped(ctx context.Context, personaID string, step int) error {
	now := time.Now().UTC()
	row := StepProgress{PersonaID: personaID, StepIndex: step, Status: string(models.StatusSkipped), CompletedAt: &now}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "persona_id"}, {Name: "step_index"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("step_progress.status = EXCLUDED.status"),
		}},
	}).Create(&row).Error
}

func (s *Store) GetPersonaProgress(ctx context.Context, personaID string) ([]*models.StepProgress, error) {
	var rows []StepProgress
	if err := s.db.WithContext(ctx).Where("persona_id = ?", personaID).Order("step_index").Find(&rows).Error; err != nil {
		return nil, err
	}
	progress := make([]*models.StepProgress, 0, len(rows))
	for _, row := range rows {
		progress = append(progress, &models.StepProgress{
			PersonaID:   row.PersonaID,
			StepIndex:   row.StepIndex,
			Status:      models.ProgressStatus(row.Status),
			CompletedAt: row.CompletedAt,
		})
	}
	return progress, nil
}

func (s *Store) SaveChatState(ctx context.Context, state *models.ChatState) error {
	row := TelegramChatState{TelegramUserID: state.TelegramUserID, PersonaID: state.PersonaID, LastPromptMessageID: state.LastPromptMessageID}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"persona_id", "last_prompt_message_id"}),
	}).Create(&row).Error
}

func (s *Store) GetChatState(ctx context.Context, telegramUserID int64) (*models.ChatState, error) {
	var row TelegramChatState
	if err := s.db.WithContext(ctx).Where("telegram_user_id = ?", telegramUserID).Take(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &models.ChatState{TelegramUserID: row.TelegramUserID, PersonaID: row.PersonaID, LastPromptMessageID: row.LastPromptMessageID}, nil
}

func (s *Store) UpdatePromptMessageID(ctx context.Context, telegramUserID int64, messageID int) error {
	return s.db.WithContext(ctx).Model(&TelegramChatState{}).
		Where("telegram_user_id = ?", telegramUserID).
		Update("last_prompt_message_id", messageID).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}
