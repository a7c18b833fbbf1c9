package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/ad/persona-onboarding/internal/models"
	"github.com/ad/persona-onboarding/internal/store"
	_ "modernc.org/sqlite"
)

// Store bundles the sqlite repositories behind store.Store.
type Store struct {
	queue *DBQueue

	Personas    *PersonaRepository
	Checkpoints *CheckpointRepository
	Progress    *ProgressRepository
	Submissions *SubmissionRepository
	Uploads     *UploadRepository
	ChatStates  *ChatStateRepository
}

var _ store.Store = (*Store)(nil)

func NewStore(queue *DBQueue) *Store {
	return &Store{
		queue:       queue,
		Personas:    NewPersonaRepository(queue),
		Checkpoints: NewCheckpointRepository(queue),
		Progress:    NewProgressRepository(queue),
		Submissions: NewSubmissionRepository(queue),
		Uploads:     NewUploadRepository(queue),
		ChatStates:  NewChatStateRepository(queue),
	}
}

// Open opens the sqlite file at path, applies the schema and starts the queue.
func Open(path string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	if err := InitSchema(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return NewStore(NewDBQueue(sqlDB)), nil
}

func (s *Store) Close() error {
	s.queue.Close()
	return s.queue.DB().Close()
}

func (s *Store) LoadCheckpoint(ctx context.Context, personaID string) (*models.Checkpoint, error) {
	return s.Checkpoints.LoadCheckpoint(ctx, personaID)
}

func (s *Store) SaveCheckpoint(ctx context.Context, personaID string, lastCompletedStep int) error {
	return s.Checkpoints.SaveCheckpoint(ctx, personaID, lastCompletedStep)
}

func (s *Store) CreatePersona(ctx context.Context, persona *models.Persona) error {
	return s.Personas.Create(ctx, persona)
}

func (s *Store) GetPersona(ctx context.Context, id string) (*models.Persona, error) {
	persona, err := s.Personas.GetByID(ctx, id)
	return persona, notFound(err)
}

func (s *Store) GetPersonaByTelegramUserID(ctx context.Context, telegramUserID int64) (*models.Persona, error) {
	persona, err := s.Personas.GetByTelegramUserID(ctx, telegramUserID)
	return persona, notFound(err)
}

func (s *Store) UpdatePersonaName(ctx context.Context, id, displayName string) error {
	return notFound(s.Personas.UpdateDisplayName(ctx, id, displayName))
}

func (s *Store) SaveSubmission(ctx context.Context, personaID string, step int, payload json.RawMessage) error {
	return s.Submissions.Upsert(ctx, personaID, step, payload)
}

func (s *Store) ListSubmissions(ctx context.Context, personaID string) ([]*models.StepSubmission, error) {
	return s.Submissions.ListByPersona(ctx, personaID)
}

func (s *Store) SaveUpload(ctx context.Context, upload *models.ResumeUpload) (bool, error) {
	return s.Uploads.Save(ctx, upload)
}

func (s *Store) GetUpload(ctx context.Context, personaID string) (*models.ResumeUpload, error) {
	upload, err := s.Uploads.Get(ctx, personaID)
	return upload, notFound(err)
}

func (s *Store) MarkSubmitted(ctx context.Context, personaID string, step int) error {
	return s.Progress.MarkSubmitted(ctx, personaID, step)
}

func (s *Store) MarkSkipped(ctx context.Context, personaID string, step int) error {
	return s.Progress.MarkSkipped(ctx, personaID, step)
}

func (s *Store) GetPersonaProgress(ctx context.Context, personaID string) ([]*models.StepProgress, error) {
	return s.Progress.GetPersonaProgress(ctx, personaID)
}

func (s *Store) SaveChatState(ctx context.Context, state *models.ChatState) error {
	return s.ChatStates.Save(ctx, state)
}

func (s *Store) GetChatState(ctx context.Context, telegramUserID int64) (*models.ChatState, error) {
	state, err := s.ChatStates.Get(ctx, telegramUserID)
	return state, notFound(err)
}

func (s *Store) UpdatePromptMessageID(ctx context.Context, telegramUserID int64, messageID int) error {
	return s.ChatStates.UpdatePromptMessageID(ctx, telegramUserID, messageID)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
