// Package store defines the persistence contract shared by the sqlite and
// postgres backends.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ad/persona-onboarding/internal/models"
	"github.com/ad/persona-onboarding/internal/wizard"
)

var ErrNotFound = errors.New("store: not found")

type PersonaStore interface {
	CreatePersona(ctx context.Context, persona *models.Persona) error
	GetPersona(ctx context.Context, id string) (*models.Persona, error)
	GetPersonaByTelegramUserID(ctx context.Context, telegramUserID int64) (*models.Persona, error)
	UpdatePersonaName(ctx context.Context, id, displayName string) error
}

type StepStore interface {
	SaveSubmission(ctx context.Context, personaID string, step int, payload json.RawMessage) error
	ListSubmissions(ctx context.Context, personaID string) ([]*models.StepSubmission, error)
	SaveUpload(ctx context.Context, upload *models.ResumeUpload) (bool, error)
	GetUpload(ctx context.Context, personaID string) (*models.ResumeUpload, error)
	MarkSubmitted(ctx context.Context, personaID string, step int) error
	MarkSkipped(ctx context.Context, personaID string, step int) error
	GetPersonaProgress(ctx context.Context, personaID string) ([]*models.StepProgress, error)
}

type ChatStateStore interface {
	SaveChatState(ctx context.Context, state *models.ChatState) error
	GetChatState(ctx context.Context, telegramUserID int64) (*models.ChatState, error)
	UpdatePromptMessageID(ctx context.Context, telegramUserID int64, messageID int) error
}

type Store interface {
	wizard.CheckpointStore
	PersonaStore
	StepStore
	ChatStateStore
	Close() error
}
