package pgstore

import (
	"time"

	"github.com/ad/persona-onboarding/internal/models"
)

type Persona struct {
	ID             string `gorm:"primaryKey;type:uuid"`
	DisplayName    string `gorm:"not null;default:''"`
	TelegramUserID *int64 `gorm:"uniqueIndex"`
	CreatedAt      time.Time
}

type Checkpoint struct {
	PersonaID         string `gorm:"primaryKey;type:uuid"`
	LastCompletedStep int    `gorm:"not null;default:0"`
	UpdatedAt         time.Time
}

func (Checkpoint) TableName() string { return "onboarding_checkpoints" }

type StepProgress struct {
	PersonaID   string `gorm:"primaryKey;type:uuid"`
	StepIndex   int    `gorm:"primaryKey"`
	Status      string `gorm:"not null"`
	CompletedAt *time.Time
}

func (StepProgress) TableName() string { return "step_progress" }

type StepSubmission struct {
	PersonaID string `gorm:"primaryKey;type:uuid"`
	StepIndex int    `gorm:"primaryKey"`
	Payload   string `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

type ResumeUpload struct {
	PersonaID   string `gorm:"primaryKey;type:uuid"`
	FileName    string `gorm:"not null"`
	ContentType string `gorm:"not null;default:''"`
	Size        int64  `gorm:"not null"`
	SHA256      string `gorm:"column:sha256;not null"`
	Content     []byte `gorm:"type:bytea;not null"`
	UploadedAt  time.Time
}

type TelegramChatState struct {
	TelegramUserID      int64  `gorm:"primaryKey;autoIncrement:false"`
	PersonaID           string `gorm:"type:uuid;not null"`
	LastPromptMessageID int    `gorm:"not null;default:0"`
}

func (TelegramChatState) TableName() string { return "telegram_chat_state" }

func (p *Persona) toModel() *models.Persona {
	persona := &models.Persona{ID: p.ID, DisplayName: p.DisplayName, CreatedAt: p.CreatedAt}
	if p.TelegramUserID != nil {
		persona.TelegramUserID = *p.TelegramUserID
	}
	return persona
}

func fromPersona(p *models.Persona) *Persona {
	row := &Persona{ID: p.ID, DisplayName: p.DisplayName, CreatedAt: p.CreatedAt}
	if p.TelegramUserID != 0 {
		id := p.TelegramUserID
		row.TelegramUserID = &id
	}
	return row
}
