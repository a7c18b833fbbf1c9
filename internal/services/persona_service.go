package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/ad/persona-onboarding/internal/models"
	"github.com/ad/persona-onboarding/internal/store"
	"github.com/ad/persona-onboarding/internal/wizard"
	"github.com/google/uuid"
)

type PersonaOverview struct {
	Persona           *models.Persona
	LastCompletedStep int
	ResumeStep        int
	TotalSteps        int
	Progress          []*models.StepProgress
	SubmittedSteps    int
	SkippedSteps      int
	Upload            *models.ResumeUpload
}

func (o *PersonaOverview) IsCompleted() bool {
	return o.LastCompletedStep >= o.TotalSteps
}

type PersonaService struct {
	store    store.Store
	registry *wizard.Registry
}

func NewPersonaService(s store.Store, registry *wizard.Registry) *PersonaService {
	return &PersonaService{store: s, registry: registry}
}

func (s *PersonaService) Create(ctx context.Context, displayName string) (*models.Persona, error) {
	persona := &models.Persona{
		ID:          uuid.NewString(),
		DisplayName: strings.TrimSpace(displayName),
	}
	if err := s.store.CreatePersona(ctx, persona); err != nil {
		return nil, fmt.Errorf("create persona: %w", err)
	}
	log.Printf("[SESSION] Created persona %s", persona.Label())
	return persona, nil
}

// EnsureForTelegram returns the persona bound to a Telegram user, creating
// it on first contact and keeping the display name current.
func (s *PersonaService) EnsureForTelegram(ctx context.Context, telegramUserID int64, displayName string) (*models.Persona, error) {
	displayName = strings.TrimSpace(displayName)

	persona, err := s.store.GetPersonaByTelegramUserID(ctx, telegramUserID)
	if err == nil {
		if displayName != "" && persona.DisplayName != displayName {
			if err := s.store.UpdatePersonaName(ctx, persona.ID, displayName); err != nil {
				log.Printf("[SESSION] Failed to update name of persona %s: %v", persona.ID, err)
			} else {
				persona.DisplayName = displayName
			}
		}
		return persona, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get persona for telegram user %d: %w", telegramUserID, err)
	}

	persona = &models.Persona{
		ID:             uuid.NewString(),
		DisplayName:    displayName,
		TelegramUserID: telegramUserID,
	}
	if err := s.store.CreatePersona(ctx, persona); err != nil {
		// Another update for the same user may have won the insert.
		existing, getErr := s.store.GetPersonaByTelegramUserID(ctx, telegramUserID)
		if getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create persona for telegram user %d: %w", telegramUserID, err)
	}
	log.Printf("[SESSION] Created persona %s for telegram user %d", persona.ID, telegramUserID)
	return persona, nil
}

func (s *PersonaService) Get(ctx context.Context, id string) (*models.Persona, error) {
	return s.store.GetPersona(ctx, id)
}

func (s *PersonaService) Overview(ctx context.Context, id string) (*PersonaOverview, error) {
	persona, err := s.store.GetPersona(ctx, id)
	if err != nil {
		return nil, err
	}

	cp, err := s.store.LoadCheckpoint(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	progress, err := s.store.GetPersonaProgress(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	total := s.registry.Len()
	overview := &PersonaOverview{
		Persona:    persona,
		TotalSteps: total,
		ResumeStep: wizard.ResumeStep(cp, total),
		Progress:   progress,
	}
	if cp != nil {
		overview.LastCompletedStep = min(cp.LastCompletedStep, total)
	}
	for _, p := range progress {
		switch p.Status {
		case models.StatusSubmitted:
			overview.SubmittedSteps++
		case models.StatusSkipped:
			overview.SkippedSteps++
		}
	}

	upload, err := s.store.GetUpload(ctx, id)
	switch {
	case err == nil:
		upload.Content = nil
		overview.Upload = upload
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("load resume upload: %w", err)
	}

	return overview, nil
}
