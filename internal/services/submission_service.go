package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"

	"github.com/ad/persona-onboarding/internal/models"
	"github.com/ad/persona-onboarding/internal/store"
	"github.com/ad/persona-onboarding/internal/wizard"
)

const DefaultMaxUploadSize = 10 << 20

// SubmissionService is the per-step endpoint behind the wizard. Step kinds
// decide where a payload lands: uploads go to resume_uploads, everything
// else to step_submissions.
type SubmissionService struct {
	steps         store.StepStore
	registry      *wizard.Registry
	maxUploadSize int64
}

var (
	_ wizard.Submitter    = (*SubmissionService)(nil)
	_ wizard.SkipRecorder = (*SubmissionService)(nil)
)

func NewSubmissionService(steps store.StepStore, registry *wizard.Registry, maxUploadSize int64) *SubmissionService {
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	return &SubmissionService{
		steps:         steps,
		registry:      registry,
		maxUploadSize: maxUploadSize,
	}
}

func (s *SubmissionService) SubmitStep(ctx context.Context, personaID string, step int, payload models.Payload) error {
	def, ok := s.registry.Get(step)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownStep, step)
	}

	var err error
	if def.IsUpload() {
		err = s.saveUpload(ctx, personaID, payload.Upload)
	} else {
		err = s.saveData(ctx, personaID, step, payload.Data)
	}
	if err != nil {
		return err
	}

	if err := s.steps.MarkSubmitted(ctx, personaID, step); err != nil {
		return fmt.Errorf("mark step %d submitted: %w", step, err)
	}
	return nil
}

func (s *SubmissionService) RecordSkip(ctx context.Context, personaID string, step int) error {
	if _, ok := s.registry.Get(step); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownStep, step)
	}
	return s.steps.MarkSkipped(ctx, personaID, step)
}

func (s *SubmissionService) saveUpload(ctx context.Context, personaID string, upload *models.Upload) error {
	if upload == nil || len(upload.Content) == 0 {
		return ErrUploadRequired
	}
	size := int64(len(upload.Content))
	if size > s.maxUploadSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrUploadTooLarge, size, s.maxUploadSize)
	}

	sum := sha256.Sum256(upload.Content)
	written, err := s.steps.SaveUpload(ctx, &models.ResumeUpload{
		PersonaID:   personaID,
		FileName:    upload.FileName,
		ContentType: upload.ContentType,
		Size:        size,
		SHA256:      hex.EncodeToString(sum[:]),
		Content:     upload.Content,
	})
	if err != nil {
		return fmt.Errorf("save resume upload: %w", err)
	}
	if !written {
		log.Printf("[SESSION] Resume upload for persona %s unchanged, skipping write", personaID)
	}
	return nil
}

func (s *SubmissionService) saveData(ctx context.Context, personaID string, step int, data json.RawMessage) error {
	if len(data) == 0 {
		return ErrEmptyPayload
	}
	if !json.Valid(data) {
		return ErrInvalidJSON
	}
	if err := s.steps.SaveSubmission(ctx, personaID, step, data); err != nil {
		return fmt.Errorf("save step %d submission: %w", step, err)
	}
	return nil
}
