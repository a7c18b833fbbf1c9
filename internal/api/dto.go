package api

import (
	"time"

	"github.com/ad/persona-onboarding/internal/models"
	"github.com/ad/persona-onboarding/internal/services"
	"github.com/ad/persona-onboarding/internal/wizard"
)

type CreatePersonaRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
}

type PersonaResponse struct {
	ID             string    `json:"id"`
	DisplayName    string    `json:"displayName"`
	TelegramUserID int64     `json:"telegramUserId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type StepResponse struct {
	Index     int             `json:"index"`
	Key       string          `json:"key"`
	Name      string          `json:"name"`
	Skippable bool            `json:"skippable"`
	Kind      models.StepKind `json:"kind"`
}

type FormResponse struct {
	Key    string          `json:"key"`
	Kind   models.StepKind `json:"kind"`
	Prompt string          `json:"prompt"`
}

// WizardResponse is what a browser shell renders: the current step plus
// the three actions it may offer.
type WizardResponse struct {
	PersonaID           string        `json:"personaId"`
	Phase               string        `json:"phase"`
	CurrentStep         int           `json:"currentStep"`
	TotalSteps          int           `json:"totalSteps"`
	StepName            string        `json:"stepName"`
	IsStepSkippable     bool          `json:"isStepSkippable"`
	IsLoadingCheckpoint bool          `json:"isLoadingCheckpoint"`
	CanGoBack           bool          `json:"canGoBack"`
	CompletedSteps      []int         `json:"completedSteps"`
	SkippedSteps        []int         `json:"skippedSteps"`
	Form                *FormResponse `json:"form,omitempty"`
	Error               string        `json:"error,omitempty"`
	LoadError           string        `json:"loadError,omitempty"`
}

type ProgressResponse struct {
	StepIndex   int                   `json:"stepIndex"`
	Status      models.ProgressStatus `json:"status"`
	CompletedAt *time.Time            `json:"completedAt,omitempty"`
}

type UploadResponse struct {
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	SHA256      string    `json:"sha256"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

type OverviewResponse struct {
	Persona           PersonaResponse    `json:"persona"`
	LastCompletedStep int                `json:"lastCompletedStep"`
	ResumeStep        int                `json:"resumeStep"`
	TotalSteps        int                `json:"totalSteps"`
	Completed         bool               `json:"completed"`
	Progress          []ProgressResponse `json:"progress"`
	Upload            *UploadResponse    `json:"upload,omitempty"`
}

func toPersonaResponse(p *models.Persona) PersonaResponse {
	return PersonaResponse{
		ID:             p.ID,
		DisplayName:    p.DisplayName,
		TelegramUserID: p.TelegramUserID,
		CreatedAt:      p.CreatedAt,
	}
}

func toWizardResponse(snap wizard.Snapshot, router *wizard.Router) WizardResponse {
	resp := WizardResponse{
		PersonaID:           snap.PersonaID,
		Phase:               string(snap.Phase),
		CurrentStep:         snap.CurrentStep,
		TotalSteps:          snap.TotalSteps,
		StepName:            snap.StepName,
		IsStepSkippable:     snap.IsStepSkippable,
		IsLoadingCheckpoint: snap.IsLoadingCheckpoint,
		CanGoBack:           snap.Phase.AcceptsInput() && snap.CurrentStep > 1,
		CompletedSteps:      snap.CompletedSteps,
		SkippedSteps:        snap.SkippedSteps,
	}
	if form, ok := router.Route(snap.CurrentStep); ok {
		resp.Form = &FormResponse{Key: form.Key(), Kind: form.Kind(), Prompt: form.Prompt()}
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	if snap.LoadErr != nil {
		resp.LoadError = snap.LoadErr.Error()
	}
	return resp
}

func toOverviewResponse(o *services.PersonaOverview) OverviewResponse {
	resp := OverviewResponse{
		Persona:           toPersonaResponse(o.Persona),
		LastCompletedStep: o.LastCompletedStep,
		ResumeStep:        o.ResumeStep,
		TotalSteps:        o.TotalSteps,
		Completed:         o.IsCompleted(),
		Progress:          make([]ProgressResponse, 0, len(o.Progress)),
	}
	for _, p := range o.Progress {
		resp.Progress = append(resp.Progress, ProgressResponse{StepIndex: p.StepIndex, Status: p.Status, CompletedAt: p.CompletedAt})
	}
	if o.Upload != nil {
		resp.Upload = &UploadResponse{
			FileName:    o.Upload.FileName,
			ContentType: o.Upload.ContentType,
			Size:        o.Upload.Size,
			SHA256:      o.Upload.SHA256,
			UploadedAt:  o.Upload.UploadedAt,
		}
	}
	return resp
}
