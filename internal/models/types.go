package models

type StepKind string

const (
	StepKindUpload StepKind = "upload"
	StepKindForm   StepKind = "form"
	StepKindReview StepKind = "review"
)

type ProgressStatus string

const (
	StatusSubmitted ProgressStatus = "submitted"
	StatusSkipped   ProgressStatus = "skipped"
)

func (s ProgressStatus) IsValid() bool {
	switch s {
	case StatusSubmitted, StatusSkipped:
		return true
	default:
		return false
	}
}
