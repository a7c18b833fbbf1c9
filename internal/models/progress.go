package models

import "time"

type StepProgress struct {
	PersonaID   string
	StepIndex   int
	Status      ProgressStatus
	CompletedAt *time.Time
}

// Checkpoint is the durable record of the last completed step of a persona.
type Checkpoint struct {
	PersonaID         string
	LastCompletedStep int
	UpdatedAt         time.Time
}
