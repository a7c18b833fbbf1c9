package wizard

import "github.com/ad/persona-onboarding/internal/models"

// ResumeStep is the step a session opens on: the one after the last
// completed step, capped at total, or 1 without a checkpoint.
func ResumeStep(cp *models.Checkpoint, total int) int {
	if cp == nil || cp.LastCompletedStep < 1 {
		return 1
	}
	next := cp.LastCompletedStep + 1
	if next > total {
		return total
	}
	return next
}

func lastCompleted(cp *models.Checkpoint, total int) int {
	if cp == nil || cp.LastCompletedStep < 1 {
		return 0
	}
	return min(cp.LastCompletedStep, total)
}
