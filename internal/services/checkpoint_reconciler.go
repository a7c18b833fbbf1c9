package services

import (
	"context"
	"log"

	"github.com/ad/persona-onboarding/internal/models"
	"github.com/ad/persona-onboarding/internal/store"
	"github.com/ad/persona-onboarding/internal/wizard"
)

// CheckpointReconciler wraps a checkpoint store and repairs checkpoints that
// lag behind the step progress recorded by the submission endpoints. A lag
// appears when a submission succeeded but the checkpoint write after it did
// not.
type CheckpointReconciler struct {
	checkpoints wizard.CheckpointStore
	steps       store.StepStore
	total       int
}

var _ wizard.CheckpointStore = (*CheckpointReconciler)(nil)

func NewCheckpointReconciler(checkpoints wizard.CheckpointStore, steps store.StepStore, total int) *CheckpointReconciler {
	return &CheckpointReconciler{
		checkpoints: checkpoints,
		steps:       steps,
		total:       total,
	}
}

func (r *CheckpointReconciler) LoadCheckpoint(ctx context.Context, personaID string) (*models.Checkpoint, error) {
	cp, err := r.checkpoints.LoadCheckpoint(ctx, personaID)
	if err != nil {
		return nil, err
	}

	progress, err := r.steps.GetPersonaProgress(ctx, personaID)
	if err != nil {
		log.Printf("[RECONCILE] Failed to load step progress for persona %s, using checkpoint as is: %v", personaID, err)
		return cp, nil
	}

	finished := FinishedPrefix(progress, r.total)
	last := 0
	if cp != nil {
		last = cp.LastCompletedStep
	}
	if finished <= last {
		return cp, nil
	}

	log.Printf("[RECONCILE] Checkpoint for persona %s at step %d, progress shows %d finished, repairing", personaID, last, finished)
	if err := r.checkpoints.SaveCheckpoint(ctx, personaID, finished); err != nil {
		log.Printf("[RECONCILE] Failed to repair checkpoint for persona %s: %v", personaID, err)
	}

	repaired := &models.Checkpoint{PersonaID: personaID, LastCompletedStep: finished}
	if cp != nil {
		repaired.UpdatedAt = cp.UpdatedAt
	}
	return repaired, nil
}

func (r *CheckpointReconciler) SaveCheckpoint(ctx context.Context, personaID string, lastCompletedStep int) error {
	return r.checkpoints.SaveCheckpoint(ctx, personaID, lastCompletedStep)
}

// FinishedPrefix returns the highest k such that every step 1..k has been
// submitted or skipped, capped at total.
func FinishedPrefix(progress []*models.StepProgress, total int) int {
	done := make(map[int]bool, len(progress))
	for _, p := range progress {
		if p.Status.IsValid() {
			done[p.StepIndex] = true
		}
	}

	k := 0
	for k < total && done[k+1] {
		k++
	}
	return k
}
