package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ad/persona-onboarding/internal/models"
	"github.com/ad/persona-onboarding/internal/wizard"
	"pgregory.net/rapid"
)

func TestProperty1_FinishedPrefixIsContiguous(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		total := rapid.IntRange(1, 20).Draw(rt, "total")
		steps := rapid.SliceOfDistinct(rapid.IntRange(1, total+3), func(i int) int { return i }).Draw(rt, "steps")

		var progress []*models.StepProgress
		done := make(map[int]bool)
		for _, step := range steps {
			status := rapid.SampledFrom([]models.ProgressStatus{models.StatusSubmitted, models.StatusSkipped}).Draw(rt, "status")
			progress = append(progress, &models.StepProgress{StepIndex: step, Status: status})
			done[step] = true
		}

		k := FinishedPrefix(progress, total)
		if k < 0 || k > total {
			rt.Fatalf("prefix %d out of range 0..%d", k, total)
		}
		for i := 1; i <= k; i++ {
			if !done[i] {
				rt.Fatalf("step %d inside prefix %d was never finished", i, k)
			}
		}
		if k < total && done[k+1] {
			rt.Fatalf("prefix %d stops before finished step %d", k, k+1)
		}
	})
}

func TestCheckpointReconciler_RepairsLaggingCheckpoint(t *testing.T) {
	s := setupTestStore(t)
	createPersona(t, s, "p1")
	ctx := context.Background()

	if err := s.SaveCheckpoint(ctx, "p1", 1); err != nil {
		t.Fatal(err)
	}
	for _, step := range []int{1, 2, 3} {
		if err := s.MarkSubmitted(ctx, "p1", step); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.MarkSkipped(ctx, "p1", 4); err != nil {
		t.Fatal(err)
	}
	// Step 6 without 5 must not count.
	if err := s.MarkSubmitted(ctx, "p1", 6); err != nil {
		t.Fatal(err)
	}

	r := NewCheckpointReconciler(s, s, wizard.TotalSteps)
	cp, err := r.LoadCheckpoint(ctx, "p1")
	if err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}
	if cp.LastCompletedStep != 4 {
		t.Errorf("expected repaired checkpoint at 4, got %d", cp.LastCompletedStep)
	}

	stored, _ := s.LoadCheckpoint(ctx, "p1")
	if stored.LastCompletedStep != 4 {
		t.Errorf("expected repair to be persisted, got %d", stored.LastCompletedStep)
	}
}

func TestCheckpointReconciler_KeepsCheckpointAhead(t *testing.T) {
	s := setupTestStore(t)
	createPersona(t, s, "p1")
	ctx := context.Background()

	if err := s.SaveCheckpoint(ctx, "p1", 5); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkSubmitted(ctx, "p1", 1); err != nil {
		t.Fatal(err)
	}

	r := NewCheckpointReconciler(s, s, wizard.TotalSteps)
	cp, err := r.LoadCheckpoint(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if cp.LastCompletedStep != 5 {
		t.Errorf("expected checkpoint 5 untouched, got %d", cp.LastCompletedStep)
	}
}

func TestCheckpointReconciler_NoCheckpointNoProgress(t *testing.T) {
	s := setupTestStore(t)
	createPersona(t, s, "p1")

	r := NewCheckpointReconciler(s, s, wizard.TotalSteps)
	cp, err := r.LoadCheckpoint(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if cp != nil {
		t.Errorf("expected nil checkpoint, got %+v", cp)
	}
}

type failingCheckpoints struct{}

func (failingCheckpoints) LoadCheckpoint(context.Context, string) (*models.Checkpoint, error) {
	return nil, errors.New("connection refused")
}

func (failingCheckpoints) SaveCheckpoint(context.Context, string, int) error {
	return errors.New("connection refused")
}

func TestCheckpointReconciler_PropagatesLoadError(t *testing.T) {
	s := setupTestStore(t)
	r := NewCheckpointReconciler(failingCheckpoints{}, s, wizard.TotalSteps)

	if _, err := r.LoadCheckpoint(context.Background(), "p1"); err == nil {
		t.Fatal("expected load error to propagate")
	}
}
