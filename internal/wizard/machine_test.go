package wizard

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/ad/persona-onboarding/internal/fsm"
	"github.com/ad/persona-onboarding/internal/models"
	"pgregory.net/rapid"
)

func TestMount_NoCheckpointStartsAtStepOne(t *testing.T) {
	m := newMountedMachine(newFakeCheckpoints(), &fakeSubmitter{})

	snap := m.Snapshot()
	if snap.CurrentStep != 1 {
		t.Fatalf("expected step 1, got %d", snap.CurrentStep)
	}
	if snap.Phase != fsm.PhaseActive || snap.IsLoadingCheckpoint {
		t.Errorf("expected active phase after mount, got %s", snap.Phase)
	}
	if snap.StepName != "Resume Upload" {
		t.Errorf("expected step name Resume Upload, got %q", snap.StepName)
	}
}

func TestMount_ResumesAfterLastCompletedStep(t *testing.T) {
	m := newMountedMachine(newFakeCheckpoints().withCheckpoint("persona-1", 4), &fakeSubmitter{})

	snap := m.Snapshot()
	if snap.CurrentStep != 5 {
		t.Fatalf("expected step 5, got %d", snap.CurrentStep)
	}
	if !slices.Equal(snap.CompletedSteps, []int{1, 2, 3, 4}) {
		t.Errorf("expected steps 1-4 completed, got %v", snap.CompletedSteps)
	}
}

func TestMount_FullyCompletedCheckpointIsCapped(t *testing.T) {
	m := newMountedMachine(newFakeCheckpoints().withCheckpoint("persona-1", 11), &fakeSubmitter{})

	snap := m.Snapshot()
	if snap.CurrentStep != 11 {
		t.Fatalf("expected step 11, got %d", snap.CurrentStep)
	}
	if snap.Phase != fsm.PhaseCompleted {
		t.Errorf("expected completed phase, got %s", snap.Phase)
	}
	if err := m.Next(context.Background(), payload(`{}`)); !errors.Is(err, ErrWizardCompleted) {
		t.Errorf("expected ErrWizardCompleted, got %v", err)
	}
}

func TestProperty2_ResumeStepInvariant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		last := rapid.IntRange(-5, 30).Draw(rt, "lastCompletedStep")
		store := newFakeCheckpoints().withCheckpoint("persona-1", last)

		m := newMountedMachine(store, &fakeSubmitter{})
		snap := m.Snapshot()

		want := 1
		if last >= 1 {
			want = min(last+1, TotalSteps)
		}
		if snap.CurrentStep != want {
			rt.Fatalf("lastCompletedStep=%d: expected step %d, got %d", last, want, snap.CurrentStep)
		}
		if snap.CurrentStep < 1 || snap.CurrentStep > snap.TotalSteps {
			rt.Fatalf("current step %d outside [1,%d]", snap.CurrentStep, snap.TotalSteps)
		}
	})
}

func TestMount_LoadFailureFallsBackToStepOne(t *testing.T) {
	store := newFakeCheckpoints().withCheckpoint("persona-1", 6)
	store.loadErr = errors.New("connection refused")
	sub := &fakeSubmitter{}
	m := newMountedMachine(store, sub)

	snap := m.Snapshot()
	if snap.CurrentStep != 1 {
		t.Fatalf("expected fallback to step 1, got %d", snap.CurrentStep)
	}
	if !errors.Is(snap.LoadErr, ErrCheckpointLoad) {
		t.Errorf("expected ErrCheckpointLoad, got %v", snap.LoadErr)
	}
	if snap.Phase != fsm.PhaseActive {
		t.Fatalf("wizard must stay usable after a load failure, phase=%s", snap.Phase)
	}

	if !m.Remountable() {
		t.Error("untouched session after a load failure should be remountable")
	}

	if err := m.Next(context.Background(), payload(`{"file":"cv.pdf"}`)); err != nil {
		t.Fatalf("expected next to work after load failure: %v", err)
	}
	if got := m.Snapshot().CurrentStep; got != 2 {
		t.Errorf("expected step 2, got %d", got)
	}
	if m.Remountable() {
		t.Error("session with progress must not be remounted")
	}
}

func TestRemountable_HealthyMountIsNot(t *testing.T) {
	m := newMountedMachine(newFakeCheckpoints(), &fakeSubmitter{})
	if m.Remountable() {
		t.Error("successful mount must not be remountable")
	}
}

func TestMount_RunsOnce(t *testing.T) {
	store := newFakeCheckpoints()
	m := NewMachine("persona-1", MustDefaultRegistry(), store, &fakeSubmitter{})

	m.Mount(context.Background())
	m.Mount(context.Background())

	if store.loads != 1 {
		t.Errorf("expected exactly one checkpoint load, got %d", store.loads)
	}
	select {
	case <-m.Ready():
	default:
		t.Error("Ready channel should be closed after mount")
	}
}

func TestTransitionsBeforeMountAreRejected(t *testing.T) {
	sub := &fakeSubmitter{}
	m := NewMachine("persona-1", MustDefaultRegistry(), newFakeCheckpoints(), sub)

	if !m.IsLoadingCheckpoint() {
		t.Fatal("machine should report loading before mount")
	}
	if err := m.Next(context.Background(), payload(`{}`)); !errors.Is(err, ErrCheckpointLoading) {
		t.Errorf("Next: expected ErrCheckpointLoading, got %v", err)
	}
	if err := m.Skip(context.Background()); !errors.Is(err, ErrCheckpointLoading) {
		t.Errorf("Skip: expected ErrCheckpointLoading, got %v", err)
	}
	if err := m.Back(); !errors.Is(err, ErrCheckpointLoading) {
		t.Errorf("Back: expected ErrCheckpointLoading, got %v", err)
	}
	if len(sub.submitCalls()) != 0 {
		t.Error("no submission may happen while loading")
	}
}

func TestNext_AdvancesAndSavesCheckpointOnce(t *testing.T) {
	for k := 1; k < TotalSteps; k++ {
		store := newFakeCheckpoints().withCheckpoint("persona-1", k-1)
		sub := &fakeSubmitter{}
		m := newMountedMachine(store, sub)

		if err := m.Next(context.Background(), payload(`{"ok":true}`)); err != nil {
			t.Fatalf("step %d: unexpected error: %v", k, err)
		}

		if got := m.Snapshot().CurrentStep; got != k+1 {
			t.Errorf("step %d: expected current step %d, got %d", k, k+1, got)
		}
		if saves := store.saveCalls(); !slices.Equal(saves, []int{k}) {
			t.Errorf("step %d: expected one save with %d, got %v", k, k, saves)
		}
		if calls := sub.submitCalls(); !slices.Equal(calls, []int{k}) {
			t.Errorf("step %d: expected one submission, got %v", k, calls)
		}
	}
}

func TestNext_FinalStepCompletesWizard(t *testing.T) {
	store := newFakeCheckpoints().withCheckpoint("persona-1", 10)
	m := newMountedMachine(store, &fakeSubmitter{})

	if err := m.Next(context.Background(), payload(`{"confirmed":true}`)); err != nil {
		t.Fatal(err)
	}

	snap := m.Snapshot()
	if snap.CurrentStep != TotalSteps {
		t.Errorf("current step must be capped at %d, got %d", TotalSteps, snap.CurrentStep)
	}
	if snap.Phase != fsm.PhaseCompleted {
		t.Errorf("expected completed phase, got %s", snap.Phase)
	}
	if saves := store.saveCalls(); !slices.Equal(saves, []int{11}) {
		t.Errorf("expected checkpoint 11, got %v", saves)
	}
	if err := m.Back(); !errors.Is(err, ErrWizardCompleted) {
		t.Errorf("expected ErrWizardCompleted on back, got %v", err)
	}
}

func TestNext_ConcurrentCallsAreCoalesced(t *testing.T) {
	store := newFakeCheckpoints()
	sub := &fakeSubmitter{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	m := newMountedMachine(store, sub)

	done := make(chan error, 1)
	go func() {
		done <- m.Next(context.Background(), payload(`{"first":true}`))
	}()
	<-sub.started

	if err := m.Next(context.Background(), payload(`{"second":true}`)); !errors.Is(err, ErrSubmissionInFlight) {
		t.Errorf("expected ErrSubmissionInFlight, got %v", err)
	}
	if err := m.Skip(context.Background()); !errors.Is(err, ErrSubmissionInFlight) {
		t.Errorf("skip while pending: expected ErrSubmissionInFlight, got %v", err)
	}

	close(sub.release)
	if err := <-done; err != nil {
		t.Fatalf("first submission failed: %v", err)
	}

	if calls := sub.submitCalls(); len(calls) != 1 {
		t.Errorf("expected exactly one network submission, got %v", calls)
	}
	if got := m.Snapshot().CurrentStep; got != 2 {
		t.Errorf("expected single advance to step 2, got %d", got)
	}
}

func TestNext_SubmissionFailureKeepsStep(t *testing.T) {
	store := newFakeCheckpoints().withCheckpoint("persona-1", 2)
	sub := &fakeSubmitter{err: errors.New("502 bad gateway")}
	m := newMountedMachine(store, sub)

	err := m.Next(context.Background(), payload(`{"roles":["backend"]}`))
	if !errors.Is(err, ErrStepSubmission) {
		t.Fatalf("expected ErrStepSubmission, got %v", err)
	}

	snap := m.Snapshot()
	if snap.CurrentStep != 3 {
		t.Errorf("expected to stay on step 3, got %d", snap.CurrentStep)
	}
	if !errors.Is(snap.Err, ErrStepSubmission) {
		t.Errorf("expected error state to be populated, got %v", snap.Err)
	}
	if len(store.saveCalls()) != 0 {
		t.Error("no checkpoint write may happen after a failed submission")
	}

	sub.mu.Lock()
	sub.err = nil
	sub.mu.Unlock()

	if err := m.Next(context.Background(), payload(`{"roles":["backend"]}`)); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	snap = m.Snapshot()
	if snap.Err != nil {
		t.Errorf("error should be cleared after a successful retry, got %v", snap.Err)
	}
	if snap.CurrentStep != 4 {
		t.Errorf("expected step 4 after retry, got %d", snap.CurrentStep)
	}
}

func TestNext_CheckpointSaveFailureDoesNotRevert(t *testing.T) {
	store := newFakeCheckpoints()
	store.saveErr = errors.New("timeout")
	m := newMountedMachine(store, &fakeSubmitter{})

	if err := m.Next(context.Background(), payload(`{}`)); err != nil {
		t.Fatalf("save failure must not surface as a transition error: %v", err)
	}

	snap := m.Snapshot()
	if snap.CurrentStep != 2 {
		t.Errorf("expected step 2 despite save failure, got %d", snap.CurrentStep)
	}
	if snap.Err != nil {
		t.Errorf("save failure must not populate the error state, got %v", snap.Err)
	}
}

func TestSkip_NonSkippableStepIsNoop(t *testing.T) {
	store := newFakeCheckpoints().withCheckpoint("persona-1", 1)
	sub := &fakeSubmitter{}
	m := newMountedMachine(store, sub)

	if m.IsStepSkippable() {
		t.Fatal("step 2 must not be skippable")
	}

	err := m.Skip(context.Background())
	if !errors.Is(err, ErrStepNotSkippable) {
		t.Fatalf("expected ErrStepNotSkippable, got %v", err)
	}

	snap := m.Snapshot()
	if snap.CurrentStep != 2 {
		t.Errorf("expected to stay on step 2, got %d", snap.CurrentStep)
	}
	if !errors.Is(snap.Err, ErrStepNotSkippable) {
		t.Errorf("expected error state, got %v", snap.Err)
	}
	if len(store.saveCalls()) != 0 || len(sub.submitCalls()) != 0 || len(sub.skips) != 0 {
		t.Error("skipping a non-skippable step must not touch the network")
	}
}

func TestSkip_AdvancesWithoutSubmitting(t *testing.T) {
	store := newFakeCheckpoints()
	sub := &fakeSubmitter{}
	m := newMountedMachine(store, sub)

	if err := m.Skip(context.Background()); err != nil {
		t.Fatal(err)
	}

	snap := m.Snapshot()
	if snap.CurrentStep != 2 {
		t.Errorf("expected step 2, got %d", snap.CurrentStep)
	}
	if !slices.Equal(snap.SkippedSteps, []int{1}) {
		t.Errorf("expected step 1 recorded as skipped, got %v", snap.SkippedSteps)
	}
	if len(sub.submitCalls()) != 0 {
		t.Error("skip must not submit the step payload")
	}
	if !slices.Equal(sub.skips, []int{1}) {
		t.Errorf("expected skip to be recorded, got %v", sub.skips)
	}
	if saves := store.saveCalls(); !slices.Equal(saves, []int{1}) {
		t.Errorf("expected checkpoint 1, got %v", saves)
	}
}

func TestBack_DecrementsWithoutNetwork(t *testing.T) {
	store := newFakeCheckpoints().withCheckpoint("persona-1", 4)
	sub := &fakeSubmitter{}
	m := newMountedMachine(store, sub)

	if err := m.Back(); err != nil {
		t.Fatal(err)
	}

	if got := m.Snapshot().CurrentStep; got != 4 {
		t.Errorf("expected step 4, got %d", got)
	}
	if len(store.saveCalls()) != 0 || len(sub.submitCalls()) != 0 {
		t.Error("back must not issue network calls")
	}
	if store.loads != 1 {
		t.Errorf("back must not reload the checkpoint, loads=%d", store.loads)
	}
}

func TestBack_OnFirstStepIsRejected(t *testing.T) {
	m := newMountedMachine(newFakeCheckpoints(), &fakeSubmitter{})

	if err := m.Back(); !errors.Is(err, ErrCannotGoBack) {
		t.Fatalf("expected ErrCannotGoBack, got %v", err)
	}
	if got := m.Snapshot().CurrentStep; got != 1 {
		t.Errorf("expected step 1, got %d", got)
	}
}

func TestBack_ResubmissionNeverRegressesCheckpoint(t *testing.T) {
	store := newFakeCheckpoints().withCheckpoint("persona-1", 6)
	m := newMountedMachine(store, &fakeSubmitter{})

	for i := 0; i < 3; i++ {
		if err := m.Back(); err != nil {
			t.Fatal(err)
		}
	}
	if got := m.Snapshot().CurrentStep; got != 4 {
		t.Fatalf("expected step 4, got %d", got)
	}

	if err := m.Next(context.Background(), payload(`{"jobs":[]}`)); err != nil {
		t.Fatal(err)
	}

	if got := m.Snapshot().CurrentStep; got != 5 {
		t.Errorf("expected step 5 after resubmitting step 4, got %d", got)
	}
	if saves := store.saveCalls(); !slices.Equal(saves, []int{6}) {
		t.Errorf("checkpoint must stay at 6, got saves %v", saves)
	}
}

func TestScenario_FreshSessionThenRefresh(t *testing.T) {
	store := newFakeCheckpoints()
	sub := &fakeSubmitter{}
	reg := MustDefaultRegistry()

	first := NewMachine("persona-42", reg, store, sub)
	first.Mount(context.Background())

	snap := first.Snapshot()
	if snap.CurrentStep != 1 || snap.StepName != "Resume Upload" {
		t.Fatalf("expected to open on Resume Upload, got step %d %q", snap.CurrentStep, snap.StepName)
	}

	upload := models.Payload{Upload: &models.Upload{FileName: "cv.pdf", ContentType: "application/pdf", Content: []byte("%PDF")}}
	if err := first.Next(context.Background(), upload); err != nil {
		t.Fatal(err)
	}
	if saves := store.saveCalls(); !slices.Equal(saves, []int{1}) {
		t.Fatalf("expected checkpoint 1, got %v", saves)
	}
	if got := first.Snapshot().CurrentStep; got != 2 {
		t.Fatalf("expected step 2, got %d", got)
	}

	refreshed := NewMachine("persona-42", reg, store, sub)
	refreshed.Mount(context.Background())

	if got := refreshed.Snapshot().CurrentStep; got != 2 {
		t.Errorf("expected refresh to resume at step 2, got %d", got)
	}
}

func TestProperty4_RandomTransitionsKeepInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		store := newFakeCheckpoints()
		sub := &fakeSubmitter{}
		m := newMountedMachine(store, sub)
		reg := MustDefaultRegistry()

		ops := rapid.SliceOfN(rapid.SampledFrom([]string{"next", "skip", "back", "fail"}), 1, 40).Draw(rt, "ops")

		persisted, seen := 0, 0
		for _, op := range ops {
			before := m.Snapshot()
			var err error

			switch op {
			case "next":
				err = m.Next(context.Background(), payload(`{}`))
			case "skip":
				err = m.Skip(context.Background())
			case "back":
				err = m.Back()
			case "fail":
				sub.err = errors.New("boom")
				err = m.Next(context.Background(), payload(`{}`))
				sub.err = nil
			}

			after := m.Snapshot()
			if after.CurrentStep < 1 || after.CurrentStep > after.TotalSteps {
				rt.Fatalf("%s: current step %d out of range", op, after.CurrentStep)
			}

			def, _ := reg.Get(before.CurrentStep)
			switch {
			case before.Phase == fsm.PhaseCompleted:
				if !errors.Is(err, ErrWizardCompleted) {
					rt.Fatalf("%s after completion: expected ErrWizardCompleted, got %v", op, err)
				}
			case op == "back" && before.CurrentStep > 1:
				if after.CurrentStep != before.CurrentStep-1 {
					rt.Fatalf("back from %d landed on %d", before.CurrentStep, after.CurrentStep)
				}
			case op == "fail" || (op == "skip" && !def.Skippable):
				if after.CurrentStep != before.CurrentStep || after.Err == nil {
					rt.Fatalf("%s on step %d must keep the step and set an error", op, before.CurrentStep)
				}
			case op == "next" || op == "skip":
				want := min(before.CurrentStep+1, after.TotalSteps)
				if after.CurrentStep != want {
					rt.Fatalf("%s from %d landed on %d, want %d", op, before.CurrentStep, after.CurrentStep, want)
				}
			}

			saves := store.saveCalls()
			for _, s := range saves[seen:] {
				if s < persisted {
					rt.Fatalf("checkpoint regressed from %d to %d", persisted, s)
				}
				persisted = s
			}
			seen = len(saves)
		}
	})
}
