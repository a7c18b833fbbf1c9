package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/ad/persona-onboarding/internal/models"
)

type fakeCheckpoints struct {
	mu      sync.Mutex
	byID    map[string]*models.Checkpoint
	loadErr error
	saveErr error
	loads   int
	saves   []int
}

func newFakeCheckpoints() *fakeCheckpoints {
	return &fakeCheckpoints{byID: make(map[string]*models.Checkpoint)}
}

func (f *fakeCheckpoints) withCheckpoint(personaID string, last int) *fakeCheckpoints {
	f.byID[personaID] = &models.Checkpoint{PersonaID: personaID, LastCompletedStep: last, UpdatedAt: time.Now()}
	return f
}

func (f *fakeCheckpoints) LoadCheckpoint(_ context.Context, personaID string) (*models.Checkpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	cp, ok := f.byID[personaID]
	if !ok {
		return nil, nil
	}
	copied := *cp
	return &copied, nil
}

func (f *fakeCheckpoints) SaveCheckpoint(_ context.Context, personaID string, last int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, last)
	if f.saveErr != nil {
		return f.saveErr
	}
	f.byID[personaID] = &models.Checkpoint{PersonaID: personaID, LastCompletedStep: last, UpdatedAt: time.Now()}
	return nil
}

func (f *fakeCheckpoints) saveCalls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.saves...)
}

type fakeSubmitter struct {
	mu      sync.Mutex
	calls   []int
	skips   []int
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeSubmitter) SubmitStep(_ context.Context, _ string, step int, _ models.Payload) error {
	f.mu.Lock()
	f.calls = append(f.calls, step)
	started, release, err := f.started, f.release, f.err
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return err
}

func (f *fakeSubmitter) RecordSkip(_ context.Context, _ string, step int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skips = append(f.skips, step)
	return nil
}

func (f *fakeSubmitter) submitCalls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

func newMountedMachine(store *fakeCheckpoints, sub *fakeSubmitter) *Machine {
	m := NewMachine("persona-1", MustDefaultRegistry(), store, sub)
	m.Mount(context.Background())
	return m
}

func payload(data string) models.Payload {
	return models.Payload{Data: []byte(data)}
}
