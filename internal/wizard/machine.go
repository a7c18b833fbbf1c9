package wizard

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/ad/persona-onboarding/internal/fsm"
	"github.com/ad/persona-onboarding/internal/models"
)

type CheckpointStore interface {
	// LoadCheckpoint returns nil and no error when the persona has none.
	LoadCheckpoint(ctx context.Context, personaID string) (*models.Checkpoint, error)
	SaveCheckpoint(ctx context.Context, personaID string, lastCompletedStep int) error
}

type Submitter interface {
	SubmitStep(ctx context.Context, personaID string, step int, payload models.Payload) error
}

// SkipRecorder is optionally implemented by a Submitter that wants to know
// about skipped steps. Failures are logged and never block the skip.
type SkipRecorder interface {
	RecordSkip(ctx context.Context, personaID string, step int) error
}

// Snapshot is a read-only copy of the wizard state handed to shells.
type Snapshot struct {
	PersonaID           string
	Phase               fsm.Phase
	CurrentStep         int
	TotalSteps          int
	StepName            string
	IsStepSkippable     bool
	IsLoadingCheckpoint bool
	CompletedSteps      []int
	SkippedSteps        []int
	Err                 error
	LoadErr             error
}

// Machine owns the wizard position of one onboarding session.
type Machine struct {
	personaID   string
	registry    *Registry
	checkpoints CheckpointStore
	submitter   Submitter

	mu        sync.Mutex
	phase     fsm.Phase
	current   int
	completed map[int]bool
	skipped   map[int]bool
	persisted int
	inFlight  bool
	err       error
	loadErr   error

	mountOnce sync.Once
	ready     chan struct{}
}

func NewMachine(personaID string, registry *Registry, checkpoints CheckpointStore, submitter Submitter) *Machine {
	return &Machine{
		personaID:   personaID,
		registry:    registry,
		checkpoints: checkpoints,
		submitter:   submitter,
		phase:       fsm.PhaseLoading,
		current:     1,
		completed:   make(map[int]bool),
		skipped:     make(map[int]bool),
		ready:       make(chan struct{}),
	}
}

func (m *Machine) PersonaID() string {
	return m.personaID
}

// Mount resolves the resume step from the stored checkpoint. Only the first
// call does any work; later calls return immediately.
func (m *Machine) Mount(ctx context.Context) {
	m.mountOnce.Do(func() {
		m.jumpToCheckpoint(ctx)
		close(m.ready)
	})
}

// Remountable reports whether the checkpoint load failed and the session has
// not moved since, so a fresh machine can retry the load without losing input.
func (m *Machine) Remountable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadErr != nil && !m.inFlight && len(m.completed) == 0 && len(m.skipped) == 0
}

// Ready is closed once the checkpoint has been resolved.
func (m *Machine) Ready() <-chan struct{} {
	return m.ready
}

func (m *Machine) jumpToCheckpoint(ctx context.Context) {
	cp, err := m.checkpoints.LoadCheckpoint(ctx, m.personaID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		log.Printf("[WIZARD] Failed to load checkpoint for persona %s, starting from step 1: %v", m.personaID, err)
		m.loadErr = fmt.Errorf("%w: %w", ErrCheckpointLoad, err)
		m.current = 1
		m.setPhase(fsm.PhaseActive)
		return
	}

	total := m.registry.Len()
	last := lastCompleted(cp, total)
	m.current = ResumeStep(cp, total)
	m.persisted = last
	for i := 1; i <= last; i++ {
		m.completed[i] = true
	}

	if last >= total {
		m.setPhase(fsm.PhaseCompleted)
		return
	}
	m.setPhase(fsm.PhaseActive)
}

// Next submits payload for the current step and advances on success.
func (m *Machine) Next(ctx context.Context, payload models.Payload) error {
	step, err := m.acquire()
	if err != nil {
		return err
	}

	if err := m.submitter.SubmitStep(ctx, m.personaID, step, payload); err != nil {
		m.mu.Lock()
		m.inFlight = false
		m.err = fmt.Errorf("%w: step %d: %w", ErrStepSubmission, step, err)
		failure := m.err
		m.mu.Unlock()

		log.Printf("[WIZARD] Step %d submission failed for persona %s: %v", step, m.personaID, err)
		return failure
	}

	m.advance(ctx, step, false)
	return nil
}

// Skip advances past the current step without submitting data. Skipping a
// step that is not skippable changes nothing but the error state.
func (m *Machine) Skip(ctx context.Context) error {
	step, err := m.acquire()
	if err != nil {
		return err
	}

	def, _ := m.registry.Get(step)
	if !def.Skippable {
		m.mu.Lock()
		m.inFlight = false
		m.err = fmt.Errorf("%w: step %d (%s)", ErrStepNotSkippable, step, def.Name)
		failure := m.err
		m.mu.Unlock()
		return failure
	}

	if recorder, ok := m.submitter.(SkipRecorder); ok {
		if err := recorder.RecordSkip(ctx, m.personaID, step); err != nil {
			log.Printf("[WIZARD] Failed to record skip of step %d for persona %s: %v", step, m.personaID, err)
		}
	}

	m.advance(ctx, step, true)
	return nil
}

// Back moves one step backwards for display only. The checkpoint is left
// untouched until the user resubmits.
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkAcceptsInput(); err != nil {
		return err
	}
	if m.current <= 1 {
		return ErrCannotGoBack
	}

	m.current--
	m.err = nil
	return nil
}

func (m *Machine) acquire() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkAcceptsInput(); err != nil {
		return 0, err
	}
	m.inFlight = true
	return m.current, nil
}

func (m *Machine) checkAcceptsInput() error {
	switch {
	case m.phase == fsm.PhaseLoading:
		return ErrCheckpointLoading
	case m.phase == fsm.PhaseCompleted:
		return ErrWizardCompleted
	case m.inFlight:
		return ErrSubmissionInFlight
	}
	return nil
}

// advance runs with inFlight held so the checkpoint write belongs to the
// same submission.
func (m *Machine) advance(ctx context.Context, step int, skipped bool) {
	total := m.registry.Len()

	m.mu.Lock()
	m.completed[step] = true
	if skipped {
		m.skipped[step] = true
	} else {
		delete(m.skipped, step)
	}
	if step >= total {
		m.current = total
		m.setPhase(fsm.PhaseCompleted)
	} else {
		m.current = step + 1
	}
	m.err = nil
	target := max(m.persisted, step)
	m.mu.Unlock()

	saveErr := m.checkpoints.SaveCheckpoint(ctx, m.personaID, target)

	m.mu.Lock()
	if saveErr == nil && target > m.persisted {
		m.persisted = target
	}
	m.inFlight = false
	m.mu.Unlock()

	if saveErr != nil {
		log.Printf("[WIZARD] %v: persona %s, step %d, continuing: %v", ErrCheckpointSave, m.personaID, target, saveErr)
	}
}

func (m *Machine) setPhase(next fsm.Phase) {
	if m.phase == next {
		return
	}
	if !fsm.CanTransition(m.phase, next) {
		log.Printf("[WIZARD] Ignoring invalid phase transition %s -> %s for persona %s", m.phase, next, m.personaID)
		return
	}
	m.phase = next
}

func (m *Machine) StepName() string {
	return m.Snapshot().StepName
}

func (m *Machine) IsStepSkippable() bool {
	return m.Snapshot().IsStepSkippable
}

func (m *Machine) IsLoadingCheckpoint() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase == fsm.PhaseLoading
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	def, _ := m.registry.Get(m.current)
	return Snapshot{
		PersonaID:           m.personaID,
		Phase:               m.phase,
		CurrentStep:         m.current,
		TotalSteps:          m.registry.Len(),
		StepName:            def.Name,
		IsStepSkippable:     def.Skippable && m.phase == fsm.PhaseActive,
		IsLoadingCheckpoint: m.phase == fsm.PhaseLoading,
		CompletedSteps:      sortedKeys(m.completed),
		SkippedSteps:        sortedKeys(m.skipped),
		Err:                 m.err,
		LoadErr:             m.loadErr,
	}
}

func sortedKeys(set map[int]bool) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
