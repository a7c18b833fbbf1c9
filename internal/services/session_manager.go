package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ad/persona-onboarding/internal/fsm"
	"github.com/ad/persona-onboarding/internal/wizard"
)

const DefaultMountTimeout = 10 * time.Second

// SessionManager keeps one wizard machine per persona for the lifetime of
// the process.
type SessionManager struct {
	registry     *wizard.Registry
	checkpoints  wizard.CheckpointStore
	submitter    wizard.Submitter
	mountTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*wizard.Machine
}

func NewSessionManager(registry *wizard.Registry, checkpoints wizard.CheckpointStore, submitter wizard.Submitter, mountTimeout time.Duration) *SessionManager {
	if mountTimeout <= 0 {
		mountTimeout = DefaultMountTimeout
	}
	return &SessionManager{
		registry:     registry,
		checkpoints:  checkpoints,
		submitter:    submitter,
		mountTimeout: mountTimeout,
		sessions:     make(map[string]*wizard.Machine),
	}
}

// Open returns the persona's machine, creating and mounting it on first use.
// A cached machine whose checkpoint load failed is replaced while the user
// has not moved, so the next Open retries the load.
// The checkpoint load is detached from ctx so an abandoned request cannot
// pin the session at step 1.
func (m *SessionManager) Open(ctx context.Context, personaID string) *wizard.Machine {
	m.mu.Lock()
	machine, ok := m.sessions[personaID]
	switch {
	case !ok:
		machine = wizard.NewMachine(personaID, m.registry, m.checkpoints, m.submitter)
		m.sessions[personaID] = machine
		log.Printf("[SESSION] Opened session for persona %s", personaID)
	case machine.Remountable():
		machine = wizard.NewMachine(personaID, m.registry, m.checkpoints, m.submitter)
		m.sessions[personaID] = machine
		log.Printf("[SESSION] Retrying checkpoint load for persona %s", personaID)
	}
	m.mu.Unlock()

	mountCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.mountTimeout)
	defer cancel()
	machine.Mount(mountCtx)

	return machine
}

func (m *SessionManager) Get(personaID string) (*wizard.Machine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	machine, ok := m.sessions[personaID]
	return machine, ok
}

func (m *SessionManager) Close(personaID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[personaID]; ok {
		delete(m.sessions, personaID)
		log.Printf("[SESSION] Closed session for persona %s", personaID)
	}
}

// Release evicts machine once its onboarding is completed. A later Open
// mounts a fresh machine from the stored checkpoint.
func (m *SessionManager) Release(machine *wizard.Machine) {
	if machine.Snapshot().Phase != fsm.PhaseCompleted {
		return
	}
	personaID := machine.PersonaID()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[personaID] == machine {
		delete(m.sessions, personaID)
		log.Printf("[SESSION] Released completed session for persona %s", personaID)
	}
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
