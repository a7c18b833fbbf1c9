package fsm

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseLoading, PhaseActive, true},
		{PhaseLoading, PhaseCompleted, true},
		{PhaseActive, PhaseCompleted, true},
		{PhaseActive, PhaseLoading, false},
		{PhaseCompleted, PhaseActive, false},
		{PhaseCompleted, PhaseLoading, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestAcceptsInput(t *testing.T) {
	if !PhaseActive.AcceptsInput() {
		t.Error("active phase should accept input")
	}
	if PhaseLoading.AcceptsInput() || PhaseCompleted.AcceptsInput() {
		t.Error("only the active phase should accept input")
	}
}
