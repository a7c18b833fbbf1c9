package fsm

type Phase string

const (
	PhaseLoading   Phase = "loading"
	PhaseActive    Phase = "active"
	PhaseCompleted Phase = "completed"
)

var transitions = map[Phase][]Phase{
	PhaseLoading: {PhaseActive, PhaseCompleted},
	PhaseActive:  {PhaseCompleted},
}

func CanTransition(from, to Phase) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (p Phase) AcceptsInput() bool {
	return p == PhaseActive
}
