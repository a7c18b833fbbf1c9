package wizard

import (
	"fmt"
	"slices"

	"github.com/ad/persona-onboarding/internal/models"
)

const TotalSteps = 11

var defaultSteps = []models.StepDefinition{
	{Index: 1, Key: "resume_upload", Name: "Resume Upload", Skippable: true, Kind: models.StepKindUpload},
	{Index: 2, Key: "basic_info", Name: "Basic Info", Kind: models.StepKindForm},
	{Index: 3, Key: "job_preferences", Name: "Job Preferences", Kind: models.StepKindForm},
	{Index: 4, Key: "work_history", Name: "Work History", Skippable: true, Kind: models.StepKindForm},
	{Index: 5, Key: "education", Name: "Education", Skippable: true, Kind: models.StepKindForm},
	{Index: 6, Key: "skills", Name: "Skills", Kind: models.StepKindForm},
	{Index: 7, Key: "certifications", Name: "Certifications", Skippable: true, Kind: models.StepKindForm},
	{Index: 8, Key: "projects", Name: "Projects", Skippable: true, Kind: models.StepKindForm},
	{Index: 9, Key: "achievements", Name: "Achievements", Skippable: true, Kind: models.StepKindForm},
	{Index: 10, Key: "writing_style", Name: "Writing Style", Skippable: true, Kind: models.StepKindForm},
	{Index: 11, Key: "review", Name: "Review & Confirm", Kind: models.StepKindReview},
}

// Registry is the ordered, immutable step catalog. Indices are contiguous
// and start at 1.
type Registry struct {
	steps []models.StepDefinition
	byKey map[string]int
}

func DefaultSteps() []models.StepDefinition {
	return slices.Clone(defaultSteps)
}

func NewRegistry(defs []models.StepDefinition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: empty step catalog", ErrConfiguration)
	}

	steps := slices.Clone(defs)
	slices.SortStableFunc(steps, func(a, b models.StepDefinition) int {
		return a.Index - b.Index
	})

	byKey := make(map[string]int, len(steps))
	for i, step := range steps {
		if step.Index != i+1 {
			return nil, fmt.Errorf("%w: expected step index %d, got %d", ErrConfiguration, i+1, step.Index)
		}
		if step.Key == "" {
			return nil, fmt.Errorf("%w: step %d has no key", ErrConfiguration, step.Index)
		}
		if prev, exists := byKey[step.Key]; exists {
			return nil, fmt.Errorf("%w: key %q used by steps %d and %d", ErrConfiguration, step.Key, prev, step.Index)
		}
		byKey[step.Key] = step.Index
	}

	return &Registry{steps: steps, byKey: byKey}, nil
}

// MustDefaultRegistry panics if the built-in catalog is malformed. It is
// meant to be called once at startup.
func MustDefaultRegistry() *Registry {
	reg, err := NewRegistry(defaultSteps)
	if err != nil {
		panic(err)
	}
	return reg
}

func (r *Registry) Get(index int) (models.StepDefinition, bool) {
	if index < 1 || index > len(r.steps) {
		return models.StepDefinition{}, false
	}
	return r.steps[index-1], true
}

func (r *Registry) ByKey(key string) (models.StepDefinition, bool) {
	index, ok := r.byKey[key]
	if !ok {
		return models.StepDefinition{}, false
	}
	return r.steps[index-1], true
}

func (r *Registry) Len() int {
	return len(r.steps)
}

func (r *Registry) Steps() []models.StepDefinition {
	return slices.Clone(r.steps)
}
