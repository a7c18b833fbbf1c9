package models

// StepDefinition is one immutable entry of the onboarding catalog.
type StepDefinition struct {
	Index     int
	Key       string
	Name      string
	Skippable bool
	Kind      StepKind
}

func (s StepDefinition) IsUpload() bool {
	return s.Kind == StepKindUpload
}
