package wizard

import "errors"

var (
	// Startup errors.
	ErrConfiguration = errors.New("wizard: invalid step registry")

	// Store and endpoint errors. These never leave the wizard unusable.
	ErrCheckpointLoad = errors.New("wizard: checkpoint load failed")
	ErrCheckpointSave = errors.New("wizard: checkpoint save failed")
	ErrStepSubmission = errors.New("wizard: step submission failed")

	// Transition errors.
	ErrStepNotSkippable   = errors.New("wizard: step cannot be skipped")
	ErrCannotGoBack       = errors.New("wizard: already on the first step")
	ErrSubmissionInFlight = errors.New("wizard: submission already in flight")
	ErrCheckpointLoading  = errors.New("wizard: checkpoint still loading")
	ErrWizardCompleted    = errors.New("wizard: onboarding already completed")
)
