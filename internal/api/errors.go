package api

import (
	"errors"
	"net/http"

	"github.com/ad/persona-onboarding/internal/services"
	"github.com/ad/persona-onboarding/internal/store"
	"github.com/ad/persona-onboarding/internal/wizard"
)

// statusFor maps wizard and service errors onto HTTP statuses. Validation
// failures from the submission endpoint are checked before the generic
// submission failure they are wrapped in.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, wizard.ErrSubmissionInFlight),
		errors.Is(err, wizard.ErrCheckpointLoading):
		return http.StatusConflict
	case errors.Is(err, wizard.ErrStepNotSkippable),
		errors.Is(err, wizard.ErrCannotGoBack),
		errors.Is(err, wizard.ErrWizardCompleted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrEmptyPayload),
		errors.Is(err, services.ErrInvalidJSON),
		errors.Is(err, services.ErrUploadRequired),
		errors.Is(err, services.ErrUnknownStep):
		return http.StatusBadRequest
	case errors.Is(err, wizard.ErrStepSubmission):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
