package services

import "errors"

var (
	ErrUnknownStep    = errors.New("services: unknown step")
	ErrEmptyPayload   = errors.New("services: empty payload")
	ErrInvalidJSON    = errors.New("services: payload is not valid JSON")
	ErrUploadRequired = errors.New("services: resume upload requires a file")
	ErrUploadTooLarge = errors.New("services: resume upload too large")
)
