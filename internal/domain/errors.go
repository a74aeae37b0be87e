package domain

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")

	// Field-level input errors; each matches ErrInvalidInput under errors.Is.
	ErrInvalidAmount error = &inputError{"invalid amount"}
	ErrInvalidTime   error = &inputError{"invalid time"}
	ErrInvalidDate   error = &inputError{"invalid date"}
	ErrInvalidFilter error = &inputError{"invalid filter"}

	// ErrModelUnavailable is returned when no classifier backs a model kind.
	ErrModelUnavailable   = errors.New("model unavailable")
	ErrPredictionFailed   = errors.New("prediction failed")
	ErrAnalysisInProgress = errors.New("analysis already in progress")

	ErrNotFound        = errors.New("record not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrRateLimited     = errors.New("rate limited")
)

type inputError struct{ msg string }

func (e *inputError) Error() string { return e.msg }
func (e *inputError) Unwrap() error { return ErrInvalidInput }
