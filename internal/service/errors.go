package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrJobNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "job")
}

func NewErrVoterNotFound(epicNumber string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("voter %s not found", epicNumber)}
}

type ErrFileCorrupted struct {
	error
}

func NewErrFileCorrupted(message string) *ErrFileCorrupted {
	return &ErrFileCorrupted{fmt.Errorf("bad request: %s", message)}
}

// ErrExtractionFailed is returned when a single extraction ran out of
// attempts.
type ErrExtractionFailed struct {
	error
	EpicNumber string
	Attempts   int
}

func NewErrExtractionFailed(epicNumber string, attempts int, reason string) *ErrExtractionFailed {
	return &ErrExtractionFailed{
		error:      fmt.Errorf("could not extract %s: %s", epicNumber, reason),
		EpicNumber: epicNumber,
		Attempts:   attempts,
	}
}
