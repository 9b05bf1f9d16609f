package tracker

import (
	"errors"
	"fmt"
)

// ErrCardNotFound is matched by every RecordNotFoundError.
var ErrCardNotFound = errors.New("tracker record not found")

// RecordNotFoundError reports a 404 from the tracker API.
type RecordNotFoundError struct {
	Path string
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCardNotFound, e.Path)
}

func (e *RecordNotFoundError) Is(target error) bool {
	return target == ErrCardNotFound
}

// StatusError is a non-404 error response from the tracker API.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tracker request %s failed with status %d", e.Path, e.StatusCode)
}
