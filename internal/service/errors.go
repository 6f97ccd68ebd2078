package service

import (
	"fmt"
	"net/http"
)

// IndexingError reports that an uploaded or committed document could not be
// parsed, embedded or stored.
type IndexingError struct {
	Source string
	Err    error
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("failed to index %s: %v", e.Source, e.Err)
}

func (e *IndexingError) Unwrap() error {
	return e.Err
}

func (e *IndexingError) StatusCode() int {
	return http.StatusUnprocessableEntity
}

// InvalidInputError is a request the service refuses before doing any work.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return e.Message
}

func (e *InvalidInputError) StatusCode() int {
	return http.StatusBadRequest
}
