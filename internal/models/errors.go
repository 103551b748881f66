package models

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound is returned when an id lookup finds no record
	ErrProductNotFound = errors.New("product not found")

	// ErrReconcileFailed marks a remote mutation that succeeded but could not
	// be applied to the local dataset
	ErrReconcileFailed = errors.New("remote change could not be reconciled locally")
)

// DataLoadError reports a failed snapshot fetch or decode
type DataLoadError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *DataLoadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to load products from %s: status %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("failed to load products from %s: %v", e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// APIError is a non-success response from the remote products API
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// MutationError wraps a failed create/update round-trip
type MutationError struct {
	Op        string
	ProductID ProductID
	Err       error
}

func (e *MutationError) Error() string {
	if e.ProductID != "" {
		return fmt.Sprintf("%s product %s failed: %v", e.Op, e.ProductID, e.Err)
	}
	return fmt.Sprintf("%s product failed: %v", e.Op, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// StatusCode returns the remote status code when the API answered, 0 otherwise
func (e *MutationError) StatusCode() int {
	var apiErr *APIError
	if errors.As(e.Err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
