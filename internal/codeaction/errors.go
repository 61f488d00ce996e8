package codeaction

import (
	"errors"
	"fmt"
)

// Standard errors returned by the registry and service.
var (
	// ErrDuplicateProvider indicates a provider ID is already registered.
	ErrDuplicateProvider = errors.New("provider already registered")

	// ErrProviderNotFound indicates no provider has the requested ID.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrInvalidProvider indicates a nil provider or one with an empty ID.
	ErrInvalidProvider = errors.New("invalid provider")
)

// InvalidTriggerError is returned when a trigger name cannot be parsed.
type InvalidTriggerError struct {
	Value string
}

// Error implements the error interface.
func (e *InvalidTriggerError) Error() string {
	return fmt.Sprintf("invalid trigger %q (want invoke or auto)", e.Value)
}

// ProviderError wraps a failure reported by a single provider.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}
