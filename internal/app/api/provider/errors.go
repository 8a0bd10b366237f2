package provider

import (
	"fmt"
	"strings"
)

// ProviderInitializationError is returned when a variant cannot be constructed or initialized
type ProviderInitializationError struct {
	Provider string
	Cause    error
}

func (e *ProviderInitializationError) Error() string {
	return fmt.Sprintf("failed to initialize %s provider: %v", e.Provider, e.Cause)
}

func (e *ProviderInitializationError) Unwrap() error { return e.Cause }

// ProviderUnavailableError is returned when an initialized provider reports itself unavailable
type ProviderUnavailableError struct {
	Provider string
	Reason   string
}

func (e *ProviderUnavailableError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s provider is not available", e.Provider)
	}
	return fmt.Sprintf("%s provider is not available: %s", e.Provider, e.Reason)
}

// ProviderOperationError wraps a backend failure during an operation
type ProviderOperationError struct {
	Provider  string
	Operation string
	Cause     error
	Retryable bool
}

func (e *ProviderOperationError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Operation, e.Cause)
}

func (e *ProviderOperationError) Unwrap() error { return e.Cause }

// NewOperationError wraps cause for the given provider operation
func NewOperationError(provider, operation string, cause error) *ProviderOperationError {
	return &ProviderOperationError{Provider: provider, Operation: operation, Cause: cause}
}

// Attempt records one step of a fallback chain
type Attempt struct {
	Provider string
	Skipped  bool
	Err      error
}

func (a Attempt) String() string {
	switch {
	case a.Skipped && a.Err != nil:
		return fmt.Sprintf("%s (skipped: %v)", a.Provider, a.Err)
	case a.Skipped:
		return fmt.Sprintf("%s (skipped)", a.Provider)
	case a.Err != nil:
		return fmt.Sprintf("%s (%v)", a.Provider, a.Err)
	default:
		return a.Provider
	}
}

// AllProvidersUnavailableError is returned when neither primary nor fallback could serve
type AllProvidersUnavailableError struct {
	Capability Capability
	Attempts   []Attempt
}

func (e *AllProvidersUnavailableError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		parts = append(parts, attempt.String())
	}
	return fmt.Sprintf("no %s provider available: tried %s", e.Capability, strings.Join(parts, ", "))
}

// Unwrap exposes every attempt's cause to errors.Is and errors.As
func (e *AllProvidersUnavailableError) Unwrap() []error {
	var errs []error
	for _, attempt := range e.Attempts {
		if attempt.Err != nil {
			errs = append(errs, attempt.Err)
		}
	}
	return errs
}
