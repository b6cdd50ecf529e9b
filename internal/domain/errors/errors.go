// Package errors defines the error kinds used across the discovery engine,
// per the propagation policy: the orchestrator never panics on a recoverable
// condition, it degrades and attaches a reason code to the decision log.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel kinds that carry no extra context. Compare with errors.Is.
var (
	// ErrMissingIntent is returned when an empty intent string is submitted
	// to a discovery operation.
	ErrMissingIntent = errors.New("missing intent")

	// ErrNoSearchEngine is returned when neither the SHGAT scorer nor the
	// hybrid fallback path is available.
	ErrNoSearchEngine = errors.New("no search engine available")

	// ErrIndexUnavailable signals the vector index could not be reached;
	// callers degrade to keyword search.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrStorageTransient signals a retryable storage failure.
	ErrStorageTransient = errors.New("transient storage error")

	// ErrParamShapeMismatch is returned by ImportParams when the blob's
	// tensor shapes don't match the running model's configuration.
	ErrParamShapeMismatch = errors.New("param shape mismatch")

	// ErrTrainingFailed is returned by the training worker's caller when
	// the subprocess exits non-zero or its output frame fails to parse.
	ErrTrainingFailed = errors.New("training failed")

	// ErrEmbeddingDimMismatch is a fatal init-time error: embeddings must
	// all be 1024-d.
	ErrEmbeddingDimMismatch = errors.New("embedding dimension mismatch")
)

// HierarchyCycle is returned by the graph store when a contains-edge write
// would introduce a cycle. It is fatal for the offending write only — the
// store itself is left unmodified.
type HierarchyCycle struct {
	From string
	To   string
}

func (e *HierarchyCycle) Error() string {
	return fmt.Sprintf("hierarchy cycle: adding contains edge %s -> %s would create a cycle", e.From, e.To)
}

// ConfigurationError reports a rejected configuration, e.g. an edge type
// that is disabled by a feature flag.
type ConfigurationError struct {
	Component string
	Message   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
}

// ValidationError reports a rejected field value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func NewConfigurationError(component, message string) *ConfigurationError {
	return &ConfigurationError{Component: component, Message: message}
}
