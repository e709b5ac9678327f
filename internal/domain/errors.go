package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error kinds surfaced by each component.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrFetch indicates that the upstream paper catalog was unreachable or returned malformed data.
	ErrFetch = errors.New("fetch failed")

	// ErrStore indicates a connection, authentication, or query failure against the paper store.
	ErrStore = errors.New("store failed")

	// ErrEmbedding indicates that the embedding model was unavailable or rejected its input.
	ErrEmbedding = errors.New("embedding failed")

	// ErrGeneration indicates that the text generation model was unavailable or exhausted.
	ErrGeneration = errors.New("generation failed")

	// ErrConfig indicates a missing or invalid required setting.
	ErrConfig = errors.New("invalid configuration")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// FetchError describes a failed catalog request.
type FetchError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s fetch error (status %d): %s", e.Source, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s fetch error: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s fetch error: %s", e.Source, e.Message)
}

// Unwrap exposes both ErrFetch and the underlying cause to errors.Is and errors.As.
func (e *FetchError) Unwrap() []error {
	return unwrapPair(ErrFetch, e.Cause)
}

// StoreError describes a failed paper store operation.
type StoreError struct {
	Backend string
	Op      string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s store %s: %s: %v", e.Backend, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s store %s: %s", e.Backend, e.Op, e.Message)
}

// Unwrap exposes both ErrStore and the underlying cause.
func (e *StoreError) Unwrap() []error {
	return unwrapPair(ErrStore, e.Cause)
}

// EmbeddingError describes a failed embedding call.
type EmbeddingError struct {
	Model   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *EmbeddingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("embedding (%s): %s: %v", e.Model, e.Message, e.Cause)
	}
	return fmt.Sprintf("embedding (%s): %s", e.Model, e.Message)
}

// Unwrap exposes both ErrEmbedding and the underlying cause.
func (e *EmbeddingError) Unwrap() []error {
	return unwrapPair(ErrEmbedding, e.Cause)
}

// GenerationError describes a failed text generation call.
type GenerationError struct {
	Provider string
	Template string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("generation (%s", e.Provider)
	if e.Template != "" {
		msg += ", " + e.Template
	}
	msg += "): " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both ErrGeneration and the underlying cause.
func (e *GenerationError) Unwrap() []error {
	return unwrapPair(ErrGeneration, e.Cause)
}

// ConfigError names a required setting that is missing or invalid.
type ConfigError struct {
	Key     string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Key, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ConfigError) Unwrap() error {
	return ErrConfig
}

func unwrapPair(kind, cause error) []error {
	if cause == nil {
		return []error{kind}
	}
	return []error{kind, cause}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewFetchError creates a new FetchError.
func NewFetchError(source string, statusCode int, message string, cause error) *FetchError {
	return &FetchError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

// NewStoreError creates a new StoreError.
func NewStoreError(backend, op, message string, cause error) *StoreError {
	return &StoreError{
		Backend: backend,
		Op:      op,
		Message: message,
		Cause:   cause,
	}
}

// NewEmbeddingError creates a new EmbeddingError.
func NewEmbeddingError(model, message string, cause error) *EmbeddingError {
	return &EmbeddingError{
		Model:   model,
		Message: message,
		Cause:   cause,
	}
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(provider, template, message string, cause error) *GenerationError {
	return &GenerationError{
		Provider: provider,
		Template: template,
		Message:  message,
		Cause:    cause,
	}
}

// NewConfigError creates a new ConfigError.
func NewConfigError(key, message string) *ConfigError {
	return &ConfigError{
		Key:     key,
		Message: message,
	}
}
