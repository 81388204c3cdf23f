package errors

import (
	"fmt"
	"time"
)

// Error codes
const (
	CodeAPIError       = "API_ERROR"
	CodeConfiguration  = "CONFIGURATION_ERROR"
	CodeRateLimit      = "RATE_LIMIT_ERROR"
	CodeEmptyGenerated = "EMPTY_GENERATION_ERROR"
	CodeParse          = "PARSE_ERROR"
	CodeStorage        = "STORAGE_ERROR"
	CodeService        = "SERVICE_ERROR"
)

type GenError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *GenError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *GenError) Unwrap() error {
	return e.Cause
}

func (e *GenError) WithCause(cause error) *GenError {
	e.Cause = cause
	return e
}

// APIError is a non-success response from a completion provider. Body keeps the
// provider's raw error text so callers can look for wait hints and quota markers.
type APIError struct {
	*GenError
	Provider string
	Body     string
}

func NewAPIError(provider string, statusCode int, body string) *APIError {
	return &APIError{
		GenError: &GenError{
			Message:    fmt.Sprintf("%s API error: %d %s", provider, statusCode, body),
			Code:       CodeAPIError,
			StatusCode: statusCode,
			Context: map[string]any{
				"provider": provider,
			},
		},
		Provider: provider,
		Body:     body,
	}
}

// IsRateLimited reports whether the provider answered 429.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// ConfigurationError is fatal: missing credentials or endpoints. Never retried.
type ConfigurationError struct {
	*GenError
	Field string
}

func NewConfigurationError(message, field string) *ConfigurationError {
	return &ConfigurationError{
		GenError: &GenError{
			Message: message,
			Code:    CodeConfiguration,
			Context: map[string]any{
				"field": field,
			},
		},
		Field: field,
	}
}

// RateLimitError is returned once the retry budget for 429 responses is spent.
type RateLimitError struct {
	*GenError
	Provider string
	Daily    bool
	Wait     time.Duration
}

func NewRateLimitError(provider string, daily bool, wait time.Duration, cause error) *RateLimitError {
	message := fmt.Sprintf("%s per-minute rate limit exceeded after retries", provider)
	if daily {
		message = fmt.Sprintf("%s daily limit exceeded. Wait ~7 min or switch provider/model", provider)
	}
	return &RateLimitError{
		GenError: &GenError{
			Message:    message,
			Code:       CodeRateLimit,
			StatusCode: 429,
			Context: map[string]any{
				"provider": provider,
				"daily":    daily,
				"wait":     wait.String(),
			},
			Cause: cause,
		},
		Provider: provider,
		Daily:    daily,
		Wait:     wait,
	}
}

// EmptyGenerationError marks a completion that came back empty or too short.
type EmptyGenerationError struct {
	*GenError
	Role     string
	Attempts int
}

func NewEmptyGenerationError(role string, attempts int) *EmptyGenerationError {
	return &EmptyGenerationError{
		GenError: &GenError{
			Message: fmt.Sprintf("%s produced no usable text after %d attempts", role, attempts),
			Code:    CodeEmptyGenerated,
			Context: map[string]any{
				"role":     role,
				"attempts": attempts,
			},
		},
		Role:     role,
		Attempts: attempts,
	}
}

// ParseError wraps malformed structured output. Callers recover by treating the
// result as empty.
type ParseError struct {
	*GenError
	Input string
}

func NewParseError(message, input string, cause error) *ParseError {
	return &ParseError{
		GenError: &GenError{
			Message: message,
			Code:    CodeParse,
			Context: map[string]any{
				"input_length": len(input),
			},
			Cause: cause,
		},
		Input: input,
	}
}

type StorageError struct {
	*GenError
	Sink      string
	Operation string
}

func NewStorageError(message, sink, operation string, cause error) *StorageError {
	return &StorageError{
		GenError: &GenError{
			Message:    message,
			Code:       CodeStorage,
			StatusCode: 500,
			Context: map[string]any{
				"sink":      sink,
				"operation": operation,
			},
			Cause: cause,
		},
		Sink:      sink,
		Operation: operation,
	}
}

type ServiceError struct {
	*GenError
	Service   string
	Operation string
}

func NewServiceError(message, service, operation string, cause error) *ServiceError {
	return &ServiceError{
		GenError: &GenError{
			Message:    message,
			Code:       CodeService,
			StatusCode: 500,
			Context: map[string]any{
				"service":   service,
				"operation": operation,
			},
			Cause: cause,
		},
		Service:   service,
		Operation: operation,
	}
}
