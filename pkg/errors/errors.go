package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents transport-level fetch errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeEmptyResponse represents an empty body from the rendering proxy
	ErrorTypeEmptyResponse ErrorType = "empty_response"
	// ErrorTypeStructure represents an expected markup shape that was absent
	ErrorTypeStructure ErrorType = "structure"
	// ErrorTypeRateLimit represents rate limiting by the rendering proxy
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeStorage represents durable store errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// CrawlError represents a pipeline-specific error
type CrawlError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *CrawlError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if a fetch should be attempted again
func (e *CrawlError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeEmptyResponse, ErrorTypeStructure:
		return true
	default:
		return false
	}
}

// IsType reports whether err is a CrawlError of the given type
func IsType(err error, t ErrorType) bool {
	var ce *CrawlError
	if errors.As(err, &ce) {
		return ce.Type == t
	}
	return false
}

// New creates a new CrawlError
func New(errType ErrorType, source, message string, err error) *CrawlError {
	return &CrawlError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(source, message string, err error) *CrawlError {
	return New(ErrorTypeNetwork, source, message, err)
}

// NewEmptyResponse creates a new empty response error
func NewEmptyResponse(source string) *CrawlError {
	return New(ErrorTypeEmptyResponse, source, "empty response body", nil)
}

// NewStructure creates a new structural parse error
func NewStructure(source, message string) *CrawlError {
	return New(ErrorTypeStructure, source, message, nil)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, retryAfter string) *CrawlError {
	message := "rate limited"
	if retryAfter != "" {
		message = fmt.Sprintf("rate limited; retry after %s", retryAfter)
	}
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewStorage creates a new storage error
func NewStorage(message string, err error) *CrawlError {
	return New(ErrorTypeStorage, "storage", message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(message string, err error) *CrawlError {
	return New(ErrorTypePublisher, "publisher", message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlError {
	return New(ErrorTypeConfiguration, "config", message, err)
}
