package extraction

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when no LLM key is configured. No request is made.
	ErrMissingAPIKey = errors.New("LLM API key is required")
	// ErrAnalysisFailed wraps every failure after the request was attempted.
	ErrAnalysisFailed = errors.New("content analysis failed")
	// ErrResponseFormat marks responses that are empty, not JSON, or off-schema.
	ErrResponseFormat = errors.New("response format error")
	// ErrEmptyContent is returned for blank page text.
	ErrEmptyContent = errors.New("page content is empty")
)

// analysisError wraps cause as "content analysis failed: <cause>".
func analysisError(cause error) error {
	return fmt.Errorf("%w: %w", ErrAnalysisFailed, cause)
}

// formatError wraps cause as "response format error: <msg>: <cause>".
func formatError(msg string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrResponseFormat, msg)
	}
	return fmt.Errorf("%w: %s: %w", ErrResponseFormat, msg, cause)
}
