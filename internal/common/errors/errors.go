// Package errors provides standardized error handling for the collection
// and analysis pipeline.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeScrapeFailed     ErrorCode = "SCRAPE_FAILED"
	ErrCodeScrapePageLoad   ErrorCode = "SCRAPE_PAGE_LOAD_FAILED"
	ErrCodePDFExtractFailed ErrorCode = "PDF_EXTRACT_FAILED"
	ErrCodePayloadInvalid   ErrorCode = "NOTICE_PAYLOAD_INVALID"
	ErrCodeNoticeSaveFailed ErrorCode = "NOTICE_SAVE_FAILED"
	ErrCodeDuplicateNotice  ErrorCode = "DUPLICATE_NOTICE"

	ErrCodeMarketDataMissing ErrorCode = "MARKET_DATA_UNAVAILABLE"
	ErrCodeMarketAPIFailed   ErrorCode = "MARKET_API_FAILED"
	ErrCodeGeocodeFailed     ErrorCode = "GEOCODE_FAILED"

	ErrCodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryFailed        ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeSearchFailed       ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeIndexFailed        ErrorCode = "INDEX_WRITE_FAILED"

	ErrCodeNotificationFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// New creates a StandardError with the given code and message.
func New(code ErrorCode, message string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now(),
	}
}

// Wrap creates a StandardError carrying the underlying error's text as
// details.
func Wrap(code ErrorCode, message string, err error, retryable bool) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now(),
	}
}

// WithMetadata attaches context values to an error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

// NewScrapeError creates a retryable scraping failure.
func NewScrapeError(source, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeScrapeFailed,
		Message:   fmt.Sprintf("scraping %s failed", source),
		Details:   details,
		Retryable: true,
		Timestamp: time.Now(),
	}
}

// NewMarketDataMissing flags a degraded (not failed) market lookup; per the
// analysis contract the caller falls back to the neutral score.
func NewMarketDataMissing(legalDong string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMarketDataMissing,
		Message:   fmt.Sprintf("no market baseline for %q", legalDong),
		Retryable: false,
		Timestamp: time.Now(),
	}
}

// NewNotificationError creates a notification delivery failure.
func NewNotificationError(channel, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationFailed,
		Message:   fmt.Sprintf("sending %s notification failed", channel),
		Details:   details,
		Retryable: true,
		Timestamp: time.Now(),
	}
}
