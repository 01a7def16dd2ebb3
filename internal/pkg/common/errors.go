package common

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorResponse is the JSON body returned for failed API calls.
type ErrorResponse struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details string              `json:"details,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// CustomError carries an error code and the HTTP status the API layer maps it to.
type CustomError struct {
	Code    string
	Message string
	Err     error
	Status  int
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is matches on the error code, so wrapped copies of a sentinel still satisfy errors.Is.
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new CustomError.
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Wrap returns a copy of sentinel with err attached as its cause.
func Wrap(sentinel *CustomError, err error) *CustomError {
	return NewError(sentinel.Code, sentinel.Message, sentinel.Status, err)
}

// Wrapf is Wrap with a formatted cause.
func Wrapf(sentinel *CustomError, format string, args ...interface{}) *CustomError {
	return Wrap(sentinel, fmt.Errorf(format, args...))
}

// ValidationError aggregates every problem found while validating a record.
type ValidationError struct {
	fields map[string][]string
}

// NewValidationError creates an empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{fields: make(map[string][]string)}
}

// Add records a problem with field.
func (e *ValidationError) Add(field, message string) {
	e.fields[field] = append(e.fields[field], message)
}

// HasErrors reports whether any problem was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.fields) > 0
}

// Fields returns a copy of the field -> messages mapping.
func (e *ValidationError) Fields() map[string][]string {
	out := make(map[string][]string, len(e.fields))
	for k, v := range e.fields {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Has reports whether field has at least one problem.
func (e *ValidationError) Has(field string) bool {
	return len(e.fields[field]) > 0
}

// Error implements the error interface. Fields are listed in sorted order.
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.fields[k], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// ErrOrNil returns e when problems were recorded and nil otherwise.
func (e *ValidationError) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Error codes
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"   // 400
	ErrCodeValidation       = "VALIDATION_FAILED" // 400
	ErrCodeForbidden        = "FORBIDDEN"         // 403
	ErrCodeNotFound         = "NOT_FOUND"         // 404
	ErrCodeTooLarge         = "INPUT_TOO_LARGE"   // 413
	ErrCodeContentFiltered  = "CONTENT_FILTERED"  // 422
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS" // 429
	ErrCodeRequestTimeout   = "REQUEST_TIMEOUT"   // 408

	ErrCodeInternalError      = "INTERNAL_ERROR"          // 500
	ErrCodeSiteLayout         = "SITE_LAYOUT_CHANGED"     // 502
	ErrCodeFetchFailed        = "FETCH_FAILED"            // 502
	ErrCodeMalformedOutput    = "MALFORMED_MODEL_OUTPUT"  // 502
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"     // 503
)

// Predefined errors
var (
	ErrInvalidRequest     = NewError(ErrCodeInvalidRequest, "invalid request", http.StatusBadRequest, nil)
	ErrNotEnabled         = NewError(ErrCodeNotFound, "image and text extraction is not enabled", http.StatusNotFound, nil)
	ErrDisallowedByRobots = NewError(ErrCodeForbidden, "page is disallowed by robots.txt", http.StatusForbidden, nil)
	ErrInputTooLarge      = NewError(ErrCodeTooLarge, "input too large for model context", http.StatusRequestEntityTooLarge, nil)
	ErrContentFiltered    = NewError(ErrCodeContentFiltered, "model stopped due to content filter", http.StatusUnprocessableEntity, nil)
	ErrTooManyRequests    = NewError(ErrCodeTooManyRequests, "too many requests", http.StatusTooManyRequests, nil)
	ErrRequestTimeout     = NewError(ErrCodeRequestTimeout, "request timeout", http.StatusRequestTimeout, nil)

	ErrInternalError        = NewError(ErrCodeInternalError, "internal server error", http.StatusInternalServerError, nil)
	ErrSiteLayout           = NewError(ErrCodeSiteLayout, "site layout not recognized", http.StatusBadGateway, nil)
	ErrFetchFailed          = NewError(ErrCodeFetchFailed, "failed to fetch page", http.StatusBadGateway, nil)
	ErrMalformedModelOutput = NewError(ErrCodeMalformedOutput, "malformed model output", http.StatusBadGateway, nil)
	ErrServiceUnavailable   = NewError(ErrCodeServiceUnavailable, "extraction service unavailable", http.StatusServiceUnavailable, nil)

	ErrInvalidImageFormat = NewError("INVALID_IMAGE_FORMAT", "invalid image format", http.StatusBadRequest, nil)
	ErrInvalidImageSize   = NewError("INVALID_IMAGE_SIZE", "image exceeds size limit", http.StatusBadRequest, nil)
	ErrCacheMiss          = NewError("CACHE_MISS", "cache miss", http.StatusNotFound, nil)
)
