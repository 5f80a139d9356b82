package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	TypeConfiguration ErrorType = "CONFIGURATION"
	TypeAuth          ErrorType = "AUTH"
	TypeRateLimit     ErrorType = "RATE_LIMIT"
	TypeTransient     ErrorType = "TRANSIENT"
	TypeTimeout       ErrorType = "TIMEOUT"
	TypeSchema        ErrorType = "SCHEMA"
	TypePosition      ErrorType = "POSITION"
	TypePublish       ErrorType = "PUBLISH"
	TypeVCS           ErrorType = "VCS"
	TypeAI            ErrorType = "AI"
	TypeInternal      ErrorType = "INTERNAL"
)

// AppError represents a domain-level error with a type and an underlying error
type AppError struct {
	Type       ErrorType
	Message    string
	Context    map[string]interface{}
	Err        error
	Suggestion string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithError creates a new AppError with an underlying error
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    e.Context,
		Err:        err,
		Suggestion: e.Suggestion,
	}
}

// WithContext creates a new AppError with additional context
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	ctx := make(map[string]interface{})
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    ctx,
		Err:        e.Err,
		Suggestion: e.Suggestion,
	}
}

func (e *AppError) WithSuggestion(suggestion string) *AppError {
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    e.Context,
		Err:        e.Err,
		Suggestion: suggestion,
	}
}

// NewAppError creates a new AppError
func NewAppError(t ErrorType, msg string, err error) *AppError {
	return &AppError{
		Type:    t,
		Message: msg,
		Err:     err,
	}
}

// TypeOf returns the ErrorType of err, or TypeInternal when err carries none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return TypeInternal
}

// IsRetryable reports whether err is worth another attempt. Rate limits,
// transient service errors and timeouts qualify; auth and other client
// errors never do.
func IsRetryable(err error) bool {
	switch TypeOf(err) {
	case TypeRateLimit, TypeTransient, TypeTimeout:
		return true
	default:
		return false
	}
}

// IsFatal reports whether err must abort the whole review run. Only the
// oracle-call failures that survived retry exhaustion are fatal; everything
// else is absorbed with degraded output.
func IsFatal(err error) bool {
	switch TypeOf(err) {
	case TypeAuth, TypeRateLimit, TypeTransient, TypeTimeout:
		return true
	default:
		return false
	}
}

// Oracle call errors
var (
	ErrAuthenticationFailed = NewAppError(TypeAuth, "analysis service rejected the credential", nil).
				WithSuggestion("Check your API key: reviewmate config show")

	ErrRateLimitExceeded = NewAppError(TypeRateLimit, "analysis service rate limit exceeded", nil).
				WithSuggestion("Wait a few minutes and try again, or check your API quota")

	ErrTransientService = NewAppError(TypeTransient, "analysis service temporarily unavailable", nil).
				WithSuggestion("This is likely a temporary issue, please try again")

	ErrRequestTimeout = NewAppError(TypeTimeout, "analysis request timed out", nil).
				WithSuggestion("Increase request_timeout_seconds in the config for large diffs")
)

// Per-suggestion errors, never fatal to a batch
var (
	ErrInvalidSuggestionSchema = NewAppError(TypeSchema, "suggestion failed schema validation", nil)

	ErrPositionUnresolvable = NewAppError(TypePosition, "line not present in diff", nil)
)

// Publishing errors
var (
	ErrPublishFailed = NewAppError(TypePublish, "failed to publish review comment", nil).
		WithSuggestion("Check your GitHub token has 'repo' permissions")
)

// Configuration errors
var (
	ErrAPIKeyMissing = NewAppError(TypeConfiguration, "AI API key is missing", nil).
				WithSuggestion("Run: reviewmate config init")

	ErrTokenMissing = NewAppError(TypeConfiguration, "VCS token is missing", nil).
			WithSuggestion("Set the GitHub token: reviewmate config set-token <token>")

	ErrRepoMissing = NewAppError(TypeConfiguration, "repository owner/name not configured", nil).
			WithSuggestion("Pass --owner and --repo or set them in the config file")
)

// VCS errors
var (
	ErrPRNotFound = NewAppError(TypeVCS, "pull request not found", nil).
			WithSuggestion("Check the PR number and repository access permissions")

	ErrGetChangeSet = NewAppError(TypeVCS, "failed to fetch pull request change set", nil)
)
