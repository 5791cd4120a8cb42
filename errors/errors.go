package errors

import (
	"fmt"
	"maps"
	"net/http"
)

// AppError is the error type every flowkit package returns for failures a
// caller may want to branch on. Code is stable; Message is for humans.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		msg += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the cause and returns e.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges details into e and returns e.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	maps.Copy(e.Details, details)
	return e
}

// WithDetail sets one detail and returns e.
func (e *AppError) WithDetail(key string, value any) *AppError {
	return e.WithDetails(map[string]any{key: value})
}

// New builds an AppError with no cause.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

// HasCode reports whether code appears anywhere in err's chain, including
// AppErrors nested as causes of other AppErrors.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		appErr, ok := AsAppError(err)
		if !ok {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// --- Constructors ---

// SplitFailed wraps a splitter failure.
func SplitFailed(stage string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeSplitFailed, Message: fmt.Sprintf("stage %q failed to split parent", stage),
		HTTPStatus: http.StatusUnprocessableEntity, Cause: cause,
		Details: map[string]any{"stage": stage},
	}
}

// StageFailed wraps a process/transform callback failure.
func StageFailed(stage string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeStageFailed, Message: fmt.Sprintf("stage %q failed to process item", stage),
		HTTPStatus: http.StatusUnprocessableEntity, Cause: cause,
		Details: map[string]any{"stage": stage},
	}
}

// JoinHandlerFailed wraps a join handler failure.
func JoinHandlerFailed(stage string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeJoinHandlerFailed, Message: fmt.Sprintf("join handler of stage %q failed", stage),
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
		Details: map[string]any{"stage": stage},
	}
}

// Panic converts a recovered panic value into an error.
func Panic(recovered any) *AppError {
	appErr := &AppError{
		Code: ErrCodePanic, Message: fmt.Sprintf("callback panicked: %v", recovered),
		HTTPStatus: http.StatusInternalServerError,
	}
	if err, ok := recovered.(error); ok {
		appErr.Cause = err
	}
	return appErr
}

// StateViolation creates an error for an illegal item state transition.
func StateViolation(op, from string) *AppError {
	return &AppError{
		Code: ErrCodeStateViolation, Message: fmt.Sprintf("cannot %s an item in state %s", op, from),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"operation": op, "state": from},
	}
}

// TypeMismatch creates an error for incompatible payload types.
func TypeMismatch(where string, want, got any) *AppError {
	return &AppError{
		Code: ErrCodeTypeMismatch, Message: fmt.Sprintf("%s: expected %v, got %v", where, want, got),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"where": where},
	}
}

// InvalidConfig creates an error for invalid configuration.
func InvalidConfig(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidConfig, Message: message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// InvalidInput creates an error for malformed external input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Details: details,
	}
}

// PipelineNotRunning creates an error for input posted before Start.
func PipelineNotRunning(name string) *AppError {
	return &AppError{
		Code: ErrCodePipelineNotRunning, Message: fmt.Sprintf("pipeline %q is not running", name),
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"pipeline": name},
	}
}

// PipelineClosed creates an error for input posted after Drain.
func PipelineClosed(name string) *AppError {
	return &AppError{
		Code: ErrCodePipelineClosed, Message: fmt.Sprintf("pipeline %q no longer accepts input", name),
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"pipeline": name},
	}
}

// Internal creates a new AppError for an unexpected internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}
