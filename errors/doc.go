// Package errors provides the structured error type used across flowkit.
//
// Every failure the engine surfaces is an *AppError carrying a
// machine-readable ErrorCode. User callback errors are never replaced: they
// are attached as the Cause, so errors.Is and errors.As from the standard
// library still reach the original value.
//
//	err := errors.StageFailed("enrich", cause)
//	if errors.HasCode(err, errors.ErrCodeStageFailed) { ... }
package errors
