package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Data-level failures. These never abort a pipeline.
const (
	// ErrCodeSplitFailed indicates a splitter callback failed for a parent.
	ErrCodeSplitFailed ErrorCode = "SPLIT_FAILED"
	// ErrCodeStageFailed indicates a process/transform callback failed for one item.
	ErrCodeStageFailed ErrorCode = "STAGE_FAILED"
	// ErrCodeJoinHandlerFailed indicates a join handler failed for a completed parent.
	ErrCodeJoinHandlerFailed ErrorCode = "JOIN_HANDLER_FAILED"
	// ErrCodePanic indicates a user callback panicked.
	ErrCodePanic ErrorCode = "PANIC"
)

// Contract violations
const (
	// ErrCodeStateViolation indicates an item was in the wrong state for the requested transition.
	ErrCodeStateViolation ErrorCode = "STATE_VIOLATION"
	// ErrCodeTypeMismatch indicates two linked stages (or an input) disagree on payload types.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"
	// ErrCodeInvalidConfig indicates invalid stage, pipeline or service configuration.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeInvalidInput indicates a malformed input submitted from outside the process.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Lifecycle errors
const (
	// ErrCodePipelineNotRunning indicates input was posted before Start.
	ErrCodePipelineNotRunning ErrorCode = "PIPELINE_NOT_RUNNING"
	// ErrCodePipelineClosed indicates input was posted after Drain began.
	ErrCodePipelineClosed ErrorCode = "PIPELINE_CLOSED"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// dataCodes are failures attributed to a single item rather than the pipeline.
var dataCodes = map[ErrorCode]bool{
	ErrCodeSplitFailed:       true,
	ErrCodeStageFailed:       true,
	ErrCodeJoinHandlerFailed: true,
	ErrCodePanic:             true,
}

// IsDataCode reports whether code describes a per-item failure.
func IsDataCode(code ErrorCode) bool {
	return dataCodes[code]
}
