package omnibridge

import "fmt"

// Error codes for specific failure types
const (
	ErrCodeMissingParameter = "MISSING_PARAMETER"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeInvalidResult    = "INVALID_RESULT"
	ErrCodeScript           = "SCRIPT_ERROR"
	ErrCodeNotImplemented   = "NOT_IMPLEMENTED"
	ErrCodeIDMismatch       = "ID_MISMATCH"
	ErrCodeTimeout          = "SCRIPT_TIMEOUT"

	// Operation-suffixed script failure codes.
	ErrCodeListFailed      = "LIST_FAILED"
	ErrCodeGetFailed       = "GET_FAILED"
	ErrCodeCreateFailed    = "CREATE_FAILED"
	ErrCodeUpdateFailed    = "UPDATE_FAILED"
	ErrCodeDeleteFailed    = "DELETE_FAILED"
	ErrCodeMoveFailed      = "MOVE_FAILED"
	ErrCodeSetStatusFailed = "SET_STATUS_FAILED"
	ErrCodeQueryFailed     = "QUERY_FAILED"
	ErrCodeBatchFailed     = "BATCH_FAILED"

	// Analytics failure codes.
	ErrCodeAnalysisFailed = "ANALYSIS_FAILED"
	ErrCodeStatsFailed    = "STATS_FAILED"
	ErrCodeVelocityFailed = "VELOCITY_FAILED"
)

// BridgeError is the structured error surfaced to clients: a short stable
// code for programmatic branching plus a descriptive message, and an
// optional remediation hint.
type BridgeError struct {
	Code    string                 // machine-readable code (e.g. ErrCodeNotFound)
	Op      string                 // the operation that failed (e.g. "folders.create")
	Message string                 // human-readable message
	Hint    string                 // optional remediation hint
	Details map[string]interface{} // optional structured details
	Cause   error                  // underlying error, if any
}

// Error implements the error interface.
func (e *BridgeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Op, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Op, e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error, allowing for error chaining.
func (e *BridgeError) Unwrap() error {
	return e.Cause
}

// ErrorCode exposes the stable code to packages that cannot import this one.
func (e *BridgeError) ErrorCode() string { return e.Code }

// ErrorHint exposes the remediation hint.
func (e *BridgeError) ErrorHint() string { return e.Hint }

// ErrorDetails exposes the structured detail map.
func (e *BridgeError) ErrorDetails() map[string]interface{} { return e.Details }

// NewError creates a new BridgeError.
func NewError(code, op, message string, cause error) *BridgeError {
	return &BridgeError{
		Code:    code,
		Op:      op,
		Message: message,
		Cause:   cause,
	}
}

// Specific error constructors

func NewMissingParameterError(op, param string) *BridgeError {
	return NewError(ErrCodeMissingParameter, op, fmt.Sprintf("missing required parameter '%s'", param), nil)
}

func NewInvalidParameterError(op, param, reason string) *BridgeError {
	e := NewError(ErrCodeMissingParameter, op, fmt.Sprintf("invalid parameter '%s': %s", param, reason), nil)
	e.Details = map[string]interface{}{"parameter": param}
	return e
}

func NewInvalidOperationError(entity, operation string) *BridgeError {
	return NewError(ErrCodeInvalidOperation, entity,
		fmt.Sprintf("unknown operation '%s' for entity '%s'", operation, entity), nil)
}

func NewNotFoundError(op, entity, id string) *BridgeError {
	e := NewError(ErrCodeNotFound, op, fmt.Sprintf("%s with id '%s' not found", entity, id), nil)
	e.Hint = fmt.Sprintf("use the %s list operation to discover valid ids", entity)
	return e
}

func NewInvalidResultError(op string, cause error) *BridgeError {
	return NewError(ErrCodeInvalidResult, op, "Invalid result", cause)
}

func NewScriptError(code, op, message string, details map[string]interface{}) *BridgeError {
	e := NewError(code, op, message, nil)
	e.Details = details
	return e
}

func NewNotImplementedError(op, message, hint string) *BridgeError {
	e := NewError(ErrCodeNotImplemented, op, message, nil)
	e.Hint = hint
	return e
}

func NewIDMismatchError(op, requested, returned string) *BridgeError {
	e := NewError(ErrCodeIDMismatch, op,
		fmt.Sprintf("lookup for id '%s' returned entity '%s'", requested, returned), nil)
	e.Details = map[string]interface{}{"requested": requested, "returned": returned}
	return e
}

func NewTimeoutError(op string, cause error) *BridgeError {
	e := NewError(ErrCodeTimeout, op, "script execution timed out", cause)
	e.Hint = "the external application may be busy; retry once it is responsive"
	return e
}

// FailureCode maps an operation name to its operation-suffixed failure code.
// Unrecognized operations fall back to the generic script error code.
func FailureCode(operation string) string {
	switch operation {
	case "list":
		return ErrCodeListFailed
	case "get":
		return ErrCodeGetFailed
	case "create", "batch_create":
		return ErrCodeCreateFailed
	case "update", "complete", "rename", "mark_reviewed", "set_review_interval", "nest":
		return ErrCodeUpdateFailed
	case "delete", "bulk_delete":
		return ErrCodeDeleteFailed
	case "move":
		return ErrCodeMoveFailed
	case "set_status":
		return ErrCodeSetStatusFailed
	case "query":
		return ErrCodeQueryFailed
	case "overdue_analysis":
		return ErrCodeAnalysisFailed
	case "productivity_stats":
		return ErrCodeStatsFailed
	case "task_velocity":
		return ErrCodeVelocityFailed
	default:
		return ErrCodeScript
	}
}
