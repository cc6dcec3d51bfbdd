package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the orchestration core. Wrap them with NewDomainError
// so callers can branch with errors.Is while logs keep operation context.
var (
	ErrNotFound          = fmt.Errorf("not found")
	ErrDuplicate         = fmt.Errorf("duplicate")
	ErrInvalidInput      = fmt.Errorf("invalid input")
	ErrNoAgentAvailable  = fmt.Errorf("no agent available")
	ErrCapacityExceeded  = fmt.Errorf("agent at maximum capacity")
	ErrAgentProcessing   = fmt.Errorf("agent processing failed")
	ErrFailoverExhausted = fmt.Errorf("all backup agents failed")
	ErrFailoverDisabled  = fmt.Errorf("automatic failover disabled")
	ErrValidationFailed  = fmt.Errorf("issue validation failed")
	ErrParseFailure      = fmt.Errorf("issue parsing failed")
	ErrLoopDetected      = fmt.Errorf("processing loop detected")
	ErrSessionNotFound   = fmt.Errorf("session not found")
	ErrConfigLoad        = fmt.Errorf("failed to load configuration")
	ErrArchiveStore      = fmt.Errorf("archive store operation failed")
	ErrCircuitOpen       = fmt.Errorf("circuit breaker open")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "Registry.Register")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a stable machine-readable error identifier for monitoring.
type ErrorCode string

const (
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeDuplicate         ErrorCode = "DUPLICATE"
	CodeInvalidInput      ErrorCode = "INVALID_INPUT"
	CodeNoAgentAvailable  ErrorCode = "NO_AGENT_AVAILABLE"
	CodeCapacityExceeded  ErrorCode = "CAPACITY_EXCEEDED"
	CodeAgentProcessing   ErrorCode = "AGENT_PROCESSING"
	CodeFailoverExhausted ErrorCode = "FAILOVER_EXHAUSTED"
	CodeFailoverDisabled  ErrorCode = "FAILOVER_DISABLED"
	CodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	CodeParseFailure      ErrorCode = "PARSE_FAILURE"
	CodeLoopDetected      ErrorCode = "LOOP_DETECTED"
	CodeSessionNotFound   ErrorCode = "SESSION_NOT_FOUND"
	CodeConfigLoad        ErrorCode = "CONFIG_LOAD"
	CodeArchiveStore      ErrorCode = "ARCHIVE_STORE"
	CodeCircuitOpen       ErrorCode = "CIRCUIT_OPEN"
	CodeUnknown           ErrorCode = "UNKNOWN"
)

var errorCodes = []struct {
	sentinel error
	code     ErrorCode
}{
	{ErrNotFound, CodeNotFound},
	{ErrDuplicate, CodeDuplicate},
	{ErrInvalidInput, CodeInvalidInput},
	{ErrNoAgentAvailable, CodeNoAgentAvailable},
	{ErrCapacityExceeded, CodeCapacityExceeded},
	{ErrAgentProcessing, CodeAgentProcessing},
	{ErrFailoverExhausted, CodeFailoverExhausted},
	{ErrFailoverDisabled, CodeFailoverDisabled},
	{ErrValidationFailed, CodeValidationFailed},
	{ErrParseFailure, CodeParseFailure},
	{ErrLoopDetected, CodeLoopDetected},
	{ErrSessionNotFound, CodeSessionNotFound},
	{ErrConfigLoad, CodeConfigLoad},
	{ErrArchiveStore, CodeArchiveStore},
	{ErrCircuitOpen, CodeCircuitOpen},
}

// ErrorCodeOf maps err to its ErrorCode, or CodeUnknown.
func ErrorCodeOf(err error) ErrorCode {
	for _, m := range errorCodes {
		if errors.Is(err, m.sentinel) {
			return m.code
		}
	}
	return CodeUnknown
}
