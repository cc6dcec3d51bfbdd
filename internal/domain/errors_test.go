package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorFormat(t *testing.T) {
	err := NewDomainError("Registry.Get", ErrNotFound, "agent 'cicd-agent'")
	want := "Registry.Get: agent 'cicd-agent': not found"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorFormatNoDetail(t *testing.T) {
	err := NewDomainError("Failover.Consult", ErrFailoverExhausted, "")
	want := "Failover.Consult: all backup agents failed"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("Guidance.ArchiveSession", ErrSessionNotFound, "s1")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Error("errors.Is should match ErrSessionNotFound")
	}
}

func TestDomainErrorAs(t *testing.T) {
	err := NewDomainError("Registry.Register", ErrDuplicate, "architecture-agent")
	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatal("errors.As should match *DomainError")
	}
	if de.Op != "Registry.Register" {
		t.Errorf("Op = %q, want %q", de.Op, "Registry.Register")
	}
}

// --- ErrorCode tests ---

func TestErrorCodeOf_DirectSentinel(t *testing.T) {
	assert.Equal(t, CodeNotFound, ErrorCodeOf(ErrNotFound))
	assert.Equal(t, CodeSessionNotFound, ErrorCodeOf(ErrSessionNotFound))
	assert.Equal(t, CodeCircuitOpen, ErrorCodeOf(ErrCircuitOpen))
	assert.Equal(t, CodeArchiveStore, ErrorCodeOf(ErrArchiveStore))
}

func TestErrorCodeOf_DomainError(t *testing.T) {
	err := NewDomainError("Registry.Get", ErrNotFound, "agent 'x'")
	assert.Equal(t, CodeNotFound, ErrorCodeOf(err))
}

func TestErrorCodeOf_WrappedError(t *testing.T) {
	// fmt.Errorf with %w wraps the sentinel.
	wrapped := fmt.Errorf("context: %w", ErrParseFailure)
	assert.Equal(t, CodeParseFailure, ErrorCodeOf(wrapped))
}

func TestErrorCodeOf_UnknownError(t *testing.T) {
	assert.Equal(t, CodeUnknown, ErrorCodeOf(fmt.Errorf("some random error")))
}

func TestErrorCodeOf_Nil(t *testing.T) {
	assert.Equal(t, CodeUnknown, ErrorCodeOf(nil))
}

func TestAllSentinelsHaveCodes(t *testing.T) {
	require.NotEmpty(t, errorCodes)
	for _, m := range errorCodes {
		assert.NotEmpty(t, m.code, "sentinel %v has empty code", m.sentinel)
		assert.NotEqual(t, CodeUnknown, m.code, "sentinel %v maps to UNKNOWN", m.sentinel)
	}
}

// --- WrapOp tests ---

func TestWrapOp_Nil(t *testing.T) {
	assert.Nil(t, WrapOp("anything", nil))
}

func TestWrapOp_Format(t *testing.T) {
	err := WrapOp("Guidance.ArchiveSession", ErrSessionNotFound)
	assert.Equal(t, "Guidance.ArchiveSession: session not found", err.Error())
}

func TestWrapOp_PreservesIs(t *testing.T) {
	err := WrapOp("Guidance.ArchiveSession", ErrSessionNotFound)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestWrapOp_PreservesErrorCode(t *testing.T) {
	err := WrapOp("Guidance.ArchiveSession", ErrSessionNotFound)
	assert.Equal(t, CodeSessionNotFound, ErrorCodeOf(err))
}

func TestWrapOp_Chain(t *testing.T) {
	inner := WrapOp("inner", ErrAgentProcessing)
	outer := WrapOp("outer", inner)
	assert.Equal(t, "outer: inner: agent processing failed", outer.Error())
	assert.True(t, errors.Is(outer, ErrAgentProcessing))
}
