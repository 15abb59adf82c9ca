package llm

import (
	"errors"
	"fmt"

	"github.com/docintelhq/docintel/constants"
)

// FailureKind is the closed set of ways the structuring collaborator can fail.
type FailureKind int

const (
	KindUnknown FailureKind = iota
	KindAuth                // credential rejected
	KindRateLimit           // rate/quota exhausted
	KindService             // provider error, timeout, non-2xx
)

// CallError is the single error type the chat transport raises. The engine
// matches on Kind instead of unwrapping provider-specific error chains.
type CallError struct {
	Kind   FailureKind
	Status int // HTTP status when applicable, else 0
	Err    error
}

func (e *CallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("llm call failed (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("llm call failed: %v", e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// TagForError maps a transport error onto the processing-status taxonomy.
func TagForError(err error) constants.ProcessingStatus {
	var ce *CallError
	if errors.As(err, &ce) {
		switch ce.Kind {
		case KindAuth:
			return constants.StatusAuthError
		case KindRateLimit:
			return constants.StatusRateLimitError
		case KindService:
			return constants.StatusAPIError
		}
	}
	return constants.StatusUnknownError
}
