// Package lifecycleerrors defines the sentinel error kinds raised across the
// agent lifecycle core, so callers can branch on error identity with
// errors.Is rather than parsing messages.
package lifecycleerrors

import "github.com/pkg/errors"

// Kind identifies the category of a lifecycle error for structured logging
// and observability attributes.
type Kind string

// Error kinds from the failure semantics table.
const (
	KindContextWindowExhausted Kind = "context_window_exhausted"
	KindHandoffLimitExceeded   Kind = "handoff_limit_exceeded"
	KindHandoffStoreUnavailable Kind = "handoff_store_unavailable"
	KindMalformedHandoff       Kind = "malformed_handoff"
	KindChainBroken            Kind = "chain_broken"
	KindChainCycle             Kind = "chain_cycle"
	KindModelCallTimeout       Kind = "model_call_timeout"
	KindClassificationFailed  Kind = "classification_failed"
	KindDuplicateMessage       Kind = "duplicate_message"
	KindNotFound               Kind = "not_found"
)

// LifecycleError wraps a Kind with a human-readable message and optional
// cause, so errors.Is(err, ErrContextWindowExhausted) works via the sentinel
// values below while still carrying contextual detail.
type LifecycleError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *LifecycleError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *LifecycleError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *LifecycleError with the same Kind, so
// errors.Is(err, &LifecycleError{Kind: KindChainBroken}) matches any
// LifecycleError of that kind regardless of message or cause.
func (e *LifecycleError) Is(target error) bool {
	other, ok := target.(*LifecycleError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New constructs a LifecycleError of the given kind.
func New(kind Kind, message string) error {
	return &LifecycleError{Kind: kind, Message: message}
}

// Wrap constructs a LifecycleError of the given kind, wrapping cause.
func Wrap(kind Kind, cause error, message string) error {
	return &LifecycleError{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) a *LifecycleError.
func KindOf(err error) (Kind, bool) {
	var le *LifecycleError
	if errors.As(err, &le) {
		return le.Kind, true
	}
	return "", false
}

// Sentinel values for errors.Is comparisons against a specific kind, e.g.
// errors.Is(err, ErrChainBroken).
var (
	ErrContextWindowExhausted  = &LifecycleError{Kind: KindContextWindowExhausted, Message: "context window exhausted"}
	ErrHandoffLimitExceeded    = &LifecycleError{Kind: KindHandoffLimitExceeded, Message: "handoff limit exceeded"}
	ErrHandoffStoreUnavailable = &LifecycleError{Kind: KindHandoffStoreUnavailable, Message: "handoff store unavailable"}
	ErrMalformedHandoff        = &LifecycleError{Kind: KindMalformedHandoff, Message: "malformed handoff"}
	ErrChainBroken             = &LifecycleError{Kind: KindChainBroken, Message: "handoff chain broken"}
	ErrChainCycle              = &LifecycleError{Kind: KindChainCycle, Message: "handoff chain cycle detected"}
	ErrModelCallTimeout        = &LifecycleError{Kind: KindModelCallTimeout, Message: "model call timeout"}
	ErrClassificationFailed    = &LifecycleError{Kind: KindClassificationFailed, Message: "classification failed"}
	ErrDuplicateMessage        = &LifecycleError{Kind: KindDuplicateMessage, Message: "duplicate message"}
	ErrNotFound                = &LifecycleError{Kind: KindNotFound, Message: "not found"}
)
