package proto

import "fmt"

// SessionBusyError reports a concurrent call on a session that already has an
// execution in flight. Callers should retry; the call is never interleaved.
type SessionBusyError struct {
	SessionID string
}

func (e *SessionBusyError) Error() string {
	return fmt.Sprintf("session %s is busy: another execution is in flight", e.SessionID)
}

// StaleInterruptError reports a decision referencing an interrupt that is not
// pending (already resolved, abandoned, or unknown). Rejected outright so a
// gated effect can never be double-executed.
type StaleInterruptError struct {
	InterruptID string
	Status      InterruptStatus // empty when the interrupt is unknown
}

func (e *StaleInterruptError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("interrupt %s is unknown", e.InterruptID)
	}
	return fmt.Sprintf("interrupt %s is %s, not pending", e.InterruptID, e.Status)
}

// CapabilityViolationError reports an internal invariant breach: a resolved
// tool set exposed a tool outside its domain affinity. Always fatal: it means
// the capability security boundary failed.
type CapabilityViolationError struct {
	Domain Domain
	Tool   string
}

func (e *CapabilityViolationError) Error() string {
	return fmt.Sprintf("capability violation: tool %q exposed to domain %q outside its affinity", e.Tool, e.Domain)
}
