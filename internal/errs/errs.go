// Package errs defines the engine's error taxonomy (spec §7): typed values
// rather than exceptions, so every failure mode is recoverable by the
// caller that's supposed to recover it.
package errs

import "fmt"

// ConfigurationError reports a rejected config schema or unreadable file.
// Surfaced to the operator at startup; the process falls back to built-in
// defaults rather than refusing to start.
type ConfigurationError struct {
	Resource string // the config key or file path that failed
	Detail   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Resource, e.Detail)
}

// ValidationError reports a malformed /analyze payload. Never reaches the
// analyzer; the server maps it straight to HTTP 400.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Detail)
}

// DetectorFault reports an unexpected failure inside a single detector. The
// analyzer isolates it: that detector contributes no Detection, every other
// detector still runs, and the fault is logged at error level.
type DetectorFault struct {
	Detector string
	Cause    error
}

func (e *DetectorFault) Error() string {
	return fmt.Sprintf("detector %s faulted: %v", e.Detector, e.Cause)
}

func (e *DetectorFault) Unwrap() error { return e.Cause }

// WebhookError reports a timeout, network failure, malformed body, or
// non-2xx response from a webhook approval transport. It never transitions
// the referenced approval record (spec §8 property 7).
type WebhookError struct {
	ApprovalID string
	Detail     string
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("webhook error for approval %s: %s", e.ApprovalID, e.Detail)
}

// SecretsScanFault reports an exception during the output-path secrets
// scan. The output filter fails open on this: the unfiltered output is
// allowed through and the event logged at error level (documented risk,
// spec §7 and §9 Open Questions).
type SecretsScanFault struct {
	Cause error
}

func (e *SecretsScanFault) Error() string {
	return fmt.Sprintf("secrets scan fault: %v", e.Cause)
}

func (e *SecretsScanFault) Unwrap() error { return e.Cause }

// InvariantViolation reports an operation that would break a documented
// invariant (e.g. approving an already-terminal record). Callers return it
// as a typed failure result, never as a panic, except where spec §9
// explicitly calls for an exhaustive-switch panic on a genuinely unhandled
// enum case (a programming error, not a runtime condition).
type InvariantViolation struct {
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Detail)
}
