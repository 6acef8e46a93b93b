// Package errs defines the error taxonomy shared across memengine's
// components, grouping failures into categories callers and the sync
// engine can act on without parsing error strings.
package errs

import "errors"

// Sentinel errors. Wrap with fmt.Errorf("...: %w", ErrX) to attach detail
// while keeping errors.Is classification intact.
var (
	// ErrInvalidArgument marks bad caller input: an empty query in semantic
	// mode, an unknown search mode, a malformed time expression, mutually
	// exclusive arguments. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks a lookup for an unknown content hash. Non-fatal.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a duplicate content_hash on store. Callers see this
	// as a (false, "duplicate") result, not a returned error, but the sync
	// engine and internal plumbing use the sentinel for classification.
	ErrConflict = errors.New("conflict")

	// ErrDimensionMismatch marks an embedding whose width disagrees with
	// the store's configured dimension. Fatal at initialization.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrStorageIO marks a local I/O failure. Surfaced to the caller, who
	// must assume the write did not commit.
	ErrStorageIO = errors.New("storage io error")

	// ErrTransient marks a remote failure class (network, rate limit,
	// upstream unavailable) that the sync engine retries with backoff.
	ErrTransient = errors.New("transient error")

	// ErrPermanent marks a remote rejection (bad payload, auth) that the
	// sync engine logs and drops after one attempt.
	ErrPermanent = errors.New("permanent error")

	// ErrTimeout marks a deadline exceeded on an async operation. Any
	// already-committed local write remains in effect.
	ErrTimeout = errors.New("timeout")

	// ErrEvaluatorUnavailable marks a quality tier that cannot run right
	// now. Triggers fallback to the next tier; never surfaces to callers.
	ErrEvaluatorUnavailable = errors.New("evaluator unavailable")

	// ErrAlreadyRunning marks the scheduler rejecting a trigger while a
	// consolidation pass, on any horizon, is already in progress.
	ErrAlreadyRunning = errors.New("already running")
)

// IsTransient reports whether err should be retried by the sync engine,
// i.e. it (or something it wraps) is ErrTransient or ErrTimeout.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

// IsPermanent reports whether err should be dropped without retry.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent) || errors.Is(err, ErrInvalidArgument)
}
