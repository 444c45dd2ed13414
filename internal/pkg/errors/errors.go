package errors

import "errors"

// Sentinel errors forming the application error taxonomy. Services wrap
// these with fmt.Errorf("%w: ...") so callers can discriminate with
// errors.Is without depending on infrastructure error types.
var (
	// ErrValidation indicates caller-supplied input violated a precondition
	// (empty title, malformed patch). Surfaced synchronously, never retried.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates an operation referenced a nonexistent reminder ID.
	ErrNotFound = errors.New("reminder not found")
	// ErrStore indicates an I/O failure reading or writing the persisted
	// collections. Fatal to the requested operation.
	ErrStore = errors.New("store operation failed")
	// ErrScheduler indicates the notification scheduler rejected a schedule
	// or cancel request.
	ErrScheduler = errors.New("scheduling failed")
	// ErrShare indicates a share client failed to hand content to its target
	// platform. Non-fatal; collected per target.
	ErrShare = errors.New("share failed")
	// ErrInternal covers broken wiring and states that should be impossible.
	ErrInternal = errors.New("internal error")
)
