package reconcile

import "errors"

// Error taxonomy of the reconciliation engine. Handlers map these onto HTTP
// semantics: invalid signature → 400, illegal transition / blank reason → 400,
// precondition failures and replays → success, everything else → 5xx so the
// provider redelivers.
var (
	// ErrInvalidSignature means the inbound event could not be authenticated
	// against the shared secret. Never retried.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrIllegalTransition means the requested from/event pair is not in the
	// transition table. Rejected before any write, never retried.
	ErrIllegalTransition = errors.New("illegal payment state transition")

	// ErrPreconditionFailed means another writer already moved the record past
	// the expected prior state. Benign under at-least-once delivery.
	ErrPreconditionFailed = errors.New("state precondition no longer holds")

	// ErrBlankReason rejects an admin override without a reason.
	ErrBlankReason = errors.New("override reason must not be blank")

	// ErrReconciliationTimeout means the external processor did not answer a
	// status lookup within the configured bound.
	ErrReconciliationTimeout = errors.New("external payment reconciliation timed out")

	// ErrUnknownEvent means the envelope parsed but its type is not one the
	// engine applies.
	ErrUnknownEvent = errors.New("unknown event type")
)
