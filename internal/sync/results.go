package sync

// ApplyStatus reports how far an incoming item travelled through the
// pipeline.
type ApplyStatus int

const (
	// StatusRejected means validation failed; nothing was recorded.
	StatusRejected ApplyStatus = iota

	// StatusDuplicate means the exact item was already accepted; the
	// redelivery was a no-op.
	StatusDuplicate

	// StatusStored means the item was accepted and persisted but its
	// content was not folded into the version graph — the vault is
	// locked, this node is not a recipient, or the payload kind is
	// unknown to this build.
	StatusStored

	// StatusDeferred means the carried version waits in the orphan
	// buffer for its parent.
	StatusDeferred

	// StatusApplied means the item was accepted and its content folded.
	StatusApplied
)

// String implements fmt.Stringer.
func (s ApplyStatus) String() string {
	switch s {
	case StatusRejected:
		return "rejected"
	case StatusDuplicate:
		return "duplicate"
	case StatusStored:
		return "stored"
	case StatusDeferred:
		return "deferred"
	case StatusApplied:
		return "applied"
	default:
		return "unknown"
	}
}

// Result is the per-item outcome of a batch application. A batch never
// aborts on a failing item; each item carries its own status and error.
type Result struct {
	// ItemID identifies the item the result belongs to.
	ItemID string

	// Status is how far the item travelled.
	Status ApplyStatus

	// Err is the typed reason when the item was rejected, or a non-fatal
	// condition (e.g. not an authorized recipient) when it was stored
	// without folding. Nil on clean application.
	Err error
}
