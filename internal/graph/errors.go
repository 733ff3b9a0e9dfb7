package graph

import "errors"

// Sentinel errors returned by the version graph. Callers should use
// [errors.Is] to match against these values.
var (
	// ErrOrphanVersion is returned when a version's parent has not been
	// seen yet. This is the one recoverable condition in the core: the
	// version is buffered and adopted when the parent arrives.
	ErrOrphanVersion = errors.New("orphan version: parent not yet seen")

	// ErrOrphanOverflow is returned when the bounded orphan buffer is
	// full and cannot hold another deferred version. The item remains in
	// the persisted log; a later replay recovers it.
	ErrOrphanOverflow = errors.New("orphan buffer full")

	// ErrCorruptVersion is returned for structurally impossible versions,
	// e.g. a version naming itself as parent.
	ErrCorruptVersion = errors.New("corrupt version")
)
