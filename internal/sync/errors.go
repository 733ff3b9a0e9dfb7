package sync

import "errors"

// Sentinel errors returned by the engine. Callers should use [errors.Is]
// to match against these values.
var (
	// ErrQueueFull is returned by Enqueue when the apply queue cannot
	// take another batch. The transport layer retries; re-delivery is
	// always safe because acceptance is idempotent.
	ErrQueueFull = errors.New("apply queue full")

	// ErrNotBootstrapped is returned when authoring is attempted before
	// the vault has a trust root.
	ErrNotBootstrapped = errors.New("vault has no trust root yet")
)
