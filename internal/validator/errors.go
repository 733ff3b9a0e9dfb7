package validator

import "errors"

// Sentinel errors returned by item validation. Callers should use
// [errors.Is] to match against these values. Each rejected item carries
// exactly one of these as its reason.
var (
	// ErrCorruptRecord is returned when an item fails structural or
	// canonicalization checks before any cryptography runs.
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrSignatureInvalid is returned when the detached signature does
	// not verify against any certified signing key of the origin node.
	ErrSignatureInvalid = errors.New("signature invalid")

	// ErrUnknownSigner is returned when the origin node has no accepted
	// certificate and the item is not the vault's bootstrap certificate.
	ErrUnknownSigner = errors.New("unknown signer")

	// ErrRestricted is returned when a sync-only node authors an item its
	// certificate does not authorize.
	ErrRestricted = errors.New("operation not permitted for sync-only node")
)
