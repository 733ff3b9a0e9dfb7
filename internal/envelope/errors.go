package envelope

import "errors"

// Sentinel errors returned by the envelope codec. Callers should use
// [errors.Is] to match against these values.
var (
	// ErrNotAuthorizedRecipient is returned by Open when the node has no
	// wrapped key entry in the envelope: it was not an authorized
	// recipient at encryption time.
	ErrNotAuthorizedRecipient = errors.New("not an authorized recipient")

	// ErrDecryptionFailed is returned when unwrapping or decrypting
	// detects any padding or authentication inconsistency. Truncated or
	// garbage plaintext is never returned.
	ErrDecryptionFailed = errors.New("envelope decryption failed")

	// ErrCorruptEnvelope is returned when an envelope record is
	// structurally broken: bad base64, unknown algorithm tag, or a
	// malformed recipient key.
	ErrCorruptEnvelope = errors.New("corrupt envelope")

	// ErrNoRecipients is returned by Seal when the recipient set is
	// empty; an unreadable envelope is always a caller bug.
	ErrNoRecipients = errors.New("no recipients")
)
