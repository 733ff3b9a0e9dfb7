package keymgr

import "errors"

// Sentinel errors returned by the key manager. Callers should use
// [errors.Is] to match against these values.
var (
	// ErrWrongPassword is returned when the password-check cookie of a
	// stored private key does not match the derived key. The check runs
	// before any decryption attempt, so a wrong password never reaches
	// the cipher.
	ErrWrongPassword = errors.New("wrong password")

	// ErrLocked is returned when private key material is requested while
	// the vault session is locked.
	ErrLocked = errors.New("vault is locked")

	// ErrCorruptKeyBlock is returned when a stored private key block is
	// structurally broken or fails to decrypt despite a passing password
	// check. Partial unlock success is treated as corruption, never as a
	// partially unlocked session.
	ErrCorruptKeyBlock = errors.New("corrupt private key block")
)
