package registry

import "errors"

// Sentinel errors returned by the certificate registry. Callers should use
// [errors.Is] to match against these values.
var (
	// ErrNodeNotFound is returned by lookups for a node with no accepted
	// certificate.
	ErrNodeNotFound = errors.New("node certificate not found")

	// ErrUnknownSigner is returned when a certificate's issuing item is
	// not signed by an already-trusted node.
	ErrUnknownSigner = errors.New("unknown signer")

	// ErrAlreadyBootstrapped is returned when a second bootstrap
	// certificate is offered to a vault that already has its trust root.
	ErrAlreadyBootstrapped = errors.New("vault already bootstrapped")

	// ErrCorruptCertificate is returned when a certificate record is
	// structurally broken, e.g. an unparseable public key.
	ErrCorruptCertificate = errors.New("corrupt certificate")
)
