package crypto

import "crypto/rsa"

// Suite bundles the cryptographic primitives of the sync core. It is
// stateless apart from tuning parameters: every method is a pure function
// of its inputs plus OS randomness. It knows nothing about items, vaults
// or the network.
//
// All operations fail closed: Verify answers false instead of returning an
// error on malformed input, and the decrypt paths return an explicit error
// rather than garbage plaintext.
type Suite interface {
	// GenerateKeypair creates a fresh RSA keypair of the configured size.
	GenerateKeypair() (*rsa.PrivateKey, error)

	// Sign produces an RSA-PSS SHA-256 signature over data. PSS is
	// probabilistic; only verification is reproducible.
	Sign(priv *rsa.PrivateKey, data []byte) ([]byte, error)

	// Verify checks an RSA-PSS SHA-256 signature. Any failure, including
	// malformed input, yields false.
	Verify(pub *rsa.PublicKey, data, sig []byte) bool

	// WrapKey encrypts a short symmetric key for one recipient using
	// RSA-OAEP SHA-256.
	WrapKey(pub *rsa.PublicKey, key []byte) ([]byte, error)

	// UnwrapKey reverses WrapKey with the recipient's private key.
	UnwrapKey(priv *rsa.PrivateKey, wrapped []byte) ([]byte, error)

	// Encrypt encrypts plaintext of any length with AES-CBC and PKCS#5
	// padding under the caller-supplied key and IV.
	Encrypt(key, iv, plaintext []byte) ([]byte, error)

	// Decrypt reverses Encrypt. A padding or length inconsistency is
	// reported as an error, never as truncated plaintext.
	Decrypt(key, iv, ciphertext []byte) ([]byte, error)

	// DeriveKey runs PBKDF2-HMAC-SHA256 over the password.
	DeriveKey(password string, salt []byte, iterations, keyLen int) []byte

	// CalibrateIterations measures the host and picks an iteration count
	// that puts a single derivation inside the configured latency window,
	// never below the configured floor.
	CalibrateIterations() int

	// AuthCookie computes the HMAC-SHA256 password-check cookie over
	// random, keyed with the derived key.
	AuthCookie(key, random []byte) []byte

	// RandomBytes reads n bytes from the OS CSPRNG.
	RandomBytes(n int) ([]byte, error)
}
