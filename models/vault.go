package models

// KeyUse names one of the three keypairs a vault owns per node.
type KeyUse string

const (
	// KeySign is the item-signing keypair.
	KeySign KeyUse = "sign"

	// KeyEncrypt is the envelope key-wrap keypair.
	KeyEncrypt KeyUse = "encrypt"

	// KeyAuth is the pairing/session authentication keypair.
	KeyAuth KeyUse = "auth"
)

// KeyUses lists the key slots every vault must populate, in a fixed order.
var KeyUses = []KeyUse{KeySign, KeyEncrypt, KeyAuth}

// Vault is the local, never-replicated record of a vault membership on this
// device: identity, display name, the owning node identity, and the three
// keypairs whose private halves are stored only in encrypted form. Private
// key material exists in cleartext solely inside an unlocked in-memory
// session.
type Vault struct {
	// ID is the vault identity shared by all member nodes.
	ID string `json:"id"`

	// Name is the user-visible vault name.
	Name string `json:"name"`

	// Node is the identity of this device within the vault.
	Node string `json:"node"`

	// Keys maps key use to the stored keypair.
	Keys map[KeyUse]PrivateKeyBlock `json:"keys"`
}

// PrivateKeyBlock is one stored keypair: the public half in the clear, the
// private half encrypted under a password-derived key.
type PrivateKeyBlock struct {
	// Public is the base64-encoded PKIX (DER) public key.
	Public string `json:"public"`

	// Private is the base64-encoded ciphertext of the PKCS#8 (DER)
	// private key.
	Private string `json:"private"`

	// EncInfo describes how Private was encrypted and how to re-derive
	// the key from the password.
	EncInfo EncInfo `json:"encinfo"`

	// PwCheck allows a cheap wrong-password rejection without attempting
	// a full decrypt-and-parse of Private.
	PwCheck PwCheck `json:"pwcheck"`
}

// EncInfo is the encryption-info block of a stored private key.
type EncInfo struct {
	// Algo is the symmetric cipher tag, e.g. [CipherAESCBCPKCS5].
	Algo string `json:"algo"`

	// IV is the base64-encoded random initialization vector.
	IV string `json:"iv"`

	// KDF is the derivation function tag, e.g. [KDFPBKDF2SHA256].
	KDF string `json:"kdf"`

	// Salt is the base64-encoded random KDF salt.
	Salt string `json:"salt"`

	// Iterations is the KDF work factor, calibrated per host.
	Iterations int `json:"count"`

	// KeyLen is the derived key length in bytes.
	KeyLen int `json:"length"`
}

// PwCheck is the password-verification cookie of a stored private key: a
// keyed hash over a random nonce, verifiable only with the correct derived
// key.
type PwCheck struct {
	// Algo is the cookie algorithm tag, e.g. [PasswordCheckHMACSHA256].
	Algo string `json:"algo"`

	// Random is the base64-encoded nonce the cookie was computed over.
	Random string `json:"random"`

	// Cookie is the base64-encoded keyed hash of Random.
	Cookie string `json:"cookie"`
}
